package iiif

import (
	"errors"
	"testing"
)

func TestParseValidRequests(t *testing.T) {
	tests := []struct {
		name     string
		segments [4]string
		want     ImageRequest
		path     string
	}{
		{
			name:     "full region confined size",
			segments: [4]string{"full", "!200,200", "0", "default.jpg"},
			want: ImageRequest{
				Region:  Region{Kind: RegionFull},
				Size:    Size{Kind: SizeConfined, Width: 200, Height: 200},
				Quality: "default", Format: "jpg",
			},
			path: "/full/!200,200/0/default.jpg",
		},
		{
			name:     "square region exact size",
			segments: [4]string{"square", "400,300", "90", "color.png"},
			want: ImageRequest{
				Region:   Region{Kind: RegionSquare},
				Size:     Size{Kind: SizeExact, Width: 400, Height: 300},
				Rotation: Rotation{Angle: 90},
				Quality:  "color", Format: "png",
			},
			path: "/square/400,300/90/color.png",
		},
		{
			name:     "pixel region width-only size mirrored",
			segments: [4]string{"10,20,400,300", "150,", "!0", "gray.tif"},
			want: ImageRequest{
				Region:   Region{Kind: RegionPixel, X: 10, Y: 20, W: 400, H: 300},
				Size:     Size{Kind: SizeWidth, Width: 150},
				Rotation: Rotation{Mirror: true},
				Quality:  "gray", Format: "tif",
			},
			path: "/10,20,400,300/150,/!0/gray.tif",
		},
		{
			name:     "percent region percent size",
			segments: [4]string{"pct:5,5,90,90", "pct:50", "22.5", "bitonal.webp"},
			want: ImageRequest{
				Region:   Region{Kind: RegionPercent, X: 5, Y: 5, W: 90, H: 90},
				Size:     Size{Kind: SizePercent, Percent: 50},
				Rotation: Rotation{Angle: 22.5},
				Quality:  "bitonal", Format: "webp",
			},
			path: "/pct:5,5,90,90/pct:50/22.5/bitonal.webp",
		},
		{
			name:     "height-only size",
			segments: [4]string{"full", ",600", "0", "default.jp2"},
			want: ImageRequest{
				Region:  Region{Kind: RegionFull},
				Size:    Size{Kind: SizeHeight, Height: 600},
				Quality: "default", Format: "jp2",
			},
			path: "/full/,600/0/default.jp2",
		},
		{
			name:     "max size",
			segments: [4]string{"full", "max", "0", "default.jpg"},
			want: ImageRequest{
				Region:  Region{Kind: RegionFull},
				Size:    Size{Kind: SizeMax},
				Quality: "default", Format: "jpg",
			},
			path: "/full/max/0/default.jpg",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(tc.segments[0], tc.segments[1], tc.segments[2], tc.segments[3])
			if err != nil {
				t.Fatalf("Parse returned error: %v", err)
			}
			if *got != tc.want {
				t.Fatalf("Parse = %+v, want %+v", *got, tc.want)
			}
			if got.Path() != tc.path {
				t.Fatalf("Path() = %q, want %q", got.Path(), tc.path)
			}
		})
	}
}

func TestParseCanonicalisesRoundTrip(t *testing.T) {
	// Normalization must be idempotent: parse the canonical form again and
	// get the same path out.
	req, err := Parse("full", "!200,200", "0", "default.jpg")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if req.Size.Kind != SizeConfined || req.Size.Width != 200 || req.Size.Height != 200 {
		t.Fatalf("size not reported as confined 200x200: %+v", req.Size)
	}
	again, err := Parse("full", req.Size.String(), req.Rotation.String(), req.Quality+"."+req.Format)
	if err != nil {
		t.Fatalf("re-parse returned error: %v", err)
	}
	if again.Path() != req.Path() {
		t.Fatalf("round trip changed path: %q vs %q", again.Path(), req.Path())
	}
}

func TestParseRejectsMalformedSegments(t *testing.T) {
	tests := []struct {
		name     string
		segments [4]string
	}{
		{"unknown region token", [4]string{"entire", "max", "0", "default.jpg"}},
		{"region too few coords", [4]string{"10,20,400", "max", "0", "default.jpg"}},
		{"region zero extent", [4]string{"0,0,0,100", "max", "0", "default.jpg"}},
		{"region negative", [4]string{"-1,0,10,10", "max", "0", "default.jpg"}},
		{"size bare comma", [4]string{"full", ",", "0", "default.jpg"}},
		{"size zero width", [4]string{"full", "0,", "0", "default.jpg"}},
		{"confined missing height", [4]string{"full", "!200,", "0", "default.jpg"}},
		{"size not numeric", [4]string{"full", "a,b", "0", "default.jpg"}},
		{"percent size zero", [4]string{"full", "pct:0", "0", "default.jpg"}},
		{"rotation out of range", [4]string{"full", "max", "360", "default.jpg"}},
		{"rotation not numeric", [4]string{"full", "max", "ninety", "default.jpg"}},
		{"unknown quality", [4]string{"full", "max", "0", "sepia.jpg"}},
		{"unknown format", [4]string{"full", "max", "0", "default.bmp"}},
		{"missing format", [4]string{"full", "max", "0", "default"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.segments[0], tc.segments[1], tc.segments[2], tc.segments[3])
			if err == nil {
				t.Fatalf("Parse(%v) expected error", tc.segments)
			}
			if !errors.Is(err, ErrMalformed) {
				t.Fatalf("error %v does not wrap ErrMalformed", err)
			}
		})
	}
}
