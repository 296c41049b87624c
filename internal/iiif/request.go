// Package iiif parses IIIF Image API request paths into structured requests.
// Parsing is pure: no store or network access happens here, and a single
// malformed segment rejects the whole request.
package iiif

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformed is wrapped by every parse failure so callers can map any of
// them to a client error without inspecting the message.
var ErrMalformed = errors.New("malformed image request")

// RegionKind enumerates the region grammar forms.
type RegionKind int

const (
	RegionFull RegionKind = iota
	RegionSquare
	RegionPixel
	RegionPercent
)

// Region selects the rectangle of the source image to operate on.
type Region struct {
	Kind       RegionKind
	X, Y, W, H float64
}

// Full reports whether the region covers the whole image.
func (r Region) Full() bool { return r.Kind == RegionFull }

func (r Region) String() string {
	switch r.Kind {
	case RegionFull:
		return "full"
	case RegionSquare:
		return "square"
	case RegionPercent:
		return fmt.Sprintf("pct:%s,%s,%s,%s", trimFloat(r.X), trimFloat(r.Y), trimFloat(r.W), trimFloat(r.H))
	default:
		return fmt.Sprintf("%d,%d,%d,%d", int(r.X), int(r.Y), int(r.W), int(r.H))
	}
}

// SizeKind enumerates the size grammar forms.
type SizeKind int

const (
	SizeFull SizeKind = iota
	SizeMax
	SizeWidth    // "w,"
	SizeHeight   // ",h"
	SizePercent  // "pct:n"
	SizeExact    // "w,h"
	SizeConfined // "!w,h"
)

// Size selects the dimensions the region is scaled to.
type Size struct {
	Kind    SizeKind
	Width   int
	Height  int
	Percent float64
}

func (s Size) String() string {
	switch s.Kind {
	case SizeFull:
		return "full"
	case SizeMax:
		return "max"
	case SizeWidth:
		return fmt.Sprintf("%d,", s.Width)
	case SizeHeight:
		return fmt.Sprintf(",%d", s.Height)
	case SizePercent:
		return fmt.Sprintf("pct:%s", trimFloat(s.Percent))
	case SizeConfined:
		return fmt.Sprintf("!%d,%d", s.Width, s.Height)
	default:
		return fmt.Sprintf("%d,%d", s.Width, s.Height)
	}
}

// Rotation holds the rotation segment: optional mirror marker plus degrees.
type Rotation struct {
	Mirror bool
	Angle  float64
}

// Default reports a no-op rotation.
func (r Rotation) Default() bool { return !r.Mirror && r.Angle == 0 }

func (r Rotation) String() string {
	s := trimFloat(r.Angle)
	if r.Mirror {
		return "!" + s
	}
	return s
}

// Quality tokens accepted by the Image API.
const (
	QualityDefault = "default"
	QualityColor   = "color"
	QualityGray    = "gray"
	QualityBitonal = "bitonal"
)

var validQualities = map[string]bool{
	QualityDefault: true,
	QualityColor:   true,
	QualityGray:    true,
	QualityBitonal: true,
}

var validFormats = map[string]bool{
	"jpg": true, "tif": true, "png": true, "gif": true,
	"jp2": true, "pdf": true, "webp": true,
}

// ImageRequest is a fully parsed image request. Every field holds one of its
// enumerated forms; there is no partial acceptance.
type ImageRequest struct {
	Region   Region
	Size     Size
	Rotation Rotation
	Quality  string
	Format   string
}

// Parse validates the four path segments following the asset identifier.
// qualityFormat carries the final "quality.format" segment.
func Parse(region, size, rotation, qualityFormat string) (*ImageRequest, error) {
	req := &ImageRequest{}
	var err error
	if req.Region, err = parseRegion(region); err != nil {
		return nil, err
	}
	if req.Size, err = parseSize(size); err != nil {
		return nil, err
	}
	if req.Rotation, err = parseRotation(rotation); err != nil {
		return nil, err
	}
	if req.Quality, req.Format, err = parseQualityFormat(qualityFormat); err != nil {
		return nil, err
	}
	return req, nil
}

// Path re-serializes the request into its canonical
// "/{region}/{size}/{rotation}/{quality}.{format}" form.
func (r *ImageRequest) Path() string {
	return fmt.Sprintf("/%s/%s/%s/%s.%s", r.Region, r.Size, r.Rotation, r.Quality, r.Format)
}

func parseRegion(s string) (Region, error) {
	switch s {
	case "full":
		return Region{Kind: RegionFull}, nil
	case "square":
		return Region{Kind: RegionSquare}, nil
	}
	raw, pct := strings.CutPrefix(s, "pct:")
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return Region{}, fmt.Errorf("%w: region %q", ErrMalformed, s)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := parseCoord(p, pct)
		if err != nil {
			return Region{}, fmt.Errorf("%w: region %q", ErrMalformed, s)
		}
		vals[i] = v
	}
	if vals[2] <= 0 || vals[3] <= 0 {
		return Region{}, fmt.Errorf("%w: region %q has empty extent", ErrMalformed, s)
	}
	kind := RegionPixel
	if pct {
		kind = RegionPercent
	}
	return Region{Kind: kind, X: vals[0], Y: vals[1], W: vals[2], H: vals[3]}, nil
}

func parseCoord(s string, pct bool) (float64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty coordinate")
	}
	if pct {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("bad percent coordinate %q", s)
		}
		return v, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("bad pixel coordinate %q", s)
	}
	return float64(v), nil
}

func parseSize(s string) (Size, error) {
	switch s {
	case "full":
		return Size{Kind: SizeFull}, nil
	case "max":
		return Size{Kind: SizeMax}, nil
	}
	if rest, ok := strings.CutPrefix(s, "pct:"); ok {
		v, err := strconv.ParseFloat(rest, 64)
		if err != nil || v <= 0 {
			return Size{}, fmt.Errorf("%w: size %q", ErrMalformed, s)
		}
		return Size{Kind: SizePercent, Percent: v}, nil
	}
	raw, confined := strings.CutPrefix(s, "!")
	w, h, ok := strings.Cut(raw, ",")
	if !ok {
		return Size{}, fmt.Errorf("%w: size %q", ErrMalformed, s)
	}
	var size Size
	switch {
	case confined:
		size.Kind = SizeConfined
		if w == "" || h == "" {
			return Size{}, fmt.Errorf("%w: confined size %q needs both dimensions", ErrMalformed, s)
		}
	case w == "" && h == "":
		return Size{}, fmt.Errorf("%w: size %q", ErrMalformed, s)
	case h == "":
		size.Kind = SizeWidth
	case w == "":
		size.Kind = SizeHeight
	default:
		size.Kind = SizeExact
	}
	var err error
	if w != "" {
		if size.Width, err = parseDimension(w); err != nil {
			return Size{}, fmt.Errorf("%w: size %q", ErrMalformed, s)
		}
	}
	if h != "" {
		if size.Height, err = parseDimension(h); err != nil {
			return Size{}, fmt.Errorf("%w: size %q", ErrMalformed, s)
		}
	}
	return size, nil
}

func parseDimension(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("bad dimension %q", s)
	}
	return v, nil
}

func parseRotation(s string) (Rotation, error) {
	raw, mirror := strings.CutPrefix(s, "!")
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 || v >= 360 {
		return Rotation{}, fmt.Errorf("%w: rotation %q", ErrMalformed, s)
	}
	return Rotation{Mirror: mirror, Angle: v}, nil
}

func parseQualityFormat(s string) (quality, format string, err error) {
	quality, format, ok := strings.Cut(s, ".")
	if !ok {
		return "", "", fmt.Errorf("%w: expected quality.format, got %q", ErrMalformed, s)
	}
	if !validQualities[quality] {
		return "", "", fmt.Errorf("%w: unknown quality %q", ErrMalformed, quality)
	}
	if !validFormats[format] {
		return "", "", fmt.Errorf("%w: unknown format %q", ErrMalformed, format)
	}
	return quality, format, nil
}

// trimFloat formats a float without a trailing ".0" so canonical paths stay
// byte-identical to their common integer spellings.
func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
