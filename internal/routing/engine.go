// Package routing decides which backend target serves a parsed image
// request. Routing is a pure decision over its inputs; the only I/O is the
// thumbnail-size index lookup.
package routing

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"orchestrator/internal/domain"
	"orchestrator/internal/iiif"
)

// Destination enumerates the backend targets.
type Destination int

const (
	// DestinationImageServer sends the request to the full image server
	// (tile/region capable, expensive).
	DestinationImageServer Destination = iota
	// DestinationThumbs serves a pre-computed thumbnail.
	DestinationThumbs
	// DestinationResizeThumbs asks the thumbs service to derive the size on
	// demand from an existing larger thumbnail.
	DestinationResizeThumbs
	// DestinationFallback forwards the original request unmodified to the
	// general-purpose proxy path.
	DestinationFallback
)

func (d Destination) String() string {
	switch d {
	case DestinationImageServer:
		return "image-server"
	case DestinationThumbs:
		return "thumbs"
	case DestinationResizeThumbs:
		return "resize-thumbs"
	default:
		return "fallback"
	}
}

// ProxyAction is the routing outcome: where to send the request and the
// rewritten path the target should receive.
type ProxyAction struct {
	Destination Destination
	Path        string
}

// Engine applies the tiered routing decision. Access control has already
// been evaluated by the caller; an unauthorized request never reaches Route.
type Engine struct {
	thumbs    SizeLookup
	canResize bool
	log       zerolog.Logger
}

// NewEngine constructs an Engine. canResize gates the on-demand resize tier.
func NewEngine(thumbs SizeLookup, canResize bool, log zerolog.Logger) *Engine {
	return &Engine{thumbs: thumbs, canResize: canResize, log: log}
}

// Route picks the backend target for req against asset. A missing thumbnail
// index entry is a normal input (the request falls through a tier), never an
// error; Route itself only fails on lookup transport errors.
func (e *Engine) Route(ctx context.Context, asset *domain.Asset, req *iiif.ImageRequest) (ProxyAction, error) {
	// Tier 1: shapes the thumbnail service can never satisfy go straight to
	// the image server.
	if asset.Family != domain.FamilyImage || !req.Region.Full() || !req.Rotation.Default() {
		return ProxyAction{
			Destination: DestinationImageServer,
			Path:        fmt.Sprintf("/iiif/%s%s", asset.ID, req.Path()),
		}, nil
	}

	if thumbEligible(req) {
		sizes, err := e.thumbs.OpenSizes(ctx, asset.ID)
		if err != nil {
			return ProxyAction{}, fmt.Errorf("route %s: %w", asset.ID, err)
		}
		// Tier 2: exact hit in the pre-computed index.
		if match, ok := matchKnownSize(sizes, req.Size); ok {
			e.log.Debug().Str("asset", asset.ID.String()).Int("w", match.W).Int("h", match.H).
				Msg("request served by known thumbnail")
			return ProxyAction{Destination: DestinationThumbs, Path: thumbPath(asset.ID, match)}, nil
		}
		// Tier 3: a plain resize the thumbs service can derive on demand.
		if e.canResize {
			if target, ok := resizeTarget(asset, req.Size); ok {
				return ProxyAction{Destination: DestinationResizeThumbs, Path: thumbPath(asset.ID, target)}, nil
			}
		}
	}

	// Tier 4: everything else takes the legacy path, request untouched.
	return ProxyAction{
		Destination: DestinationFallback,
		Path:        fmt.Sprintf("/iiif-img/%s%s", asset.ID, req.Path()),
	}, nil
}

// thumbEligible reports whether the request shape could ever be served from
// the thumbnail channel: plain jpeg derivatives of the whole image.
func thumbEligible(req *iiif.ImageRequest) bool {
	if req.Format != "jpg" {
		return false
	}
	if req.Quality != iiif.QualityDefault && req.Quality != iiif.QualityColor {
		return false
	}
	switch req.Size.Kind {
	case iiif.SizeFull, iiif.SizeMax:
		// Whole-image requests belong to the image server / fallback tiers.
		return false
	}
	return true
}

// thumbPath is the canonical confined-box path the thumbs service expects.
func thumbPath(id domain.AssetID, s Size) string {
	return fmt.Sprintf("/thumbs/%s/full/!%d,%d/0/default.jpg", id, s.W, s.H)
}

// matchKnownSize finds an indexed size satisfying the requested size exactly.
func matchKnownSize(sizes []Size, sz iiif.Size) (Size, bool) {
	for _, s := range sizes {
		switch sz.Kind {
		case iiif.SizeExact:
			if s.W == sz.Width && s.H == sz.Height {
				return s, true
			}
		case iiif.SizeConfined:
			// The thumbnail fits the box and its longest edge meets the
			// box's longest edge, i.e. no residual scaling needed.
			if s.W <= sz.Width && s.H <= sz.Height && s.MaxDimension() == maxInt(sz.Width, sz.Height) {
				return s, true
			}
		case iiif.SizeWidth:
			if s.W == sz.Width {
				return s, true
			}
		case iiif.SizeHeight:
			if s.H == sz.Height {
				return s, true
			}
		}
	}
	return Size{}, false
}

// resizeTarget derives the confined box the thumbs service should generate,
// using the asset's aspect ratio for single-dimension and percent requests.
func resizeTarget(asset *domain.Asset, sz iiif.Size) (Size, bool) {
	switch sz.Kind {
	case iiif.SizeExact, iiif.SizeConfined:
		return Size{W: sz.Width, H: sz.Height}, true
	case iiif.SizeWidth:
		if asset.Width <= 0 || asset.Height <= 0 {
			return Size{}, false
		}
		h := int(float64(asset.Height) * float64(sz.Width) / float64(asset.Width))
		return Size{W: sz.Width, H: maxInt(h, 1)}, true
	case iiif.SizeHeight:
		if asset.Width <= 0 || asset.Height <= 0 {
			return Size{}, false
		}
		w := int(float64(asset.Width) * float64(sz.Height) / float64(asset.Height))
		return Size{W: maxInt(w, 1), H: sz.Height}, true
	case iiif.SizePercent:
		if asset.Width <= 0 || asset.Height <= 0 {
			return Size{}, false
		}
		w := int(float64(asset.Width) * sz.Percent / 100)
		h := int(float64(asset.Height) * sz.Percent / 100)
		if w < 1 || h < 1 {
			return Size{}, false
		}
		return Size{W: w, H: h}, true
	}
	return Size{}, false
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
