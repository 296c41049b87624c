// Package manifest renders matched assets into IIIF Presentation documents.
// Two schema versions are supported; version selection is content
// negotiation's job (see Negotiate), building is purely structural.
package manifest

import (
	"fmt"

	"orchestrator/internal/domain"
)

// Version is a supported presentation schema version.
type Version int

const (
	V2 Version = 2
	V3 Version = 3
)

// CanonicalVersion is advertised when nothing selects a version explicitly.
const CanonicalVersion = V3

const (
	contextV2 = "http://iiif.io/api/presentation/2/context.json"
	contextV3 = "http://iiif.io/api/presentation/3/context.json"

	imageServiceProfileV2 = "http://iiif.io/api/image/2/level2.json"
	imageServiceProfileV3 = "level2"
)

// Builder renders manifests with identifiers rooted at the public base URL.
type Builder struct {
	baseURL string
}

// NewBuilder constructs a Builder. baseURL must not end with a slash.
func NewBuilder(baseURL string) *Builder {
	return &Builder{baseURL: baseURL}
}

// Build renders one manifest entry per asset, preserving input order. The
// caller guarantees at least one asset; zero matches are a 404 upstream, not
// an empty document.
func (b *Builder) Build(manifestID, label string, assets []domain.Asset, v Version) any {
	if v == V2 {
		return b.buildV2(manifestID, label, assets)
	}
	return b.buildV3(manifestID, label, assets)
}

// imageServices returns both schema-specific service descriptors for an
// asset. The canonical version keeps the unqualified path; the other form
// gets a version-qualified identifier.
func (b *Builder) imageServices(a *domain.Asset) []any {
	canonical := fmt.Sprintf("%s/iiif-img/%s", b.baseURL, a.ID)
	versioned := fmt.Sprintf("%s/iiif-img/v2/%s", b.baseURL, a.ID)
	return []any{
		serviceV3{ID: canonical, Type: "ImageService3", Profile: imageServiceProfileV3},
		serviceV2{ID: versioned, Type: "ImageService2", Profile: imageServiceProfileV2},
	}
}

func (b *Builder) thumbnailID(a *domain.Asset) string {
	return fmt.Sprintf("%s/thumbs/%s/full/!200,200/0/default.jpg", b.baseURL, a.ID)
}

type serviceV2 struct {
	ID      string `json:"@id"`
	Type    string `json:"@type"`
	Profile string `json:"profile"`
}

type serviceV3 struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Profile string `json:"profile"`
}

// --- Presentation 3 ---

// ManifestV3 is a IIIF Presentation 3 manifest.
type ManifestV3 struct {
	Context string              `json:"@context"`
	ID      string              `json:"id"`
	Type    string              `json:"type"`
	Label   map[string][]string `json:"label"`
	Items   []CanvasV3          `json:"items"`
}

// CanvasV3 is one manifest entry.
type CanvasV3 struct {
	ID        string             `json:"id"`
	Type      string             `json:"type"`
	Width     int                `json:"width,omitempty"`
	Height    int                `json:"height,omitempty"`
	Thumbnail []imageResourceV3  `json:"thumbnail,omitempty"`
	Items     []annotationPageV3 `json:"items"`
}

type annotationPageV3 struct {
	ID    string         `json:"id"`
	Type  string         `json:"type"`
	Items []annotationV3 `json:"items"`
}

type annotationV3 struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Motivation string          `json:"motivation"`
	Target     string          `json:"target"`
	Body       imageResourceV3 `json:"body"`
}

type imageResourceV3 struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Format  string `json:"format,omitempty"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
	Service []any  `json:"service,omitempty"`
}

func (b *Builder) buildV3(manifestID, label string, assets []domain.Asset) *ManifestV3 {
	m := &ManifestV3{
		Context: contextV3,
		ID:      manifestID,
		Type:    "Manifest",
		Label:   map[string][]string{"en": {label}},
		Items:   make([]CanvasV3, 0, len(assets)),
	}
	for i := range assets {
		a := &assets[i]
		canvasID := fmt.Sprintf("%s/canvas/c/%d", manifestID, i+1)
		body := imageResourceV3{
			ID:      fmt.Sprintf("%s/iiif-img/%s/full/max/0/default.jpg", b.baseURL, a.ID),
			Type:    "Image",
			Format:  "image/jpeg",
			Width:   a.Width,
			Height:  a.Height,
			Service: b.imageServices(a),
		}
		m.Items = append(m.Items, CanvasV3{
			ID:        canvasID,
			Type:      "Canvas",
			Width:     a.Width,
			Height:    a.Height,
			Thumbnail: []imageResourceV3{{ID: b.thumbnailID(a), Type: "Image", Format: "image/jpeg"}},
			Items: []annotationPageV3{{
				ID:   canvasID + "/page",
				Type: "AnnotationPage",
				Items: []annotationV3{{
					ID:         canvasID + "/page/image",
					Type:       "Annotation",
					Motivation: "painting",
					Target:     canvasID,
					Body:       body,
				}},
			}},
		})
	}
	return m
}

// --- Presentation 2 ---

// ManifestV2 is a IIIF Presentation 2 manifest.
type ManifestV2 struct {
	Context   string       `json:"@context"`
	ID        string       `json:"@id"`
	Type      string       `json:"@type"`
	Label     string       `json:"label"`
	Sequences []SequenceV2 `json:"sequences"`
}

// SequenceV2 groups the canvases; exactly one sequence is emitted.
type SequenceV2 struct {
	ID       string     `json:"@id"`
	Type     string     `json:"@type"`
	Canvases []CanvasV2 `json:"canvases"`
}

// CanvasV2 is one manifest entry.
type CanvasV2 struct {
	ID        string              `json:"@id"`
	Type      string              `json:"@type"`
	Label     string              `json:"label"`
	Width     int                 `json:"width,omitempty"`
	Height    int                 `json:"height,omitempty"`
	Thumbnail *imageResourceV2    `json:"thumbnail,omitempty"`
	Images    []imageAnnotationV2 `json:"images"`
}

type imageAnnotationV2 struct {
	ID         string          `json:"@id"`
	Type       string          `json:"@type"`
	Motivation string          `json:"motivation"`
	On         string          `json:"on"`
	Resource   imageResourceV2 `json:"resource"`
}

type imageResourceV2 struct {
	ID      string `json:"@id"`
	Type    string `json:"@type"`
	Format  string `json:"format,omitempty"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
	Service []any  `json:"service,omitempty"`
}

func (b *Builder) buildV2(manifestID, label string, assets []domain.Asset) *ManifestV2 {
	seq := SequenceV2{
		ID:       manifestID + "/sequence/0",
		Type:     "sc:Sequence",
		Canvases: make([]CanvasV2, 0, len(assets)),
	}
	for i := range assets {
		a := &assets[i]
		canvasID := fmt.Sprintf("%s/canvas/c/%d", manifestID, i+1)
		resource := imageResourceV2{
			ID:      fmt.Sprintf("%s/iiif-img/%s/full/max/0/default.jpg", b.baseURL, a.ID),
			Type:    "dctypes:Image",
			Format:  "image/jpeg",
			Width:   a.Width,
			Height:  a.Height,
			Service: b.imageServices(a),
		}
		seq.Canvases = append(seq.Canvases, CanvasV2{
			ID:        canvasID,
			Type:      "sc:Canvas",
			Label:     fmt.Sprintf("Canvas %d", i+1),
			Width:     a.Width,
			Height:    a.Height,
			Thumbnail: &imageResourceV2{ID: b.thumbnailID(a), Type: "dctypes:Image", Format: "image/jpeg"},
			Images: []imageAnnotationV2{{
				ID:         canvasID + "/image",
				Type:       "oa:Annotation",
				Motivation: "sc:painting",
				On:         canvasID,
				Resource:   resource,
			}},
		})
	}
	return &ManifestV2{
		Context:   contextV2,
		ID:        manifestID,
		Type:      "sc:Manifest",
		Label:     label,
		Sequences: []SequenceV2{seq},
	}
}
