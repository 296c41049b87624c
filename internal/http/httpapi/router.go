package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"orchestrator/internal/http/handlers"
	"orchestrator/internal/infra"
	"orchestrator/internal/middleware"
)

// NewRouter wires the public delivery surface.
func NewRouter(app *handlers.App, cfg *infra.Config, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(
		chimw.RealIP,
		middleware.RequestID,
		chimw.Recoverer,
		middleware.Logger(log),
		middleware.CORS(cfg.AllowedOrigins),
	)
	if cfg.RateLimitPerMin > 0 {
		r.Use(middleware.RateLimit(cfg.RateLimitPerMin, time.Minute))
	}

	r.Get("/v1/healthz", app.Health)

	imagePath := "/{customer}/{space}/{identifier}/{region}/{size}/{rotation}/{qualityFormat}"
	r.Get("/iiif-img"+imagePath, app.IIIFImage)
	r.Get("/iiif-img/{version:v[23]}"+imagePath, app.IIIFImage)

	r.Get("/iiif-av/{customer}/{space}/{identifier}", app.IIIFAV)
	r.Head("/iiif-av/{customer}/{space}/{identifier}", app.IIIFAV)
	r.Get("/file/{customer}/{space}/{identifier}", app.File)
	r.Head("/file/{customer}/{space}/{identifier}", app.File)

	r.Get("/iiif-manifest/{customer}/{space}/{identifier}", app.SingleAssetManifest)
	r.Get("/iiif-manifest/{version:v[23]}/{customer}/{space}/{identifier}", app.SingleAssetManifest)

	namedQuery := func(path string, h http.HandlerFunc) {
		r.Get(path+"/{customer}/{name}", h)
		r.Get(path+"/{customer}/{name}/*", h)
	}
	namedQuery("/iiif-resource", app.NamedQueryManifest)
	namedQuery("/iiif-resource/{version:v[23]}", app.NamedQueryManifest)
	namedQuery("/pdf", app.PDF)
	namedQuery("/pdf-control", app.PDFControl)
	namedQuery("/zip", app.Zip)
	namedQuery("/zip-control", app.ZipControl)

	r.Post("/auth/{customer}/clickthrough", app.Clickthrough)

	return r
}
