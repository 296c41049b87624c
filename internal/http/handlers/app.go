// Package handlers implements the public delivery surface: IIIF image
// requests, AV and file delivery, manifests, stored projections and session
// creation.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"orchestrator/internal/auth"
	"orchestrator/internal/domain"
	"orchestrator/internal/infra"
	"orchestrator/internal/manifest"
	"orchestrator/internal/origin"
	"orchestrator/internal/projection"
	"orchestrator/internal/routing"
)

// App is the handler container; all fields must be set before the router is
// built.
type App struct {
	Cfg *infra.Config
	Log zerolog.Logger

	Customers    domain.CustomerRepository
	Assets       domain.AssetRepository
	NamedQueries domain.NamedQueryRepository

	Resolver  *auth.Resolver
	Sessions  *auth.SessionService
	Engine    *routing.Engine
	Manifests *manifest.Builder
	Origins   *origin.Service

	Projections *projection.Service
	PDFCreator  projection.Creator
	ZipCreator  projection.Creator

	proxies map[routing.Destination]*httputil.ReverseProxy
}

// NewApp constructs the container and the per-destination reverse proxies.
// The service/repository fields are assigned by the caller.
func NewApp(cfg *infra.Config, log zerolog.Logger) (*App, error) {
	a := &App{Cfg: cfg, Log: log, proxies: map[routing.Destination]*httputil.ReverseProxy{}}
	roots := map[routing.Destination]string{
		routing.DestinationImageServer:  cfg.ImageServerRoot,
		routing.DestinationThumbs:       cfg.ThumbsRoot,
		routing.DestinationResizeThumbs: cfg.ThumbsRoot,
		routing.DestinationFallback:     cfg.FallbackRoot,
	}
	for dest, root := range roots {
		target, err := url.Parse(root)
		if err != nil {
			return nil, fmt.Errorf("parse %s root %q: %w", dest, root, err)
		}
		a.proxies[dest] = httputil.NewSingleHostReverseProxy(target)
	}
	return a, nil
}

func notFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]any{"error": map[string]string{"code": errCode, "message": message}})
}

// proxy forwards the request to the routed destination with the rewritten
// path, dropping the inbound query string.
func (a *App) proxy(w http.ResponseWriter, r *http.Request, action routing.ProxyAction) {
	p, ok := a.proxies[action.Destination]
	if !ok {
		a.error(w, http.StatusInternalServerError, "internal", "no proxy for destination")
		return
	}
	out := r.Clone(r.Context())
	out.URL.Path = action.Path
	out.URL.RawPath = ""
	out.URL.RawQuery = ""
	p.ServeHTTP(w, out)
}

// customer resolves the {customer} path value (numeric id or name). A miss is
// written as 404 and reported via ok=false.
func (a *App) customer(w http.ResponseWriter, r *http.Request) (*domain.Customer, bool) {
	cust, err := a.Customers.GetCustomer(r.Context(), chi.URLParam(r, "customer"))
	if err != nil {
		if notFound(err) {
			a.error(w, http.StatusNotFound, "not_found", "unknown customer")
		} else {
			a.Log.Error().Err(err).Msg("customer lookup failed")
			a.error(w, http.StatusInternalServerError, "internal", "customer lookup failed")
		}
		return nil, false
	}
	return cust, true
}

// asset resolves {space}/{identifier} under cust into a deliverable asset.
// Assets flagged not-for-delivery are indistinguishable from absent ones.
func (a *App) asset(w http.ResponseWriter, r *http.Request, cust *domain.Customer) (*domain.Asset, bool) {
	space, err := strconv.Atoi(chi.URLParam(r, "space"))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "space must be numeric")
		return nil, false
	}
	id := domain.AssetID{Customer: cust.ID, Space: space, Identifier: chi.URLParam(r, "identifier")}
	asset, err := a.Assets.GetAsset(r.Context(), id)
	if err != nil {
		if notFound(err) {
			a.error(w, http.StatusNotFound, "not_found", "unknown asset")
		} else {
			a.Log.Error().Err(err).Stringer("asset", id).Msg("asset lookup failed")
			a.error(w, http.StatusInternalServerError, "internal", "asset lookup failed")
		}
		return nil, false
	}
	if asset.NotForDelivery {
		a.error(w, http.StatusNotFound, "not_found", "unknown asset")
		return nil, false
	}
	return asset, true
}
