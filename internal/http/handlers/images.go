package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"orchestrator/internal/auth"
	"orchestrator/internal/iiif"
)

// IIIFImage serves /iiif-img/{customer}/{space}/{identifier}/{region}/{size}/
// {rotation}/{quality}.{format}. The request is parsed and authorized here;
// the routing engine picks the backend and the response streams through a
// reverse proxy.
func (a *App) IIIFImage(w http.ResponseWriter, r *http.Request) {
	cust, ok := a.customer(w, r)
	if !ok {
		return
	}
	asset, ok := a.asset(w, r, cust)
	if !ok {
		return
	}

	req, err := iiif.Parse(
		chi.URLParam(r, "region"),
		chi.URLParam(r, "size"),
		chi.URLParam(r, "rotation"),
		chi.URLParam(r, "qualityFormat"),
	)
	if err != nil {
		if errors.Is(err, iiif.ErrMalformed) {
			a.error(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		a.Log.Error().Err(err).Msg("image request parse failed")
		a.error(w, http.StatusInternalServerError, "internal", "request parse failed")
		return
	}

	cred := auth.CredentialFromRequest(r, cust.ID)
	access, err := a.Resolver.ResolveImageRequest(r.Context(), asset, req, cred)
	if err != nil {
		a.Log.Error().Err(err).Stringer("asset", asset.ID).Msg("access resolution failed")
		a.error(w, http.StatusInternalServerError, "internal", "access resolution failed")
		return
	}
	if access == auth.AccessUnauthorized {
		a.error(w, http.StatusUnauthorized, "unauthorized", "credential required")
		return
	}

	action, err := a.Engine.Route(r.Context(), asset, req)
	if err != nil {
		a.Log.Error().Err(err).Stringer("asset", asset.ID).Msg("routing failed")
		a.error(w, http.StatusInternalServerError, "internal", "routing failed")
		return
	}
	a.Log.Debug().Stringer("asset", asset.ID).Stringer("dest", action.Destination).
		Str("path", action.Path).Msg("image request routed")
	a.proxy(w, r, action)
}
