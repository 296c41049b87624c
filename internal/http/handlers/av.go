package handlers

import (
	"io"
	"net/http"
	"strconv"

	"orchestrator/internal/auth"
	"orchestrator/internal/domain"
)

// IIIFAV serves /iiif-av/{customer}/{space}/{identifier} for time-based
// assets. Delivery is a redirect to the transcoded origin once the request is
// authorized; there is no preview bypass for AV.
func (a *App) IIIFAV(w http.ResponseWriter, r *http.Request) {
	_, asset, ok := a.deliverable(w, r, domain.FamilyTimebased)
	if !ok {
		return
	}
	http.Redirect(w, r, asset.Origin, http.StatusSeeOther)
}

// File serves /file/{customer}/{space}/{identifier} for file-family assets.
// Open origins are delivered by redirect; origins behind a credentialed
// strategy are fetched server-side and streamed, since the client cannot
// present the origin's credentials itself.
func (a *App) File(w http.ResponseWriter, r *http.Request) {
	cust, asset, ok := a.deliverable(w, r, domain.FamilyFile)
	if !ok {
		return
	}

	strat, err := a.Origins.ForOrigin(r.Context(), cust.ID, asset.Origin)
	if err != nil {
		a.Log.Error().Err(err).Stringer("asset", asset.ID).Msg("origin strategy lookup failed")
		a.error(w, http.StatusInternalServerError, "internal", "origin strategy lookup failed")
		return
	}
	if !strat.Credentialed() {
		http.Redirect(w, r, asset.Origin, http.StatusSeeOther)
		return
	}

	resp, err := a.Origins.Fetch(r.Context(), asset.Origin, strat)
	if err != nil {
		a.Log.Error().Err(err).Stringer("asset", asset.ID).Msg("origin fetch failed")
		a.error(w, http.StatusBadGateway, "bad_gateway", "origin fetch failed")
		return
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = asset.MediaType
	}
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	if resp.ContentLength > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(resp.ContentLength, 10))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, resp.Body)
}

// deliverable resolves and authorizes an origin-delivered asset of the given
// family. Failures are written to w; ok reports whether delivery may proceed.
func (a *App) deliverable(w http.ResponseWriter, r *http.Request, family domain.Family) (*domain.Customer, *domain.Asset, bool) {
	cust, ok := a.customer(w, r)
	if !ok {
		return nil, nil, false
	}
	asset, ok := a.asset(w, r, cust)
	if !ok {
		return nil, nil, false
	}
	if asset.Family != family {
		a.error(w, http.StatusNotFound, "not_found", "unknown asset")
		return nil, nil, false
	}

	cred := auth.CredentialFromRequest(r, cust.ID)
	access, err := a.Resolver.Resolve(r.Context(), cust.ID, asset.Roles, cred)
	if err != nil {
		a.Log.Error().Err(err).Stringer("asset", asset.ID).Msg("access resolution failed")
		a.error(w, http.StatusInternalServerError, "internal", "access resolution failed")
		return nil, nil, false
	}
	if access == auth.AccessUnauthorized {
		a.error(w, http.StatusUnauthorized, "unauthorized", "credential required")
		return nil, nil, false
	}
	if asset.Origin == "" {
		a.error(w, http.StatusNotFound, "not_found", "no delivery location for asset")
		return nil, nil, false
	}
	return cust, asset, true
}
