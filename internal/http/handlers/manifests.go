package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"orchestrator/internal/domain"
	"orchestrator/internal/manifest"
	"orchestrator/internal/namedquery"
)

// SingleAssetManifest serves /iiif-manifest[/vN]/{customer}/{space}/{id}: a
// one-canvas manifest wrapping a single image asset.
func (a *App) SingleAssetManifest(w http.ResponseWriter, r *http.Request) {
	cust, ok := a.customer(w, r)
	if !ok {
		return
	}
	asset, ok := a.asset(w, r, cust)
	if !ok {
		return
	}
	if asset.Family != domain.FamilyImage {
		a.error(w, http.StatusNotFound, "not_found", "unknown asset")
		return
	}

	v := manifest.Negotiate(chi.URLParam(r, "version"), r.Header.Get("Accept"))
	manifestID := a.Cfg.PublicBaseURL + "/iiif-manifest/" + asset.ID.String()
	doc := a.Manifests.Build(manifestID, asset.ID.Identifier, []domain.Asset{*asset}, v)
	a.writeManifest(w, doc, v)
}

// NamedQueryManifest serves /iiif-resource[/vN]/{customer}/{query}/{args...}:
// the manifest projection of a stored named query.
func (a *App) NamedQueryManifest(w http.ResponseWriter, r *http.Request) {
	cust, ok := a.customer(w, r)
	if !ok {
		return
	}
	parsed, ok := a.parseNamedQuery(w, r, cust.ID)
	if !ok {
		return
	}

	assets, err := a.Assets.ExecuteQuery(r.Context(), &parsed.Query, parsed.Canvas)
	if err != nil {
		a.Log.Error().Err(err).Str("query", parsed.QueryName).Msg("named query execution failed")
		a.error(w, http.StatusInternalServerError, "internal", "query execution failed")
		return
	}
	if len(assets) == 0 {
		a.error(w, http.StatusNotFound, "not_found", "no resources match the query")
		return
	}

	v := manifest.Negotiate(chi.URLParam(r, "version"), r.Header.Get("Accept"))
	manifestID := a.Cfg.PublicBaseURL + canonicalResourcePath(cust.ID, parsed)
	doc := a.Manifests.Build(manifestID, parsed.QueryName, assets, v)
	a.writeManifest(w, doc, v)
}

// parseNamedQuery loads and binds the named query addressed by the request.
// Failures are written to w; ok reports whether parsing succeeded.
func (a *App) parseNamedQuery(w http.ResponseWriter, r *http.Request, customer int) (*namedquery.ParsedQuery, bool) {
	nq, err := a.NamedQueries.GetByName(r.Context(), customer, chi.URLParam(r, "name"))
	if err != nil {
		if notFound(err) {
			a.error(w, http.StatusNotFound, "not_found", "unknown named query")
		} else {
			a.Log.Error().Err(err).Msg("named query lookup failed")
			a.error(w, http.StatusInternalServerError, "internal", "named query lookup failed")
		}
		return nil, false
	}
	parsed, err := namedquery.Parse(nq, customer, pathArgs(r), r.URL.Query())
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRequest) {
			a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		} else {
			a.Log.Error().Err(err).Str("query", nq.Name).Msg("named query parse failed")
			a.error(w, http.StatusInternalServerError, "internal", "named query parse failed")
		}
		return nil, false
	}
	return parsed, true
}

// pathArgs returns the positional arguments trailing the query name.
func pathArgs(r *http.Request) []string {
	tail := chi.URLParam(r, "*")
	if tail == "" {
		return nil
	}
	var args []string
	for _, part := range strings.Split(tail, "/") {
		if part != "" {
			args = append(args, part)
		}
	}
	return args
}

// canonicalResourcePath is the version-independent identifier path for a
// bound named query, so v2 and v3 renditions share canvas identity.
func canonicalResourcePath(customer int, parsed *namedquery.ParsedQuery) string {
	parts := append([]string{"", "iiif-resource", strconv.Itoa(customer), parsed.QueryName}, parsed.Args...)
	return strings.Join(parts, "/")
}

func (a *App) writeManifest(w http.ResponseWriter, doc any, v manifest.Version) {
	w.Header().Add("Vary", "Accept")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("Content-Type", manifest.ContentType(v))
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(doc)
}
