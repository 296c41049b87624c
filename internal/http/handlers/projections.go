package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"orchestrator/internal/auth"
	"orchestrator/internal/domain"
	"orchestrator/internal/namedquery"
	"orchestrator/internal/projection"
)

// PDF serves /pdf/{customer}/{query}/{args...}.
func (a *App) PDF(w http.ResponseWriter, r *http.Request) {
	a.projection(w, r, namedquery.ChannelPDF, a.PDFCreator)
}

// Zip serves /zip/{customer}/{query}/{args...}.
func (a *App) Zip(w http.ResponseWriter, r *http.Request) {
	a.projection(w, r, namedquery.ChannelZIP, a.ZipCreator)
}

// PDFControl serves /pdf-control/{customer}/{query}/{args...}: the raw
// control file, never triggering a build.
func (a *App) PDFControl(w http.ResponseWriter, r *http.Request) {
	a.projectionControl(w, r, namedquery.ChannelPDF)
}

// ZipControl serves /zip-control/{customer}/{query}/{args...}.
func (a *App) ZipControl(w http.ResponseWriter, r *http.Request) {
	a.projectionControl(w, r, namedquery.ChannelZIP)
}

func (a *App) projection(w http.ResponseWriter, r *http.Request, channel namedquery.Channel, creator projection.Creator) {
	cust, ok := a.customer(w, r)
	if !ok {
		return
	}
	stored, ok := a.parseStoredQuery(w, r, cust.ID, channel)
	if !ok {
		return
	}

	source := func(ctx context.Context) ([]domain.Asset, error) {
		return a.Assets.ExecuteQuery(ctx, &stored.Query, stored.Canvas)
	}
	cred := auth.CredentialFromRequest(r, cust.ID)
	res, err := a.Projections.GetResults(r.Context(), stored, source, creator, cred)
	if err != nil {
		a.Log.Error().Err(err).Str("key", stored.StorageKey).Msg("projection request failed")
		a.error(w, http.StatusInternalServerError, "internal", "projection failed")
		return
	}

	switch res.Status {
	case projection.StatusAvailable:
		w.Header().Set("Content-Type", channel.ContentType())
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", stored.ObjectName))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(res.Data)
	case projection.StatusInProcess:
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(a.Projections.StaleAfter().Seconds())))
		a.json(w, http.StatusAccepted, map[string]any{"status": "in-process"})
	case projection.StatusRestricted:
		a.error(w, http.StatusUnauthorized, "unauthorized", "credential required")
	case projection.StatusNotFound:
		a.error(w, http.StatusNotFound, "not_found", "no resources match the query")
	default:
		a.error(w, http.StatusInternalServerError, "internal", "projection failed")
	}
}

func (a *App) projectionControl(w http.ResponseWriter, r *http.Request, channel namedquery.Channel) {
	cust, ok := a.customer(w, r)
	if !ok {
		return
	}
	stored, ok := a.parseStoredQuery(w, r, cust.ID, channel)
	if !ok {
		return
	}
	cf, err := a.Projections.GetControlFile(r.Context(), stored.ControlFileStorageKey)
	if err != nil {
		if notFound(err) {
			a.error(w, http.StatusNotFound, "not_found", "no control file")
		} else {
			a.Log.Error().Err(err).Str("key", stored.ControlFileStorageKey).Msg("control file read failed")
			a.error(w, http.StatusInternalServerError, "internal", "control file read failed")
		}
		return
	}
	a.json(w, http.StatusOK, cf)
}

func (a *App) parseStoredQuery(w http.ResponseWriter, r *http.Request, customer int, channel namedquery.Channel) (*namedquery.StoredParsedQuery, bool) {
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
	stored, err := namedquery.ParseStored(nq, customer, pathArgs(r), r.URL.Query(), channel)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRequest) {
			a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		} else {
			a.Log.Error().Err(err).Str("query", nq.Name).Msg("named query parse failed")
			a.error(w, http.StatusInternalServerError, "internal", "named query parse failed")
		}
		return nil, false
	}
	return stored, true
}
