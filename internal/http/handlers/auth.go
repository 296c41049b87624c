package handlers

import (
	"net/http"

	"orchestrator/internal/auth"
)

// Clickthrough serves POST /auth/{customer}/clickthrough: accepting the
// clickthrough terms creates a session and sets the per-customer cookie. The
// bearer token is also returned for non-browser clients.
func (a *App) Clickthrough(w http.ResponseWriter, r *http.Request) {
	cust, ok := a.customer(w, r)
	if !ok {
		return
	}
	token, err := a.Sessions.CreateClickthroughToken(r.Context(), cust.ID)
	if err != nil {
		a.Log.Error().Err(err).Int("customer", cust.ID).Msg("clickthrough session creation failed")
		a.error(w, http.StatusInternalServerError, "internal", "session creation failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName(cust.ID),
		Value:    token.CookieID,
		Path:     "/",
		Expires:  token.Expires,
		HttpOnly: true,
		Secure:   a.Cfg.AppEnv != "development",
		SameSite: http.SameSiteNoneMode,
	})
	a.json(w, http.StatusCreated, map[string]any{
		"accessToken": token.BearerToken,
		"expires":     token.Expires,
	})
}
