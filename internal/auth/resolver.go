// Package auth decides whether a request may access a protected asset.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"orchestrator/internal/domain"
	"orchestrator/internal/iiif"
)

// AccessResult is the outcome of validating a credential against an asset's
// role requirements.
type AccessResult int

const (
	// AccessOpen means no credential is required for this request.
	AccessOpen AccessResult = iota
	// AccessAuthorized means a valid credential granted the required roles.
	AccessAuthorized
	// AccessUnauthorized covers missing, invalid and expired credentials
	// alike; callers must not be able to tell which occurred.
	AccessUnauthorized
)

// CookieNamePrefix is the per-customer session cookie prefix; the full name
// is CookieName(customer).
const CookieNamePrefix = "dlcs-token-"

// CookieName returns the session cookie name for a customer.
func CookieName(customer int) string {
	return fmt.Sprintf("%s%d", CookieNamePrefix, customer)
}

// Credential carries at most one of a bearer token or a cookie session id.
type Credential struct {
	BearerToken string
	CookieID    string
}

// Present reports whether any credential was supplied.
func (c Credential) Present() bool {
	return c.BearerToken != "" || c.CookieID != ""
}

// CredentialFromRequest extracts the bearer token or the per-customer session
// cookie from an inbound request. Bearer wins when both are present, so each
// request takes exactly one lookup path.
func CredentialFromRequest(r *http.Request, customer int) Credential {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return Credential{BearerToken: strings.TrimSpace(token)}
		}
	}
	if c, err := r.Cookie(CookieName(customer)); err == nil && c.Value != "" {
		return Credential{CookieID: c.Value}
	}
	return Credential{}
}

// Resolver validates credentials against asset roles. It is read-only: a
// denial never mutates token state.
type Resolver struct {
	tokens domain.AuthTokenRepository
	log    zerolog.Logger
}

// NewResolver constructs a Resolver backed by the given token repository.
func NewResolver(tokens domain.AuthTokenRepository, log zerolog.Logger) *Resolver {
	return &Resolver{tokens: tokens, log: log}
}

// Resolve validates cred against the roles required for customer. Roles
// being empty short-circuits to AccessOpen without a lookup.
func (r *Resolver) Resolve(ctx context.Context, customer int, roles []string, cred Credential) (AccessResult, error) {
	if len(roles) == 0 {
		return AccessOpen, nil
	}
	if !cred.Present() {
		return AccessUnauthorized, nil
	}

	var (
		token *domain.AuthToken
		err   error
	)
	if cred.BearerToken != "" {
		token, err = r.tokens.GetForBearerToken(ctx, customer, cred.BearerToken)
	} else {
		token, err = r.tokens.GetForCookieID(ctx, customer, cred.CookieID)
	}
	if err != nil {
		// Absent and expired tokens surface as ErrNotFound from the
		// repository; both fold into Unauthorized.
		if errors.Is(err, domain.ErrNotFound) {
			r.log.Debug().Int("customer", customer).Msg("auth token not found or expired")
			return AccessUnauthorized, nil
		}
		return AccessUnauthorized, err
	}
	if token.SessionUser == nil {
		return AccessUnauthorized, nil
	}
	if !rolesIntersect(token.SessionUser.RolesForCustomer(customer), roles) {
		return AccessUnauthorized, nil
	}
	return AccessAuthorized, nil
}

// ResolveImageRequest applies the max-unauthorised preview bypass before
// falling back to Resolve: a request whose rendered longest edge stays within
// the asset's threshold is open even when the asset carries roles.
func (r *Resolver) ResolveImageRequest(ctx context.Context, asset *domain.Asset, req *iiif.ImageRequest, cred Credential) (AccessResult, error) {
	if !asset.RequiresAuth() {
		return AccessOpen, nil
	}
	if asset.MaxUnauthorised >= 0 && req != nil && req.Region.Full() {
		if edge := requestedLongestEdge(req, asset.Width, asset.Height); edge > 0 && edge <= asset.MaxUnauthorised {
			return AccessOpen, nil
		}
	}
	return r.Resolve(ctx, asset.ID.Customer, asset.Roles, cred)
}

// requestedLongestEdge estimates the longest edge of the full-region response
// the request would produce. Zero means the edge cannot be bounded (treat as
// requiring auth).
func requestedLongestEdge(req *iiif.ImageRequest, assetW, assetH int) int {
	maxDim := assetW
	if assetH > maxDim {
		maxDim = assetH
	}
	switch req.Size.Kind {
	case iiif.SizeExact, iiif.SizeConfined:
		if req.Size.Width > req.Size.Height {
			return req.Size.Width
		}
		return req.Size.Height
	case iiif.SizeWidth:
		if assetW <= 0 {
			return 0
		}
		return scaleEdge(maxDim, req.Size.Width, assetW)
	case iiif.SizeHeight:
		if assetH <= 0 {
			return 0
		}
		return scaleEdge(maxDim, req.Size.Height, assetH)
	case iiif.SizePercent:
		return int(float64(maxDim) * req.Size.Percent / 100)
	default: // full / max
		return maxDim
	}
}

func scaleEdge(maxDim, requested, source int) int {
	return int(float64(maxDim) * float64(requested) / float64(source))
}

func rolesIntersect(granted, required []string) bool {
	for _, g := range granted {
		for _, r := range required {
			if g == r {
				return true
			}
		}
	}
	return false
}
