package domain

import "context"

// CustomerRepository resolves customer path elements.
type CustomerRepository interface {
	// GetCustomer resolves a path value that is either a numeric id or a
	// customer name. Returns ErrNotFound if no such customer exists.
	GetCustomer(ctx context.Context, pathValue string) (*Customer, error)
}

// AssetRepository reads delivery metadata for assets.
type AssetRepository interface {
	// GetAsset returns the asset for id, or ErrNotFound.
	GetAsset(ctx context.Context, id AssetID) (*Asset, error)
	// ExecuteQuery evaluates the filter, excluding not-for-delivery assets.
	// Results are ordered by orderBy when set, otherwise by Number1, then by
	// asset id, so projections are deterministic.
	ExecuteQuery(ctx context.Context, q *AssetQuery, orderBy QueryField) ([]Asset, error)
}

// NamedQueryRepository reads stored named-query templates.
type NamedQueryRepository interface {
	// GetByName returns the named query visible to customer under name. A
	// customer-specific query shadows a global one. Returns ErrNotFound when
	// neither exists.
	GetByName(ctx context.Context, customer int, name string) (*NamedQuery, error)
}

// OriginStrategyRepository reads per-customer origin strategies.
type OriginStrategyRepository interface {
	// ListForCustomer returns the customer's strategies in priority order.
	ListForCustomer(ctx context.Context, customer int) ([]OriginStrategy, error)
}

// AuthTokenRepository reads and creates auth tokens and their sessions.
type AuthTokenRepository interface {
	// GetForBearerToken returns the unexpired token matching the bearer
	// value, with its SessionUser populated, or ErrNotFound.
	GetForBearerToken(ctx context.Context, customer int, bearerToken string) (*AuthToken, error)
	// GetForCookieID is the cookie-carried equivalent of GetForBearerToken.
	GetForCookieID(ctx context.Context, customer int, cookieID string) (*AuthToken, error)
	// CreateToken persists a new session user and auth token.
	CreateToken(ctx context.Context, token *AuthToken) error
}
