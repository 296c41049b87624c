package repo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"orchestrator/internal/domain"
	"orchestrator/internal/infra"
	"orchestrator/internal/sqlinline"
)

// refreshInterval bounds how often a token's sliding expiry is pushed out; a
// token checked more recently than this is served as-is to avoid a write per
// tile request.
const refreshInterval = 2 * time.Minute

// AuthTokenRepositoryPG implements domain.AuthTokenRepository using
// PostgreSQL. Expired tokens are reported as domain.ErrNotFound so callers
// cannot distinguish them from absent ones.
type AuthTokenRepositoryPG struct {
	db  infra.SQLExecutor
	log zerolog.Logger
	now func() time.Time
}

// NewAuthTokenRepository constructs a new auth token repository instance.
func NewAuthTokenRepository(db infra.SQLExecutor, log zerolog.Logger) *AuthTokenRepositoryPG {
	return &AuthTokenRepositoryPG{db: db, log: log, now: time.Now}
}

// GetForBearerToken returns the unexpired token matching the bearer value.
func (r *AuthTokenRepositoryPG) GetForBearerToken(ctx context.Context, customer int, bearerToken string) (*domain.AuthToken, error) {
	return r.get(ctx, sqlinline.QSelectAuthTokenByBearer, customer, bearerToken)
}

// GetForCookieID returns the unexpired token matching the cookie session id.
func (r *AuthTokenRepositoryPG) GetForCookieID(ctx context.Context, customer int, cookieID string) (*domain.AuthToken, error) {
	return r.get(ctx, sqlinline.QSelectAuthTokenByCookie, customer, cookieID)
}

func (r *AuthTokenRepositoryPG) get(ctx context.Context, query string, customer int, value string) (*domain.AuthToken, error) {
	row := r.db.QueryRow(ctx, query, customer, value)

	var (
		token      domain.AuthToken
		session    domain.SessionUser
		ttlSeconds int64
		rolesJSON  []byte
	)
	err := row.Scan(
		&token.ID,
		&token.Customer,
		&token.BearerToken,
		&token.CookieID,
		&token.Expires,
		&ttlSeconds,
		&token.LastChecked,
		&session.ID,
		&session.Created,
		&rolesJSON,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	token.TTL = time.Duration(ttlSeconds) * time.Second
	if err := json.Unmarshal(rolesJSON, &session.Roles); err != nil {
		return nil, err
	}
	token.SessionUser = &session

	now := r.now()
	if token.Expired(now) {
		return nil, domain.ErrNotFound
	}
	if err := r.maybeRefresh(ctx, &token, now); err != nil {
		// A failed refresh does not invalidate an otherwise-valid token.
		r.log.Warn().Err(err).Str("token", token.ID).Msg("auth token refresh failed")
	}
	return &token, nil
}

// maybeRefresh slides the expiry forward when the token has gone unchecked
// for refreshInterval.
func (r *AuthTokenRepositoryPG) maybeRefresh(ctx context.Context, token *domain.AuthToken, now time.Time) error {
	if now.Sub(token.LastChecked) < refreshInterval {
		return nil
	}
	token.Expires = now.Add(token.TTL)
	token.LastChecked = now
	_, err := r.db.Exec(ctx, sqlinline.QRefreshAuthToken, token.ID, token.Expires, token.LastChecked)
	return err
}

// CreateToken persists a new session user and its auth token.
func (r *AuthTokenRepositoryPG) CreateToken(ctx context.Context, token *domain.AuthToken) error {
	if token.SessionUser == nil {
		return errors.New("auth token has no session user")
	}
	rolesJSON, err := json.Marshal(token.SessionUser.Roles)
	if err != nil {
		return err
	}
	if _, err := r.db.Exec(ctx, sqlinline.QInsertSessionUser,
		token.SessionUser.ID, token.SessionUser.Created, rolesJSON); err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, sqlinline.QInsertAuthToken,
		token.ID,
		token.Customer,
		token.BearerToken,
		token.CookieID,
		token.Expires,
		int64(token.TTL/time.Second),
		token.LastChecked,
		token.SessionUser.ID,
	)
	return err
}
