package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"orchestrator/internal/domain"
)

// ClickthroughRole is granted by accepting the clickthrough terms; assets
// restricted to it become viewable once the session cookie is set.
const ClickthroughRole = "clickthrough"

// SessionService creates sessions for auth-granting endpoints. Validation of
// existing sessions lives in Resolver; this type only mints new ones.
type SessionService struct {
	tokens domain.AuthTokenRepository
	ttl    time.Duration
	log    zerolog.Logger
	now    func() time.Time
}

// NewSessionService constructs a SessionService issuing tokens valid for ttl.
func NewSessionService(tokens domain.AuthTokenRepository, ttl time.Duration, log zerolog.Logger) *SessionService {
	return &SessionService{tokens: tokens, ttl: ttl, log: log, now: time.Now}
}

// CreateClickthroughToken creates a fresh SessionUser granted the
// clickthrough role for customer, plus an AuthToken carrying both a bearer
// value and a cookie id.
func (s *SessionService) CreateClickthroughToken(ctx context.Context, customer int) (*domain.AuthToken, error) {
	now := s.now().UTC()
	token := &domain.AuthToken{
		ID:          uuid.NewString(),
		Customer:    customer,
		BearerToken: uuid.NewString(),
		CookieID:    uuid.NewString(),
		Expires:     now.Add(s.ttl),
		TTL:         s.ttl,
		LastChecked: now,
		SessionUser: &domain.SessionUser{
			ID:      uuid.NewString(),
			Created: now,
			Roles:   map[int][]string{customer: {ClickthroughRole}},
		},
	}
	if err := s.tokens.CreateToken(ctx, token); err != nil {
		return nil, fmt.Errorf("create clickthrough token: %w", err)
	}
	s.log.Info().Int("customer", customer).Str("session", token.SessionUser.ID).Msg("created clickthrough session")
	return token, nil
}
