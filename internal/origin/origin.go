// Package origin matches asset origins against per-customer origin
// strategies and fetches credentialed origins server-side. Open origins are
// delivered by redirect; a browser cannot present a credentialed origin's
// credentials, so those assets stream through this service instead.
package origin

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/rs/zerolog"

	"orchestrator/internal/domain"
)

// defaultStrategy applies when no customer strategy matches the origin.
var defaultStrategy = domain.OriginStrategy{ID: "_default_", Strategy: domain.OriginStrategyDefault}

// Service resolves the strategy for an origin and performs credentialed
// fetches.
type Service struct {
	strategies domain.OriginStrategyRepository
	client     *http.Client
	log        zerolog.Logger
}

// NewService constructs a Service. A nil client gets a timeout-bounded
// default.
func NewService(strategies domain.OriginStrategyRepository, client *http.Client, log zerolog.Logger) *Service {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Service{strategies: strategies, client: client, log: log}
}

// ForOrigin returns the first of the customer's strategies whose regex
// matches originURL, or the open default when none does. Regex matching is
// case-insensitive; a strategy with an invalid regex is skipped.
func (s *Service) ForOrigin(ctx context.Context, customer int, originURL string) (domain.OriginStrategy, error) {
	strategies, err := s.strategies.ListForCustomer(ctx, customer)
	if err != nil {
		return domain.OriginStrategy{}, fmt.Errorf("origin strategies for customer %d: %w", customer, err)
	}
	for _, strat := range strategies {
		re, err := regexp.Compile("(?i)" + strat.Regex)
		if err != nil {
			s.log.Warn().Err(err).Str("strategy", strat.ID).Msg("invalid origin strategy regex")
			continue
		}
		if re.MatchString(originURL) {
			return strat, nil
		}
	}
	return defaultStrategy, nil
}

// Fetch retrieves originURL, presenting the strategy's credentials when set.
// The caller owns the response body.
func (s *Service) Fetch(ctx context.Context, originURL string, strat domain.OriginStrategy) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, originURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch origin %s: %w", originURL, err)
	}
	if strat.Credentials != nil {
		req.SetBasicAuth(strat.Credentials.User, strat.Credentials.Password)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch origin %s: %w", originURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch origin %s: unexpected status %d", originURL, resp.StatusCode)
	}
	return resp, nil
}
