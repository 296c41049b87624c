package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"orchestrator/internal/domain"
	"orchestrator/internal/infra"
	"orchestrator/internal/sqlinline"
)

// OriginStrategyRepositoryPG implements domain.OriginStrategyRepository using
// PostgreSQL. Strategy lists are cached per customer: they change rarely but
// are consulted on every file delivery.
type OriginStrategyRepositoryPG struct {
	db    infra.SQLExecutor
	cache *ttlcache.Cache[int, []domain.OriginStrategy]
}

// NewOriginStrategyRepository constructs the repository with the given cache
// entry lifetime.
func NewOriginStrategyRepository(db infra.SQLExecutor, cacheTTL time.Duration) *OriginStrategyRepositoryPG {
	cache := ttlcache.New[int, []domain.OriginStrategy](
		ttlcache.WithTTL[int, []domain.OriginStrategy](cacheTTL),
	)
	go cache.Start()
	return &OriginStrategyRepositoryPG{db: db, cache: cache}
}

// ListForCustomer returns the customer's strategies in priority order. An
// empty list is a normal result and is cached like any other.
func (r *OriginStrategyRepositoryPG) ListForCustomer(ctx context.Context, customer int) ([]domain.OriginStrategy, error) {
	if item := r.cache.Get(customer); item != nil {
		return item.Value(), nil
	}

	rows, err := r.db.Query(ctx, sqlinline.QSelectOriginStrategiesForCustomer, customer)
	if err != nil {
		return nil, fmt.Errorf("list origin strategies: %w", err)
	}
	defer rows.Close()

	var strategies []domain.OriginStrategy
	for rows.Next() {
		var (
			s           domain.OriginStrategy
			credentials *string
		)
		if err := rows.Scan(&s.ID, &s.Customer, &s.Regex, &s.Strategy, &credentials, &s.Order); err != nil {
			return nil, fmt.Errorf("scan origin strategy: %w", err)
		}
		if credentials != nil && *credentials != "" {
			var c domain.OriginCredentials
			if err := json.Unmarshal([]byte(*credentials), &c); err != nil {
				return nil, fmt.Errorf("decode credentials for strategy %s: %w", s.ID, err)
			}
			s.Credentials = &c
		}
		strategies = append(strategies, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	r.cache.Set(customer, strategies, ttlcache.DefaultTTL)
	return strategies, nil
}

// Close stops the cache janitor.
func (r *OriginStrategyRepositoryPG) Close() {
	r.cache.Stop()
}
