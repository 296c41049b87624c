package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jellydator/ttlcache/v3"

	"orchestrator/internal/domain"
	"orchestrator/internal/infra"
	"orchestrator/internal/sqlinline"
)

// NamedQueryRepositoryPG implements domain.NamedQueryRepository using
// PostgreSQL, with a short-lived cache since templates are read on every
// manifest and projection request.
type NamedQueryRepositoryPG struct {
	db    infra.SQLExecutor
	cache *ttlcache.Cache[string, *domain.NamedQuery]
}

// NewNamedQueryRepository constructs a named-query repository with the given
// cache entry lifetime.
func NewNamedQueryRepository(db infra.SQLExecutor, cacheTTL time.Duration) *NamedQueryRepositoryPG {
	cache := ttlcache.New[string, *domain.NamedQuery](
		ttlcache.WithTTL[string, *domain.NamedQuery](cacheTTL),
	)
	go cache.Start()
	return &NamedQueryRepositoryPG{db: db, cache: cache}
}

// GetByName returns the named query visible to customer under name; a
// customer-specific query shadows a global one.
func (r *NamedQueryRepositoryPG) GetByName(ctx context.Context, customer int, name string) (*domain.NamedQuery, error) {
	key := fmt.Sprintf("%d/%s", customer, name)
	if item := r.cache.Get(key); item != nil {
		return item.Value(), nil
	}

	row := r.db.QueryRow(ctx, sqlinline.QSelectNamedQueryByName, name, customer)
	var nq domain.NamedQuery
	if err := row.Scan(&nq.ID, &nq.Customer, &nq.Global, &nq.Name, &nq.Template); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	r.cache.Set(key, &nq, ttlcache.DefaultTTL)
	return &nq, nil
}

// Close stops the cache janitor.
func (r *NamedQueryRepositoryPG) Close() {
	r.cache.Stop()
}
