package repo

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jellydator/ttlcache/v3"

	"orchestrator/internal/domain"
	"orchestrator/internal/infra"
	"orchestrator/internal/sqlinline"
)

// CustomerRepositoryPG implements domain.CustomerRepository using PostgreSQL.
// Lookups are cached: customer records change rarely and sit on every request
// path.
type CustomerRepositoryPG struct {
	db    infra.SQLExecutor
	cache *ttlcache.Cache[string, *domain.Customer]
}

// NewCustomerRepository constructs a customer repository with the given cache
// entry lifetime.
func NewCustomerRepository(db infra.SQLExecutor, cacheTTL time.Duration) *CustomerRepositoryPG {
	cache := ttlcache.New[string, *domain.Customer](
		ttlcache.WithTTL[string, *domain.Customer](cacheTTL),
	)
	go cache.Start()
	return &CustomerRepositoryPG{db: db, cache: cache}
}

// GetCustomer resolves a numeric id or a customer name.
func (r *CustomerRepositoryPG) GetCustomer(ctx context.Context, pathValue string) (*domain.Customer, error) {
	if item := r.cache.Get(pathValue); item != nil {
		return item.Value(), nil
	}

	var row pgx.Row
	if id, err := strconv.Atoi(pathValue); err == nil {
		row = r.db.QueryRow(ctx, sqlinline.QSelectCustomerByID, id)
	} else {
		row = r.db.QueryRow(ctx, sqlinline.QSelectCustomerByName, pathValue)
	}

	var c domain.Customer
	if err := row.Scan(&c.ID, &c.Name, &c.DisplayName); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	r.cache.Set(pathValue, &c, ttlcache.DefaultTTL)
	return &c, nil
}

// Close stops the cache janitor.
func (r *CustomerRepositoryPG) Close() {
	r.cache.Stop()
}
