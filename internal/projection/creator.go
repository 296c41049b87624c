package projection

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"orchestrator/internal/domain"
	"orchestrator/internal/namedquery"
	"orchestrator/internal/storage"
)

// buildFunc produces the artifact for q and returns its size in bytes. The
// artifact must be at q.StorageKey in the output store when it returns nil.
type buildFunc func(ctx context.Context, q *namedquery.StoredParsedQuery, assets []domain.Asset) (int64, error)

// persister implements the shared write-then-build protocol for all creators:
// an in-process control file goes down first, then the artifact is built,
// then the control file is finalized. A crash between the first write and the
// final one leaves an in-process marker that the staleness check reclaims.
type persister struct {
	store storage.Store
	log   zerolog.Logger
	now   func() time.Time
}

func (p *persister) persist(ctx context.Context, q *namedquery.StoredParsedQuery, assets []domain.Asset, build buildFunc) (*ControlFile, error) {
	cf := &ControlFile{
		Created:   p.now(),
		Key:       q.StorageKey,
		InProcess: true,
		ItemCount: len(assets),
		Roles:     distinctRoles(assets),
	}
	if err := p.writeControlFile(ctx, q.ControlFileStorageKey, cf); err != nil {
		return cf, err
	}

	size, err := build(ctx, q, assets)
	if err != nil {
		return cf, fmt.Errorf("build %s: %w", q.StorageKey, err)
	}

	cf.Exists = true
	cf.InProcess = false
	cf.SizeBytes = size
	if err := p.writeControlFile(ctx, q.ControlFileStorageKey, cf); err != nil {
		return cf, err
	}
	return cf, nil
}

func (p *persister) writeControlFile(ctx context.Context, key string, cf *ControlFile) error {
	data, err := json.Marshal(cf)
	if err != nil {
		return err
	}
	if err := p.store.Write(ctx, key, data, "application/json"); err != nil {
		return fmt.Errorf("write control file %s: %w", key, err)
	}
	return nil
}

// distinctRoles collects the union of roles across all matched assets, sorted
// for stable serialization.
func distinctRoles(assets []domain.Asset) []string {
	seen := map[string]struct{}{}
	for i := range assets {
		for _, r := range assets[i].Roles {
			seen[r] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil
	}
	roles := make([]string, 0, len(seen))
	for r := range seen {
		roles = append(roles, r)
	}
	sort.Strings(roles)
	return roles
}
