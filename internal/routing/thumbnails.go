package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"orchestrator/internal/domain"
	"orchestrator/internal/storage"
)

// Size is one pre-computed thumbnail dimension pair.
type Size struct {
	W, H int
}

// MaxDimension returns the longest edge.
func (s Size) MaxDimension() int {
	if s.W > s.H {
		return s.W
	}
	return s.H
}

// sizesDocument is the per-asset "{assetPath}/s.json" index. "o" lists sizes
// servable without auth, "a" those behind access control.
type sizesDocument struct {
	Open [][]int `json:"o"`
	Auth [][]int `json:"a"`
}

// SizeLookup resolves the open thumbnail sizes available for an asset.
type SizeLookup interface {
	OpenSizes(ctx context.Context, id domain.AssetID) ([]Size, error)
}

// Index is a read-through cache over the stored thumbnail-size documents.
// Entries are replaced wholesale on refresh; a missing document is cached as
// an empty size list so absent assets do not hammer the store.
type Index struct {
	store storage.Store
	cache *ttlcache.Cache[string, []Size]
	group singleflight.Group
	log   zerolog.Logger
}

// NewIndex constructs an Index over the thumbnail store with the given entry
// lifetime.
func NewIndex(store storage.Store, ttl time.Duration, log zerolog.Logger) *Index {
	cache := ttlcache.New[string, []Size](
		ttlcache.WithTTL[string, []Size](ttl),
		ttlcache.WithDisableTouchOnHit[string, []Size](),
	)
	go cache.Start()
	return &Index{store: store, cache: cache, log: log}
}

// OpenSizes returns the open sizes for id, largest first. A nil slice means
// no index document exists for the asset.
func (ix *Index) OpenSizes(ctx context.Context, id domain.AssetID) ([]Size, error) {
	key := id.String()
	if item := ix.cache.Get(key); item != nil {
		return item.Value(), nil
	}
	v, err, _ := ix.group.Do(key, func() (any, error) {
		sizes, err := ix.load(ctx, id)
		if err != nil {
			return nil, err
		}
		ix.cache.Set(key, sizes, ttlcache.DefaultTTL)
		return sizes, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Size), nil
}

func (ix *Index) load(ctx context.Context, id domain.AssetID) ([]Size, error) {
	data, err := ix.store.Read(ctx, id.String()+"/s.json")
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			ix.log.Debug().Str("asset", id.String()).Msg("no thumbnail size index")
			return nil, nil
		}
		return nil, fmt.Errorf("read thumbnail sizes for %s: %w", id, err)
	}
	var doc sizesDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode thumbnail sizes for %s: %w", id, err)
	}
	sizes := make([]Size, 0, len(doc.Open))
	for _, wh := range doc.Open {
		if len(wh) != 2 {
			continue
		}
		sizes = append(sizes, Size{W: wh[0], H: wh[1]})
	}
	return sizes, nil
}

// Close stops the cache janitor.
func (ix *Index) Close() {
	ix.cache.Stop()
}
