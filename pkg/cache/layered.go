package cache

import (
	"context"
	"time"
)

// LayeredCache reads through an in-process L1 before the shared backend, so
// hot report keys never leave the process between refreshes.
type LayeredCache struct {
	local   *MemoryCache
	backing Service
}

func NewLayeredCache(backing Service, opts ...MemoryOption) *LayeredCache {
	return &LayeredCache{
		local:   NewMemoryCache(opts...),
		backing: backing,
	}
}

// Set writes through: the backend first, then the local layer.
func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if err := lc.backing.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	_ = lc.local.Set(ctx, key, value, ttl)
	return nil
}

func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	if err := lc.local.Get(ctx, key, dest); err == nil {
		return nil
	}
	if err := lc.backing.Get(ctx, key, dest); err != nil {
		return err
	}
	// Promote string values so the next read stays local.
	if p, ok := dest.(*string); ok {
		_ = lc.local.Set(ctx, key, *p, 0)
	}
	return nil
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.local.Delete(ctx, keys...)
	return lc.backing.Delete(ctx, keys...)
}

func (lc *LayeredCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	return lc.backing.Exists(ctx, keys...)
}

// Close stops the local layer only; the shared backend outlives this cache.
func (lc *LayeredCache) Close() error {
	return lc.local.Close()
}
