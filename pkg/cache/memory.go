package cache

import (
	"context"
	"sync"
	"time"
)

const defaultMemoryTTL = 7 * 24 * time.Hour

type memoryItem struct {
	value     interface{}
	expiresAt time.Time
	lastUsed  time.Time
}

func (it *memoryItem) expired(now time.Time) bool {
	return now.After(it.expiresAt)
}

type memoryConfig struct {
	maxEntries int
	sweepEvery time.Duration
}

// MemoryOption configures the in-process cache.
type MemoryOption func(*memoryConfig)

func WithMemoryMaxSize(n int) MemoryOption {
	return func(c *memoryConfig) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// MemoryCache is the in-process cache layer. Bounded: once full, the least
// recently used entry is evicted to make room.
type MemoryCache struct {
	mu         sync.Mutex
	items      map[string]*memoryItem
	maxEntries int
	sweeper    *time.Ticker
	done       chan struct{}
	closeOnce  sync.Once
}

func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := memoryConfig{
		maxEntries: 1000,
		sweepEvery: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	mc := &MemoryCache{
		items:      make(map[string]*memoryItem),
		maxEntries: cfg.maxEntries,
		sweeper:    time.NewTicker(cfg.sweepEvery),
		done:       make(chan struct{}),
	}
	go mc.sweep()
	return mc
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	now := time.Now()
	if ttl <= 0 {
		ttl = defaultMemoryTTL
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()
	if _, exists := mc.items[key]; !exists && len(mc.items) >= mc.maxEntries {
		mc.evictOldest()
	}
	mc.items[key] = &memoryItem{value: value, expiresAt: now.Add(ttl), lastUsed: now}
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	now := time.Now()

	mc.mu.Lock()
	defer mc.mu.Unlock()
	it, ok := mc.items[key]
	if !ok {
		return ErrCacheMiss
	}
	if it.expired(now) {
		delete(mc.items, key)
		return ErrCacheMiss
	}
	it.lastUsed = now

	if p, ok := dest.(*string); ok {
		if s, ok := it.value.(string); ok {
			*p = s
			return nil
		}
	}
	*dest.(*interface{}) = it.value
	return nil
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for _, key := range keys {
		delete(mc.items, key)
	}
	return nil
}

func (mc *MemoryCache) Exists(_ context.Context, keys ...string) (bool, error) {
	now := time.Now()
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for _, key := range keys {
		if it, ok := mc.items[key]; ok && !it.expired(now) {
			return true, nil
		}
	}
	return false, nil
}

// Close stops the background sweeper.
func (mc *MemoryCache) Close() error {
	mc.closeOnce.Do(func() {
		mc.sweeper.Stop()
		close(mc.done)
	})
	return nil
}

// evictOldest drops the least recently used entry. Caller holds the lock.
func (mc *MemoryCache) evictOldest() {
	var victim string
	var oldest time.Time
	for key, it := range mc.items {
		if victim == "" || it.lastUsed.Before(oldest) {
			victim, oldest = key, it.lastUsed
		}
	}
	if victim != "" {
		delete(mc.items, victim)
	}
}

func (mc *MemoryCache) sweep() {
	for {
		select {
		case <-mc.done:
			return
		case <-mc.sweeper.C:
			now := time.Now()
			mc.mu.Lock()
			for key, it := range mc.items {
				if it.expired(now) {
					delete(mc.items, key)
				}
			}
			mc.mu.Unlock()
		}
	}
}
