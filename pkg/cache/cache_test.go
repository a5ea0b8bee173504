package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCacheSetGet(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	if err := mc.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	var got string
	if err := mc.Get(ctx, "k", &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "v" {
		t.Fatalf("unexpected value %q", got)
	}
}

func TestMemoryCacheMiss(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()

	var got string
	if err := mc.Get(context.Background(), "absent", &got); err != ErrCacheMiss {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	if err := mc.Set(ctx, "k", "v", time.Millisecond); err != nil {
		t.Fatalf("set: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	var got string
	if err := mc.Get(ctx, "k", &got); err != ErrCacheMiss {
		t.Fatalf("expected expiry, got %v", err)
	}
}

func TestMemoryCacheExists(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	_ = mc.Set(ctx, "k", "v", time.Minute)
	ok, err := mc.Exists(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("exists: ok=%v err=%v", ok, err)
	}
	ok, err = mc.Exists(ctx, "absent")
	if err != nil || ok {
		t.Fatalf("absent key: ok=%v err=%v", ok, err)
	}
}

func TestMemoryCacheLRUEviction(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()
	ctx := context.Background()

	_ = mc.Set(ctx, "a", "1", time.Minute)
	_ = mc.Set(ctx, "b", "2", time.Minute)
	// touch "a" so "b" becomes the LRU victim
	var tmp string
	_ = mc.Get(ctx, "a", &tmp)
	_ = mc.Set(ctx, "c", "3", time.Minute)

	var got string
	if err := mc.Get(ctx, "b", &got); err != ErrCacheMiss {
		t.Fatalf("expected b evicted, got %v", err)
	}
	if err := mc.Get(ctx, "a", &got); err != nil {
		t.Fatalf("a should survive: %v", err)
	}
}

func TestLayeredCachePromotesToMemory(t *testing.T) {
	backing := NewMemoryCache()
	defer backing.Close()
	lc := NewLayeredCache(backing)
	defer lc.Close()
	ctx := context.Background()

	// Write directly to the backend so L1 starts cold.
	if err := backing.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("backing set: %v", err)
	}
	var got string
	if err := lc.Get(ctx, "k", &got); err != nil {
		t.Fatalf("layered get: %v", err)
	}
	if got != "v" {
		t.Fatalf("unexpected value %q", got)
	}

	// Remove from the backend; the promoted copy must still serve reads.
	if err := backing.Delete(ctx, "k"); err != nil {
		t.Fatalf("backing delete: %v", err)
	}
	got = ""
	if err := lc.Get(ctx, "k", &got); err != nil {
		t.Fatalf("expected memory hit, got %v", err)
	}
	if got != "v" {
		t.Fatalf("unexpected promoted value %q", got)
	}
}

func TestLayeredCacheWriteThrough(t *testing.T) {
	backing := NewMemoryCache()
	defer backing.Close()
	lc := NewLayeredCache(backing)
	defer lc.Close()
	ctx := context.Background()

	if err := lc.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("layered set: %v", err)
	}
	var got string
	if err := backing.Get(ctx, "k", &got); err != nil {
		t.Fatalf("backend should hold the value: %v", err)
	}
	if err := lc.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := lc.Get(ctx, "k", &got); err != ErrCacheMiss {
		t.Fatalf("expected miss after delete, got %v", err)
	}
}
