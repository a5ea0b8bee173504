package cache

import (
	"testing"
	"time"

	pkgcache "DexPilot/pkg/cache"
)

func TestServiceCacheRoundTrip(t *testing.T) {
	mem := pkgcache.NewMemoryCache()
	defer mem.Close()
	sc := NewServiceCache(mem)

	if err := sc.SetBytes("k", []byte(`{"a":1}`), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	b, ok, err := sc.GetBytes("k")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if string(b) != `{"a":1}` {
		t.Fatalf("unexpected value %q", b)
	}
}

func TestServiceCacheMiss(t *testing.T) {
	mem := pkgcache.NewMemoryCache()
	defer mem.Close()
	sc := NewServiceCache(mem)

	if _, ok, err := sc.GetBytes("absent"); ok || err != nil {
		t.Fatalf("expected clean miss, ok=%v err=%v", ok, err)
	}
}

func TestServiceCacheExpiry(t *testing.T) {
	mem := pkgcache.NewMemoryCache()
	defer mem.Close()
	sc := NewServiceCache(mem)

	if err := sc.SetBytes("k", []byte("v"), time.Millisecond); err != nil {
		t.Fatalf("set: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, ok, _ := sc.GetBytes("k"); ok {
		t.Fatal("expected expired entry")
	}
}

func TestServiceCacheLayered(t *testing.T) {
	backing := pkgcache.NewMemoryCache()
	defer backing.Close()
	layered := pkgcache.NewLayeredCache(backing)
	defer layered.Close()
	sc := NewServiceCache(layered)

	if err := sc.SetBytes("k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	b, ok, err := sc.GetBytes("k")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if string(b) != "v" {
		t.Fatalf("unexpected value %q", b)
	}
}
