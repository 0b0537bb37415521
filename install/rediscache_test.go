package install

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func TestRedisCache_RoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := NewRedisCache(mr.Addr())
	defer func() { _ = cache.Close() }()

	ctx := context.Background()

	if _, ok := cache.Known(ctx, "default", "curl"); ok {
		t.Fatal("expected cache miss before any Record call")
	}

	cache.Record(ctx, "default", "curl", true)

	known, ok := cache.Known(ctx, "default", "curl")
	if !ok {
		t.Fatal("expected cache hit after Record")
	}
	if !known {
		t.Error("expected known=true for a recorded success")
	}
}

func TestRedisCache_RecordsFailures(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := NewRedisCache(mr.Addr())
	defer func() { _ = cache.Close() }()

	ctx := context.Background()
	cache.Record(ctx, "default", "broken-pkg", false)

	known, ok := cache.Known(ctx, "default", "broken-pkg")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if known {
		t.Error("expected known=false for a recorded failure")
	}
}
