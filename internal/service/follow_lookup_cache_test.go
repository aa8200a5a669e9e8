package service

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryFollowLookupCacheGetSetInvalidate(t *testing.T) {
	cache := NewInMemoryFollowLookupCache(time.Minute)
	ctx := context.Background()

	known, _ := cache.Get(ctx, "alice", "bob")
	if known {
		t.Fatal("expected initial miss")
	}

	cache.Set(ctx, "alice", "bob", true)
	known, following := cache.Get(ctx, "alice", "bob")
	if !known || !following {
		t.Fatalf("expected following hit, got known=%v following=%v", known, following)
	}

	cache.Set(ctx, "alice", "carol", false)
	known, following = cache.Get(ctx, "alice", "carol")
	if !known || following {
		t.Fatalf("expected not-following hit, got known=%v following=%v", known, following)
	}

	cache.Invalidate(ctx, "alice")
	if known, _ := cache.Get(ctx, "alice", "bob"); known {
		t.Fatal("expected miss after invalidate")
	}
}

func TestInMemoryFollowLookupCacheExpiry(t *testing.T) {
	cache := NewInMemoryFollowLookupCache(25 * time.Millisecond)
	ctx := context.Background()

	cache.Set(ctx, "alice", "bob", true)
	time.Sleep(40 * time.Millisecond)
	if known, _ := cache.Get(ctx, "alice", "bob"); known {
		t.Fatal("expected entry to expire")
	}
}

func TestNoopFollowLookupCacheAlwaysMisses(t *testing.T) {
	cache := NewNoopFollowLookupCache()
	ctx := context.Background()
	cache.Set(ctx, "alice", "bob", true)
	if known, _ := cache.Get(ctx, "alice", "bob"); known {
		t.Fatal("expected noop cache miss")
	}
	cache.Invalidate(ctx, "alice")
}
