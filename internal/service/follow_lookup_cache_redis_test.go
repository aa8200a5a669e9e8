package service

import (
	"context"
	"log/slog"
	"testing"
	"time"
)

func TestRedisFollowLookupCacheSetGetInvalidateAndStale(t *testing.T) {
	ctx := context.Background()
	server, client := newRedisClientForTest(t)
	cache := NewRedisFollowLookupCache(client, "follow_lookup_test", 2*time.Second, slog.Default())

	known, _ := cache.Get(ctx, "alice", "bob")
	if known {
		t.Fatal("expected initial miss")
	}

	cache.Set(ctx, "alice", "bob", true)
	known, following := cache.Get(ctx, "alice", "bob")
	if !known || !following {
		t.Fatalf("expected following hit, got known=%v following=%v", known, following)
	}

	server.FastForward(3 * time.Second)
	if known, _ := cache.Get(ctx, "alice", "bob"); known {
		t.Fatal("expected miss after ttl expiry")
	}

	cache.Set(ctx, "alice", "bob", false)
	cache.Invalidate(ctx, "alice")
	if known, _ := cache.Get(ctx, "alice", "bob"); known {
		t.Fatal("expected miss after invalidate")
	}
}
