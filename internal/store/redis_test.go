package store

import (
	"context"
	"errors"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/trubax/trubax-core/internal/domain"
)

func newRedisStoreForTest(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})
	return server, NewRedisStore(client, "trubax_test")
}

func TestRedisStoreContract(t *testing.T) {
	_, s := newRedisStoreForTest(t)
	runStoreContract(t, s)
}

func TestRedisStoreKeyNamespacing(t *testing.T) {
	ctx := context.Background()
	server, s := newRedisStoreForTest(t)

	if err := s.Set(ctx, "account:alice", Record{"v": "1"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !server.Exists("trubax_test:rec:account:alice") {
		t.Fatal("expected record under the store prefix")
	}

	// ScanPrefix yields logical keys, not raw redis keys.
	var keys []string
	err := s.ScanPrefix(ctx, "account:", func(key string, _ Record) error {
		keys = append(keys, key)
		return nil
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(keys) != 1 || keys[0] != "account:alice" {
		t.Fatalf("expected logical key account:alice, got %v", keys)
	}
}

func TestRedisStoreWatchedKeyChangeAborts(t *testing.T) {
	ctx := context.Background()
	server, s := newRedisStoreForTest(t)

	if err := s.Set(ctx, "guarded", Record{"status": "pending"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	// The record changes out from under the batch before EXEC would run.
	server.HSet("trubax_test:rec:guarded", "status", `"accepted"`)

	err := s.AtomicBatch(ctx, []Op{
		PutOp("guarded", Record{"status": "rejected"}).IfFieldEquals("status", "pending"),
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	rec, err := s.Get(ctx, "guarded")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec["status"] != "accepted" {
		t.Fatalf("losing batch must not write, got %v", rec)
	}
}
