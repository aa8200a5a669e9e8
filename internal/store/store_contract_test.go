package store

import (
	"context"
	"errors"
	"testing"

	"github.com/trubax/trubax-core/internal/domain"
)

// runStoreContract exercises the behaviors every backend must share:
// merge-on-set, commit-time conditions, all-or-nothing batches and atomic
// index maintenance.
func runStoreContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("get missing", func(t *testing.T) {
		_, err := s.Get(ctx, "contract:missing")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	})

	t.Run("set merges fields", func(t *testing.T) {
		if err := s.Set(ctx, "contract:merge", Record{"a": "1", "b": "x"}); err != nil {
			t.Fatalf("set: %v", err)
		}
		if err := s.Set(ctx, "contract:merge", Record{"b": "y"}); err != nil {
			t.Fatalf("second set: %v", err)
		}
		rec, err := s.Get(ctx, "contract:merge")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if rec["a"] != "1" || rec["b"] != "y" {
			t.Fatalf("expected merged record, got %v", rec)
		}
	})

	t.Run("conditions hold at commit", func(t *testing.T) {
		err := s.AtomicBatch(ctx, []Op{PutOp("contract:cond", Record{"v": "1"}).IfMissing()})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		err = s.AtomicBatch(ctx, []Op{PutOp("contract:cond", Record{"v": "2"}).IfMissing()})
		if !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("expected conflict on duplicate create, got %v", err)
		}
		rec, err := s.Get(ctx, "contract:cond")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if rec["v"] != "1" {
			t.Fatalf("losing batch must not write, got %v", rec)
		}

		err = s.AtomicBatch(ctx, []Op{
			PutOp("contract:cond", Record{"v": "2"}).IfFieldEquals("v", "1"),
		})
		if err != nil {
			t.Fatalf("field-equals update: %v", err)
		}
		err = s.AtomicBatch(ctx, []Op{
			PutOp("contract:cond", Record{"v": "3"}).IfFieldEquals("v", "1"),
		})
		if !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("expected conflict on stale field condition, got %v", err)
		}
	})

	t.Run("bool field condition", func(t *testing.T) {
		if err := s.Set(ctx, "contract:flag", Record{"active": true}); err != nil {
			t.Fatalf("set: %v", err)
		}
		err := s.AtomicBatch(ctx, []Op{
			PutOp("contract:flag", Record{"active": false}).IfFieldEquals("active", true),
		})
		if err != nil {
			t.Fatalf("bool condition should pass: %v", err)
		}
		err = s.AtomicBatch(ctx, []Op{
			PutOp("contract:flag", Record{"active": false}).IfFieldEquals("active", true),
		})
		if !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("expected conflict on flipped flag, got %v", err)
		}
	})

	t.Run("batch is all or nothing", func(t *testing.T) {
		if err := s.Set(ctx, "contract:pair:left", Record{"v": "old"}); err != nil {
			t.Fatalf("seed: %v", err)
		}
		// Second op's condition fails; the first must not apply.
		err := s.AtomicBatch(ctx, []Op{
			PutOp("contract:pair:left", Record{"v": "new"}),
			PutOp("contract:pair:right", Record{"v": "new"}).IfExists(),
		})
		if !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("expected conflict, got %v", err)
		}
		rec, err := s.Get(ctx, "contract:pair:left")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if rec["v"] != "old" {
			t.Fatalf("partial write leaked: %v", rec)
		}
		if _, err := s.Get(ctx, "contract:pair:right"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("partial write leaked to right: %v", err)
		}
	})

	t.Run("delete with condition", func(t *testing.T) {
		err := s.AtomicBatch(ctx, []Op{DeleteOp("contract:gone").IfExists()})
		if !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("expected conflict deleting absent record, got %v", err)
		}
		if err := s.Set(ctx, "contract:gone", Record{"v": "1"}); err != nil {
			t.Fatalf("set: %v", err)
		}
		if err := s.AtomicBatch(ctx, []Op{DeleteOp("contract:gone").IfExists()}); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := s.Get(ctx, "contract:gone"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected record gone, got %v", err)
		}
	})

	t.Run("scan prefix", func(t *testing.T) {
		for _, k := range []string{"contract:scan:a", "contract:scan:b", "contract:other"} {
			if err := s.Set(ctx, k, Record{"v": "1"}); err != nil {
				t.Fatalf("set %s: %v", k, err)
			}
		}
		var keys []string
		err := s.ScanPrefix(ctx, "contract:scan:", func(key string, _ Record) error {
			keys = append(keys, key)
			return nil
		})
		if err != nil {
			t.Fatalf("scan: %v", err)
		}
		if len(keys) != 2 {
			t.Fatalf("expected 2 keys, got %v", keys)
		}
	})

	t.Run("index follows batch", func(t *testing.T) {
		err := s.AtomicBatch(ctx, []Op{
			PutOp("contract:idx:1", Record{"v": "1"}).WithIndex("contract_scores", 10),
			PutOp("contract:idx:2", Record{"v": "1"}).WithIndex("contract_scores", 20),
			PutOp("contract:idx:3", Record{"v": "1"}).WithIndex("contract_scores", 30),
		})
		if err != nil {
			t.Fatalf("seed index: %v", err)
		}

		collect := func(max int64) map[string]bool {
			got := make(map[string]bool)
			if err := s.ScanIndex(ctx, "contract_scores", max, func(key string) error {
				got[key] = true
				return nil
			}); err != nil {
				t.Fatalf("scan index: %v", err)
			}
			return got
		}

		got := collect(20)
		if len(got) != 2 || !got["contract:idx:1"] || !got["contract:idx:2"] {
			t.Fatalf("expected entries 1 and 2 at max 20, got %v", got)
		}

		// Score update replaces, removal drops.
		err = s.AtomicBatch(ctx, []Op{
			PutOp("contract:idx:1", Record{"v": "2"}).WithIndex("contract_scores", 40),
			PutOp("contract:idx:2", Record{"v": "2"}).DropIndex("contract_scores"),
		})
		if err != nil {
			t.Fatalf("update index: %v", err)
		}
		got = collect(40)
		if len(got) != 2 || !got["contract:idx:1"] || !got["contract:idx:3"] {
			t.Fatalf("expected entries 1 and 3 after update, got %v", got)
		}
	})

	t.Run("batch bounds", func(t *testing.T) {
		if err := s.AtomicBatch(ctx, nil); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected validation error for empty batch, got %v", err)
		}
		oversized := make([]Op, s.MaxBatchOps()+1)
		for i := range oversized {
			oversized[i] = PutOp("contract:big", Record{"v": "1"})
		}
		if err := s.AtomicBatch(ctx, oversized); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected validation error for oversized batch, got %v", err)
		}
	})
}
