package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/trubax/trubax-core/internal/domain"
	"github.com/trubax/trubax-core/internal/store"
)

func testSession(owner, id string, lastActive time.Time) domain.Session {
	return domain.Session{
		SessionID:    id,
		OwnerID:      owner,
		Device:       domain.DeviceInfo{Platform: "ios", Browser: "safari", OS: "17"},
		CreatedAt:    lastActive,
		LastActiveAt: lastActive,
		IsActive:     true,
	}
}

func TestSessionCreateIsUnique(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(store.NewMemoryStore())
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	if err := repo.Create(ctx, testSession("alice", "s1", now)); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := repo.Create(ctx, testSession("alice", "s1", now))
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict on duplicate session id, got %v", err)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(store.NewMemoryStore())
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	want := testSession("alice", "s1", now)
	if err := repo.Create(ctx, want); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := repo.Get(ctx, "alice", "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Device != want.Device || !got.LastActiveAt.Equal(want.LastActiveAt) || !got.IsActive {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.TerminatedAt != nil {
		t.Fatalf("expected no termination time, got %v", got.TerminatedAt)
	}
}

func TestTouchRefusesInactiveSession(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(store.NewMemoryStore())
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	if err := repo.Create(ctx, testSession("alice", "s1", now)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.Terminate(ctx, "alice", "s1", now); err != nil {
		t.Fatalf("terminate: %v", err)
	}

	err := repo.Touch(ctx, "alice", "s1", now.Add(time.Minute))
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict touching terminated session, got %v", err)
	}
}

func TestTerminateReportsChange(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(store.NewMemoryStore())
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	if err := repo.Create(ctx, testSession("alice", "s1", now)); err != nil {
		t.Fatalf("create: %v", err)
	}

	changed, err := repo.Terminate(ctx, "alice", "s1", now)
	if err != nil {
		t.Fatalf("terminate: %v", err)
	}
	if !changed {
		t.Fatal("expected state change on first terminate")
	}
	changed, err = repo.Terminate(ctx, "alice", "s1", now)
	if err != nil {
		t.Fatalf("second terminate: %v", err)
	}
	if changed {
		t.Fatal("expected no change on second terminate")
	}

	got, err := repo.Get(ctx, "alice", "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.IsActive || got.TerminatedAt == nil {
		t.Fatalf("expected terminated session, got %+v", got)
	}
}

func TestActivityIndexTracksLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(store.NewMemoryStore())
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	if err := repo.Create(ctx, testSession("alice", "old", base.Add(-48*time.Hour))); err != nil {
		t.Fatalf("create old: %v", err)
	}
	if err := repo.Create(ctx, testSession("alice", "fresh", base)); err != nil {
		t.Fatalf("create fresh: %v", err)
	}

	keys, err := repo.ActiveKeysLastActiveBefore(ctx, base.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(keys) != 1 || keys[0] != "session:alice:old" {
		t.Fatalf("expected only the stale session, got %v", keys)
	}

	// Touch moves the session past the cutoff.
	if err := repo.Touch(ctx, "alice", "old", base); err != nil {
		t.Fatalf("touch: %v", err)
	}
	keys, err = repo.ActiveKeysLastActiveBefore(ctx, base.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("scan after touch: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("expected no stale sessions after touch, got %v", keys)
	}

	// Termination drops the entry entirely.
	if _, err := repo.Terminate(ctx, "alice", "old", base); err != nil {
		t.Fatalf("terminate: %v", err)
	}
	keys, err = repo.ActiveKeysLastActiveBefore(ctx, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("scan after terminate: %v", err)
	}
	if len(keys) != 1 || keys[0] != "session:alice:fresh" {
		t.Fatalf("expected only the fresh session indexed, got %v", keys)
	}
}

func TestMarkInactiveDegradesOnConflict(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	repo := NewSessionRepository(mem)
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	keys := make([]string, 0, 3)
	for i := 1; i <= 3; i++ {
		id := fmt.Sprintf("s%d", i)
		if err := repo.Create(ctx, testSession("alice", id, now.Add(-48*time.Hour))); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
		keys = append(keys, "session:alice:"+id)
	}

	// s2 is already inactive; the whole-chunk batch conflicts and the
	// repository falls back to per-key writes.
	if _, err := repo.Terminate(ctx, "alice", "s2", now); err != nil {
		t.Fatalf("terminate s2: %v", err)
	}

	n, err := repo.MarkInactive(ctx, keys, now)
	if err != nil {
		t.Fatalf("mark inactive: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 transitions, got %d", n)
	}
	for _, id := range []string{"s1", "s2", "s3"} {
		got, err := repo.Get(ctx, "alice", id)
		if err != nil {
			t.Fatalf("get %s: %v", id, err)
		}
		if got.IsActive {
			t.Fatalf("expected %s inactive", id)
		}
	}
}
