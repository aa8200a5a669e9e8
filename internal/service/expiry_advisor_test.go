package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/trubax/trubax-core/internal/domain"
)

func TestExpiryAdvisorDeadlineAndRemaining(t *testing.T) {
	loginAt := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	advisor := NewExpiryAdvisor("anon", loginAt, nil, slog.Default())

	if got, want := advisor.Deadline(), loginAt.Add(domain.AnonymousSessionTTL); !got.Equal(want) {
		t.Fatalf("deadline %s, want %s", got, want)
	}

	advisor.now = func() time.Time { return loginAt.Add(23 * time.Hour) }
	if got := advisor.Remaining(); got != time.Hour {
		t.Fatalf("remaining %s, want 1h", got)
	}
	if advisor.Expired() {
		t.Fatal("expected not expired at 23h")
	}

	advisor.now = func() time.Time { return loginAt.Add(25 * time.Hour) }
	if got := advisor.Remaining(); got != 0 {
		t.Fatalf("remaining %s, want 0 past deadline", got)
	}
	if !advisor.Expired() {
		t.Fatal("expected expired at 25h")
	}
}

func TestExpiryAdvisorConfirmIsAuthoritative(t *testing.T) {
	ctx := context.Background()
	loginAt := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	// The server still sees a live session; the local deadline means
	// nothing until confirmation agrees.
	alive := true
	advisor := NewExpiryAdvisor("anon", loginAt, func(context.Context, string) (bool, error) {
		return alive, nil
	}, slog.Default())
	advisor.now = func() time.Time { return loginAt.Add(25 * time.Hour) }

	expired, err := advisor.Confirm(ctx)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if expired {
		t.Fatal("expected not expired while server reports a live session")
	}

	alive = false
	expired, err = advisor.Confirm(ctx)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if !expired {
		t.Fatal("expected expired once server agrees")
	}
}

func TestExpiryAdvisorWatchClosesOnConfirmedExpiry(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	loginAt := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	confirms := 0
	advisor := NewExpiryAdvisor("anon", loginAt, func(context.Context, string) (bool, error) {
		confirms++
		switch confirms {
		case 1:
			return false, errors.New("transient")
		case 2:
			return true, nil
		default:
			return false, nil
		}
	}, slog.Default())
	advisor.now = func() time.Time { return loginAt.Add(25 * time.Hour) }

	ticks := 0
	for remaining := range advisor.Watch(ctx, 5*time.Millisecond) {
		ticks++
		if remaining != 0 {
			t.Fatalf("expected zero remaining past deadline, got %s", remaining)
		}
		if ticks > 10 {
			t.Fatal("watch did not close after confirmed expiry")
		}
	}
	// Tick 1: confirm errors, countdown continues. Tick 2: server says
	// alive. Tick 3: confirmed gone, channel closes.
	if confirms != 3 {
		t.Fatalf("expected 3 confirmation attempts, got %d", confirms)
	}
}

func TestExpiryAdvisorWatchStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	loginAt := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	advisor := NewExpiryAdvisor("anon", loginAt, func(context.Context, string) (bool, error) {
		return true, nil
	}, slog.Default())
	advisor.now = func() time.Time { return loginAt }

	ch := advisor.Watch(ctx, 5*time.Millisecond)
	if remaining := <-ch; remaining != domain.AnonymousSessionTTL {
		t.Fatalf("expected full ttl remaining, got %s", remaining)
	}
	cancel()

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("watch did not close after cancel")
		}
	}
}
