package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/trubax/trubax-core/internal/domain"
)

// ConfirmFunc asks the authoritative side whether the anonymous account
// still has a live session. The advisor never expires anything itself.
type ConfirmFunc func(ctx context.Context, accountID string) (bool, error)

// ExpiryAdvisor tracks the anonymous-session deadline for a single login.
// The local countdown is advisory: when it reaches zero the advisor calls
// confirm and reports the answer, it does not terminate the session. The
// cleanup sweep owns the actual state transition.
type ExpiryAdvisor struct {
	accountID string
	loginAt   time.Time
	confirm   ConfirmFunc
	logger    *slog.Logger
	now       func() time.Time
}

func NewExpiryAdvisor(accountID string, loginAt time.Time, confirm ConfirmFunc, logger *slog.Logger) *ExpiryAdvisor {
	return &ExpiryAdvisor{
		accountID: accountID,
		loginAt:   loginAt.UTC(),
		confirm:   confirm,
		logger:    logger,
		now:       time.Now,
	}
}

// Deadline is the instant the anonymous session becomes sweep-eligible,
// assuming no further activity.
func (a *ExpiryAdvisor) Deadline() time.Time {
	return a.loginAt.Add(domain.AnonymousSessionTTL)
}

// Remaining returns the time left before the deadline, clamped at zero.
func (a *ExpiryAdvisor) Remaining() time.Duration {
	r := a.Deadline().Sub(a.now())
	if r < 0 {
		return 0
	}
	return r
}

// Expired reports whether the local deadline has passed. A true result is
// only a hint to call Confirm.
func (a *ExpiryAdvisor) Expired() bool {
	return a.Remaining() == 0
}

// Confirm asks the server whether the session is really gone. Errors are
// surfaced to the caller, who typically retries on the next tick.
func (a *ExpiryAdvisor) Confirm(ctx context.Context) (bool, error) {
	alive, err := a.confirm(ctx, a.accountID)
	if err != nil {
		return false, err
	}
	return !alive, nil
}

// Watch emits the remaining duration on every interval tick and closes the
// channel once the deadline passes and the server confirms expiry. If
// confirmation fails or the server says the session is still alive, the
// countdown keeps running so activity elsewhere extends the watch.
func (a *ExpiryAdvisor) Watch(ctx context.Context, interval time.Duration) <-chan time.Duration {
	if interval <= 0 {
		interval = time.Second
	}
	out := make(chan time.Duration, 1)
	go func() {
		defer close(out)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			remaining := a.Remaining()
			select {
			case out <- remaining:
			case <-ctx.Done():
				return
			}
			if remaining == 0 {
				expired, err := a.Confirm(ctx)
				if err != nil {
					a.logger.WarnContext(ctx, "expiry confirmation failed, retrying next tick",
						"account_id", a.accountID, "error", err)
				} else if expired {
					return
				}
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return out
}
