package feed

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/trubax/trubax-core/internal/domain"
	"github.com/trubax/trubax-core/internal/repository"
)

// AccountSnapshot is one observed state of an account and its graph
// neighborhood as delivered on the feed.
type AccountSnapshot struct {
	Account    domain.Account
	Followers  []string
	Following  []string
	ObservedAt time.Time
}

// Subscriber is the consumed feed contract. Producing the feed is someone
// else's job; the core only reads it. The channel closes when the
// subscription ends.
type Subscriber interface {
	Subscribe(ctx context.Context, accountID string) (<-chan AccountSnapshot, error)
}

// PollingSubscriber derives the feed by polling the store. It emits an
// initial snapshot and then one per observed change. Deployments with a real
// push pipeline substitute it behind the same contract.
type PollingSubscriber struct {
	accounts *repository.AccountRepository
	follows  *repository.FollowRepository
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func NewPollingSubscriber(accounts *repository.AccountRepository, follows *repository.FollowRepository, interval time.Duration, logger *slog.Logger) *PollingSubscriber {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &PollingSubscriber{
		accounts: accounts,
		follows:  follows,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

func (p *PollingSubscriber) Subscribe(ctx context.Context, accountID string) (<-chan AccountSnapshot, error) {
	if err := repository.ValidateID("account id", accountID); err != nil {
		return nil, err
	}
	if _, err := p.accounts.Get(ctx, accountID); err != nil {
		return nil, err
	}

	out := make(chan AccountSnapshot, 1)
	go func() {
		defer close(out)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		var last *AccountSnapshot
		for {
			snapshot, err := p.observe(ctx, accountID)
			if err != nil {
				p.logger.WarnContext(ctx, "feed poll failed", "account_id", accountID, "error", err)
			} else if last == nil || changed(*last, snapshot) {
				select {
				case out <- snapshot:
					last = &snapshot
				case <-ctx.Done():
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
	return out, nil
}

func (p *PollingSubscriber) observe(ctx context.Context, accountID string) (AccountSnapshot, error) {
	account, err := p.accounts.Get(ctx, accountID)
	if err != nil {
		return AccountSnapshot{}, err
	}
	followers, err := p.follows.Followers(ctx, accountID)
	if err != nil {
		return AccountSnapshot{}, err
	}
	following, err := p.follows.Following(ctx, accountID)
	if err != nil {
		return AccountSnapshot{}, err
	}
	return AccountSnapshot{
		Account:    account,
		Followers:  followers,
		Following:  following,
		ObservedAt: p.now().UTC(),
	}, nil
}

func changed(a, b AccountSnapshot) bool {
	return a.Account != b.Account ||
		!slices.Equal(a.Followers, b.Followers) ||
		!slices.Equal(a.Following, b.Following)
}
