package service

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/trubax/trubax-core/internal/domain"
	"github.com/trubax/trubax-core/internal/observability"
	"github.com/trubax/trubax-core/internal/repository"
)

const accountLoadConcurrency = 8

// CleanupScheduler sweeps sessions past their inactivity TTL. It assumes no
// mutual exclusion with other scheduler instances: every mark-inactive write
// is conditional on the session still being active, so a duplicate sweep
// elsewhere is a harmless no-op.
type CleanupScheduler struct {
	sessions  *repository.SessionRepository
	accounts  *repository.AccountRepository
	interval  time.Duration
	chunkSize int
	logger    *slog.Logger
	now       func() time.Time
}

// SweepReport summarizes one sweep run.
type SweepReport struct {
	Candidates   int
	Terminated   int64
	FailedChunks int
}

func NewCleanupScheduler(sessions *repository.SessionRepository, accounts *repository.AccountRepository, interval time.Duration, chunkSize int, logger *slog.Logger) *CleanupScheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &CleanupScheduler{
		sessions:  sessions,
		accounts:  accounts,
		interval:  interval,
		chunkSize: chunkSize,
		logger:    logger,
		now:       time.Now,
	}
}

// Run sweeps on the configured interval until the context is canceled.
// Sweep failures are logged, never fatal: the selection predicate is
// stateless, so anything missed is re-selected on the next run.
func (c *CleanupScheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	c.logger.InfoContext(ctx, "cleanup scheduler started", "interval", c.interval)
	for {
		select {
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "cleanup scheduler stopped")
			return
		case <-ticker.C:
			report, err := c.Sweep(ctx)
			if err != nil {
				c.logger.ErrorContext(ctx, "sweep failed", "error", err)
				continue
			}
			c.logger.InfoContext(ctx, "sweep completed",
				"candidates", report.Candidates,
				"terminated", report.Terminated,
				"failed_chunks", report.FailedChunks,
			)
		}
	}
}

// Sweep runs one pass. Candidate selection is index-driven: one scan at the
// anonymous cutoff yields every possibly-expired session, a second at the
// persistent cutoff identifies those expired regardless of account type, and
// owner accounts decide the rest. Cost scales with expired sessions, not
// with the account population.
func (c *CleanupScheduler) Sweep(ctx context.Context) (SweepReport, error) {
	now := c.now().UTC()
	var report SweepReport

	candidates, err := c.sessions.ActiveKeysLastActiveBefore(ctx, now.Add(-domain.AnonymousSessionTTL))
	if err != nil {
		return report, err
	}
	report.Candidates = len(candidates)
	if len(candidates) == 0 {
		return report, nil
	}

	persistentExpired, err := c.sessions.ActiveKeysLastActiveBefore(ctx, now.Add(-domain.PersistentSessionTTL))
	if err != nil {
		return report, err
	}
	beyondPersistentTTL := make(map[string]bool, len(persistentExpired))
	for _, key := range persistentExpired {
		beyondPersistentTTL[key] = true
	}

	ttls := c.loadSessionTTLs(ctx, candidates)

	var expiredAnonymous, expiredPersistent []string
	for _, key := range candidates {
		switch {
		case ttls[key] == domain.AnonymousSessionTTL:
			expiredAnonymous = append(expiredAnonymous, key)
		case beyondPersistentTTL[key]:
			expiredPersistent = append(expiredPersistent, key)
		}
	}

	terminated, failed := c.markInactiveChunked(ctx, expiredAnonymous, now)
	observability.RecordSweepSessions(terminated, "anonymous")
	report.Terminated += terminated
	report.FailedChunks += failed

	terminated, failed = c.markInactiveChunked(ctx, expiredPersistent, now)
	observability.RecordSweepSessions(terminated, "persistent")
	report.Terminated += terminated
	report.FailedChunks += failed

	return report, nil
}

// loadSessionTTLs resolves each candidate's inactivity TTL from its owning
// account. Owner lookups are fanned out with a bounded group; a missing or
// unreadable account gets the longer persistent TTL, so a racing account
// deletion never expires a session early.
func (c *CleanupScheduler) loadSessionTTLs(ctx context.Context, keys []string) map[string]time.Duration {
	owners := make(map[string][]string)
	for _, key := range keys {
		ownerID, ok := repository.SessionKeyOwner(key)
		if !ok {
			c.logger.WarnContext(ctx, "skipping malformed session key", "key", key)
			continue
		}
		owners[ownerID] = append(owners[ownerID], key)
	}

	type ownerResult struct {
		ownerID string
		ttl     time.Duration
	}
	results := make(chan ownerResult, len(owners))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(accountLoadConcurrency)
	for ownerID := range owners {
		g.Go(func() error {
			account, err := c.accounts.Get(gctx, ownerID)
			if err != nil {
				c.logger.WarnContext(gctx, "account lookup failed during sweep, assuming persistent",
					"owner_id", ownerID, "error", err)
				results <- ownerResult{ownerID: ownerID, ttl: domain.PersistentSessionTTL}
				return nil
			}
			results <- ownerResult{ownerID: ownerID, ttl: account.SessionTTL()}
			return nil
		})
	}
	_ = g.Wait()
	close(results)

	ttls := make(map[string]time.Duration, len(keys))
	for res := range results {
		for _, key := range owners[res.ownerID] {
			ttls[key] = res.ttl
		}
	}
	return ttls
}

// markInactiveChunked applies conditional mark-inactive writes in batches
// bounded by the store. A failed chunk is logged and skipped; its sessions
// are naturally re-selected next run.
func (c *CleanupScheduler) markInactiveChunked(ctx context.Context, keys []string, now time.Time) (int64, int) {
	chunkSize := c.chunkSize
	if chunkSize <= 0 {
		chunkSize = c.sessions.MaxChunkOps()
	}

	var terminated int64
	var failedChunks int
	for start := 0; start < len(keys); start += chunkSize {
		end := min(start+chunkSize, len(keys))
		n, err := c.sessions.MarkInactive(ctx, keys[start:end], now)
		terminated += n
		if err != nil {
			failedChunks++
			observability.RecordSweepChunk("error")
			c.logger.WarnContext(ctx, "sweep chunk failed, continuing",
				"chunk_start", start, "chunk_size", end-start, "error", err)
			continue
		}
		observability.RecordSweepChunk("success")
	}
	return terminated, failedChunks
}
