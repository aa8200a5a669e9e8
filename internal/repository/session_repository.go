package repository

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/trubax/trubax-core/internal/domain"
	"github.com/trubax/trubax-core/internal/observability"
	"github.com/trubax/trubax-core/internal/store"
)

// SessionRepository persists sessions and keeps the activity index in step
// with them. Every transition to inactive is a conditional write on
// is_active=true, so a duplicate sweep or a racing termination is a no-op
// rather than a corruption.
type SessionRepository struct {
	store store.Store
}

func NewSessionRepository(s store.Store) *SessionRepository {
	return &SessionRepository{store: s}
}

func (r *SessionRepository) Create(ctx context.Context, s domain.Session) error {
	op := store.PutOp(sessionKey(s.OwnerID, s.SessionID), sessionToRecord(s)).
		IfMissing().
		WithIndex(SessionActivityIndex, s.LastActiveAt.Unix())
	err := r.store.AtomicBatch(ctx, []store.Op{op})
	if err != nil {
		observability.RecordStoreOperation(ctx, "session", "create", outcomeOf(err))
		return err
	}
	observability.RecordStoreOperation(ctx, "session", "create", "success")
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, ownerID, sessionID string) (domain.Session, error) {
	rec, err := r.store.Get(ctx, sessionKey(ownerID, sessionID))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			observability.RecordStoreOperation(ctx, "session", "get", "not_found")
		} else {
			observability.RecordStoreOperation(ctx, "session", "get", "error")
		}
		return domain.Session{}, err
	}
	observability.RecordStoreOperation(ctx, "session", "get", "success")
	return recordToSession(rec)
}

// GetByKey loads a session from a full store key; the sweep works on keys
// coming out of the activity index.
func (r *SessionRepository) GetByKey(ctx context.Context, key string) (domain.Session, error) {
	if _, _, err := splitSessionKey(key); err != nil {
		return domain.Session{}, err
	}
	rec, err := r.store.Get(ctx, key)
	if err != nil {
		return domain.Session{}, err
	}
	return recordToSession(rec)
}

// ListByOwner returns all sessions for the owner, most recently active
// first. Terminated sessions are included; they are an audit trail.
func (r *SessionRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Session, error) {
	var sessions []domain.Session
	err := r.store.ScanPrefix(ctx, sessionPrefix+ownerID+":", func(_ string, rec store.Record) error {
		s, err := recordToSession(rec)
		if err != nil {
			return err
		}
		sessions = append(sessions, s)
		return nil
	})
	if err != nil {
		observability.RecordStoreOperation(ctx, "session", "list_by_owner", "error")
		return nil, err
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].LastActiveAt.After(sessions[j].LastActiveAt)
	})
	observability.RecordStoreOperation(ctx, "session", "list_by_owner", "success")
	return sessions, nil
}

// Touch advances lastActiveAt, conditioned on the session still being
// active. Touching a terminated session returns ErrConflict.
func (r *SessionRepository) Touch(ctx context.Context, ownerID, sessionID string, at time.Time) error {
	op := store.PutOp(sessionKey(ownerID, sessionID), store.Record{
		"last_active_at": encodeTime(at),
	}).IfFieldEquals("is_active", true).
		WithIndex(SessionActivityIndex, at.Unix())
	err := r.store.AtomicBatch(ctx, []store.Op{op})
	if err != nil {
		observability.RecordStoreOperation(ctx, "session", "touch", outcomeOf(err))
		return err
	}
	observability.RecordStoreOperation(ctx, "session", "touch", "success")
	return nil
}

// Terminate marks the session inactive and drops it from the activity
// index. Returns changed=false when the session was already inactive.
func (r *SessionRepository) Terminate(ctx context.Context, ownerID, sessionID string, at time.Time) (bool, error) {
	s, err := r.Get(ctx, ownerID, sessionID)
	if err != nil {
		return false, err
	}
	if !s.IsActive {
		observability.RecordStoreOperation(ctx, "session", "terminate", "success")
		return false, nil
	}
	err = r.store.AtomicBatch(ctx, []store.Op{r.markInactiveOp(sessionKey(ownerID, sessionID), at)})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// Lost the race to another terminator; same final state.
			observability.RecordStoreOperation(ctx, "session", "terminate", "success")
			return false, nil
		}
		observability.RecordStoreOperation(ctx, "session", "terminate", outcomeOf(err))
		return false, err
	}
	observability.RecordStoreOperation(ctx, "session", "terminate", "success")
	return true, nil
}

// ActiveKeysLastActiveBefore selects, via the activity index, the keys of
// sessions whose lastActiveAt is at or before the cutoff. Cost is
// proportional to the candidates, not the account population.
func (r *SessionRepository) ActiveKeysLastActiveBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	var keys []string
	err := r.store.ScanIndex(ctx, SessionActivityIndex, cutoff.Unix(), func(key string) error {
		keys = append(keys, key)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// MarkInactive terminates a chunk of sessions in one batch. If the batch
// loses to a concurrent transition (some session already inactive), it
// degrades to per-key batches so the rest of the chunk still commits; the
// skipped keys were already in the desired state.
func (r *SessionRepository) MarkInactive(ctx context.Context, keys []string, at time.Time) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	ops := make([]store.Op, 0, len(keys))
	for _, key := range keys {
		ops = append(ops, r.markInactiveOp(key, at))
	}
	err := r.store.AtomicBatch(ctx, ops)
	if err == nil {
		observability.RecordStoreOperation(ctx, "session", "mark_inactive", "success")
		return int64(len(keys)), nil
	}
	if !errors.Is(err, domain.ErrConflict) {
		observability.RecordStoreOperation(ctx, "session", "mark_inactive", outcomeOf(err))
		return 0, err
	}

	var n int64
	for _, key := range keys {
		err := r.store.AtomicBatch(ctx, []store.Op{r.markInactiveOp(key, at)})
		if err != nil {
			if errors.Is(err, domain.ErrConflict) {
				continue
			}
			observability.RecordStoreOperation(ctx, "session", "mark_inactive", outcomeOf(err))
			return n, err
		}
		n++
	}
	observability.RecordStoreOperation(ctx, "session", "mark_inactive", "success")
	return n, nil
}

// MaxChunkOps is the largest batch the backing store accepts.
func (r *SessionRepository) MaxChunkOps() int {
	return r.store.MaxBatchOps()
}

func (r *SessionRepository) markInactiveOp(key string, at time.Time) store.Op {
	return store.PutOp(key, store.Record{
		"is_active":     false,
		"terminated_at": encodeTime(at),
	}).IfFieldEquals("is_active", true).
		DropIndex(SessionActivityIndex)
}
