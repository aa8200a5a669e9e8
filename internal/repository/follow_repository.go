package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/trubax/trubax-core/internal/domain"
	"github.com/trubax/trubax-core/internal/observability"
	"github.com/trubax/trubax-core/internal/store"
)

// FollowRepository owns the edge-pair layout of the follow graph. A follow
// is two records, edge:following:<a>:<b> and edge:followers:<b>:<a>, always
// written in one batch so that either both exist or neither does.
type FollowRepository struct {
	store store.Store
}

func NewFollowRepository(s store.Store) *FollowRepository {
	return &FollowRepository{store: s}
}

// IsFollowing is an advisory read. It must not be the sole branch condition
// of any mutation; the conditional batch re-checks at commit.
func (r *FollowRepository) IsFollowing(ctx context.Context, requesterID, targetID string) (bool, error) {
	_, err := r.store.Get(ctx, followingEdgeKey(requesterID, targetID))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Follow creates both edge records, each conditioned on being absent. A
// concurrent identical call loses with ErrConflict and no partial writes.
func (r *FollowRepository) Follow(ctx context.Context, requesterID, targetID string, now time.Time) error {
	created := store.Record{"created_at": encodeTime(now)}
	err := r.store.AtomicBatch(ctx, []store.Op{
		store.PutOp(followingEdgeKey(requesterID, targetID), created).IfMissing(),
		store.PutOp(followersEdgeKey(targetID, requesterID), created).IfMissing(),
	})
	if err != nil {
		observability.RecordStoreOperation(ctx, "follow_edge", "follow", outcomeOf(err))
		return err
	}
	observability.RecordStoreOperation(ctx, "follow_edge", "follow", "success")
	return nil
}

// Unfollow removes both edge records, each conditioned on being present.
func (r *FollowRepository) Unfollow(ctx context.Context, requesterID, targetID string) error {
	err := r.store.AtomicBatch(ctx, []store.Op{
		store.DeleteOp(followingEdgeKey(requesterID, targetID)).IfExists(),
		store.DeleteOp(followersEdgeKey(targetID, requesterID)).IfExists(),
	})
	if err != nil {
		observability.RecordStoreOperation(ctx, "follow_edge", "unfollow", outcomeOf(err))
		return err
	}
	observability.RecordStoreOperation(ctx, "follow_edge", "unfollow", "success")
	return nil
}

// Following lists the ids the account follows.
func (r *FollowRepository) Following(ctx context.Context, accountID string) ([]string, error) {
	return r.scanEdgeSuffixes(ctx, followingPrefix+accountID+":")
}

// Followers lists the ids following the account.
func (r *FollowRepository) Followers(ctx context.Context, accountID string) ([]string, error) {
	return r.scanEdgeSuffixes(ctx, followersPrefix+accountID+":")
}

func (r *FollowRepository) scanEdgeSuffixes(ctx context.Context, prefix string) ([]string, error) {
	var ids []string
	err := r.store.ScanPrefix(ctx, prefix, func(key string, _ store.Record) error {
		ids = append(ids, strings.TrimPrefix(key, prefix))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *FollowRepository) GetRequest(ctx context.Context, targetID, requesterID string) (*domain.FollowRequest, error) {
	rec, err := r.store.Get(ctx, requestKey(targetID, requesterID))
	if err != nil {
		return nil, err
	}
	req, err := recordToRequest(targetID, requesterID, rec)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// CreateRequest writes a pending request conditioned on the key being
// absent, so duplicate submissions collapse at commit time rather than
// through a read-then-write check.
func (r *FollowRepository) CreateRequest(ctx context.Context, targetID, requesterID string, now time.Time) error {
	rec := store.Record{
		"requester_id": requesterID,
		"target_id":    targetID,
		"status":       string(domain.FollowRequestPending),
		"created_at":   encodeTime(now),
	}
	err := r.store.AtomicBatch(ctx, []store.Op{
		store.PutOp(requestKey(targetID, requesterID), rec).IfMissing(),
	})
	if err != nil {
		observability.RecordStoreOperation(ctx, "follow_request", "create", outcomeOf(err))
		return err
	}
	observability.RecordStoreOperation(ctx, "follow_request", "create", "success")
	return nil
}

// AcceptRequest flips the request to accepted, establishes membership both
// directions and refreshes the follow-state cache, all in one batch. The
// pending assertion is part of the same commit; a resolved request fails
// the whole batch with ErrConflict and nothing is applied.
func (r *FollowRepository) AcceptRequest(ctx context.Context, targetID, requesterID string, now time.Time) error {
	ts := encodeTime(now)
	edge := store.Record{"created_at": ts}
	ops := []store.Op{
		store.PutOp(requestKey(targetID, requesterID), store.Record{
			"status":      string(domain.FollowRequestAccepted),
			"resolved_at": ts,
		}).IfFieldEquals("status", string(domain.FollowRequestPending)),
		store.PutOp(followingEdgeKey(requesterID, targetID), edge),
		store.PutOp(followersEdgeKey(targetID, requesterID), edge),
		store.PutOp(stateKey(requesterID, targetID), store.Record{
			"status":       string(domain.FollowRequestAccepted),
			"is_following": true,
			"updated_at":   ts,
		}),
	}
	err := r.store.AtomicBatch(ctx, ops)
	if err != nil {
		observability.RecordStoreOperation(ctx, "follow_request", "accept", outcomeOf(err))
		return err
	}
	observability.RecordStoreOperation(ctx, "follow_request", "accept", "success")
	return nil
}

// ReopenRequest replaces a terminal request with a fresh pending one, as
// the follow attempt that supersedes it. Conditioned on the status still
// being the terminal value the caller observed.
func (r *FollowRepository) ReopenRequest(ctx context.Context, targetID, requesterID string, from domain.FollowRequestStatus, now time.Time) error {
	if !from.Terminal() {
		return domain.Validationf("cannot reopen request in state %q", from)
	}
	ops := []store.Op{
		store.PutOp(requestKey(targetID, requesterID), store.Record{
			"status":      string(domain.FollowRequestPending),
			"created_at":  encodeTime(now),
			"resolved_at": "",
		}).IfFieldEquals("status", string(from)),
	}
	err := r.store.AtomicBatch(ctx, ops)
	if err != nil {
		observability.RecordStoreOperation(ctx, "follow_request", "reopen", outcomeOf(err))
		return err
	}
	observability.RecordStoreOperation(ctx, "follow_request", "reopen", "success")
	return nil
}

// RejectRequest flips the request to rejected and drops the follow-state
// cache entry. Membership edges are never touched.
func (r *FollowRepository) RejectRequest(ctx context.Context, targetID, requesterID string, now time.Time) error {
	ops := []store.Op{
		store.PutOp(requestKey(targetID, requesterID), store.Record{
			"status":      string(domain.FollowRequestRejected),
			"resolved_at": encodeTime(now),
		}).IfFieldEquals("status", string(domain.FollowRequestPending)),
		store.DeleteOp(stateKey(requesterID, targetID)),
	}
	err := r.store.AtomicBatch(ctx, ops)
	if err != nil {
		observability.RecordStoreOperation(ctx, "follow_request", "reject", outcomeOf(err))
		return err
	}
	observability.RecordStoreOperation(ctx, "follow_request", "reject", "success")
	return nil
}

func (r *FollowRepository) GetState(ctx context.Context, viewerID, subjectID string) (*domain.FollowState, error) {
	rec, err := r.store.Get(ctx, stateKey(viewerID, subjectID))
	if err != nil {
		return nil, err
	}
	state, err := recordToState(viewerID, subjectID, rec)
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// PendingRequests lists unresolved requests addressed to the target.
func (r *FollowRepository) PendingRequests(ctx context.Context, targetID string) ([]domain.FollowRequest, error) {
	prefix := requestPrefix + targetID + ":"
	var out []domain.FollowRequest
	err := r.store.ScanPrefix(ctx, prefix, func(key string, rec store.Record) error {
		req, err := recordToRequest(targetID, strings.TrimPrefix(key, prefix), rec)
		if err != nil {
			return err
		}
		if req.Status == domain.FollowRequestPending {
			out = append(out, req)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}
