package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/trubax/trubax-core/internal/domain"
	"github.com/trubax/trubax-core/internal/observability"
	"github.com/trubax/trubax-core/internal/repository"
)

// FollowService orchestrates the follow-relationship state machine. It
// never holds locks: every mutation is a conditional batch arbitrated by
// the store, and the advisory reads here only pick which batch to attempt.
type FollowService struct {
	follows *repository.FollowRepository
	lookup  FollowLookupCache
	retries int
	logger  *slog.Logger
	now     func() time.Time
}

func NewFollowService(follows *repository.FollowRepository, lookup FollowLookupCache, retries int, logger *slog.Logger) *FollowService {
	if retries < 1 {
		retries = 1
	}
	if lookup == nil {
		lookup = NewNoopFollowLookupCache()
	}
	return &FollowService{
		follows: follows,
		lookup:  lookup,
		retries: retries,
		logger:  logger,
		now:     time.Now,
	}
}

// FollowOrRequest is the single entry point for a follow tap. Public
// targets toggle membership; private targets run the request workflow.
//
// The toggle captures its intent from one advisory read and then retries
// conditional batches until either this call or a concurrent duplicate has
// applied that same intent. A duplicate tap therefore collapses into one
// net state change instead of cancelling back to the original state.
func (s *FollowService) FollowOrRequest(ctx context.Context, requesterID, targetID string, targetIsPrivate bool) (domain.FollowOutcome, error) {
	if err := validatePair(requesterID, targetID); err != nil {
		return "", err
	}

	if targetIsPrivate {
		outcome, err := s.followPrivate(ctx, requesterID, targetID)
		if err == nil {
			observability.RecordFollowToggle(string(outcome))
		}
		return outcome, err
	}

	following, err := s.follows.IsFollowing(ctx, requesterID, targetID)
	if err != nil {
		return "", err
	}
	intendFollow := !following

	var lastErr error
	for attempt := 0; attempt < s.retries; attempt++ {
		if intendFollow {
			err = s.follows.Follow(ctx, requesterID, targetID, s.now())
		} else {
			err = s.follows.Unfollow(ctx, requesterID, targetID)
		}
		if err == nil {
			return s.toggleApplied(ctx, requesterID, targetID, intendFollow), nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return "", err
		}
		lastErr = err

		current, readErr := s.follows.IsFollowing(ctx, requesterID, targetID)
		if readErr != nil {
			return "", readErr
		}
		if current == intendFollow {
			// A concurrent duplicate already applied our intent.
			return s.toggleApplied(ctx, requesterID, targetID, intendFollow), nil
		}
	}
	observability.RecordFollowToggle("contended")
	return "", domain.Conflictf("follow toggle for %s->%s contended %d times: %v", requesterID, targetID, s.retries, lastErr)
}

func (s *FollowService) toggleApplied(ctx context.Context, requesterID, targetID string, followed bool) domain.FollowOutcome {
	s.lookup.Invalidate(ctx, requesterID)
	outcome := domain.FollowOutcomeUnfollowed
	if followed {
		outcome = domain.FollowOutcomeFollowed
	}
	observability.RecordFollowToggle(string(outcome))
	observability.Audit(ctx, "follow.toggle",
		"requester_id", requesterID,
		"target_id", targetID,
		"outcome", string(outcome),
	)
	return outcome
}

func (s *FollowService) followPrivate(ctx context.Context, requesterID, targetID string) (domain.FollowOutcome, error) {
	now := s.now()

	req, err := s.follows.GetRequest(ctx, targetID, requesterID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		err = s.follows.CreateRequest(ctx, targetID, requesterID, now)
		if err == nil {
			return domain.FollowOutcomeRequested, nil
		}
		if errors.Is(err, domain.ErrConflict) {
			// A concurrent duplicate created it; the workflow state is
			// the same either way.
			return domain.FollowOutcomePending, nil
		}
		return "", err
	case err != nil:
		return "", err
	}

	switch req.Status {
	case domain.FollowRequestPending:
		return domain.FollowOutcomePending, nil
	case domain.FollowRequestRejected:
		return s.reopenRequest(ctx, requesterID, targetID, req.Status, now)
	case domain.FollowRequestAccepted:
		following, err := s.follows.IsFollowing(ctx, requesterID, targetID)
		if err != nil {
			return "", err
		}
		if following {
			if err := s.follows.Unfollow(ctx, requesterID, targetID); err != nil {
				return "", err
			}
			s.lookup.Invalidate(ctx, requesterID)
			return domain.FollowOutcomeUnfollowed, nil
		}
		return s.reopenRequest(ctx, requesterID, targetID, req.Status, now)
	default:
		return "", domain.Validationf("request %s->%s has unknown status %q", requesterID, targetID, req.Status)
	}
}

func (s *FollowService) reopenRequest(ctx context.Context, requesterID, targetID string, from domain.FollowRequestStatus, now time.Time) (domain.FollowOutcome, error) {
	err := s.follows.ReopenRequest(ctx, targetID, requesterID, from, now)
	if err == nil {
		return domain.FollowOutcomeRequested, nil
	}
	if errors.Is(err, domain.ErrConflict) {
		return domain.FollowOutcomePending, nil
	}
	return "", err
}

// AcceptFollowRequest resolves a pending request in the requester's favor.
// The pending assertion, the status flip, both membership edges and the
// state-cache refresh share one batch; a lost race surfaces as ErrConflict
// with no partial writes, meaning someone else already resolved it.
func (s *FollowService) AcceptFollowRequest(ctx context.Context, ownerID, requesterID string) error {
	if err := validatePair(requesterID, ownerID); err != nil {
		return err
	}
	if _, err := s.follows.GetRequest(ctx, ownerID, requesterID); err != nil {
		observability.RecordFollowResolution("accept", outcomeLabel(err))
		return err
	}
	if err := s.follows.AcceptRequest(ctx, ownerID, requesterID, s.now()); err != nil {
		observability.RecordFollowResolution("accept", outcomeLabel(err))
		if errors.Is(err, domain.ErrConflict) {
			return domain.Conflictf("request %s->%s already resolved", requesterID, ownerID)
		}
		return err
	}
	s.lookup.Invalidate(ctx, requesterID)
	observability.RecordFollowResolution("accept", "success")
	observability.Audit(ctx, "follow.request.accepted", "owner_id", ownerID, "requester_id", requesterID)
	return nil
}

// RejectFollowRequest resolves a pending request against the requester.
// Membership sets are never touched on this path.
func (s *FollowService) RejectFollowRequest(ctx context.Context, ownerID, requesterID string) error {
	if err := validatePair(requesterID, ownerID); err != nil {
		return err
	}
	if _, err := s.follows.GetRequest(ctx, ownerID, requesterID); err != nil {
		observability.RecordFollowResolution("reject", outcomeLabel(err))
		return err
	}
	if err := s.follows.RejectRequest(ctx, ownerID, requesterID, s.now()); err != nil {
		observability.RecordFollowResolution("reject", outcomeLabel(err))
		if errors.Is(err, domain.ErrConflict) {
			return domain.Conflictf("request %s->%s already resolved", requesterID, ownerID)
		}
		return err
	}
	observability.RecordFollowResolution("reject", "success")
	observability.Audit(ctx, "follow.request.rejected", "owner_id", ownerID, "requester_id", requesterID)
	return nil
}

// FollowStateBetween returns the cached pair state, deriving it from the
// membership edge when no cache entry exists.
func (s *FollowService) FollowStateBetween(ctx context.Context, viewerID, subjectID string) (domain.FollowState, error) {
	if err := validatePair(viewerID, subjectID); err != nil {
		return domain.FollowState{}, err
	}
	state, err := s.follows.GetState(ctx, viewerID, subjectID)
	if err == nil {
		return *state, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.FollowState{}, err
	}

	if known, following := s.lookup.Get(ctx, viewerID, subjectID); known {
		return domain.FollowState{
			ViewerID:    viewerID,
			SubjectID:   subjectID,
			IsFollowing: following,
			UpdatedAt:   s.now(),
		}, nil
	}
	following, err := s.follows.IsFollowing(ctx, viewerID, subjectID)
	if err != nil {
		return domain.FollowState{}, err
	}
	s.lookup.Set(ctx, viewerID, subjectID, following)
	return domain.FollowState{
		ViewerID:    viewerID,
		SubjectID:   subjectID,
		IsFollowing: following,
		UpdatedAt:   s.now(),
	}, nil
}

// PendingRequests lists unresolved requests addressed to the owner.
func (s *FollowService) PendingRequests(ctx context.Context, ownerID string) ([]domain.FollowRequest, error) {
	if err := repository.ValidateID("owner id", ownerID); err != nil {
		return nil, err
	}
	return s.follows.PendingRequests(ctx, ownerID)
}

func validatePair(a, b string) error {
	if err := repository.ValidateID("account id", a); err != nil {
		return err
	}
	if err := repository.ValidateID("account id", b); err != nil {
		return err
	}
	if a == b {
		return domain.Validationf("account %s cannot follow itself", a)
	}
	return nil
}

func outcomeLabel(err error) string {
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
