package domain

import "time"

type FollowRequestStatus string

const (
	FollowRequestPending  FollowRequestStatus = "pending"
	FollowRequestAccepted FollowRequestStatus = "accepted"
	FollowRequestRejected FollowRequestStatus = "rejected"
)

// Terminal reports whether the status is final. Accepted and rejected
// requests are immutable.
func (s FollowRequestStatus) Terminal() bool {
	return s == FollowRequestAccepted || s == FollowRequestRejected
}

// FollowRequest gates a new follower relationship on a private account.
// Keyed by (RequesterID, TargetID); resolved exactly once by the target.
type FollowRequest struct {
	RequesterID string              `json:"requester_id"`
	TargetID    string              `json:"target_id"`
	Status      FollowRequestStatus `json:"status"`
	CreatedAt   time.Time           `json:"created_at"`
	ResolvedAt  *time.Time          `json:"resolved_at,omitempty"`
}

// FollowState is a derived cache of the relationship between a viewer and a
// subject. It is refreshed on accept and dropped on reject; membership edges
// remain the source of truth.
type FollowState struct {
	ViewerID    string              `json:"viewer_id"`
	SubjectID   string              `json:"subject_id"`
	Status      FollowRequestStatus `json:"status"`
	IsFollowing bool                `json:"is_following"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// FollowOutcome describes what a FollowOrRequest call did.
type FollowOutcome string

const (
	FollowOutcomeFollowed   FollowOutcome = "followed"
	FollowOutcomeUnfollowed FollowOutcome = "unfollowed"
	FollowOutcomeRequested  FollowOutcome = "requested"
	// FollowOutcomePending is returned when a non-terminal request already
	// exists; the call was a no-op.
	FollowOutcomePending FollowOutcome = "pending"
)
