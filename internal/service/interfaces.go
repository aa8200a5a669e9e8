package service

import (
	"context"
	"time"

	"github.com/trubax/trubax-core/internal/domain"
)

type FollowGraphManager interface {
	FollowOrRequest(ctx context.Context, requesterID, targetID string, targetIsPrivate bool) (domain.FollowOutcome, error)
	AcceptFollowRequest(ctx context.Context, ownerID, requesterID string) error
	RejectFollowRequest(ctx context.Context, ownerID, requesterID string) error
	FollowStateBetween(ctx context.Context, viewerID, subjectID string) (domain.FollowState, error)
	PendingRequests(ctx context.Context, ownerID string) ([]domain.FollowRequest, error)
}

type SessionRegistry interface {
	CreateSession(ctx context.Context, ownerID string, device domain.DeviceInfo) (domain.Session, error)
	RecordActivity(ctx context.Context, ownerID, sessionID string) error
	ListSessions(ctx context.Context, ownerID, currentSessionID string) ([]domain.Session, error)
	TerminateSession(ctx context.Context, ownerID, sessionID string) (string, error)
}

type AccessLedger interface {
	CreateAccess(ctx context.Context, ownerID string, device domain.DeviceInfo, expiresAt time.Time) (domain.AccessGrant, error)
	GetAccesses(ctx context.Context, ownerID string) ([]domain.AccessGrant, error)
	DeleteAccess(ctx context.Context, ownerID, accessID string) error
}

var (
	_ FollowGraphManager = (*FollowService)(nil)
	_ SessionRegistry    = (*SessionService)(nil)
	_ AccessLedger       = (*AccessService)(nil)
)
