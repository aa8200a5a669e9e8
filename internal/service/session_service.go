package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/trubax/trubax-core/internal/domain"
	"github.com/trubax/trubax-core/internal/observability"
	"github.com/trubax/trubax-core/internal/repository"
	"github.com/trubax/trubax-core/internal/security"
)

// SessionService is the session registry. Termination is terminal; the
// current-session guard ("don't log out the device you're on") belongs to
// the caller, the registry terminates whatever valid id it is given.
type SessionService struct {
	sessions *repository.SessionRepository
	logger   *slog.Logger
	now      func() time.Time
}

func NewSessionService(sessions *repository.SessionRepository, logger *slog.Logger) *SessionService {
	return &SessionService{sessions: sessions, logger: logger, now: time.Now}
}

func (s *SessionService) CreateSession(ctx context.Context, ownerID string, device domain.DeviceInfo) (domain.Session, error) {
	if err := repository.ValidateID("owner id", ownerID); err != nil {
		return domain.Session{}, err
	}
	now := s.now().UTC()
	session := domain.Session{
		SessionID:    security.NewID(),
		OwnerID:      ownerID,
		Device:       device,
		CreatedAt:    now,
		LastActiveAt: now,
		IsActive:     true,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return domain.Session{}, err
	}
	observability.RecordSessionCreated(device.Platform)
	observability.Audit(ctx, "session.created",
		"owner_id", ownerID,
		"session_id", session.SessionID,
		"device_fingerprint", security.DeviceFingerprint(device),
	)
	return session, nil
}

// RecordActivity advances the session heartbeat. A terminated session is
// conceptually gone, so both absence and the lost conditional write
// surface as ErrNotFound.
func (s *SessionService) RecordActivity(ctx context.Context, ownerID, sessionID string) error {
	if err := repository.ValidateID("owner id", ownerID); err != nil {
		return err
	}
	if err := repository.ValidateID("session id", sessionID); err != nil {
		return err
	}
	err := s.sessions.Touch(ctx, ownerID, sessionID, s.now().UTC())
	if err != nil {
		if errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrNotFound) {
			return domain.NotFoundf("active session %s for owner %s", sessionID, ownerID)
		}
		return err
	}
	return nil
}

// ListSessions returns the owner's sessions, most recently active first,
// marking the caller-supplied current session.
func (s *SessionService) ListSessions(ctx context.Context, ownerID, currentSessionID string) ([]domain.Session, error) {
	if err := repository.ValidateID("owner id", ownerID); err != nil {
		return nil, err
	}
	sessions, err := s.sessions.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	for i := range sessions {
		sessions[i].IsCurrentSession = sessions[i].SessionID == currentSessionID
	}
	return sessions, nil
}

// TerminateSession marks the session inactive. Returns "terminated" on a
// state change, "already_terminated" when the session was inactive.
func (s *SessionService) TerminateSession(ctx context.Context, ownerID, sessionID string) (string, error) {
	if err := repository.ValidateID("owner id", ownerID); err != nil {
		return "", err
	}
	if err := repository.ValidateID("session id", sessionID); err != nil {
		return "", err
	}
	changed, err := s.sessions.Terminate(ctx, ownerID, sessionID, s.now().UTC())
	if err != nil {
		return "", err
	}
	if !changed {
		return "already_terminated", nil
	}
	observability.Audit(ctx, "session.terminated", "owner_id", ownerID, "session_id", sessionID)
	return "terminated", nil
}
