package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/trubax/trubax-core/internal/domain"
	"github.com/trubax/trubax-core/internal/observability"
	"github.com/trubax/trubax-core/internal/repository"
	"github.com/trubax/trubax-core/internal/security"
)

// AccessService is the access ledger: one grant per successful
// authentication, read-only afterwards, removable by the user or by expiry.
type AccessService struct {
	accesses *repository.AccessRepository
	logger   *slog.Logger
	now      func() time.Time
}

func NewAccessService(accesses *repository.AccessRepository, logger *slog.Logger) *AccessService {
	return &AccessService{accesses: accesses, logger: logger, now: time.Now}
}

func (s *AccessService) CreateAccess(ctx context.Context, ownerID string, device domain.DeviceInfo, expiresAt time.Time) (domain.AccessGrant, error) {
	if err := repository.ValidateID("owner id", ownerID); err != nil {
		return domain.AccessGrant{}, err
	}
	grant := domain.AccessGrant{
		AccessID:  security.NewID(),
		OwnerID:   ownerID,
		Device:    device,
		Timestamp: s.now().UTC(),
		ExpiresAt: expiresAt.UTC(),
	}
	if err := grant.Valid(); err != nil {
		return domain.AccessGrant{}, err
	}
	if err := s.accesses.Create(ctx, grant); err != nil {
		return domain.AccessGrant{}, err
	}
	observability.Audit(ctx, "access.created",
		"owner_id", ownerID,
		"access_id", grant.AccessID,
		"expires_at", grant.ExpiresAt,
	)
	return grant, nil
}

func (s *AccessService) GetAccesses(ctx context.Context, ownerID string) ([]domain.AccessGrant, error) {
	if err := repository.ValidateID("owner id", ownerID); err != nil {
		return nil, err
	}
	return s.accesses.ListByOwner(ctx, ownerID)
}

func (s *AccessService) DeleteAccess(ctx context.Context, ownerID, accessID string) error {
	if err := repository.ValidateID("owner id", ownerID); err != nil {
		return err
	}
	if err := repository.ValidateID("access id", accessID); err != nil {
		return err
	}
	if err := s.accesses.Delete(ctx, ownerID, accessID); err != nil {
		return err
	}
	observability.Audit(ctx, "access.deleted", "owner_id", ownerID, "access_id", accessID)
	return nil
}
