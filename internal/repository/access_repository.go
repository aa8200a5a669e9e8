package repository

import (
	"context"
	"errors"
	"sort"

	"github.com/trubax/trubax-core/internal/domain"
	"github.com/trubax/trubax-core/internal/observability"
	"github.com/trubax/trubax-core/internal/store"
)

// AccessRepository is plain CRUD over access grants; the only concurrency
// concern is that deletes are atomic and report absence.
type AccessRepository struct {
	store store.Store
}

func NewAccessRepository(s store.Store) *AccessRepository {
	return &AccessRepository{store: s}
}

func (r *AccessRepository) Create(ctx context.Context, g domain.AccessGrant) error {
	op := store.PutOp(accessKey(g.OwnerID, g.AccessID), accessToRecord(g)).IfMissing()
	err := r.store.AtomicBatch(ctx, []store.Op{op})
	if err != nil {
		observability.RecordStoreOperation(ctx, "access", "create", outcomeOf(err))
		return err
	}
	observability.RecordStoreOperation(ctx, "access", "create", "success")
	return nil
}

func (r *AccessRepository) Get(ctx context.Context, ownerID, accessID string) (domain.AccessGrant, error) {
	rec, err := r.store.Get(ctx, accessKey(ownerID, accessID))
	if err != nil {
		return domain.AccessGrant{}, err
	}
	return recordToAccess(rec)
}

// ListByOwner returns the owner's grants, newest first.
func (r *AccessRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.AccessGrant, error) {
	var grants []domain.AccessGrant
	err := r.store.ScanPrefix(ctx, accessPrefix+ownerID+":", func(_ string, rec store.Record) error {
		g, err := recordToAccess(rec)
		if err != nil {
			return err
		}
		grants = append(grants, g)
		return nil
	})
	if err != nil {
		observability.RecordStoreOperation(ctx, "access", "list_by_owner", "error")
		return nil, err
	}
	sort.Slice(grants, func(i, j int) bool {
		return grants[i].Timestamp.After(grants[j].Timestamp)
	})
	observability.RecordStoreOperation(ctx, "access", "list_by_owner", "success")
	return grants, nil
}

// Delete removes a grant; deleting an absent grant reports ErrNotFound.
func (r *AccessRepository) Delete(ctx context.Context, ownerID, accessID string) error {
	op := store.DeleteOp(accessKey(ownerID, accessID)).IfExists()
	err := r.store.AtomicBatch(ctx, []store.Op{op})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			observability.RecordStoreOperation(ctx, "access", "delete", "not_found")
			return domain.NotFoundf("access grant %s for owner %s", accessID, ownerID)
		}
		observability.RecordStoreOperation(ctx, "access", "delete", outcomeOf(err))
		return err
	}
	observability.RecordStoreOperation(ctx, "access", "delete", "success")
	return nil
}
