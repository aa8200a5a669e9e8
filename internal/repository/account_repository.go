package repository

import (
	"context"

	"github.com/trubax/trubax-core/internal/domain"
	"github.com/trubax/trubax-core/internal/store"
)

type AccountRepository struct {
	store store.Store
}

func NewAccountRepository(s store.Store) *AccountRepository {
	return &AccountRepository{store: s}
}

func (r *AccountRepository) Put(ctx context.Context, a domain.Account) error {
	if err := ValidateID("account id", a.ID); err != nil {
		return err
	}
	return r.store.Set(ctx, accountKey(a.ID), accountToRecord(a))
}

func (r *AccountRepository) Get(ctx context.Context, id string) (domain.Account, error) {
	if err := ValidateID("account id", id); err != nil {
		return domain.Account{}, err
	}
	rec, err := r.store.Get(ctx, accountKey(id))
	if err != nil {
		return domain.Account{}, err
	}
	return recordToAccount(id, rec)
}
