package database

import (
	"context"

	"github.com/grocerycompare/price-service/internal/access"
)

// AccessStore adapts Store to access.Store.
type AccessStore struct{ *Store }

// InTx runs fn against a transaction-bound AccessStore.
func (a AccessStore) InTx(ctx context.Context, fn func(access.Store) error) error {
	return a.WithTx(ctx, func(tx *Store) error {
		return fn(AccessStore{tx})
	})
}

var _ access.Store = AccessStore{}
