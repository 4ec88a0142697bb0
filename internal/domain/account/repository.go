package account

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines account persistence operations. All lookups are owner
// scoped: an account that exists but belongs to someone else behaves as
// missing.
type Repository interface {
	Create(ctx context.Context, acc *Account) error
	GetByID(ctx context.Context, ownerID, id uuid.UUID) (*Account, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Account, error)
	Update(ctx context.Context, acc *Account) error

	// LockForUpdate acquires a row lock on the account for the duration of
	// the surrounding transaction. Ledger units lock every affected account
	// before touching balances.
	LockForUpdate(ctx context.Context, ownerID, id uuid.UUID) (*Account, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrConcurrentModification indicates a lost-update conflict on the account row
type ErrConcurrentModification struct {
	AccountID uuid.UUID
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for account: " + e.AccountID.String()
}

// ErrAccountNotFound indicates a missing or foreign-owned account
type ErrAccountNotFound struct {
	AccountID uuid.UUID
}

func (e ErrAccountNotFound) Error() string {
	return "account not found: " + e.AccountID.String()
}
