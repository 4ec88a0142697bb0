package transaction

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Repository defines transaction persistence operations, all owner scoped.
// Soft-deleted rows are invisible to every read except the ledger engine's
// own bookkeeping.
type Repository interface {
	Create(ctx context.Context, tx *Transaction) error
	GetByID(ctx context.Context, ownerID, id uuid.UUID) (*Transaction, error)
	ListByAccount(ctx context.Context, ownerID, accountID uuid.UUID, page, perPage int) ([]*Transaction, int64, error)
	Update(ctx context.Context, tx *Transaction) error
	SoftDelete(ctx context.Context, ownerID, id uuid.UUID, at time.Time) error

	// SumByCategory totals non-deleted expense amounts for one category in
	// [from, to). Budget summaries read through this.
	SumByCategory(ctx context.Context, ownerID, categoryID uuid.UUID, from, to time.Time) (decimal.Decimal, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrTransactionNotFound indicates a missing, foreign-owned or deleted transaction
type ErrTransactionNotFound struct {
	TransactionID uuid.UUID
}

func (e ErrTransactionNotFound) Error() string {
	return "transaction not found: " + e.TransactionID.String()
}
