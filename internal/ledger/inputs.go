package ledger

import (
	"errors"
	"time"

	"github.com/finbook-ledger/internal/domain/transaction"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxBulkDelete bounds one BulkDelete batch
const MaxBulkDelete = 100

var ErrBulkTooLarge = errors.New("bulk delete accepts at most 100 transaction ids")

// CreateInput carries the already-validated fields for a new transaction.
// Callers have type- and range-checked everything (amount > 0, owned
// references); the engine re-validates only the balance, credit-limit and
// transfer-consistency invariants it owns.
type CreateInput struct {
	AccountID         uuid.UUID
	CategoryID        uuid.UUID
	TransferAccountID *uuid.UUID
	Type              transaction.Type
	Amount            decimal.Decimal
	Date              time.Time
	Description       string
	Notes             string
	Tags              []string
	Cleared           bool
	TemplateID        *uuid.UUID
}

// UpdateInput lists the fields an update may change. Nil means "keep the
// stored value". When Type changes away from transfer the destination is
// dropped; when it changes to transfer a destination must be resolvable.
type UpdateInput struct {
	AccountID         *uuid.UUID
	CategoryID        *uuid.UUID
	TransferAccountID *uuid.UUID
	Type              *transaction.Type
	Amount            *decimal.Decimal
	Date              *time.Time
	Description       *string
	Notes             *string
	Tags              *[]string
	Cleared           *bool
}

// TransferInput describes a money movement between two owned accounts.
// It materializes as a single transfer-type transaction row.
type TransferInput struct {
	FromAccountID uuid.UUID
	ToAccountID   uuid.UUID
	CategoryID    uuid.UUID
	Amount        decimal.Decimal
	Date          time.Time
	Description   string
}

// BulkDeleteFailure reports one id that could not be deleted
type BulkDeleteFailure struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	Reason        string    `json:"reason"`
}

// BulkDeleteReport summarizes a bulk delete. Each deletion is individually
// atomic; the batch as a whole tolerates partial success.
type BulkDeleteReport struct {
	Deleted  []uuid.UUID         `json:"deleted"`
	Failures []BulkDeleteFailure `json:"failures"`
}
