package transaction

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidType          = errors.New("invalid transaction type")
	ErrInvalidTransfer      = errors.New("transfer requires a distinct, active destination account")
	ErrImmutableTransaction = errors.New("cleared transactions past the edit window cannot change amount, account or type")
	ErrDuplicateOccurrence  = errors.New("occurrence already booked for this template and date")
)

// Type determines the signed effect a transaction applies to its account(s)
type Type string

const (
	TypeIncome   Type = "income"
	TypeExpense  Type = "expense"
	TypeTransfer Type = "transfer"
)

// Valid reports whether t is a known transaction type
func (t Type) Valid() bool {
	switch t {
	case TypeIncome, TypeExpense, TypeTransfer:
		return true
	}
	return false
}

// Transaction records one movement of money. Amount is always stored positive;
// Type decides the sign of the effect. TransferAccountID is set iff
// Type == transfer and then names the receiving account.
type Transaction struct {
	ID                uuid.UUID       `json:"id"`
	OwnerID           uuid.UUID       `json:"owner_id"`
	AccountID         uuid.UUID       `json:"account_id"`
	CategoryID        uuid.UUID       `json:"category_id"`
	TransferAccountID *uuid.UUID      `json:"transfer_account_id,omitempty"`
	Type              Type            `json:"type"`
	Amount            decimal.Decimal `json:"amount"`
	Date              time.Time       `json:"date"`
	Description       string          `json:"description"`
	Notes             string          `json:"notes,omitempty"`
	Tags              []string        `json:"tags,omitempty"`
	Cleared           bool            `json:"cleared"`
	TemplateID        *uuid.UUID      `json:"template_id,omitempty"` // set when materialized from a recurring template
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	DeletedAt         *time.Time      `json:"deleted_at,omitempty"`
}

// ValidateShape checks the structural invariant between type and transfer
// destination: transfers carry a destination distinct from the source, nothing
// else carries one at all.
func (t *Transaction) ValidateShape() error {
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if t.Type == TypeTransfer {
		if t.TransferAccountID == nil || *t.TransferAccountID == t.AccountID {
			return ErrInvalidTransfer
		}
	} else if t.TransferAccountID != nil {
		return ErrInvalidTransfer
	}
	return nil
}

// ProtectedAfter is how long a cleared transaction stays editable. Past this
// window amount, account, type and transfer destination are frozen.
const ProtectedAfter = 30 * 24 * time.Hour

// Protected reports whether the balance-affecting fields are frozen as of now.
func (t *Transaction) Protected(now time.Time) bool {
	return t.Cleared && now.Sub(t.Date) > ProtectedAfter
}

// SignedEffect returns the delta this transaction applies to its owning
// account: positive for income, negative for expense and transfer-out.
func (t *Transaction) SignedEffect() decimal.Decimal {
	if t.Type == TypeIncome {
		return t.Amount
	}
	return t.Amount.Neg()
}
