package event

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind names what happened inside a committed ledger unit or scheduler run
type Kind string

const (
	KindTransactionCreated     Kind = "transaction.created"
	KindTransactionUpdated     Kind = "transaction.updated"
	KindTransactionDeleted     Kind = "transaction.deleted"
	KindTransferCreated        Kind = "transfer.created"
	KindRecurringMaterialized  Kind = "recurring.materialized"
	KindBudgetThresholdCrossed Kind = "budget.threshold_exceeded"
)

// Event is the immutable record of one ledger-affecting fact. Events are
// written to the outbox inside the same database transaction as the fact
// itself, then published to Kafka and archived to the event history after
// commit.
type Event struct {
	ID            uuid.UUID       `json:"id" bson:"event_id"`
	Kind          Kind            `json:"kind" bson:"kind"`
	OwnerID       uuid.UUID       `json:"owner_id" bson:"owner_id"`
	TransactionID *uuid.UUID      `json:"transaction_id,omitempty" bson:"transaction_id,omitempty"`
	AccountID     *uuid.UUID      `json:"account_id,omitempty" bson:"account_id,omitempty"`
	BudgetID      *uuid.UUID      `json:"budget_id,omitempty" bson:"budget_id,omitempty"`
	Amount        decimal.Decimal `json:"amount" bson:"amount"`
	Detail        string          `json:"detail,omitempty" bson:"detail,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at" bson:"occurred_at"`
}

// NewLedgerEvent builds an event for a transaction fact
func NewLedgerEvent(kind Kind, ownerID, transactionID, accountID uuid.UUID, amount decimal.Decimal, detail string) *Event {
	txID := transactionID
	accID := accountID
	return &Event{
		ID:            uuid.New(),
		Kind:          kind,
		OwnerID:       ownerID,
		TransactionID: &txID,
		AccountID:     &accID,
		Amount:        amount,
		Detail:        detail,
		OccurredAt:    time.Now().UTC(),
	}
}

// NewBudgetEvent builds an event for a budget alert
func NewBudgetEvent(ownerID, budgetID uuid.UUID, spent decimal.Decimal, detail string) *Event {
	id := budgetID
	return &Event{
		ID:         uuid.New(),
		Kind:       KindBudgetThresholdCrossed,
		OwnerID:    ownerID,
		BudgetID:   &id,
		Amount:     spent,
		Detail:     detail,
		OccurredAt: time.Now().UTC(),
	}
}
