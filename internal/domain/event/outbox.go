package event

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// OutboxStatus tracks an event through publication
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "PENDING"
	OutboxStatusProcessed OutboxStatus = "PROCESSED"
	OutboxStatusFailed    OutboxStatus = "FAILED"
)

// OutboxRecord stages an event for reliable delivery. The record is inserted
// in the same database transaction as the mutation it describes, so a
// committed mutation always has its event staged and a rolled-back one never
// does.
type OutboxRecord struct {
	ID            int64           `json:"id"`
	EventID       uuid.UUID       `json:"event_id"`
	Kind          Kind            `json:"kind"`
	Payload       json.RawMessage `json:"payload"`
	Status        OutboxStatus    `json:"status"`
	Attempts      int             `json:"attempts"`
	CreatedAt     time.Time       `json:"created_at"`
	LastAttemptAt *time.Time      `json:"last_attempt_at,omitempty"`
}

// NewOutboxRecord stages evt as a pending record
func NewOutboxRecord(evt *Event) (*OutboxRecord, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, err
	}
	return &OutboxRecord{
		EventID:   evt.ID,
		Kind:      evt.Kind,
		Payload:   payload,
		Status:    OutboxStatusPending,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// DecodeEvent unmarshals the staged payload
func (r *OutboxRecord) DecodeEvent() (*Event, error) {
	var evt Event
	if err := json.Unmarshal(r.Payload, &evt); err != nil {
		return nil, err
	}
	return &evt, nil
}

// OutboxRepository defines outbox persistence operations
type OutboxRepository interface {
	Create(ctx context.Context, rec *OutboxRecord) error
	GetPending(ctx context.Context, limit int) ([]*OutboxRecord, error)
	MarkProcessed(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64) error
	IncrementAttempts(ctx context.Context, id int64) error
	WithTx(tx pgx.Tx) OutboxRepository
}

// HistoryRepository archives published events for audit reads
type HistoryRepository interface {
	Archive(ctx context.Context, evt *Event) error
	GetByEventID(ctx context.Context, eventID uuid.UUID) (*Event, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]*Event, error)
}

// ErrEventNotFound indicates a missing archived event
type ErrEventNotFound struct {
	EventID uuid.UUID
}

func (e ErrEventNotFound) Error() string {
	return "event not found: " + e.EventID.String()
}
