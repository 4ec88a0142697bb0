package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/finbook-ledger/internal/domain/event"
	"github.com/finbook-ledger/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

// OutboxRepository implements the event.OutboxRepository interface for
// PostgreSQL. Records are staged inside ledger units and drained by the
// dispatcher.
type OutboxRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewOutboxRepository creates a new PostgreSQL outbox repository
func NewOutboxRepository(logger *slog.Logger, db *persistence.PostgresDB) event.OutboxRepository {
	return &OutboxRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction so event staging commits
// atomically with the mutation it describes.
func (r *OutboxRepository) WithTx(tx pgx.Tx) event.OutboxRepository {
	return &OutboxRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stages a new record in pending status
func (r *OutboxRepository) Create(ctx context.Context, rec *event.OutboxRecord) error {
	query := `
		INSERT INTO outbox_events (event_id, kind, payload, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.querier.QueryRow(ctx, query,
		rec.EventID,
		rec.Kind,
		rec.Payload,
		rec.Status,
		rec.Attempts,
		rec.CreatedAt,
	).Scan(&rec.ID)
	if err != nil {
		r.logger.Error("Failed to stage outbox event", "event_id", rec.EventID.String(), "error", err)
		return fmt.Errorf("failed to stage outbox event: %w", err)
	}

	return nil
}

// GetPending retrieves a batch of pending records in FIFO order
func (r *OutboxRepository) GetPending(ctx context.Context, limit int) ([]*event.OutboxRecord, error) {
	query := `
		SELECT id, event_id, kind, payload, status, attempts, created_at, last_attempt_at
		FROM outbox_events
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
	`

	rows, err := r.querier.Query(ctx, query, event.OutboxStatusPending, limit)
	if err != nil {
		r.logger.Error("Failed to get pending outbox events", "error", err)
		return nil, fmt.Errorf("failed to get pending outbox events: %w", err)
	}
	defer rows.Close()

	var records []*event.OutboxRecord
	for rows.Next() {
		var rec event.OutboxRecord
		err := rows.Scan(
			&rec.ID,
			&rec.EventID,
			&rec.Kind,
			&rec.Payload,
			&rec.Status,
			&rec.Attempts,
			&rec.CreatedAt,
			&rec.LastAttemptAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan outbox event", "error", err)
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over outbox events", "error", err)
		return nil, fmt.Errorf("error iterating over outbox events: %w", err)
	}

	return records, nil
}

// MarkProcessed marks the record as successfully published
func (r *OutboxRepository) MarkProcessed(ctx context.Context, id int64) error {
	return r.setStatus(ctx, id, event.OutboxStatusProcessed)
}

// MarkFailed marks the record as permanently failed
func (r *OutboxRepository) MarkFailed(ctx context.Context, id int64) error {
	return r.setStatus(ctx, id, event.OutboxStatusFailed)
}

func (r *OutboxRepository) setStatus(ctx context.Context, id int64, status event.OutboxStatus) error {
	query := `
		UPDATE outbox_events
		SET status = $1, last_attempt_at = $2
		WHERE id = $3
	`

	result, err := r.querier.Exec(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		r.logger.Error("Failed to update outbox event status", "id", id, "status", string(status), "error", err)
		return fmt.Errorf("failed to update outbox event status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("outbox event %d not found", id)
	}

	return nil
}

// IncrementAttempts bumps the retry counter after a failed publish
func (r *OutboxRepository) IncrementAttempts(ctx context.Context, id int64) error {
	query := `
		UPDATE outbox_events
		SET attempts = attempts + 1, last_attempt_at = $1
		WHERE id = $2
	`

	result, err := r.querier.Exec(ctx, query, time.Now().UTC(), id)
	if err != nil {
		r.logger.Error("Failed to increment outbox event attempts", "id", id, "error", err)
		return fmt.Errorf("failed to increment outbox event attempts: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("outbox event %d not found", id)
	}

	return nil
}
