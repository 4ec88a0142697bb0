// Package dispatch drains the outbox: pending records are published to the
// Kafka events topic, archived to the MongoDB event history, and marked
// processed. Records that keep failing past the retry budget move to FAILED
// and stay queryable for operator inspection.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/finbook-ledger/internal/domain/event"
	"github.com/finbook-ledger/internal/platform/messaging/producers"
)

// errPermanentFailure marks a record the publisher has already moved to
// FAILED; it must not re-enter retry accounting.
var errPermanentFailure = errors.New("permanent outbox failure")

// RecordPublisher delivers one outbox record end to end
type RecordPublisher interface {
	PublishRecord(ctx context.Context, rec *event.OutboxRecord) error
}

// EventPublisher implements RecordPublisher over Kafka and the Mongo archive
type EventPublisher struct {
	outbox   event.OutboxRepository
	history  event.HistoryRepository
	producer producers.MessagePublisher
	logger   *slog.Logger
}

func NewEventPublisher(
	outbox event.OutboxRepository,
	history event.HistoryRepository,
	producer producers.MessagePublisher,
	logger *slog.Logger,
) *EventPublisher {
	return &EventPublisher{
		outbox:   outbox,
		history:  history,
		producer: producer,
		logger:   logger,
	}
}

// PublishRecord publishes the staged event, archives it, and marks the record
// processed. An undecodable payload is unrecoverable and goes straight to
// FAILED; transport and archive errors return to the caller for retry
// accounting.
func (p *EventPublisher) PublishRecord(ctx context.Context, rec *event.OutboxRecord) error {
	evt, err := rec.DecodeEvent()
	if err != nil {
		p.logger.Error("Undecodable outbox payload, marking failed",
			"outbox_id", rec.ID, "event_id", rec.EventID.String(), "error", err)
		if markErr := p.outbox.MarkFailed(ctx, rec.ID); markErr != nil {
			p.logger.Error("Failed to mark undecodable outbox record as FAILED", "outbox_id", rec.ID, "error", markErr)
		}
		return fmt.Errorf("%w: decode payload for outbox record %d: %v", errPermanentFailure, rec.ID, err)
	}

	if err := p.producer.Publish(ctx, evt.ID.String(), evt); err != nil {
		return fmt.Errorf("publish event %s: %w", evt.ID, err)
	}

	if err := p.history.Archive(ctx, evt); err != nil {
		return fmt.Errorf("archive event %s: %w", evt.ID, err)
	}

	if err := p.outbox.MarkProcessed(ctx, rec.ID); err != nil {
		return fmt.Errorf("event %s published, but marking outbox record %d processed failed: %w", evt.ID, rec.ID, err)
	}

	p.logger.Info("Outbox record published", "outbox_id", rec.ID, "event_id", evt.ID.String(), "kind", string(evt.Kind))
	return nil
}
