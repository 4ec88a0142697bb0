// Package mongo provides the MongoDB implementation of the event history
// archive. Published ledger events land here for audit reads; Postgres stays
// the source of truth for balances and rows.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/finbook-ledger/internal/domain/event"
)

const (
	// EventCollectionName is the name of the event history collection
	EventCollectionName = "ledger_events"
)

// EventRepository implements the event.HistoryRepository interface for MongoDB
type EventRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewEventRepository creates a new MongoDB event history repository
func NewEventRepository(logger *slog.Logger, db *mongo.Database) event.HistoryRepository {
	return &EventRepository{
		db:     db,
		logger: logger,
	}
}

// Archive stores a published event. Archiving is idempotent on the event ID
// so a dispatcher retry never duplicates history.
func (r *EventRepository) Archive(ctx context.Context, evt *event.Event) error {
	collection := r.db.Collection(EventCollectionName)

	existing, err := r.GetByEventID(ctx, evt.ID)
	var notFound event.ErrEventNotFound
	if err != nil && !errors.As(err, &notFound) {
		r.logger.Error("Failed to check for archived event", "event_id", evt.ID.String(), "error", err)
		return fmt.Errorf("failed to check for archived event: %w", err)
	}
	if existing != nil {
		return nil
	}

	if _, err := collection.InsertOne(ctx, evt); err != nil {
		r.logger.Error("Failed to archive event", "event_id", evt.ID.String(), "error", err)
		return fmt.Errorf("failed to archive event: %w", err)
	}

	return nil
}

// GetByEventID retrieves an archived event by its ID
func (r *EventRepository) GetByEventID(ctx context.Context, eventID uuid.UUID) (*event.Event, error) {
	collection := r.db.Collection(EventCollectionName)

	filter := bson.M{"event_id": eventID}
	var evt event.Event
	err := collection.FindOne(ctx, filter).Decode(&evt)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, event.ErrEventNotFound{EventID: eventID}
		}
		r.logger.Error("Failed to get archived event", "event_id", eventID.String(), "error", err)
		return nil, fmt.Errorf("failed to get archived event: %w", err)
	}

	return &evt, nil
}

// ListByOwner retrieves an owner's archived events, newest first
func (r *EventRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]*event.Event, error) {
	collection := r.db.Collection(EventCollectionName)

	filter := bson.M{"owner_id": ownerID}
	opts := options.Find().
		SetSort(bson.M{"occurred_at": -1}).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to list archived events", "owner_id", ownerID.String(), "error", err)
		return nil, fmt.Errorf("failed to list archived events: %w", err)
	}
	defer cursor.Close(ctx)

	var events []*event.Event
	if err := cursor.All(ctx, &events); err != nil {
		r.logger.Error("Failed to decode archived events", "owner_id", ownerID.String(), "error", err)
		return nil, fmt.Errorf("failed to decode archived events: %w", err)
	}

	return events, nil
}
