package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/finbook-ledger/internal/domain/event"
)

type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) Create(ctx context.Context, rec *event.OutboxRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockOutboxRepository) GetPending(ctx context.Context, limit int) ([]*event.OutboxRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*event.OutboxRecord), args.Error(1)
}

func (m *MockOutboxRepository) MarkProcessed(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepository) MarkFailed(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepository) IncrementAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepository) WithTx(_ pgx.Tx) event.OutboxRepository { return m }

type MockHistoryRepository struct {
	mock.Mock
}

func (m *MockHistoryRepository) Archive(ctx context.Context, evt *event.Event) error {
	args := m.Called(ctx, evt)
	return args.Error(0)
}

func (m *MockHistoryRepository) GetByEventID(ctx context.Context, eventID uuid.UUID) (*event.Event, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.Event), args.Error(1)
}

func (m *MockHistoryRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]*event.Event, error) {
	args := m.Called(ctx, ownerID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*event.Event), args.Error(1)
}

type MockMessagePublisher struct {
	mock.Mock
}

func (m *MockMessagePublisher) Publish(ctx context.Context, key string, value interface{}) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockMessagePublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func pendingRecord(t *testing.T) (*event.OutboxRecord, *event.Event) {
	t.Helper()
	evt := event.NewLedgerEvent(event.KindTransactionCreated, uuid.New(), uuid.New(), uuid.New(), decimal.NewFromInt(50), "groceries")
	rec, err := event.NewOutboxRecord(evt)
	require.NoError(t, err)
	rec.ID = 11
	return rec, evt
}

func TestEventPublisher_PublishRecord(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes, archives and marks processed", func(t *testing.T) {
		rec, evt := pendingRecord(t)
		outbox := new(MockOutboxRepository)
		history := new(MockHistoryRepository)
		producer := new(MockMessagePublisher)

		producer.On("Publish", ctx, evt.ID.String(), mock.MatchedBy(func(v interface{}) bool {
			got, ok := v.(*event.Event)
			return ok && got.ID == evt.ID
		})).Return(nil).Once()
		history.On("Archive", ctx, mock.MatchedBy(func(v *event.Event) bool {
			return v.ID == evt.ID
		})).Return(nil).Once()
		outbox.On("MarkProcessed", ctx, rec.ID).Return(nil).Once()

		p := NewEventPublisher(outbox, history, producer, testLogger())
		err := p.PublishRecord(ctx, rec)
		require.NoError(t, err)

		producer.AssertExpectations(t)
		history.AssertExpectations(t)
		outbox.AssertExpectations(t)
	})

	t.Run("transport failure leaves the record pending", func(t *testing.T) {
		rec, _ := pendingRecord(t)
		outbox := new(MockOutboxRepository)
		history := new(MockHistoryRepository)
		producer := new(MockMessagePublisher)

		kafkaErr := errors.New("broker unavailable")
		producer.On("Publish", ctx, mock.Anything, mock.Anything).Return(kafkaErr).Once()

		p := NewEventPublisher(outbox, history, producer, testLogger())
		err := p.PublishRecord(ctx, rec)
		assert.ErrorIs(t, err, kafkaErr)

		history.AssertNotCalled(t, "Archive", mock.Anything, mock.Anything)
		outbox.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything)
	})

	t.Run("undecodable payload goes straight to FAILED", func(t *testing.T) {
		rec, _ := pendingRecord(t)
		rec.Payload = json.RawMessage(`not json`)
		outbox := new(MockOutboxRepository)
		producer := new(MockMessagePublisher)

		outbox.On("MarkFailed", ctx, rec.ID).Return(nil).Once()

		p := NewEventPublisher(outbox, new(MockHistoryRepository), producer, testLogger())
		err := p.PublishRecord(ctx, rec)
		assert.ErrorIs(t, err, errPermanentFailure)

		producer.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
		outbox.AssertExpectations(t)
	})
}
