package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/finbook-ledger/internal/config"
	"github.com/finbook-ledger/internal/domain/event"
)

// Dispatcher polls the outbox and fans each fetched batch out over a worker
// pool. A record that fails gets its attempt counter bumped; once attempts
// reach the retry budget it is marked FAILED and no longer fetched.
type Dispatcher struct {
	outbox           event.OutboxRepository
	publisher        RecordPublisher
	pool             *ants.Pool
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	maxRetryAttempts int
}

func NewDispatcher(
	cfg *config.OutboxConfig,
	outbox event.OutboxRepository,
	publisher RecordPublisher,
	logger *slog.Logger,
) (*Dispatcher, error) {
	pool, err := ants.NewPool(cfg.WorkerPoolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create dispatcher worker pool: %w", err)
	}

	return &Dispatcher{
		outbox:           outbox,
		publisher:        publisher,
		pool:             pool,
		logger:           logger,
		pollInterval:     cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
	}, nil
}

// Start polls until the context is canceled
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info("Starting outbox dispatcher",
		"poll_interval", d.pollInterval.String(),
		"batch_size", d.batchSize,
		"max_retry_attempts", d.maxRetryAttempts,
		"workers", d.pool.Cap(),
	)
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Outbox dispatcher stopping")
			d.pool.Release()
			return
		case <-ticker.C:
			if err := d.drainPending(ctx); err != nil {
				d.logger.Error("Error draining pending outbox records", "error", err)
			}
		}
	}
}

// drainPending fetches one batch and publishes its records concurrently.
// The batch is awaited before returning so overlapping ticks never fetch the
// same records twice.
func (d *Dispatcher) drainPending(ctx context.Context) error {
	records, err := d.outbox.GetPending(ctx, d.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending outbox records: %w", err)
	}
	if len(records) == 0 {
		return nil
	}

	d.logger.Debug("Fetched pending outbox records", "count", len(records))

	var wg sync.WaitGroup
	for _, rec := range records {
		rec := rec
		wg.Add(1)
		if err := d.pool.Submit(func() {
			defer wg.Done()
			d.dispatchOne(ctx, rec)
		}); err != nil {
			wg.Done()
			d.logger.Error("Failed to submit outbox record to worker pool", "outbox_id", rec.ID, "error", err)
		}
	}
	wg.Wait()
	return nil
}

func (d *Dispatcher) dispatchOne(ctx context.Context, rec *event.OutboxRecord) {
	err := d.publisher.PublishRecord(ctx, rec)
	if err == nil {
		return
	}

	if errors.Is(err, errPermanentFailure) {
		// Already moved to FAILED by the publisher; no retry accounting.
		d.logger.Error("Dropped unrecoverable outbox record",
			"outbox_id", rec.ID, "event_id", rec.EventID.String(), "error", err)
		return
	}

	d.logger.Error("Failed to publish outbox record",
		"outbox_id", rec.ID, "event_id", rec.EventID.String(), "attempts", rec.Attempts, "error", err)

	if incErr := d.outbox.IncrementAttempts(ctx, rec.ID); incErr != nil {
		d.logger.Error("Failed to increment outbox record attempts", "outbox_id", rec.ID, "error", incErr)
		return
	}

	if rec.Attempts+1 >= d.maxRetryAttempts {
		d.logger.Warn("Retry budget exhausted for outbox record, marking FAILED",
			"outbox_id", rec.ID, "event_id", rec.EventID.String(), "attempts_made", rec.Attempts+1)
		if markErr := d.outbox.MarkFailed(ctx, rec.ID); markErr != nil {
			d.logger.Error("Failed to mark outbox record as FAILED", "outbox_id", rec.ID, "error", markErr)
		}
	}
}
