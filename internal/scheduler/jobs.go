package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/finbook-ledger/internal/domain/budget"
	"github.com/finbook-ledger/internal/domain/event"
	"github.com/finbook-ledger/internal/domain/transaction"
	"github.com/finbook-ledger/internal/materializer"
)

// TemplateRunner is the slice of the materializer the jobs need
type TemplateRunner interface {
	Run(ctx context.Context, opts materializer.RunOptions) (*materializer.RunReport, error)
}

// Jobs holds the work the scheduler fires on its cron schedules.
type Jobs struct {
	materializer TemplateRunner
	budgets      budget.Repository
	txs          transaction.Repository
	outbox       event.OutboxRepository
	logger       *slog.Logger
	now          func() time.Time
	jobTimeout   time.Duration
}

func NewJobs(m TemplateRunner, budgets budget.Repository, txs transaction.Repository, outbox event.OutboxRepository, logger *slog.Logger) *Jobs {
	return &Jobs{
		materializer: m,
		budgets:      budgets,
		txs:          txs,
		outbox:       outbox,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
		jobTimeout:   10 * time.Minute,
	}
}

// MaterializeRecurring runs one materializer pass over every owner's due
// templates.
func (j *Jobs) MaterializeRecurring() {
	ctx, cancel := context.WithTimeout(context.Background(), j.jobTimeout)
	defer cancel()

	report, err := j.materializer.Run(ctx, materializer.RunOptions{})
	if err != nil {
		j.logger.Error("recurring materializer job failed", "error", err)
		return
	}
	if len(report.Failures) > 0 {
		j.logger.Warn("recurring materializer job finished with failures",
			"materialized", len(report.Materialized), "failed", len(report.Failures))
		return
	}
	j.logger.Info("recurring materializer job finished", "materialized", len(report.Materialized))
}

// ScanBudgetAlerts walks every budget covering the current month, compares
// period-to-date spend against the alert threshold, and stages a
// budget.threshold_exceeded event for each budget over it. Alerts are
// informational; the scan never blocks or mutates ledger state.
func (j *Jobs) ScanBudgetAlerts() {
	ctx, cancel := context.WithTimeout(context.Background(), j.jobTimeout)
	defer cancel()

	now := j.now()
	budgets, err := j.budgets.ListForMonth(ctx, now)
	if err != nil {
		j.logger.Error("budget alert scan failed", "error", err)
		return
	}

	alerted := 0
	for _, b := range budgets {
		from, to := b.Period()
		spent, err := j.txs.SumByCategory(ctx, b.OwnerID, b.CategoryID, from, to)
		if err != nil {
			j.logger.Error("budget spend aggregation failed", "budget_id", b.ID, "error", err)
			continue
		}
		if spent.LessThan(b.AlertAmount()) {
			continue
		}

		evt := event.NewBudgetEvent(b.OwnerID, b.ID, spent, "budget threshold crossed for category "+b.CategoryID.String())
		rec, err := event.NewOutboxRecord(evt)
		if err != nil {
			j.logger.Error("budget alert event encoding failed", "budget_id", b.ID, "error", err)
			continue
		}
		if err := j.outbox.Create(ctx, rec); err != nil {
			j.logger.Error("budget alert event staging failed", "budget_id", b.ID, "error", err)
			continue
		}
		alerted++
	}

	j.logger.Info("budget alert scan finished", "budgets", len(budgets), "alerted", alerted)
}
