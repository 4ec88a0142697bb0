// Package materializer turns due recurring templates into concrete ledger
// transactions. It runs once per invocation (the scheduler fires it daily),
// fires each due template at most once, and keeps going past individual
// failures so one broken template never starves the rest.
package materializer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/finbook-ledger/internal/domain/recurring"
	"github.com/finbook-ledger/internal/domain/transaction"
	"github.com/finbook-ledger/internal/ledger"
	"github.com/google/uuid"
)

// TransactionCreator is the slice of the ledger engine the materializer needs
type TransactionCreator interface {
	Create(ctx context.Context, ownerID uuid.UUID, in ledger.CreateInput) (*transaction.Transaction, error)
}

// RunOptions controls a single materialization pass
type RunOptions struct {
	// AsOf is the reference instant; templates with next_occurrence <= AsOf
	// fire. Zero means now.
	AsOf time.Time

	// Owner restricts the pass to one owner's templates when non-nil
	Owner *uuid.UUID

	// DryRun reports what would fire without creating transactions or
	// advancing templates
	DryRun bool
}

// Failure records one template that could not be materialized
type Failure struct {
	TemplateID uuid.UUID `json:"template_id"`
	OwnerID    uuid.UUID `json:"owner_id"`
	Reason     string    `json:"reason"`
}

// RunReport summarizes one materialization pass
type RunReport struct {
	AsOf         time.Time   `json:"as_of"`
	DryRun       bool        `json:"dry_run"`
	DueCount     int         `json:"due_count"`
	Materialized []uuid.UUID `json:"materialized,omitempty"`
	Failures     []Failure   `json:"failures,omitempty"`
}

// Materializer fires due recurring templates through the ledger engine
type Materializer struct {
	templates recurring.Repository
	engine    TransactionCreator
	logger    *slog.Logger
	now       func() time.Time
}

func New(templates recurring.Repository, engine TransactionCreator, logger *slog.Logger) *Materializer {
	return &Materializer{
		templates: templates,
		engine:    engine,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run executes one materialization pass. Each due template fires once, dated
// at its own next_occurrence (not the run time), so a pass that runs late
// still books the transaction on the day it was owed. Templates that fail are
// collected in the report and the pass continues; the error return is nil
// unless listing the due set itself failed.
func (m *Materializer) Run(ctx context.Context, opts RunOptions) (*RunReport, error) {
	asOf := opts.AsOf
	if asOf.IsZero() {
		asOf = m.now()
	}

	report := &RunReport{AsOf: asOf, DryRun: opts.DryRun}

	due, err := m.templates.ListDue(ctx, asOf, opts.Owner)
	if err != nil {
		return nil, err
	}
	report.DueCount = len(due)

	m.logger.Info("materializer pass starting",
		"as_of", asOf, "due", len(due), "dry_run", opts.DryRun)

	for _, tpl := range due {
		if opts.DryRun {
			report.Materialized = append(report.Materialized, tpl.ID)
			continue
		}
		if err := m.fire(ctx, tpl); err != nil {
			m.logger.Error("template materialization failed",
				"template_id", tpl.ID, "owner_id", tpl.OwnerID, "error", err)
			report.Failures = append(report.Failures, Failure{
				TemplateID: tpl.ID,
				OwnerID:    tpl.OwnerID,
				Reason:     err.Error(),
			})
			continue
		}
		report.Materialized = append(report.Materialized, tpl.ID)
	}

	m.logger.Info("materializer pass finished",
		"due", report.DueCount, "materialized", len(report.Materialized), "failed", len(report.Failures))
	return report, nil
}

// fire books one occurrence and advances the template. The transaction write
// is atomic through the engine; the template advance happens only after it
// succeeds, so a failed booking leaves the template due for the next pass.
//
// A crash between the booking and the advance leaves a committed occurrence
// behind with the template still due. The replayed booking then comes back as
// ErrDuplicateOccurrence (the store keeps one row per template and date), and
// the pass just performs the missing advance.
func (m *Materializer) fire(ctx context.Context, tpl *recurring.Template) error {
	templateID := tpl.ID
	_, err := m.engine.Create(ctx, tpl.OwnerID, ledger.CreateInput{
		AccountID:   tpl.AccountID,
		CategoryID:  tpl.CategoryID,
		Type:        tpl.Type,
		Amount:      tpl.Amount,
		Date:        tpl.NextOccurrence,
		Description: tpl.Description,
		TemplateID:  &templateID,
	})
	if err != nil && !errors.Is(err, transaction.ErrDuplicateOccurrence) {
		return err
	}

	tpl.Advance()
	return m.templates.Update(ctx, tpl)
}
