package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/finbook-ledger/internal/domain/recurring"
	"github.com/finbook-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// RecurringRepository implements the recurring.Repository interface for PostgreSQL
type RecurringRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewRecurringRepository creates a new PostgreSQL recurring-template repository
func NewRecurringRepository(logger *slog.Logger, db *persistence.PostgresDB) recurring.Repository {
	return &RecurringRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *RecurringRepository) WithTx(tx pgx.Tx) recurring.Repository {
	return &RecurringRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const templateColumns = `id, owner_id, account_id, category_id, type, amount, description, frequency, recur_interval, start_date, end_date, next_occurrence, max_occurrences, occurrences_count, active, created_at, updated_at`

func scanTemplate(row pgx.Row) (*recurring.Template, error) {
	var tpl recurring.Template
	err := row.Scan(
		&tpl.ID,
		&tpl.OwnerID,
		&tpl.AccountID,
		&tpl.CategoryID,
		&tpl.Type,
		&tpl.Amount,
		&tpl.Description,
		&tpl.Frequency,
		&tpl.Interval,
		&tpl.StartDate,
		&tpl.EndDate,
		&tpl.NextOccurrence,
		&tpl.MaxOccurrences,
		&tpl.OccurrencesCount,
		&tpl.Active,
		&tpl.CreatedAt,
		&tpl.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tpl, nil
}

// Create stores a new recurring template
func (r *RecurringRepository) Create(ctx context.Context, tpl *recurring.Template) error {
	query := `
		INSERT INTO recurring_templates (id, owner_id, account_id, category_id, type, amount, description, frequency, recur_interval, start_date, end_date, next_occurrence, max_occurrences, occurrences_count, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err := r.querier.Exec(ctx, query,
		tpl.ID,
		tpl.OwnerID,
		tpl.AccountID,
		tpl.CategoryID,
		tpl.Type,
		tpl.Amount,
		tpl.Description,
		tpl.Frequency,
		tpl.Interval,
		tpl.StartDate,
		tpl.EndDate,
		tpl.NextOccurrence,
		tpl.MaxOccurrences,
		tpl.OccurrencesCount,
		tpl.Active,
		tpl.CreatedAt,
		tpl.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create recurring template", "error", err)
		return fmt.Errorf("failed to create recurring template: %w", err)
	}

	return nil
}

// GetByID retrieves a template by its ID
func (r *RecurringRepository) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*recurring.Template, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM recurring_templates
		WHERE id = $1 AND owner_id = $2
	`

	tpl, err := scanTemplate(r.querier.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, recurring.ErrTemplateNotFound{TemplateID: id}
		}
		r.logger.Error("Failed to get recurring template", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get recurring template: %w", err)
	}

	return tpl, nil
}

// ListByOwner retrieves all of an owner's templates
func (r *RecurringRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*recurring.Template, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM recurring_templates
		WHERE owner_id = $1
		ORDER BY next_occurrence ASC
	`

	rows, err := r.querier.Query(ctx, query, ownerID)
	if err != nil {
		r.logger.Error("Failed to list recurring templates", "owner_id", ownerID.String(), "error", err)
		return nil, fmt.Errorf("failed to list recurring templates: %w", err)
	}
	defer rows.Close()

	return collectTemplates(rows, r.logger)
}

// ListDue retrieves active templates with next_occurrence <= asOf, oldest
// obligations first, optionally restricted to one owner.
func (r *RecurringRepository) ListDue(ctx context.Context, asOf time.Time, ownerID *uuid.UUID) ([]*recurring.Template, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM recurring_templates
		WHERE active = TRUE AND next_occurrence <= $1 AND ($2::uuid IS NULL OR owner_id = $2)
		ORDER BY next_occurrence ASC
	`

	rows, err := r.querier.Query(ctx, query, asOf, ownerID)
	if err != nil {
		r.logger.Error("Failed to list due recurring templates", "error", err)
		return nil, fmt.Errorf("failed to list due recurring templates: %w", err)
	}
	defer rows.Close()

	return collectTemplates(rows, r.logger)
}

func collectTemplates(rows pgx.Rows, logger *slog.Logger) ([]*recurring.Template, error) {
	var templates []*recurring.Template
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			logger.Error("Failed to scan recurring template", "error", err)
			return nil, fmt.Errorf("failed to scan recurring template: %w", err)
		}
		templates = append(templates, tpl)
	}

	if err := rows.Err(); err != nil {
		logger.Error("Error iterating over recurring templates", "error", err)
		return nil, fmt.Errorf("error iterating over recurring templates: %w", err)
	}

	return templates, nil
}

// Update persists the template's current state
func (r *RecurringRepository) Update(ctx context.Context, tpl *recurring.Template) error {
	query := `
		UPDATE recurring_templates
		SET account_id = $1, category_id = $2, type = $3, amount = $4, description = $5, frequency = $6, recur_interval = $7, start_date = $8, end_date = $9, next_occurrence = $10, max_occurrences = $11, occurrences_count = $12, active = $13, updated_at = $14
		WHERE id = $15 AND owner_id = $16
	`

	result, err := r.querier.Exec(ctx, query,
		tpl.AccountID,
		tpl.CategoryID,
		tpl.Type,
		tpl.Amount,
		tpl.Description,
		tpl.Frequency,
		tpl.Interval,
		tpl.StartDate,
		tpl.EndDate,
		tpl.NextOccurrence,
		tpl.MaxOccurrences,
		tpl.OccurrencesCount,
		tpl.Active,
		tpl.UpdatedAt,
		tpl.ID,
		tpl.OwnerID,
	)
	if err != nil {
		r.logger.Error("Failed to update recurring template", "id", tpl.ID.String(), "error", err)
		return fmt.Errorf("failed to update recurring template: %w", err)
	}

	if result.RowsAffected() == 0 {
		return recurring.ErrTemplateNotFound{TemplateID: tpl.ID}
	}

	return nil
}

// Delete removes a template. Transactions it already materialized keep their
// template_id reference.
func (r *RecurringRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	query := `
		DELETE FROM recurring_templates
		WHERE id = $1 AND owner_id = $2
	`

	result, err := r.querier.Exec(ctx, query, id, ownerID)
	if err != nil {
		r.logger.Error("Failed to delete recurring template", "id", id.String(), "error", err)
		return fmt.Errorf("failed to delete recurring template: %w", err)
	}

	if result.RowsAffected() == 0 {
		return recurring.ErrTemplateNotFound{TemplateID: id}
	}

	return nil
}
