package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/finbook-ledger/internal/domain/budget"
	"github.com/finbook-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// BudgetRepository implements the budget.Repository interface for PostgreSQL
type BudgetRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewBudgetRepository creates a new PostgreSQL budget repository
func NewBudgetRepository(logger *slog.Logger, db *persistence.PostgresDB) budget.Repository {
	return &BudgetRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *BudgetRepository) WithTx(tx pgx.Tx) budget.Repository {
	return &BudgetRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const budgetColumns = `id, owner_id, category_id, month, limit_amount, alert_threshold, created_at, updated_at`

func scanBudget(row pgx.Row) (*budget.Budget, error) {
	var b budget.Budget
	err := row.Scan(
		&b.ID,
		&b.OwnerID,
		&b.CategoryID,
		&b.Month,
		&b.Limit,
		&b.AlertThreshold,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Create stores a new budget. The unique index on (owner_id, category_id,
// month) rejects a second budget for the same category and month.
func (r *BudgetRepository) Create(ctx context.Context, b *budget.Budget) error {
	query := `
		INSERT INTO budgets (id, owner_id, category_id, month, limit_amount, alert_threshold, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.querier.Exec(ctx, query,
		b.ID,
		b.OwnerID,
		b.CategoryID,
		b.Month,
		b.Limit,
		b.AlertThreshold,
		b.CreatedAt,
		b.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create budget", "error", err)
		return fmt.Errorf("failed to create budget: %w", err)
	}

	return nil
}

// GetByID retrieves a budget by its ID
func (r *BudgetRepository) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*budget.Budget, error) {
	query := `
		SELECT ` + budgetColumns + `
		FROM budgets
		WHERE id = $1 AND owner_id = $2
	`

	b, err := scanBudget(r.querier.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, budget.ErrBudgetNotFound{BudgetID: id}
		}
		r.logger.Error("Failed to get budget", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get budget: %w", err)
	}

	return b, nil
}

// ListByOwner retrieves all of an owner's budgets
func (r *BudgetRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*budget.Budget, error) {
	query := `
		SELECT ` + budgetColumns + `
		FROM budgets
		WHERE owner_id = $1
		ORDER BY month DESC
	`

	rows, err := r.querier.Query(ctx, query, ownerID)
	if err != nil {
		r.logger.Error("Failed to list budgets", "owner_id", ownerID.String(), "error", err)
		return nil, fmt.Errorf("failed to list budgets: %w", err)
	}
	defer rows.Close()

	return collectBudgets(rows, r.logger)
}

// ListForMonth retrieves every budget covering the month containing ref,
// across all owners. The scheduler's alert scan walks this.
func (r *BudgetRepository) ListForMonth(ctx context.Context, ref time.Time) ([]*budget.Budget, error) {
	query := `
		SELECT ` + budgetColumns + `
		FROM budgets
		WHERE month = $1
	`

	rows, err := r.querier.Query(ctx, query, budget.MonthOf(ref))
	if err != nil {
		r.logger.Error("Failed to list budgets for month", "error", err)
		return nil, fmt.Errorf("failed to list budgets for month: %w", err)
	}
	defer rows.Close()

	return collectBudgets(rows, r.logger)
}

func collectBudgets(rows pgx.Rows, logger *slog.Logger) ([]*budget.Budget, error) {
	var budgets []*budget.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			logger.Error("Failed to scan budget", "error", err)
			return nil, fmt.Errorf("failed to scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}

	if err := rows.Err(); err != nil {
		logger.Error("Error iterating over budgets", "error", err)
		return nil, fmt.Errorf("error iterating over budgets: %w", err)
	}

	return budgets, nil
}

// Update persists the budget's current state
func (r *BudgetRepository) Update(ctx context.Context, b *budget.Budget) error {
	query := `
		UPDATE budgets
		SET category_id = $1, month = $2, limit_amount = $3, alert_threshold = $4, updated_at = $5
		WHERE id = $6 AND owner_id = $7
	`

	result, err := r.querier.Exec(ctx, query,
		b.CategoryID,
		b.Month,
		b.Limit,
		b.AlertThreshold,
		b.UpdatedAt,
		b.ID,
		b.OwnerID,
	)
	if err != nil {
		r.logger.Error("Failed to update budget", "id", b.ID.String(), "error", err)
		return fmt.Errorf("failed to update budget: %w", err)
	}

	if result.RowsAffected() == 0 {
		return budget.ErrBudgetNotFound{BudgetID: b.ID}
	}

	return nil
}

// Delete removes a budget
func (r *BudgetRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	query := `
		DELETE FROM budgets
		WHERE id = $1 AND owner_id = $2
	`

	result, err := r.querier.Exec(ctx, query, id, ownerID)
	if err != nil {
		r.logger.Error("Failed to delete budget", "id", id.String(), "error", err)
		return fmt.Errorf("failed to delete budget: %w", err)
	}

	if result.RowsAffected() == 0 {
		return budget.ErrBudgetNotFound{BudgetID: id}
	}

	return nil
}
