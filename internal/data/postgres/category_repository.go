package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/finbook-ledger/internal/domain/category"
	"github.com/finbook-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CategoryRepository implements the category.Repository interface for PostgreSQL
type CategoryRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewCategoryRepository creates a new PostgreSQL category repository
func NewCategoryRepository(logger *slog.Logger, db *persistence.PostgresDB) category.Repository {
	return &CategoryRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *CategoryRepository) WithTx(tx pgx.Tx) category.Repository {
	return &CategoryRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new category
func (r *CategoryRepository) Create(ctx context.Context, c *category.Category) error {
	query := `
		INSERT INTO categories (id, owner_id, name, kind, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.querier.Exec(ctx, query, c.ID, c.OwnerID, c.Name, c.Kind, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to create category", "error", err)
		return fmt.Errorf("failed to create category: %w", err)
	}

	return nil
}

// GetByID retrieves a category by its ID
func (r *CategoryRepository) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*category.Category, error) {
	query := `
		SELECT id, owner_id, name, kind, created_at, updated_at
		FROM categories
		WHERE id = $1 AND owner_id = $2
	`

	var c category.Category
	err := r.querier.QueryRow(ctx, query, id, ownerID).Scan(
		&c.ID, &c.OwnerID, &c.Name, &c.Kind, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, category.ErrCategoryNotFound{CategoryID: id}
		}
		r.logger.Error("Failed to get category", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	return &c, nil
}

// ListByOwner retrieves all of an owner's categories
func (r *CategoryRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*category.Category, error) {
	query := `
		SELECT id, owner_id, name, kind, created_at, updated_at
		FROM categories
		WHERE owner_id = $1
		ORDER BY name ASC
	`

	rows, err := r.querier.Query(ctx, query, ownerID)
	if err != nil {
		r.logger.Error("Failed to list categories", "owner_id", ownerID.String(), "error", err)
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*category.Category
	for rows.Next() {
		var c category.Category
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Kind, &c.CreatedAt, &c.UpdatedAt); err != nil {
			r.logger.Error("Failed to scan category", "error", err)
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, &c)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over categories", "error", err)
		return nil, fmt.Errorf("error iterating over categories: %w", err)
	}

	return categories, nil
}

// Update persists the category's current state
func (r *CategoryRepository) Update(ctx context.Context, c *category.Category) error {
	query := `
		UPDATE categories
		SET name = $1, kind = $2, updated_at = $3
		WHERE id = $4 AND owner_id = $5
	`

	result, err := r.querier.Exec(ctx, query, c.Name, c.Kind, c.UpdatedAt, c.ID, c.OwnerID)
	if err != nil {
		r.logger.Error("Failed to update category", "id", c.ID.String(), "error", err)
		return fmt.Errorf("failed to update category: %w", err)
	}

	if result.RowsAffected() == 0 {
		return category.ErrCategoryNotFound{CategoryID: c.ID}
	}

	return nil
}

// Delete removes a category. The foreign key from transactions restricts
// deleting a category that is still referenced.
func (r *CategoryRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	query := `
		DELETE FROM categories
		WHERE id = $1 AND owner_id = $2
	`

	result, err := r.querier.Exec(ctx, query, id, ownerID)
	if err != nil {
		r.logger.Error("Failed to delete category", "id", id.String(), "error", err)
		return fmt.Errorf("failed to delete category: %w", err)
	}

	if result.RowsAffected() == 0 {
		return category.ErrCategoryNotFound{CategoryID: id}
	}

	return nil
}
