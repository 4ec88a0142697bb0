package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/finbook-ledger/internal/domain/transaction"
	"github.com/finbook-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// TransactionRepository implements the transaction.Repository interface for
// PostgreSQL. Deletion is always soft: rows keep their data under a
// deleted_at marker and disappear from every read.
type TransactionRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewTransactionRepository creates a new PostgreSQL transaction repository
func NewTransactionRepository(logger *slog.Logger, db *persistence.PostgresDB) transaction.Repository {
	return &TransactionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *TransactionRepository) WithTx(tx pgx.Tx) transaction.Repository {
	return &TransactionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const transactionColumns = `id, owner_id, account_id, category_id, transfer_account_id, type, amount, date, description, notes, tags, cleared, template_id, created_at, updated_at`

func scanTransaction(row pgx.Row) (*transaction.Transaction, error) {
	var tx transaction.Transaction
	err := row.Scan(
		&tx.ID,
		&tx.OwnerID,
		&tx.AccountID,
		&tx.CategoryID,
		&tx.TransferAccountID,
		&tx.Type,
		&tx.Amount,
		&tx.Date,
		&tx.Description,
		&tx.Notes,
		&tx.Tags,
		&tx.Cleared,
		&tx.TemplateID,
		&tx.CreatedAt,
		&tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// Create stores a new transaction row. A second booking of the same template
// occurrence trips the (template_id, date) unique index and surfaces as
// ErrDuplicateOccurrence, so a materializer pass replayed after a crash sees
// that the occurrence already exists instead of double-booking it.
func (r *TransactionRepository) Create(ctx context.Context, tx *transaction.Transaction) error {
	query := `
		INSERT INTO transactions (id, owner_id, account_id, category_id, transfer_account_id, type, amount, date, description, notes, tags, cleared, template_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.querier.Exec(ctx, query,
		tx.ID,
		tx.OwnerID,
		tx.AccountID,
		tx.CategoryID,
		tx.TransferAccountID,
		tx.Type,
		tx.Amount,
		tx.Date,
		tx.Description,
		tx.Notes,
		tx.Tags,
		tx.Cleared,
		tx.TemplateID,
		tx.CreatedAt,
		tx.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "idx_transactions_template_occurrence" {
			return transaction.ErrDuplicateOccurrence
		}
		r.logger.Error("Failed to create transaction", "error", err)
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a non-deleted transaction by its ID
func (r *TransactionRepository) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL
	`

	tx, err := scanTransaction(r.querier.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transaction.ErrTransactionNotFound{TransactionID: id}
		}
		r.logger.Error("Failed to get transaction", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return tx, nil
}

// ListByAccount retrieves a page of an account's transactions, newest first,
// along with the total count for pagination. Transfer legs show up for both
// the source and the destination account.
func (r *TransactionRepository) ListByAccount(ctx context.Context, ownerID, accountID uuid.UUID, page, perPage int) ([]*transaction.Transaction, int64, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * perPage

	countQuery := `
		SELECT COUNT(*)
		FROM transactions
		WHERE owner_id = $1 AND (account_id = $2 OR transfer_account_id = $2) AND deleted_at IS NULL
	`

	var total int64
	if err := r.querier.QueryRow(ctx, countQuery, ownerID, accountID).Scan(&total); err != nil {
		r.logger.Error("Failed to count transactions", "account_id", accountID.String(), "error", err)
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE owner_id = $1 AND (account_id = $2 OR transfer_account_id = $2) AND deleted_at IS NULL
		ORDER BY date DESC, created_at DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.querier.Query(ctx, query, ownerID, accountID, perPage, offset)
	if err != nil {
		r.logger.Error("Failed to list transactions", "account_id", accountID.String(), "error", err)
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txs []*transaction.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			r.logger.Error("Failed to scan transaction", "error", err)
			return nil, 0, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over transactions", "error", err)
		return nil, 0, fmt.Errorf("error iterating over transactions: %w", err)
	}

	return txs, total, nil
}

// Update persists the transaction's current state
func (r *TransactionRepository) Update(ctx context.Context, tx *transaction.Transaction) error {
	query := `
		UPDATE transactions
		SET account_id = $1, category_id = $2, transfer_account_id = $3, type = $4, amount = $5, date = $6, description = $7, notes = $8, tags = $9, cleared = $10, updated_at = $11
		WHERE id = $12 AND owner_id = $13 AND deleted_at IS NULL
	`

	result, err := r.querier.Exec(ctx, query,
		tx.AccountID,
		tx.CategoryID,
		tx.TransferAccountID,
		tx.Type,
		tx.Amount,
		tx.Date,
		tx.Description,
		tx.Notes,
		tx.Tags,
		tx.Cleared,
		tx.UpdatedAt,
		tx.ID,
		tx.OwnerID,
	)
	if err != nil {
		r.logger.Error("Failed to update transaction", "id", tx.ID.String(), "error", err)
		return fmt.Errorf("failed to update transaction: %w", err)
	}

	if result.RowsAffected() == 0 {
		return transaction.ErrTransactionNotFound{TransactionID: tx.ID}
	}

	return nil
}

// SoftDelete marks the transaction deleted at the given instant
func (r *TransactionRepository) SoftDelete(ctx context.Context, ownerID, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE transactions
		SET deleted_at = $1, updated_at = $1
		WHERE id = $2 AND owner_id = $3 AND deleted_at IS NULL
	`

	result, err := r.querier.Exec(ctx, query, at, id, ownerID)
	if err != nil {
		r.logger.Error("Failed to soft delete transaction", "id", id.String(), "error", err)
		return fmt.Errorf("failed to soft delete transaction: %w", err)
	}

	if result.RowsAffected() == 0 {
		return transaction.ErrTransactionNotFound{TransactionID: id}
	}

	return nil
}

// SumByCategory totals non-deleted expense amounts for one category within
// [from, to)
func (r *TransactionRepository) SumByCategory(ctx context.Context, ownerID, categoryID uuid.UUID, from, to time.Time) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE owner_id = $1 AND category_id = $2 AND type = $3 AND date >= $4 AND date < $5 AND deleted_at IS NULL
	`

	var sum decimal.Decimal
	err := r.querier.QueryRow(ctx, query, ownerID, categoryID, transaction.TypeExpense, from, to).Scan(&sum)
	if err != nil {
		r.logger.Error("Failed to sum transactions by category", "category_id", categoryID.String(), "error", err)
		return decimal.Zero, fmt.Errorf("failed to sum transactions by category: %w", err)
	}

	return sum, nil
}
