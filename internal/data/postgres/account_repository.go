// Package postgres provides PostgreSQL implementations of the domain
// repositories. Every lookup is owner scoped and soft-delete aware.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/finbook-ledger/internal/domain/account"
	"github.com/finbook-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// AccountRepository implements the account.Repository interface for PostgreSQL
type AccountRepository struct {
	querier persistence.Querier // *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewAccountRepository creates a new PostgreSQL account repository
func NewAccountRepository(logger *slog.Logger, db *persistence.PostgresDB) account.Repository {
	return &AccountRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction so account writes commit
// atomically with the rest of a ledger unit.
func (r *AccountRepository) WithTx(tx pgx.Tx) account.Repository {
	return &AccountRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const accountColumns = `id, owner_id, name, type, balance, credit_limit, currency, active, include_net_worth, version, created_at, updated_at`

func scanAccount(row pgx.Row) (*account.Account, error) {
	var acc account.Account
	err := row.Scan(
		&acc.ID,
		&acc.OwnerID,
		&acc.Name,
		&acc.Type,
		&acc.Balance,
		&acc.CreditLimit,
		&acc.Currency,
		&acc.Active,
		&acc.IncludeNetWorth,
		&acc.Version,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

// Create stores a new account
func (r *AccountRepository) Create(ctx context.Context, acc *account.Account) error {
	query := `
		INSERT INTO accounts (id, owner_id, name, type, balance, credit_limit, currency, active, include_net_worth, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.querier.Exec(ctx, query,
		acc.ID,
		acc.OwnerID,
		acc.Name,
		acc.Type,
		acc.Balance,
		acc.CreditLimit,
		acc.Currency,
		acc.Active,
		acc.IncludeNetWorth,
		acc.Version,
		acc.CreatedAt,
		acc.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create account", "error", err)
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by its ID. A foreign-owned or soft-deleted
// account behaves as missing.
func (r *AccountRepository) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*account.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL
	`

	acc, err := scanAccount(r.querier.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to get account", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return acc, nil
}

// ListByOwner retrieves all of an owner's accounts
func (r *AccountRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*account.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE owner_id = $1 AND deleted_at IS NULL
		ORDER BY created_at ASC
	`

	rows, err := r.querier.Query(ctx, query, ownerID)
	if err != nil {
		r.logger.Error("Failed to list accounts", "owner_id", ownerID.String(), "error", err)
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*account.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			r.logger.Error("Failed to scan account", "error", err)
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, acc)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over accounts", "error", err)
		return nil, fmt.Errorf("error iterating over accounts: %w", err)
	}

	return accounts, nil
}

// Update persists the account's current state. The write is optimistic: it
// only lands if the row still carries the version the caller read, and the
// store bumps the version on every hit. A ledger unit committing between an
// unlocked read and this write changes the version, so the stale write
// matches zero rows and surfaces as ErrConcurrentModification instead of
// silently reverting the balance. Writers holding the row lock from
// LockForUpdate always match.
func (r *AccountRepository) Update(ctx context.Context, acc *account.Account) error {
	query := `
		UPDATE accounts
		SET name = $1, balance = $2, credit_limit = $3, currency = $4, active = $5, include_net_worth = $6, version = version + 1, updated_at = $7, deleted_at = $8
		WHERE id = $9 AND owner_id = $10 AND version = $11
	`

	result, err := r.querier.Exec(ctx, query,
		acc.Name,
		acc.Balance,
		acc.CreditLimit,
		acc.Currency,
		acc.Active,
		acc.IncludeNetWorth,
		acc.UpdatedAt,
		acc.DeletedAt,
		acc.ID,
		acc.OwnerID,
		acc.Version,
	)
	if err != nil {
		r.logger.Error("Failed to update account", "id", acc.ID.String(), "error", err)
		return fmt.Errorf("failed to update account: %w", err)
	}

	if result.RowsAffected() == 0 {
		return account.ErrConcurrentModification{AccountID: acc.ID}
	}

	return nil
}

// LockForUpdate obtains a row lock on the account and returns its current
// state. Must run inside a transaction; ledger units lock every affected
// account this way before reading balances. Serialization and deadlock
// rejections from the database surface as ErrConcurrentModification so
// callers can retry or map them to a conflict response.
func (r *AccountRepository) LockForUpdate(ctx context.Context, ownerID, id uuid.UUID) (*account.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL
		FOR UPDATE
	`

	acc, err := scanAccount(r.querier.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{AccountID: id}
		}
		if isLockConflict(err) {
			return nil, account.ErrConcurrentModification{AccountID: id}
		}
		r.logger.Error("Failed to lock account for update", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock account for update: %w", err)
	}

	return acc, nil
}

// isLockConflict reports whether err is a serialization failure (40001),
// deadlock (40P01) or lock-not-available (55P03) rejection.
func isLockConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", "40P01", "55P03":
		return true
	}
	return false
}
