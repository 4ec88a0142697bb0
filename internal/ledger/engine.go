// Package ledger implements the mutation engine for account balances. Every
// write that moves money (create, update, delete, bulk delete, transfer,
// recurring materialization) funnels through one Engine so the
// reverse-then-reapply arithmetic exists in exactly one place.
//
// Each operation runs inside a single database transaction (the "ledger
// unit"): the transaction row write, the balance mutation of every affected
// account, and the staged outbox event commit together or not at all.
// Affected account rows are locked with SELECT ... FOR UPDATE in sorted-id
// order before any balance is read, so concurrent units on the same accounts
// serialize instead of interleaving.
package ledger

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/finbook-ledger/internal/domain/account"
	"github.com/finbook-ledger/internal/domain/category"
	"github.com/finbook-ledger/internal/domain/event"
	"github.com/finbook-ledger/internal/domain/transaction"
	"github.com/finbook-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Engine applies balance-affecting writes atomically
type Engine struct {
	db         persistence.TxRunner
	accounts   account.Repository
	txs        transaction.Repository
	categories category.Repository
	outbox     event.OutboxRepository
	logger     *slog.Logger
	now        func() time.Time
}

// NewEngine creates a ledger engine using the given transaction runner and
// repositories.
func NewEngine(
	db persistence.TxRunner,
	accounts account.Repository,
	txs transaction.Repository,
	categories category.Repository,
	outbox event.OutboxRepository,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		db:         db,
		accounts:   accounts,
		txs:        txs,
		categories: categories,
		outbox:     outbox,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// unit bundles the per-transaction repository handles and the locked
// account working set of one ledger unit.
type unit struct {
	accounts   account.Repository
	txs        transaction.Repository
	categories category.Repository
	outbox     event.OutboxRepository

	locked  map[uuid.UUID]*account.Account
	touched map[uuid.UUID]bool
}

func (e *Engine) begin(tx pgx.Tx) *unit {
	return &unit{
		accounts:   e.accounts.WithTx(tx),
		txs:        e.txs.WithTx(tx),
		categories: e.categories.WithTx(tx),
		outbox:     e.outbox.WithTx(tx),
		locked:     make(map[uuid.UUID]*account.Account),
		touched:    make(map[uuid.UUID]bool),
	}
}

// lockAccounts acquires row locks on the given accounts in sorted-id order.
// Deterministic ordering keeps two units touching the same pair of accounts
// from deadlocking each other.
func (u *unit) lockAccounts(ctx context.Context, ownerID uuid.UUID, ids ...uuid.UUID) error {
	distinct := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			distinct = append(distinct, id)
		}
	}
	sort.Slice(distinct, func(i, j int) bool {
		return distinct[i].String() < distinct[j].String()
	})

	for _, id := range distinct {
		acc, err := u.accounts.LockForUpdate(ctx, ownerID, id)
		if err != nil {
			return err
		}
		u.locked[id] = acc
	}
	return nil
}

func (u *unit) mark(id uuid.UUID) { u.touched[id] = true }

// asInvalidTransfer turns a not-found error on the transfer destination into
// the transfer-consistency error; anything else passes through unchanged.
func asInvalidTransfer(err error, dest *uuid.UUID) error {
	var nf account.ErrAccountNotFound
	if dest != nil && errors.As(err, &nf) && nf.AccountID == *dest {
		return transaction.ErrInvalidTransfer
	}
	return err
}

// flushAccounts persists every locked account whose balance moved. Called
// only after all invariant checks passed, so a failed unit never reaches
// this point.
func (u *unit) flushAccounts(ctx context.Context) error {
	for id, acc := range u.locked {
		if !u.touched[id] {
			continue
		}
		if err := u.accounts.Update(ctx, acc); err != nil {
			return err
		}
	}
	return nil
}

// applyEffect applies the signed effect of (txType, amount) on the locked
// working set, with invariant checks.
func (u *unit) applyEffect(tx *transaction.Transaction) error {
	src := u.locked[tx.AccountID]
	if !src.Active {
		return account.ErrInactiveAccount
	}

	switch tx.Type {
	case transaction.TypeIncome:
		if err := src.Credit(tx.Amount); err != nil {
			return err
		}
		u.mark(src.ID)
	case transaction.TypeExpense:
		if err := src.Debit(tx.Amount); err != nil {
			return err
		}
		u.mark(src.ID)
	case transaction.TypeTransfer:
		dst := u.locked[*tx.TransferAccountID]
		if !dst.Active {
			return transaction.ErrInvalidTransfer
		}
		if err := src.Debit(tx.Amount); err != nil {
			return err
		}
		u.mark(src.ID)
		if err := dst.Credit(tx.Amount); err != nil {
			return err
		}
		u.mark(dst.ID)
	default:
		return transaction.ErrInvalidType
	}
	return nil
}

// reverseEffect undoes the stored effect of tx on the locked working set.
// Reversal is unchecked: it restores a state that was valid when the
// original effect applied, and any transiently odd intermediate balance is
// re-validated by the replacement effect before the unit commits.
func (u *unit) reverseEffect(tx *transaction.Transaction) {
	src := u.locked[tx.AccountID]
	switch tx.Type {
	case transaction.TypeIncome:
		src.ApplyDelta(tx.Amount.Neg())
		u.mark(src.ID)
	case transaction.TypeExpense:
		src.ApplyDelta(tx.Amount)
		u.mark(src.ID)
	case transaction.TypeTransfer:
		src.ApplyDelta(tx.Amount)
		u.mark(src.ID)
		dst := u.locked[*tx.TransferAccountID]
		dst.ApplyDelta(tx.Amount.Neg())
		u.mark(dst.ID)
	}
}

// stageEvent writes the outbox record for a committed fact inside the unit
func (u *unit) stageEvent(ctx context.Context, evt *event.Event) error {
	rec, err := event.NewOutboxRecord(evt)
	if err != nil {
		return err
	}
	return u.outbox.Create(ctx, rec)
}

// Create applies a new transaction and its balance effect atomically.
func (e *Engine) Create(ctx context.Context, ownerID uuid.UUID, in CreateInput) (*transaction.Transaction, error) {
	if !in.Amount.IsPositive() {
		return nil, account.ErrInvalidAmount
	}

	now := e.now()
	tx := &transaction.Transaction{
		ID:                uuid.New(),
		OwnerID:           ownerID,
		AccountID:         in.AccountID,
		CategoryID:        in.CategoryID,
		TransferAccountID: in.TransferAccountID,
		Type:              in.Type,
		Amount:            in.Amount,
		Date:              in.Date,
		Description:       in.Description,
		Notes:             in.Notes,
		Tags:              in.Tags,
		Cleared:           in.Cleared,
		TemplateID:        in.TemplateID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := tx.ValidateShape(); err != nil {
		return nil, err
	}

	err := e.db.ExecuteTx(ctx, func(dbTx pgx.Tx) error {
		u := e.begin(dbTx)

		if _, err := u.categories.GetByID(ctx, ownerID, tx.CategoryID); err != nil {
			return err
		}

		ids := []uuid.UUID{tx.AccountID}
		if tx.TransferAccountID != nil {
			ids = append(ids, *tx.TransferAccountID)
		}
		if err := u.lockAccounts(ctx, ownerID, ids...); err != nil {
			return asInvalidTransfer(err, tx.TransferAccountID)
		}

		if err := u.applyEffect(tx); err != nil {
			return err
		}

		if err := u.flushAccounts(ctx); err != nil {
			return err
		}
		if err := u.txs.Create(ctx, tx); err != nil {
			return err
		}
		return u.stageEvent(ctx, event.NewLedgerEvent(e.createKind(tx), ownerID, tx.ID, tx.AccountID, tx.Amount, tx.Description))
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("ledger unit committed",
		"op", "create", "transaction_id", tx.ID, "account_id", tx.AccountID, "type", tx.Type, "amount", tx.Amount)
	return tx, nil
}

func (e *Engine) createKind(tx *transaction.Transaction) event.Kind {
	switch {
	case tx.TemplateID != nil:
		return event.KindRecurringMaterialized
	case tx.Type == transaction.TypeTransfer:
		return event.KindTransferCreated
	default:
		return event.KindTransactionCreated
	}
}

// Update edits a transaction by reversing its stored effect and applying the
// resolved new one, all in one unit. The reversal always reads the stored
// account/amount/type, never values already merged with the requested
// changes; when the account changes, the reversal lands on the old account
// and the new effect on the new one.
func (e *Engine) Update(ctx context.Context, ownerID, txID uuid.UUID, in UpdateInput) (*transaction.Transaction, error) {
	var updated *transaction.Transaction

	err := e.db.ExecuteTx(ctx, func(dbTx pgx.Tx) error {
		u := e.begin(dbTx)

		stored, err := u.txs.GetByID(ctx, ownerID, txID)
		if err != nil {
			return err
		}

		if stored.Protected(e.now()) && touchesProtectedFields(stored, in) {
			return transaction.ErrImmutableTransaction
		}

		resolved, err := resolve(stored, in)
		if err != nil {
			return err
		}

		if resolved.CategoryID != stored.CategoryID {
			if _, err := u.categories.GetByID(ctx, ownerID, resolved.CategoryID); err != nil {
				return err
			}
		}

		ids := []uuid.UUID{stored.AccountID, resolved.AccountID}
		if stored.TransferAccountID != nil {
			ids = append(ids, *stored.TransferAccountID)
		}
		if resolved.TransferAccountID != nil {
			ids = append(ids, *resolved.TransferAccountID)
		}
		if err := u.lockAccounts(ctx, ownerID, ids...); err != nil {
			return asInvalidTransfer(err, resolved.TransferAccountID)
		}

		u.reverseEffect(stored)
		if err := u.applyEffect(resolved); err != nil {
			return err
		}

		if err := u.flushAccounts(ctx); err != nil {
			return err
		}

		resolved.UpdatedAt = e.now()
		if err := u.txs.Update(ctx, resolved); err != nil {
			return err
		}
		updated = resolved
		return u.stageEvent(ctx, event.NewLedgerEvent(event.KindTransactionUpdated, ownerID, resolved.ID, resolved.AccountID, resolved.Amount, resolved.Description))
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("ledger unit committed", "op", "update", "transaction_id", txID)
	return updated, nil
}

// touchesProtectedFields reports whether in changes a frozen field of stored
func touchesProtectedFields(stored *transaction.Transaction, in UpdateInput) bool {
	if in.Amount != nil && !in.Amount.Equal(stored.Amount) {
		return true
	}
	if in.AccountID != nil && *in.AccountID != stored.AccountID {
		return true
	}
	if in.Type != nil && *in.Type != stored.Type {
		return true
	}
	if in.TransferAccountID != nil &&
		(stored.TransferAccountID == nil || *in.TransferAccountID != *stored.TransferAccountID) {
		return true
	}
	return false
}

// resolve merges the requested changes over the stored transaction,
// falling back to stored values for anything unspecified.
func resolve(stored *transaction.Transaction, in UpdateInput) (*transaction.Transaction, error) {
	resolved := *stored
	if stored.TransferAccountID != nil {
		id := *stored.TransferAccountID
		resolved.TransferAccountID = &id
	}
	resolved.Tags = append([]string(nil), stored.Tags...)

	if in.AccountID != nil {
		resolved.AccountID = *in.AccountID
	}
	if in.CategoryID != nil {
		resolved.CategoryID = *in.CategoryID
	}
	if in.Type != nil {
		resolved.Type = *in.Type
	}
	if in.TransferAccountID != nil {
		id := *in.TransferAccountID
		resolved.TransferAccountID = &id
	}
	if resolved.Type != transaction.TypeTransfer {
		// A destination sent alongside a non-transfer type is a contradiction,
		// not something to quietly drop. A stored destination merely left over
		// from a type change is cleared.
		if in.TransferAccountID != nil {
			return nil, transaction.ErrInvalidTransfer
		}
		resolved.TransferAccountID = nil
	}
	if in.Amount != nil {
		resolved.Amount = *in.Amount
	}
	if in.Date != nil {
		resolved.Date = *in.Date
	}
	if in.Description != nil {
		resolved.Description = *in.Description
	}
	if in.Notes != nil {
		resolved.Notes = *in.Notes
	}
	if in.Tags != nil {
		resolved.Tags = append([]string(nil), (*in.Tags)...)
	}
	if in.Cleared != nil {
		resolved.Cleared = *in.Cleared
	}

	if !resolved.Amount.IsPositive() {
		return nil, account.ErrInvalidAmount
	}
	if err := resolved.ValidateShape(); err != nil {
		return nil, err
	}
	return &resolved, nil
}

// Delete reverses the stored effect and soft-deletes the row atomically.
func (e *Engine) Delete(ctx context.Context, ownerID, txID uuid.UUID) error {
	err := e.db.ExecuteTx(ctx, func(dbTx pgx.Tx) error {
		u := e.begin(dbTx)

		stored, err := u.txs.GetByID(ctx, ownerID, txID)
		if err != nil {
			return err
		}

		ids := []uuid.UUID{stored.AccountID}
		if stored.TransferAccountID != nil {
			ids = append(ids, *stored.TransferAccountID)
		}
		if err := u.lockAccounts(ctx, ownerID, ids...); err != nil {
			return err
		}

		u.reverseEffect(stored)

		if err := u.flushAccounts(ctx); err != nil {
			return err
		}
		if err := u.txs.SoftDelete(ctx, ownerID, txID, e.now()); err != nil {
			return err
		}
		return u.stageEvent(ctx, event.NewLedgerEvent(event.KindTransactionDeleted, ownerID, stored.ID, stored.AccountID, stored.Amount, stored.Description))
	})
	if err != nil {
		return err
	}

	e.logger.Info("ledger unit committed", "op", "delete", "transaction_id", txID)
	return nil
}

// BulkDelete deletes up to MaxBulkDelete transactions. Each id gets its own
// atomic unit; one failure does not undo the others. The report lists both
// outcomes.
func (e *Engine) BulkDelete(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID) (*BulkDeleteReport, error) {
	if len(ids) > MaxBulkDelete {
		return nil, ErrBulkTooLarge
	}

	report := &BulkDeleteReport{}
	for _, id := range ids {
		if err := e.Delete(ctx, ownerID, id); err != nil {
			report.Failures = append(report.Failures, BulkDeleteFailure{
				TransactionID: id,
				Reason:        err.Error(),
			})
			continue
		}
		report.Deleted = append(report.Deleted, id)
	}

	e.logger.Info("bulk delete finished",
		"requested", len(ids), "deleted", len(report.Deleted), "failed", len(report.Failures))
	return report, nil
}

// Transfer moves money between two owned accounts as a single transfer-type
// transaction. Source funds (or credit) and destination credit limits are
// validated before anything persists, so a rejected destination leaves the
// source untouched.
func (e *Engine) Transfer(ctx context.Context, ownerID uuid.UUID, in TransferInput) (*transaction.Transaction, error) {
	to := in.ToAccountID
	return e.Create(ctx, ownerID, CreateInput{
		AccountID:         in.FromAccountID,
		CategoryID:        in.CategoryID,
		TransferAccountID: &to,
		Type:              transaction.TypeTransfer,
		Amount:            in.Amount,
		Date:              in.Date,
		Description:       in.Description,
	})
}
