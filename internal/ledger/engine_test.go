package ledger

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/finbook-ledger/internal/domain/account"
	"github.com/finbook-ledger/internal/domain/category"
	"github.com/finbook-ledger/internal/domain/event"
	"github.com/finbook-ledger/internal/domain/transaction"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTxRunner runs the unit body directly; the fakes below only persist
// after the engine's validation passes, which mirrors rollback semantics.
type fakeTxRunner struct{}

func (fakeTxRunner) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return fn(nil)
}

type fakeAccounts struct {
	store map[uuid.UUID]*account.Account
}

func newFakeAccounts(accs ...*account.Account) *fakeAccounts {
	f := &fakeAccounts{store: make(map[uuid.UUID]*account.Account)}
	for _, a := range accs {
		cp := *a
		f.store[a.ID] = &cp
	}
	return f
}

func (f *fakeAccounts) Create(_ context.Context, acc *account.Account) error {
	cp := *acc
	f.store[acc.ID] = &cp
	return nil
}

func (f *fakeAccounts) GetByID(_ context.Context, ownerID, id uuid.UUID) (*account.Account, error) {
	acc, ok := f.store[id]
	if !ok || acc.OwnerID != ownerID || acc.DeletedAt != nil {
		return nil, account.ErrAccountNotFound{AccountID: id}
	}
	cp := *acc
	return &cp, nil
}

func (f *fakeAccounts) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]*account.Account, error) {
	var out []*account.Account
	for _, acc := range f.store {
		if acc.OwnerID == ownerID {
			cp := *acc
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeAccounts) Update(_ context.Context, acc *account.Account) error {
	cp := *acc
	f.store[acc.ID] = &cp
	return nil
}

func (f *fakeAccounts) LockForUpdate(ctx context.Context, ownerID, id uuid.UUID) (*account.Account, error) {
	return f.GetByID(ctx, ownerID, id)
}

func (f *fakeAccounts) WithTx(_ pgx.Tx) account.Repository { return f }

func (f *fakeAccounts) balance(id uuid.UUID) decimal.Decimal { return f.store[id].Balance }

type fakeTransactions struct {
	store map[uuid.UUID]*transaction.Transaction
}

func newFakeTransactions() *fakeTransactions {
	return &fakeTransactions{store: make(map[uuid.UUID]*transaction.Transaction)}
}

func (f *fakeTransactions) Create(_ context.Context, tx *transaction.Transaction) error {
	cp := *tx
	f.store[tx.ID] = &cp
	return nil
}

func (f *fakeTransactions) GetByID(_ context.Context, ownerID, id uuid.UUID) (*transaction.Transaction, error) {
	tx, ok := f.store[id]
	if !ok || tx.OwnerID != ownerID || tx.DeletedAt != nil {
		return nil, transaction.ErrTransactionNotFound{TransactionID: id}
	}
	cp := *tx
	return &cp, nil
}

func (f *fakeTransactions) ListByAccount(_ context.Context, ownerID, accountID uuid.UUID, _, _ int) ([]*transaction.Transaction, int64, error) {
	var out []*transaction.Transaction
	for _, tx := range f.store {
		if tx.OwnerID == ownerID && tx.AccountID == accountID && tx.DeletedAt == nil {
			cp := *tx
			out = append(out, &cp)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeTransactions) Update(_ context.Context, tx *transaction.Transaction) error {
	cp := *tx
	f.store[tx.ID] = &cp
	return nil
}

func (f *fakeTransactions) SoftDelete(_ context.Context, ownerID, id uuid.UUID, at time.Time) error {
	tx, ok := f.store[id]
	if !ok || tx.OwnerID != ownerID {
		return transaction.ErrTransactionNotFound{TransactionID: id}
	}
	tx.DeletedAt = &at
	return nil
}

func (f *fakeTransactions) SumByCategory(_ context.Context, ownerID, categoryID uuid.UUID, from, to time.Time) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, tx := range f.store {
		if tx.OwnerID == ownerID && tx.CategoryID == categoryID && tx.DeletedAt == nil &&
			tx.Type == transaction.TypeExpense && !tx.Date.Before(from) && tx.Date.Before(to) {
			sum = sum.Add(tx.Amount)
		}
	}
	return sum, nil
}

func (f *fakeTransactions) WithTx(_ pgx.Tx) transaction.Repository { return f }

type fakeCategories struct {
	store map[uuid.UUID]*category.Category
}

func newFakeCategories(cats ...*category.Category) *fakeCategories {
	f := &fakeCategories{store: make(map[uuid.UUID]*category.Category)}
	for _, c := range cats {
		f.store[c.ID] = c
	}
	return f
}

func (f *fakeCategories) Create(_ context.Context, c *category.Category) error {
	f.store[c.ID] = c
	return nil
}

func (f *fakeCategories) GetByID(_ context.Context, ownerID, id uuid.UUID) (*category.Category, error) {
	c, ok := f.store[id]
	if !ok || c.OwnerID != ownerID {
		return nil, category.ErrCategoryNotFound{CategoryID: id}
	}
	return c, nil
}

func (f *fakeCategories) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]*category.Category, error) {
	return nil, nil
}

func (f *fakeCategories) Update(_ context.Context, c *category.Category) error { return nil }

func (f *fakeCategories) Delete(_ context.Context, ownerID, id uuid.UUID) error { return nil }

func (f *fakeCategories) WithTx(_ pgx.Tx) category.Repository { return f }

type fakeOutbox struct {
	records []*event.OutboxRecord
}

func (f *fakeOutbox) Create(_ context.Context, rec *event.OutboxRecord) error {
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeOutbox) GetPending(_ context.Context, _ int) ([]*event.OutboxRecord, error) {
	return f.records, nil
}

func (f *fakeOutbox) MarkProcessed(_ context.Context, _ int64) error   { return nil }
func (f *fakeOutbox) MarkFailed(_ context.Context, _ int64) error      { return nil }
func (f *fakeOutbox) IncrementAttempts(_ context.Context, _ int64) error { return nil }
func (f *fakeOutbox) WithTx(_ pgx.Tx) event.OutboxRepository           { return f }

func (f *fakeOutbox) lastKind() event.Kind {
	if len(f.records) == 0 {
		return ""
	}
	return f.records[len(f.records)-1].Kind
}

// fixture wires an engine over the fakes with a pinned clock
type fixture struct {
	engine   *Engine
	owner    uuid.UUID
	accounts *fakeAccounts
	txs      *fakeTransactions
	outbox   *fakeOutbox
	catID    uuid.UUID
	now      time.Time
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newFixture(t *testing.T, accs ...*account.Account) *fixture {
	t.Helper()
	owner := accs[0].OwnerID

	cat, err := category.New(owner, "General", category.KindExpense)
	require.NoError(t, err)

	fa := newFakeAccounts(accs...)
	ft := newFakeTransactions()
	fo := &fakeOutbox{}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	eng := NewEngine(fakeTxRunner{}, fa, ft, newFakeCategories(cat), fo, logger)
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	eng.now = func() time.Time { return now }

	return &fixture{engine: eng, owner: owner, accounts: fa, txs: ft, outbox: fo, catID: cat.ID, now: now}
}

func bankAccount(t *testing.T, owner uuid.UUID, balance string) *account.Account {
	t.Helper()
	acc, err := account.NewAccount(owner, "Checking", account.TypeBank, dec(balance), decimal.Zero, "USD", true)
	require.NoError(t, err)
	return acc
}

func creditCard(t *testing.T, owner uuid.UUID, balance, limit string) *account.Account {
	t.Helper()
	acc, err := account.NewAccount(owner, "Visa", account.TypeCreditCard, dec(balance), dec(limit), "USD", true)
	require.NoError(t, err)
	return acc
}

func TestEngine_Create(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()

	t.Run("income credits the account", func(t *testing.T) {
		acc := bankAccount(t, owner, "1000")
		f := newFixture(t, acc)

		tx, err := f.engine.Create(ctx, owner, CreateInput{
			AccountID: acc.ID, CategoryID: f.catID,
			Type: transaction.TypeIncome, Amount: dec("250"), Date: f.now,
		})
		require.NoError(t, err)
		assert.True(t, f.accounts.balance(acc.ID).Equal(dec("1250")))
		assert.Equal(t, event.KindTransactionCreated, f.outbox.lastKind())

		stored, err := f.txs.GetByID(ctx, owner, tx.ID)
		require.NoError(t, err)
		assert.True(t, stored.Amount.Equal(dec("250")))
	})

	t.Run("expense debits the account", func(t *testing.T) {
		acc := bankAccount(t, owner, "1000")
		f := newFixture(t, acc)

		_, err := f.engine.Create(ctx, owner, CreateInput{
			AccountID: acc.ID, CategoryID: f.catID,
			Type: transaction.TypeExpense, Amount: dec("50"), Date: f.now,
		})
		require.NoError(t, err)
		assert.True(t, f.accounts.balance(acc.ID).Equal(dec("950")))
	})

	t.Run("insufficient funds leaves no trace", func(t *testing.T) {
		acc := bankAccount(t, owner, "50")
		f := newFixture(t, acc)

		_, err := f.engine.Create(ctx, owner, CreateInput{
			AccountID: acc.ID, CategoryID: f.catID,
			Type: transaction.TypeExpense, Amount: dec("100"), Date: f.now,
		})
		assert.ErrorIs(t, err, account.ErrInsufficientFunds)
		assert.True(t, f.accounts.balance(acc.ID).Equal(dec("50")))
		assert.Empty(t, f.txs.store)
		assert.Empty(t, f.outbox.records)
	})

	t.Run("credit card expense up to the limit", func(t *testing.T) {
		cc := creditCard(t, owner, "-200", "500")
		f := newFixture(t, cc)

		_, err := f.engine.Create(ctx, owner, CreateInput{
			AccountID: cc.ID, CategoryID: f.catID,
			Type: transaction.TypeExpense, Amount: dec("300"), Date: f.now,
		})
		require.NoError(t, err)
		assert.True(t, f.accounts.balance(cc.ID).Equal(dec("-500")))

		_, err = f.engine.Create(ctx, owner, CreateInput{
			AccountID: cc.ID, CategoryID: f.catID,
			Type: transaction.TypeExpense, Amount: dec("1"), Date: f.now,
		})
		assert.ErrorIs(t, err, account.ErrCreditLimitExceeded)
		assert.True(t, f.accounts.balance(cc.ID).Equal(dec("-500")))
	})

	t.Run("unknown category", func(t *testing.T) {
		acc := bankAccount(t, owner, "1000")
		f := newFixture(t, acc)

		_, err := f.engine.Create(ctx, owner, CreateInput{
			AccountID: acc.ID, CategoryID: uuid.New(),
			Type: transaction.TypeExpense, Amount: dec("10"), Date: f.now,
		})
		var nf category.ErrCategoryNotFound
		assert.ErrorAs(t, err, &nf)
	})

	t.Run("inactive source account", func(t *testing.T) {
		acc := bankAccount(t, owner, "1000")
		acc.Deactivate()
		f := newFixture(t, acc)

		_, err := f.engine.Create(ctx, owner, CreateInput{
			AccountID: acc.ID, CategoryID: f.catID,
			Type: transaction.TypeIncome, Amount: dec("10"), Date: f.now,
		})
		assert.ErrorIs(t, err, account.ErrInactiveAccount)
	})

	t.Run("foreign owner sees nothing", func(t *testing.T) {
		acc := bankAccount(t, owner, "1000")
		f := newFixture(t, acc)

		_, err := f.engine.Create(ctx, uuid.New(), CreateInput{
			AccountID: acc.ID, CategoryID: f.catID,
			Type: transaction.TypeExpense, Amount: dec("10"), Date: f.now,
		})
		assert.Error(t, err)
		assert.True(t, f.accounts.balance(acc.ID).Equal(dec("1000")))
	})
}

func TestEngine_Transfer(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()

	t.Run("bank to credit card pays down debt", func(t *testing.T) {
		a := bankAccount(t, owner, "1000")
		b := creditCard(t, owner, "-200", "500")
		f := newFixture(t, a, b)

		tx, err := f.engine.Transfer(ctx, owner, TransferInput{
			FromAccountID: a.ID, ToAccountID: b.ID, CategoryID: f.catID,
			Amount: dec("100"), Date: f.now, Description: "card payment",
		})
		require.NoError(t, err)
		assert.True(t, f.accounts.balance(a.ID).Equal(dec("900")))
		assert.True(t, f.accounts.balance(b.ID).Equal(dec("-100")))
		assert.Equal(t, transaction.TypeTransfer, tx.Type)
		assert.Equal(t, event.KindTransferCreated, f.outbox.lastKind())
	})

	t.Run("destination rejection leaves source untouched", func(t *testing.T) {
		a := bankAccount(t, owner, "1000")
		b := creditCard(t, owner, "-100", "500")
		f := newFixture(t, a, b)

		// 700 would push the card past its limit on the positive side
		_, err := f.engine.Transfer(ctx, owner, TransferInput{
			FromAccountID: a.ID, ToAccountID: b.ID, CategoryID: f.catID,
			Amount: dec("700"), Date: f.now,
		})
		assert.ErrorIs(t, err, account.ErrCreditLimitExceeded)
		assert.True(t, f.accounts.balance(a.ID).Equal(dec("1000")), "no partial debit")
		assert.True(t, f.accounts.balance(b.ID).Equal(dec("-100")))
	})

	t.Run("self transfer rejected", func(t *testing.T) {
		a := bankAccount(t, owner, "1000")
		f := newFixture(t, a)

		_, err := f.engine.Transfer(ctx, owner, TransferInput{
			FromAccountID: a.ID, ToAccountID: a.ID, CategoryID: f.catID,
			Amount: dec("10"), Date: f.now,
		})
		assert.ErrorIs(t, err, transaction.ErrInvalidTransfer)
	})

	t.Run("missing destination rejected", func(t *testing.T) {
		a := bankAccount(t, owner, "1000")
		f := newFixture(t, a)

		_, err := f.engine.Transfer(ctx, owner, TransferInput{
			FromAccountID: a.ID, ToAccountID: uuid.New(), CategoryID: f.catID,
			Amount: dec("10"), Date: f.now,
		})
		assert.ErrorIs(t, err, transaction.ErrInvalidTransfer)
		assert.True(t, f.accounts.balance(a.ID).Equal(dec("1000")))
	})

	t.Run("inactive destination rejected", func(t *testing.T) {
		a := bankAccount(t, owner, "1000")
		b := bankAccount(t, owner, "0")
		b.Deactivate()
		f := newFixture(t, a, b)

		_, err := f.engine.Transfer(ctx, owner, TransferInput{
			FromAccountID: a.ID, ToAccountID: b.ID, CategoryID: f.catID,
			Amount: dec("10"), Date: f.now,
		})
		assert.ErrorIs(t, err, transaction.ErrInvalidTransfer)
		assert.True(t, f.accounts.balance(a.ID).Equal(dec("1000")))
	})
}

func TestEngine_Update(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()

	t.Run("amount change reverses then reapplies", func(t *testing.T) {
		acc := bankAccount(t, owner, "1000")
		f := newFixture(t, acc)

		tx, err := f.engine.Create(ctx, owner, CreateInput{
			AccountID: acc.ID, CategoryID: f.catID,
			Type: transaction.TypeExpense, Amount: dec("50"), Date: f.now,
		})
		require.NoError(t, err)
		require.True(t, f.accounts.balance(acc.ID).Equal(dec("950")))

		amt := dec("80")
		_, err = f.engine.Update(ctx, owner, tx.ID, UpdateInput{Amount: &amt})
		require.NoError(t, err)
		assert.True(t, f.accounts.balance(acc.ID).Equal(dec("920")))
	})

	t.Run("same values is a no-op on the balance", func(t *testing.T) {
		acc := bankAccount(t, owner, "1000")
		f := newFixture(t, acc)

		tx, err := f.engine.Create(ctx, owner, CreateInput{
			AccountID: acc.ID, CategoryID: f.catID,
			Type: transaction.TypeExpense, Amount: dec("50"), Date: f.now,
		})
		require.NoError(t, err)

		amt := dec("50")
		typ := transaction.TypeExpense
		_, err = f.engine.Update(ctx, owner, tx.ID, UpdateInput{Amount: &amt, Type: &typ, AccountID: &acc.ID})
		require.NoError(t, err)
		assert.True(t, f.accounts.balance(acc.ID).Equal(dec("950")))
	})

	t.Run("account change never conflates old and new", func(t *testing.T) {
		a := bankAccount(t, owner, "1000")
		b := bankAccount(t, owner, "500")
		f := newFixture(t, a, b)

		tx, err := f.engine.Create(ctx, owner, CreateInput{
			AccountID: a.ID, CategoryID: f.catID,
			Type: transaction.TypeExpense, Amount: dec("50"), Date: f.now,
		})
		require.NoError(t, err)

		amt := dec("80")
		_, err = f.engine.Update(ctx, owner, tx.ID, UpdateInput{Amount: &amt, AccountID: &b.ID})
		require.NoError(t, err)
		assert.True(t, f.accounts.balance(a.ID).Equal(dec("1000")), "old account fully restored")
		assert.True(t, f.accounts.balance(b.ID).Equal(dec("420")), "new effect on new account")
	})

	t.Run("type flip reverses the sign", func(t *testing.T) {
		acc := bankAccount(t, owner, "1000")
		f := newFixture(t, acc)

		tx, err := f.engine.Create(ctx, owner, CreateInput{
			AccountID: acc.ID, CategoryID: f.catID,
			Type: transaction.TypeExpense, Amount: dec("100"), Date: f.now,
		})
		require.NoError(t, err)
		require.True(t, f.accounts.balance(acc.ID).Equal(dec("900")))

		typ := transaction.TypeIncome
		_, err = f.engine.Update(ctx, owner, tx.ID, UpdateInput{Type: &typ})
		require.NoError(t, err)
		assert.True(t, f.accounts.balance(acc.ID).Equal(dec("1100")))
	})

	t.Run("failed recheck aborts the whole unit", func(t *testing.T) {
		acc := bankAccount(t, owner, "100")
		f := newFixture(t, acc)

		tx, err := f.engine.Create(ctx, owner, CreateInput{
			AccountID: acc.ID, CategoryID: f.catID,
			Type: transaction.TypeExpense, Amount: dec("50"), Date: f.now,
		})
		require.NoError(t, err)
		require.True(t, f.accounts.balance(acc.ID).Equal(dec("50")))

		amt := dec("200")
		_, err = f.engine.Update(ctx, owner, tx.ID, UpdateInput{Amount: &amt})
		assert.ErrorIs(t, err, account.ErrInsufficientFunds)
		assert.True(t, f.accounts.balance(acc.ID).Equal(dec("50")), "reversal not persisted on abort")

		stored, err := f.txs.GetByID(ctx, owner, tx.ID)
		require.NoError(t, err)
		assert.True(t, stored.Amount.Equal(dec("50")), "row unchanged on abort")
	})

	t.Run("old cleared transaction freezes protected fields", func(t *testing.T) {
		acc := bankAccount(t, owner, "1000")
		f := newFixture(t, acc)

		tx, err := f.engine.Create(ctx, owner, CreateInput{
			AccountID: acc.ID, CategoryID: f.catID,
			Type: transaction.TypeExpense, Amount: dec("50"),
			Date: f.now.AddDate(0, 0, -40), Cleared: true,
		})
		require.NoError(t, err)

		amt := dec("80")
		_, err = f.engine.Update(ctx, owner, tx.ID, UpdateInput{Amount: &amt})
		assert.ErrorIs(t, err, transaction.ErrImmutableTransaction)

		notes := "groceries, split with roommate"
		updated, err := f.engine.Update(ctx, owner, tx.ID, UpdateInput{Notes: &notes})
		require.NoError(t, err, "notes stay editable")
		assert.Equal(t, notes, updated.Notes)
		assert.True(t, f.accounts.balance(acc.ID).Equal(dec("950")))
	})

	t.Run("missing transaction", func(t *testing.T) {
		acc := bankAccount(t, owner, "1000")
		f := newFixture(t, acc)

		amt := dec("10")
		_, err := f.engine.Update(ctx, owner, uuid.New(), UpdateInput{Amount: &amt})
		var nf transaction.ErrTransactionNotFound
		assert.ErrorAs(t, err, &nf)
	})

	t.Run("destination on a non-transfer update rejected", func(t *testing.T) {
		a := bankAccount(t, owner, "1000")
		b := bankAccount(t, owner, "500")
		f := newFixture(t, a, b)

		tx, err := f.engine.Create(ctx, owner, CreateInput{
			AccountID: a.ID, CategoryID: f.catID,
			Type: transaction.TypeExpense, Amount: dec("50"), Date: f.now,
		})
		require.NoError(t, err)

		_, err = f.engine.Update(ctx, owner, tx.ID, UpdateInput{TransferAccountID: &b.ID})
		assert.ErrorIs(t, err, transaction.ErrInvalidTransfer)
		assert.True(t, f.accounts.balance(a.ID).Equal(dec("950")), "rejected update leaves balances alone")
		assert.True(t, f.accounts.balance(b.ID).Equal(dec("500")))
	})
}

func TestEngine_Delete(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()

	t.Run("create then delete round-trips the balance", func(t *testing.T) {
		acc := bankAccount(t, owner, "1000")
		f := newFixture(t, acc)

		tx, err := f.engine.Create(ctx, owner, CreateInput{
			AccountID: acc.ID, CategoryID: f.catID,
			Type: transaction.TypeExpense, Amount: dec("75"), Date: f.now,
		})
		require.NoError(t, err)
		require.True(t, f.accounts.balance(acc.ID).Equal(dec("925")))

		require.NoError(t, f.engine.Delete(ctx, owner, tx.ID))
		assert.True(t, f.accounts.balance(acc.ID).Equal(dec("1000")))
		assert.Equal(t, event.KindTransactionDeleted, f.outbox.lastKind())

		_, err = f.txs.GetByID(ctx, owner, tx.ID)
		assert.Error(t, err, "soft-deleted row is invisible")
	})

	t.Run("deactivated account still accepts the reversal", func(t *testing.T) {
		acc := bankAccount(t, owner, "1000")
		f := newFixture(t, acc)

		tx, err := f.engine.Create(ctx, owner, CreateInput{
			AccountID: acc.ID, CategoryID: f.catID,
			Type: transaction.TypeExpense, Amount: dec("75"), Date: f.now,
		})
		require.NoError(t, err)

		f.accounts.store[acc.ID].Deactivate()

		require.NoError(t, f.engine.Delete(ctx, owner, tx.ID))
		assert.True(t, f.accounts.balance(acc.ID).Equal(dec("1000")))
	})

	t.Run("transfer delete restores both legs", func(t *testing.T) {
		a := bankAccount(t, owner, "1000")
		b := creditCard(t, owner, "-200", "500")
		f := newFixture(t, a, b)

		tx, err := f.engine.Transfer(ctx, owner, TransferInput{
			FromAccountID: a.ID, ToAccountID: b.ID, CategoryID: f.catID,
			Amount: dec("100"), Date: f.now,
		})
		require.NoError(t, err)

		require.NoError(t, f.engine.Delete(ctx, owner, tx.ID))
		assert.True(t, f.accounts.balance(a.ID).Equal(dec("1000")))
		assert.True(t, f.accounts.balance(b.ID).Equal(dec("-200")))
	})
}

func TestEngine_BulkDelete(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()

	t.Run("partial success is reported, not rolled back", func(t *testing.T) {
		acc := bankAccount(t, owner, "1000")
		f := newFixture(t, acc)

		var ids []uuid.UUID
		for i := 0; i < 2; i++ {
			tx, err := f.engine.Create(ctx, owner, CreateInput{
				AccountID: acc.ID, CategoryID: f.catID,
				Type: transaction.TypeExpense, Amount: dec("10"), Date: f.now,
			})
			require.NoError(t, err)
			ids = append(ids, tx.ID)
		}
		ids = append(ids, uuid.New()) // unknown id

		report, err := f.engine.BulkDelete(ctx, owner, ids)
		require.NoError(t, err)
		assert.Len(t, report.Deleted, 2)
		assert.Len(t, report.Failures, 1)
		assert.Equal(t, ids[2], report.Failures[0].TransactionID)
		assert.True(t, f.accounts.balance(acc.ID).Equal(dec("1000")))
	})

	t.Run("batch bound", func(t *testing.T) {
		acc := bankAccount(t, owner, "1000")
		f := newFixture(t, acc)

		ids := make([]uuid.UUID, MaxBulkDelete+1)
		for i := range ids {
			ids[i] = uuid.New()
		}
		_, err := f.engine.BulkDelete(ctx, owner, ids)
		assert.ErrorIs(t, err, ErrBulkTooLarge)
	})
}

// The ledger invariant: balance equals the opening balance plus the sum of
// signed effects of all surviving transactions, transfer legs counted on
// both sides.
func TestEngine_BalanceInvariant(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()

	a := bankAccount(t, owner, "1000")
	b := creditCard(t, owner, "-200", "500")
	f := newFixture(t, a, b)

	_, err := f.engine.Create(ctx, owner, CreateInput{
		AccountID: a.ID, CategoryID: f.catID, Type: transaction.TypeIncome, Amount: dec("500"), Date: f.now,
	})
	require.NoError(t, err)

	exp, err := f.engine.Create(ctx, owner, CreateInput{
		AccountID: a.ID, CategoryID: f.catID, Type: transaction.TypeExpense, Amount: dec("120"), Date: f.now,
	})
	require.NoError(t, err)

	_, err = f.engine.Transfer(ctx, owner, TransferInput{
		FromAccountID: a.ID, ToAccountID: b.ID, CategoryID: f.catID, Amount: dec("100"), Date: f.now,
	})
	require.NoError(t, err)

	amt := dec("150")
	_, err = f.engine.Update(ctx, owner, exp.ID, UpdateInput{Amount: &amt})
	require.NoError(t, err)

	wantA := dec("1000").Add(dec("500")).Sub(dec("150")).Sub(dec("100"))
	wantB := dec("-200").Add(dec("100"))
	assert.True(t, f.accounts.balance(a.ID).Equal(wantA), "got %s", f.accounts.balance(a.ID))
	assert.True(t, f.accounts.balance(b.ID).Equal(wantB), "got %s", f.accounts.balance(b.ID))
}
