package account

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Common errors
var (
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrCreditLimitExceeded = errors.New("credit limit exceeded")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInactiveAccount     = errors.New("account is inactive")
	ErrEmptyName           = errors.New("account name cannot be empty")
	ErrInvalidType         = errors.New("invalid account type")
	ErrMissingCreditLimit  = errors.New("credit card accounts require a credit limit")
	ErrInvalidCurrency     = errors.New("currency must be a 3-letter code")
)

// Type classifies a money container
type Type string

const (
	TypeCash       Type = "cash"
	TypeBank       Type = "bank"
	TypeCreditCard Type = "credit_card"
	TypeInvestment Type = "investment"
	TypeEWallet    Type = "e_wallet"
)

// Valid reports whether t is a known account type
func (t Type) Valid() bool {
	switch t {
	case TypeCash, TypeBank, TypeCreditCard, TypeInvestment, TypeEWallet:
		return true
	}
	return false
}

// Account is a money container owned by a single user. Its balance is mutated
// exclusively through ledger units; nothing else writes the balance column.
type Account struct {
	ID              uuid.UUID       `json:"id"`
	OwnerID         uuid.UUID       `json:"owner_id"`
	Name            string          `json:"name"`
	Type            Type            `json:"type"`
	Balance         decimal.Decimal `json:"balance"`
	CreditLimit     decimal.Decimal `json:"credit_limit"` // zero unless credit_card
	Currency        string          `json:"currency"`
	Active          bool            `json:"active"`
	IncludeNetWorth bool            `json:"include_net_worth"`
	Version         int             `json:"version"` // bumped by the store on every persisted write
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeletedAt       *time.Time      `json:"deleted_at,omitempty"`
}

// NewAccount creates an account with an opening balance. After creation the
// balance only moves through the ledger engine.
func NewAccount(ownerID uuid.UUID, name string, accType Type, openingBalance, creditLimit decimal.Decimal, currency string, includeNetWorth bool) (*Account, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if !accType.Valid() {
		return nil, ErrInvalidType
	}
	if len(currency) != 3 {
		return nil, ErrInvalidCurrency
	}
	if accType == TypeCreditCard && !creditLimit.IsPositive() {
		return nil, ErrMissingCreditLimit
	}
	if accType != TypeCreditCard && openingBalance.IsNegative() {
		return nil, ErrInvalidAmount
	}

	now := time.Now().UTC()
	return &Account{
		ID:              uuid.New(),
		OwnerID:         ownerID,
		Name:            name,
		Type:            accType,
		Balance:         openingBalance,
		CreditLimit:     creditLimit,
		Currency:        currency,
		Active:          true,
		IncludeNetWorth: includeNetWorth,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Debit subtracts amount from the balance, enforcing the funds invariant:
// non-credit accounts may not go below zero, credit cards may not owe more
// than their credit limit.
func (a *Account) Debit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	next := a.Balance.Sub(amount)
	if a.Type == TypeCreditCard {
		if next.Neg().GreaterThan(a.CreditLimit) {
			return ErrCreditLimitExceeded
		}
	} else if next.IsNegative() {
		return ErrInsufficientFunds
	}

	a.setBalance(next)
	return nil
}

// Credit adds amount to the balance. A credit card cannot be pushed past its
// limit in the positive direction either; anything else accepts any credit.
func (a *Account) Credit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	next := a.Balance.Add(amount)
	if a.Type == TypeCreditCard && next.GreaterThan(a.CreditLimit) {
		return ErrCreditLimitExceeded
	}

	a.setBalance(next)
	return nil
}

// ApplyDelta moves the balance without invariant checks. Reserved for
// reversals inside a ledger unit, where the stored effect is undone before the
// replacement effect is validated.
func (a *Account) ApplyDelta(delta decimal.Decimal) {
	a.setBalance(a.Balance.Add(delta))
}

// AvailableCredit returns credit_limit minus the owed amount for credit cards,
// and the plain balance for everything else.
func (a *Account) AvailableCredit() decimal.Decimal {
	if a.Type != TypeCreditCard {
		return a.Balance
	}
	if a.Balance.IsNegative() {
		return a.CreditLimit.Sub(a.Balance.Neg())
	}
	return a.CreditLimit
}

// setBalance moves the balance in memory. Version is untouched: it always
// holds the value read from the store, which the repository uses as its
// optimistic-write predicate.
func (a *Account) setBalance(b decimal.Decimal) {
	a.Balance = b
	a.UpdatedAt = time.Now().UTC()
}

// Deactivate soft-disables the account. Inactive accounts reject new ledger
// activity but keep their history, and stored effects on them can still be
// reversed, so the row is not marked deleted.
func (a *Account) Deactivate() {
	a.Active = false
	a.UpdatedAt = time.Now().UTC()
}
