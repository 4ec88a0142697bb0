package budget

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidLimit     = errors.New("budget limit must be positive")
	ErrInvalidThreshold = errors.New("alert threshold must be between 0 and 1")
)

// Budget caps spending for one category in one calendar month. Budgets read
// transaction aggregates; they never participate in balance mutation.
type Budget struct {
	ID             uuid.UUID       `json:"id"`
	OwnerID        uuid.UUID       `json:"owner_id"`
	CategoryID     uuid.UUID       `json:"category_id"`
	Month          time.Time       `json:"month"` // first day of the budgeted month, UTC
	Limit          decimal.Decimal `json:"limit"`
	AlertThreshold decimal.Decimal `json:"alert_threshold"` // fraction of the limit, e.g. 0.8
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// New creates a budget for the month containing ref
func New(ownerID, categoryID uuid.UUID, ref time.Time, limit, alertThreshold decimal.Decimal) (*Budget, error) {
	if !limit.IsPositive() {
		return nil, ErrInvalidLimit
	}
	if alertThreshold.IsNegative() || alertThreshold.GreaterThan(decimal.NewFromInt(1)) {
		return nil, ErrInvalidThreshold
	}

	now := time.Now().UTC()
	return &Budget{
		ID:             uuid.New(),
		OwnerID:        ownerID,
		CategoryID:     categoryID,
		Month:          MonthOf(ref),
		Limit:          limit,
		AlertThreshold: alertThreshold,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// MonthOf truncates ref to the first day of its month in UTC
func MonthOf(ref time.Time) time.Time {
	return time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Period returns the half-open [from, to) interval the budget covers
func (b *Budget) Period() (time.Time, time.Time) {
	return b.Month, b.Month.AddDate(0, 1, 0)
}

// AlertAmount is the spend level at which an alert fires
func (b *Budget) AlertAmount() decimal.Decimal {
	return b.Limit.Mul(b.AlertThreshold)
}

// Summary pairs a budget with its period-to-date spend
type Summary struct {
	Budget    *Budget         `json:"budget"`
	Spent     decimal.Decimal `json:"spent"`
	Remaining decimal.Decimal `json:"remaining"`
}

// Repository defines budget persistence operations
type Repository interface {
	Create(ctx context.Context, b *Budget) error
	GetByID(ctx context.Context, ownerID, id uuid.UUID) (*Budget, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Budget, error)

	// ListForMonth returns every budget covering the month containing ref,
	// across all owners. The alert scan walks this.
	ListForMonth(ctx context.Context, ref time.Time) ([]*Budget, error)

	Update(ctx context.Context, b *Budget) error
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
	WithTx(tx pgx.Tx) Repository
}

// ErrBudgetNotFound indicates a missing or foreign-owned budget
type ErrBudgetNotFound struct {
	BudgetID uuid.UUID
}

func (e ErrBudgetNotFound) Error() string {
	return "budget not found: " + e.BudgetID.String()
}
