package category

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrEmptyName   = errors.New("category name cannot be empty")
	ErrInvalidKind = errors.New("category kind must be income or expense")
)

// Kind separates earning categories from spending ones
type Kind string

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

// Category labels transactions, recurring templates and budgets.
type Category struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Name      string    `json:"name"`
	Kind      Kind      `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates an owner-scoped category
func New(ownerID uuid.UUID, name string, kind Kind) (*Category, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if kind != KindIncome && kind != KindExpense {
		return nil, ErrInvalidKind
	}
	now := time.Now().UTC()
	return &Category{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Name:      name,
		Kind:      kind,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Repository defines category persistence operations
type Repository interface {
	Create(ctx context.Context, c *Category) error
	GetByID(ctx context.Context, ownerID, id uuid.UUID) (*Category, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Category, error)
	Update(ctx context.Context, c *Category) error
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
	WithTx(tx pgx.Tx) Repository
}

// ErrCategoryNotFound indicates a missing or foreign-owned category
type ErrCategoryNotFound struct {
	CategoryID uuid.UUID
}

func (e ErrCategoryNotFound) Error() string {
	return "category not found: " + e.CategoryID.String()
}
