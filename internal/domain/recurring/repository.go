package recurring

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines recurring-template persistence operations
type Repository interface {
	Create(ctx context.Context, tpl *Template) error
	GetByID(ctx context.Context, ownerID, id uuid.UUID) (*Template, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Template, error)

	// ListDue returns active templates with next_occurrence <= asOf,
	// optionally restricted to one owner. Ordered by next_occurrence so
	// the oldest obligations fire first.
	ListDue(ctx context.Context, asOf time.Time, ownerID *uuid.UUID) ([]*Template, error)

	Update(ctx context.Context, tpl *Template) error
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
	WithTx(tx pgx.Tx) Repository
}

// ErrTemplateNotFound indicates a missing or foreign-owned template
type ErrTemplateNotFound struct {
	TemplateID uuid.UUID
}

func (e ErrTemplateNotFound) Error() string {
	return "recurring template not found: " + e.TemplateID.String()
}
