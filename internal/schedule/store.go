package schedule

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrWindowNotFound = errors.New("attention window not found")
	ErrWindowExists   = errors.New("professional already has a window on that weekday")
)

// WindowStore persists attention windows. Queries exclude soft-deleted rows
// unless includeDeleted is set.
type WindowStore interface {
	GetForWeekday(ctx context.Context, professionalID uuid.UUID, weekday Weekday, includeDeleted bool) (*Window, error)
	GetByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (*Window, error)
	ListByProfessional(ctx context.Context, professionalID uuid.UUID, includeDeleted bool) ([]Window, error)

	Create(ctx context.Context, w Window) (*Window, error)
	Update(ctx context.Context, w Window) (*Window, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
}
