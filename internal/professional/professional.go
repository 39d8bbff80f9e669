package professional

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrProfessionalNotFound = errors.New("professional not found")

type Professional struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p Professional) FullName() string {
	return p.FirstName + " " + p.LastName
}

type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Professional, error)
}
