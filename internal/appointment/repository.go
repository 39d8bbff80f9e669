package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/schedule"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	// ErrSlotTaken is returned when the storage uniqueness constraint on an
	// occupied slot rejects a write.
	ErrSlotTaken = errors.New("slot already taken")
	// ErrStaleAppointment is returned when the stored row no longer matches
	// the version an update was computed from.
	ErrStaleAppointment = errors.New("appointment changed concurrently")
)

type ListFilter struct {
	Date           *time.Time
	ProfessionalID *uuid.UUID
	PatientID      *uuid.UUID
	State          *State
	IncludeDeleted bool
	Offset         int
	Limit          int
}

// Repository contains all DB interactions needed by the service.
type Repository interface {
	// FindConflicting returns a live appointment in an occupied state at the
	// exact slot, ignoring excludeID. ErrAppointmentNotFound when the slot is free.
	FindConflicting(ctx context.Context, professionalID uuid.UUID, date time.Time, at schedule.Clock, excludeID *uuid.UUID) (*Appointment, error)
	FindByProfessionalAndDate(ctx context.Context, professionalID uuid.UUID, date time.Time, states []State) ([]Appointment, error)

	GetByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (*Appointment, error)
	List(ctx context.Context, filter ListFilter) ([]Appointment, error)

	Insert(ctx context.Context, a Appointment) (*Appointment, error)
	// Update persists date, time and state of next, provided the live row
	// still has the date, time and state of prev. Otherwise it returns
	// ErrStaleAppointment, or ErrAppointmentNotFound when the row is gone.
	Update(ctx context.Context, prev, next Appointment) (*Appointment, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error

	InsertEvent(ctx context.Context, ev EventLog) error
}
