package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/patient"
	"github.com/hackgods/clinic-scheduling/internal/professional"
	"github.com/hackgods/clinic-scheduling/internal/schedule"
)

// State values are stored verbatim in appointments.state.
type State string

const (
	StateRequested State = "Solicitado"
	StateConfirmed State = "Confirmado"
	StateWaiting   State = "En_Espera"
	StateAttended  State = "Atendido"
	StateCancelled State = "Cancelado"
	StateNoShow    State = "Ausente"
)

// OccupiedStates hold their slot. Cancelled and no-show appointments free it.
var OccupiedStates = []State{StateRequested, StateConfirmed, StateWaiting, StateAttended}

var transitions = map[State][]State{
	StateRequested: {StateConfirmed, StateCancelled},
	StateConfirmed: {StateCancelled, StateAttended, StateNoShow},
	StateWaiting:   {StateConfirmed, StateCancelled},
}

// ParseState maps a stored label to a State.
func ParseState(s string) (State, bool) {
	switch st := State(s); st {
	case StateRequested, StateConfirmed, StateWaiting, StateAttended, StateCancelled, StateNoShow:
		return st, true
	}
	return "", false
}

// Occupies reports whether an appointment in s holds its slot.
func (s State) Occupies() bool {
	for _, o := range OccupiedStates {
		if s == o {
			return true
		}
	}
	return false
}

// Terminal reports whether s has no outgoing transitions.
func (s State) Terminal() bool {
	return len(transitions[s]) == 0
}

// CanTransitionTo reports whether the state machine allows s -> to.
func (s State) CanTransitionTo(to State) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

type Appointment struct {
	ID             uuid.UUID
	ProfessionalID uuid.UUID
	PatientID      uuid.UUID
	Date           time.Time
	Time           schedule.Clock
	State          State
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      *time.Time
}

func (a Appointment) slot() string {
	return schedule.FormatDate(a.Date) + " at " + a.Time.String()
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}

type AppointmentDetail struct {
	Appointment
	Patient      *patient.Patient
	Professional *professional.Professional
}

// Availability is a non-binding preview of the free slots on one day.
type Availability struct {
	ProfessionalID uuid.UUID
	Date           time.Time
	Weekday        schedule.Weekday
	SlotMinutes    int
	Slots          []schedule.Clock
}
