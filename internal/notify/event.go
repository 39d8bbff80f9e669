// Package notify carries appointment notifications out of the booking path.
// The API publishes events after the store call returns; a separate worker
// renders and mails them.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventAppointmentRequested EventType = "appointment.requested"
	EventAppointmentConfirmed EventType = "appointment.confirmed"
)

type Event struct {
	ID               uuid.UUID `json:"id"`
	Type             EventType `json:"type"`
	AppointmentID    uuid.UUID `json:"appointment_id"`
	PatientName      string    `json:"patient_name"`
	PatientEmail     string    `json:"patient_email"`
	Date             string    `json:"date"`
	Time             string    `json:"time"`
	ProfessionalName string    `json:"professional_name,omitempty"`
	OccurredAt       time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}
