package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// LogPublisher stands in for the broker when none is configured.
type LogPublisher struct {
	logger zerolog.Logger
}

// NewLogPublisher creates a publisher that only logs events.
func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, ev Event) error {
	p.logger.Info().
		Str("event_type", string(ev.Type)).
		Str("appointment_id", ev.AppointmentID.String()).
		Str("date", ev.Date).
		Str("time", ev.Time).
		Msg("notification not sent: no broker configured")
	return nil
}
