package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultPublishTimeout = 5 * time.Second

// Dispatcher publishes events in the background. Emit never blocks on the
// broker and never reports a failure to the caller.
type Dispatcher struct {
	publisher Publisher
	timeout   time.Duration
	logger    zerolog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher that hands events to publisher, each
// publish bounded by its own timeout.
func NewDispatcher(publisher Publisher, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		publisher: publisher,
		timeout:   defaultPublishTimeout,
		logger:    logger.With().Str("component", "notify").Logger(),
	}
}

// Emit queues ev for publishing. Events without a patient email and events
// emitted after Wait has been called are dropped.
func (d *Dispatcher) Emit(ev Event) {
	if ev.PatientEmail == "" {
		d.logger.Debug().
			Str("event_type", string(ev.Type)).
			Str("appointment_id", ev.AppointmentID.String()).
			Msg("patient has no email, skipping notification")
		return
	}
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.logger.Warn().
			Str("event_type", string(ev.Type)).
			Str("appointment_id", ev.AppointmentID.String()).
			Msg("dispatcher shut down, dropping notification")
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.publisher.Publish(ctx, ev); err != nil {
			d.logger.Error().Err(err).
				Str("event_type", string(ev.Type)).
				Str("appointment_id", ev.AppointmentID.String()).
				Msg("failed to publish notification")
		}
	}()
}

// Wait stops accepting new events and blocks until in-flight publishes
// finish. Used on shutdown.
func (d *Dispatcher) Wait() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	d.wg.Wait()
}
