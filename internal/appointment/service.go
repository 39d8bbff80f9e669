package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/notify"
	"github.com/hackgods/clinic-scheduling/internal/patient"
	"github.com/hackgods/clinic-scheduling/internal/professional"
	redisclient "github.com/hackgods/clinic-scheduling/internal/redis"
	"github.com/hackgods/clinic-scheduling/internal/schedule"
)

const (
	EventAppointmentRequested   = "APPOINTMENT_REQUESTED"
	EventAppointmentConfirmed   = "APPOINTMENT_CONFIRMED"
	EventAppointmentRescheduled = "APPOINTMENT_RESCHEDULED"
	EventAppointmentStateChange = "APPOINTMENT_STATE_CHANGED"
	EventAppointmentCancelled   = "APPOINTMENT_CANCELLED"
	EventAppointmentDeleted     = "APPOINTMENT_DELETED"
)

const (
	defaultListLimit = 10
	maxListLimit     = 100
)

// Notifier receives events once the store call has returned.
type Notifier interface {
	Emit(ev notify.Event)
}

type Deps struct {
	Repo          Repository
	Windows       schedule.WindowStore
	Professionals professional.Store
	Patients      patient.Store
	Locker        redisclient.Locker
	Notifier      Notifier
	Policy        Policy
	Now           func() time.Time
	Logger        zerolog.Logger
}

type Service struct {
	repo          Repository
	windows       schedule.WindowStore
	professionals professional.Store
	patients      patient.Store
	resolver      *patient.Resolver
	validator     *Validator
	locker        redisclient.Locker
	notifier      Notifier
	logger        zerolog.Logger
}

// NewService creates a new appointment service
func NewService(d Deps) *Service {
	logger := d.Logger.With().Str("component", "appointment").Logger()
	return &Service{
		repo:          d.Repo,
		windows:       d.Windows,
		professionals: d.Professionals,
		patients:      d.Patients,
		resolver:      patient.NewResolver(d.Patients, logger),
		validator:     NewValidator(d.Windows, d.Repo, d.Professionals, d.Policy, d.Now),
		locker:        d.Locker,
		notifier:      d.Notifier,
		logger:        logger,
	}
}

type CreateInput struct {
	ProfessionalID uuid.UUID
	Date           string
	Time           string
	Patient        patient.Patient
}

type UpdateInput struct {
	Date  *string
	Time  *string
	State *string
}

func parseSlot(date, at string) (time.Time, schedule.Clock, error) {
	d, err := schedule.ParseDate(date)
	if err != nil {
		return time.Time{}, 0, apperr.Validation("%v", err)
	}
	c, err := schedule.ParseClock(at)
	if err != nil {
		return time.Time{}, 0, apperr.Validation("%v", err)
	}
	return d, c, nil
}

// AvailableSlots lists the free slots of a professional on a date. The result
// is a preview; Create re-validates.
func (s *Service) AvailableSlots(ctx context.Context, professionalID uuid.UUID, date string) (*Availability, error) {
	day, err := schedule.ParseDate(date)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}
	if err := s.validator.checkProfessional(ctx, professionalID); err != nil {
		return nil, err
	}

	weekday := schedule.WeekdayOf(day)
	w, err := s.windows.GetForWeekday(ctx, professionalID, weekday, false)
	if err != nil {
		if errors.Is(err, schedule.ErrWindowNotFound) {
			return nil, apperr.NotFound("professional does not attend on %s", weekday)
		}
		return nil, apperr.Internal(err, "load attention window")
	}

	candidates, err := w.Slots()
	if err != nil {
		return nil, err
	}

	booked, err := s.repo.FindByProfessionalAndDate(ctx, professionalID, day, OccupiedStates)
	if err != nil {
		return nil, apperr.Internal(err, "load booked appointments")
	}

	taken := make(map[schedule.Clock]struct{}, len(booked))
	for _, a := range booked {
		taken[a.Time] = struct{}{}
	}

	free := make([]schedule.Clock, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := taken[c]; !ok {
			free = append(free, c)
		}
	}

	return &Availability{
		ProfessionalID: professionalID,
		Date:           day,
		Weekday:        weekday,
		SlotMinutes:    w.SlotMinutes,
		Slots:          free,
	}, nil
}

// Create books a slot. The checks and the insert run under a per-slot lock;
// the partial unique index on occupied slots backs it up.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Appointment, error) {
	date, at, err := parseSlot(in.Date, in.Time)
	if err != nil {
		return nil, err
	}

	var (
		created *Appointment
		booker  *patient.Patient
	)

	key := redisclient.SlotKey{ProfessionalID: in.ProfessionalID, Date: schedule.FormatDate(date), Time: at.String()}
	err = s.withSlotLock(ctx, key, func(lockCtx context.Context) error {
		req := BookingRequest{ProfessionalID: in.ProfessionalID, Date: date, Time: at}
		if err := s.validator.Validate(lockCtx, req); err != nil {
			return err
		}

		p, err := s.resolver.Resolve(lockCtx, in.Patient)
		if err != nil {
			return apperr.Internal(err, "resolve patient")
		}
		booker = p

		appt, err := s.repo.Insert(lockCtx, Appointment{
			ProfessionalID: in.ProfessionalID,
			PatientID:      p.ID,
			Date:           date,
			Time:           at,
			State:          StateRequested,
		})
		if err != nil {
			if errors.Is(err, ErrSlotTaken) {
				return slotTaken(date, at)
			}
			return apperr.Internal(err, "insert appointment")
		}
		created = appt
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logEvent(ctx, created.ID, EventAppointmentRequested, map[string]any{
		"professional_id": created.ProfessionalID.String(),
		"patient_id":      created.PatientID.String(),
		"date":            schedule.FormatDate(created.Date),
		"time":            created.Time.String(),
	})
	s.logger.Info().
		Str("appointment_id", created.ID.String()).
		Str("professional_id", created.ProfessionalID.String()).
		Str("slot", created.slot()).
		Msg("appointment requested")

	s.notify(notify.EventAppointmentRequested, *created, booker, nil)
	return created, nil
}

// Update reschedules and/or moves an appointment through its state machine.
// A new date or time goes through the full booking validation again.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*Appointment, error) {
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	next := *current
	if in.Date != nil {
		if next.Date, err = schedule.ParseDate(*in.Date); err != nil {
			return nil, apperr.Validation("%v", err)
		}
	}
	if in.Time != nil {
		if next.Time, err = schedule.ParseClock(*in.Time); err != nil {
			return nil, apperr.Validation("%v", err)
		}
	}
	if in.State != nil {
		st, ok := ParseState(*in.State)
		if !ok {
			return nil, apperr.Validation("unknown appointment state %q", *in.State)
		}
		if st != current.State && !current.State.CanTransitionTo(st) {
			return nil, apperr.Conflict("cannot change appointment from %s to %s", current.State, st)
		}
		next.State = st
	}

	moved := !next.Date.Equal(current.Date) || next.Time != current.Time
	if moved && current.State.Terminal() {
		return nil, apperr.Conflict("cannot reschedule an appointment in state %s", current.State)
	}

	var updated *Appointment
	persist := func(ctx context.Context) error {
		if moved {
			excl := current.ID
			req := BookingRequest{ProfessionalID: current.ProfessionalID, Date: next.Date, Time: next.Time, ExcludeID: &excl}
			if err := s.validator.Validate(ctx, req); err != nil {
				return err
			}
		}
		u, err := s.repo.Update(ctx, *current, next)
		if err != nil {
			switch {
			case errors.Is(err, ErrSlotTaken):
				return slotTaken(next.Date, next.Time)
			case errors.Is(err, ErrStaleAppointment):
				return staleAppointment(current.ID)
			case errors.Is(err, ErrAppointmentNotFound):
				return apperr.NotFound("appointment not found")
			}
			return apperr.Internal(err, "update appointment")
		}
		updated = u
		return nil
	}

	if moved {
		key := redisclient.SlotKey{ProfessionalID: next.ProfessionalID, Date: schedule.FormatDate(next.Date), Time: next.Time.String()}
		err = s.withSlotLock(ctx, key, persist)
	} else {
		err = persist(ctx)
	}
	if err != nil {
		return nil, err
	}

	if moved {
		s.logEvent(ctx, updated.ID, EventAppointmentRescheduled, map[string]any{
			"from": current.slot(),
			"to":   updated.slot(),
		})
	}
	if updated.State != current.State {
		s.logEvent(ctx, updated.ID, stateEventType(updated.State), map[string]any{
			"from": string(current.State),
			"to":   string(updated.State),
		})
	}

	if updated.State == StateConfirmed {
		s.notifyConfirmed(ctx, *updated)
	}
	return updated, nil
}

func stateEventType(st State) string {
	switch st {
	case StateConfirmed:
		return EventAppointmentConfirmed
	case StateCancelled:
		return EventAppointmentCancelled
	default:
		return EventAppointmentStateChange
	}
}

// Cancel frees the slot. Appointments that are already cancelled, attended
// or marked as no-show cannot be cancelled.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	switch current.State {
	case StateCancelled, StateAttended, StateNoShow:
		return nil, apperr.Conflict("cannot cancel an appointment in state %s", current.State)
	}

	next := *current
	next.State = StateCancelled
	updated, err := s.repo.Update(ctx, *current, next)
	if err != nil {
		switch {
		case errors.Is(err, ErrStaleAppointment):
			return nil, staleAppointment(current.ID)
		case errors.Is(err, ErrAppointmentNotFound):
			return nil, apperr.NotFound("appointment not found")
		}
		return nil, apperr.Internal(err, "cancel appointment")
	}

	s.logEvent(ctx, updated.ID, EventAppointmentCancelled, map[string]any{"from": string(current.State)})
	s.logger.Info().Str("appointment_id", updated.ID.String()).Msg("appointment cancelled")
	return updated, nil
}

// Delete hides the appointment without touching its state.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return apperr.NotFound("appointment not found")
		}
		return apperr.Internal(err, "delete appointment")
	}
	s.logEvent(ctx, id, EventAppointmentDeleted, map[string]any{})
	return nil
}

// Get retrieves a fully hydrated appointment by ID
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &AppointmentDetail{Appointment: *a}
	if detail.Patient, err = s.patients.GetByID(ctx, a.PatientID); err != nil {
		return nil, apperr.Internal(fmt.Errorf("load patient %s: %w", a.PatientID, err), "load patient")
	}
	if detail.Professional, err = s.professionals.GetByID(ctx, a.ProfessionalID); err != nil {
		return nil, apperr.Internal(fmt.Errorf("load professional %s: %w", a.ProfessionalID, err), "load professional")
	}
	return detail, nil
}

// List returns appointments matching filter, paged with a default of 10
// and a cap of 100.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Appointment, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if filter.State != nil {
		if _, ok := ParseState(string(*filter.State)); !ok {
			return nil, apperr.Validation("unknown appointment state %q", *filter.State)
		}
	}

	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, apperr.Internal(err, "list appointments")
	}
	return items, nil
}

func staleAppointment(id uuid.UUID) error {
	return apperr.Conflict("appointment %s was modified by another request, reload and retry", id)
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id, false)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, apperr.NotFound("appointment not found")
		}
		return nil, apperr.Internal(err, "load appointment")
	}
	return a, nil
}

// withSlotLock runs fn under the slot lock. When redis cannot be reached the
// unique index is the only guard left, so fn runs anyway.
func (s *Service) withSlotLock(ctx context.Context, key redisclient.SlotKey, fn func(context.Context) error) error {
	if s.locker == nil {
		return fn(ctx)
	}

	ran := false
	err := s.locker.WithSlotLock(ctx, key, func(lockCtx context.Context) error {
		ran = true
		return fn(lockCtx)
	})
	switch {
	case ran:
		return err
	case errors.Is(err, redisclient.ErrLockNotAcquired):
		return apperr.Conflict("slot %s at %s is being booked, please retry", key.Date, key.Time)
	case errors.Is(err, redisclient.ErrLockUnavailable):
		s.logger.Warn().Err(err).Str("slot", key.String()).Msg("slot lock unavailable, relying on storage constraint")
		return fn(ctx)
	default:
		return apperr.Internal(err, "acquire slot lock")
	}
}

func (s *Service) notifyConfirmed(ctx context.Context, a Appointment) {
	p, err := s.patients.GetByID(ctx, a.PatientID)
	if err != nil {
		s.logger.Warn().Err(err).Str("appointment_id", a.ID.String()).Msg("confirmation not sent: patient lookup failed")
		return
	}
	pro, err := s.professionals.GetByID(ctx, a.ProfessionalID)
	if err != nil {
		s.logger.Warn().Err(err).Str("appointment_id", a.ID.String()).Msg("professional lookup failed, confirming without name")
		pro = nil
	}
	s.notify(notify.EventAppointmentConfirmed, a, p, pro)
}

func (s *Service) notify(kind notify.EventType, a Appointment, p *patient.Patient, pro *professional.Professional) {
	if s.notifier == nil || p == nil {
		return
	}

	ev := notify.Event{
		Type:          kind,
		AppointmentID: a.ID,
		PatientName:   p.FullName(),
		Date:          schedule.FormatDate(a.Date),
		Time:          a.Time.String(),
	}
	if p.Email != nil {
		ev.PatientEmail = *p.Email
	}
	if pro != nil {
		ev.ProfessionalName = pro.FullName()
	}
	s.notifier.Emit(ev)
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn().Err(err).Str("event_type", eventType).Msg("failed to marshal event payload")
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     time.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.logger.Warn().Err(err).
			Str("event_type", eventType).
			Str("appointment_id", appointmentID.String()).
			Msg("failed to insert event log")
	}
}
