package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/professional"
	"github.com/hackgods/clinic-scheduling/internal/schedule"
)

const defaultHorizonWeeks = 2

// Policy bounds how far ahead a booking may be placed. HorizonDays, when
// set, takes priority over HorizonWeeks.
type Policy struct {
	HorizonWeeks int
	HorizonDays  *int
	Location     *time.Location
}

func (p Policy) horizon() (days int, label string) {
	if p.HorizonDays != nil {
		return *p.HorizonDays, plural(*p.HorizonDays, "day")
	}
	weeks := p.HorizonWeeks
	if weeks <= 0 {
		weeks = defaultHorizonWeeks
	}
	return weeks * 7, plural(weeks, "week")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

type BookingRequest struct {
	ProfessionalID uuid.UUID
	Date           time.Time
	Time           schedule.Clock
	// ExcludeID is the appointment being rescheduled, if any.
	ExcludeID *uuid.UUID
}

// Validator runs the booking checks in a fixed order and reports only the
// first failure.
type Validator struct {
	windows       schedule.WindowStore
	appointments  Repository
	professionals professional.Store
	policy        Policy
	now           func() time.Time
}

// NewValidator creates a booking validator. A nil now uses time.Now.
func NewValidator(windows schedule.WindowStore, appointments Repository, professionals professional.Store, policy Policy, now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	return &Validator{
		windows:       windows,
		appointments:  appointments,
		professionals: professionals,
		policy:        policy,
		now:           now,
	}
}

// Validate runs every booking check in order and returns the first failure.
func (v *Validator) Validate(ctx context.Context, req BookingRequest) error {
	if err := v.CheckDateRange(req.Date); err != nil {
		return err
	}
	if err := v.checkProfessional(ctx, req.ProfessionalID); err != nil {
		return err
	}
	if err := v.CheckWindow(ctx, req.ProfessionalID, req.Date, req.Time); err != nil {
		return err
	}
	return v.CheckConflict(ctx, req)
}

// CheckDateRange compares calendar days only. today is accepted, as is the
// last day of the horizon.
func (v *Validator) CheckDateRange(date time.Time) error {
	today := schedule.Today(v.now(), v.policy.Location)
	day := schedule.CivilDate(date)

	if day.Before(today) {
		return apperr.Validation("cannot book appointments on past dates")
	}

	days, label := v.policy.horizon()
	if day.After(today.AddDate(0, 0, days)) {
		return apperr.Validation("appointments can only be booked up to %s in advance", label)
	}
	return nil
}

func (v *Validator) checkProfessional(ctx context.Context, id uuid.UUID) error {
	if _, err := v.professionals.GetByID(ctx, id); err != nil {
		if errors.Is(err, professional.ErrProfessionalNotFound) {
			return apperr.NotFound("professional not found")
		}
		return apperr.Internal(fmt.Errorf("load professional %s: %w", id, err), "load professional")
	}
	return nil
}

// CheckWindow requires start <= at < end. A booking exactly at the closing
// time is rejected even when it lines up with the slot grid.
func (v *Validator) CheckWindow(ctx context.Context, professionalID uuid.UUID, date time.Time, at schedule.Clock) error {
	weekday := schedule.WeekdayOf(date)

	w, err := v.windows.GetForWeekday(ctx, professionalID, weekday, false)
	if err != nil {
		if errors.Is(err, schedule.ErrWindowNotFound) {
			return apperr.Validation("professional does not attend on %s", weekday)
		}
		return apperr.Internal(fmt.Errorf("load window for %s: %w", weekday, err), "load attention window")
	}

	if !w.Contains(at) {
		return apperr.Validation("time %s is outside attention hours %s-%s on %s", at, w.Start, w.End, weekday)
	}
	return nil
}

// CheckConflict fails when another live appointment occupies the slot.
func (v *Validator) CheckConflict(ctx context.Context, req BookingRequest) error {
	_, err := v.appointments.FindConflicting(ctx, req.ProfessionalID, req.Date, req.Time, req.ExcludeID)
	switch {
	case err == nil:
		return slotTaken(req.Date, req.Time)
	case errors.Is(err, ErrAppointmentNotFound):
		return nil
	default:
		return apperr.Internal(fmt.Errorf("check conflicting appointment: %w", err), "check slot availability")
	}
}

func slotTaken(date time.Time, at schedule.Clock) error {
	return apperr.Conflict("slot %s at %s is already booked", schedule.FormatDate(date), at)
}
