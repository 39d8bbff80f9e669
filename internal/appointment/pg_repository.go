package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/clinic-scheduling/internal/db"
	"github.com/hackgods/clinic-scheduling/internal/schedule"
)

const uqActiveSlot = "uq_appointments_active_slot"

type PgRepository struct {
	pool    *pgxpool.Pool
	dialect goqu.DialectWrapper
}

// NewPgRepository creates a new Postgres-backed appointment repository
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool, dialect: goqu.Dialect("postgres")}
}

const appointmentColumns = `id, professional_id, patient_id, appt_date, appt_time::text, state, created_at, updated_at, deleted_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		a  Appointment
		at string
	)

	err := row.Scan(
		&a.ID,
		&a.ProfessionalID,
		&a.PatientID,
		&a.Date,
		&at,
		&a.State,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	if a.Time, err = schedule.ParseClock(at); err != nil {
		return nil, fmt.Errorf("appointment %s time: %w", a.ID, err)
	}
	a.Date = schedule.CivilDate(a.Date)
	return &a, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func stateStrings(states []State) []string {
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = string(s)
	}
	return out
}

func (r *PgRepository) FindConflicting(ctx context.Context, professionalID uuid.UUID, date time.Time, at schedule.Clock, excludeID *uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE professional_id = $1
		  AND appt_date = $2::date
		  AND appt_time = $3::time
		  AND state = ANY($4)
		  AND deleted_at IS NULL
		  AND ($5::uuid IS NULL OR id <> $5::uuid)
		LIMIT 1
	`, professionalID, schedule.FormatDate(date), at.String(), stateStrings(OccupiedStates), excludeID)
	return scanAppointment(row)
}

func (r *PgRepository) FindByProfessionalAndDate(ctx context.Context, professionalID uuid.UUID, date time.Time, states []State) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE professional_id = $1
		  AND appt_date = $2::date
		  AND state = ANY($3)
		  AND deleted_at IS NULL
		ORDER BY appt_time
	`, professionalID, schedule.FormatDate(date), stateStrings(states))
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
		  AND ($2::boolean OR deleted_at IS NULL)
	`, id, includeDeleted)
	return scanAppointment(row)
}

// List applies the filter with goqu; results are newest slot first.
func (r *PgRepository) List(ctx context.Context, filter ListFilter) ([]Appointment, error) {
	ds := r.dialect.From("appointments").
		Select(
			"id", "professional_id", "patient_id", "appt_date", goqu.L("appt_time::text"),
			"state", "created_at", "updated_at", "deleted_at",
		)

	if !filter.IncludeDeleted {
		ds = ds.Where(goqu.C("deleted_at").IsNull())
	}
	if filter.Date != nil {
		ds = ds.Where(goqu.L("appt_date = ?::date", schedule.FormatDate(*filter.Date)))
	}
	if filter.ProfessionalID != nil {
		ds = ds.Where(goqu.Ex{"professional_id": *filter.ProfessionalID})
	}
	if filter.PatientID != nil {
		ds = ds.Where(goqu.Ex{"patient_id": *filter.PatientID})
	}
	if filter.State != nil {
		ds = ds.Where(goqu.Ex{"state": string(*filter.State)})
	}

	ds = ds.Order(goqu.I("appt_date").Desc(), goqu.I("appt_time").Desc())

	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}

	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

// Insert stores a new appointment. The partial unique index on occupied
// slots surfaces as ErrSlotTaken.
func (r *PgRepository) Insert(ctx context.Context, a Appointment) (*Appointment, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, professional_id, patient_id, appt_date, appt_time, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4::date, $5::time, $6, now(), now())
		RETURNING `+appointmentColumns,
		a.ID, a.ProfessionalID, a.PatientID, schedule.FormatDate(a.Date), a.Time.String(), a.State)

	created, err := scanAppointment(row)
	if err != nil {
		if db.IsUniqueViolation(err, uqActiveSlot) {
			return nil, ErrSlotTaken
		}
		return nil, err
	}
	return created, nil
}

// Update is a compare-and-set on (state, date, time) so that a change
// committed between the caller's read and this write is never overwritten.
func (r *PgRepository) Update(ctx context.Context, prev, next Appointment) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET appt_date = $2::date,
		    appt_time = $3::time,
		    state = $4,
		    updated_at = now()
		WHERE id = $1
		  AND deleted_at IS NULL
		  AND state = $5
		  AND appt_date = $6::date
		  AND appt_time = $7::time
		RETURNING `+appointmentColumns,
		next.ID, schedule.FormatDate(next.Date), next.Time.String(), next.State,
		prev.State, schedule.FormatDate(prev.Date), prev.Time.String())

	updated, err := scanAppointment(row)
	switch {
	case err == nil:
		return updated, nil
	case db.IsUniqueViolation(err, uqActiveSlot):
		return nil, ErrSlotTaken
	case errors.Is(err, ErrAppointmentNotFound):
		if _, getErr := r.GetByID(ctx, next.ID, false); getErr == nil {
			return nil, ErrStaleAppointment
		}
		return nil, ErrAppointmentNotFound
	}
	return nil, err
}

func (r *PgRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET deleted_at = now(),
		    updated_at = now()
		WHERE id = $1
		  AND deleted_at IS NULL
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
