package schedule

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/clinic-scheduling/internal/db"
)

const uqLiveWeekday = "uq_attention_windows_live_weekday"

type PgWindowStore struct {
	pool *pgxpool.Pool
}

// NewPgWindowStore creates a Postgres-backed window store.
func NewPgWindowStore(pool *pgxpool.Pool) *PgWindowStore {
	return &PgWindowStore{pool: pool}
}

const windowColumns = `id, professional_id, weekday, start_time::text, end_time::text, slot_minutes, created_at, updated_at, deleted_at`

func scanWindow(row pgx.Row) (*Window, error) {
	var (
		w          Window
		start, end string
	)

	err := row.Scan(
		&w.ID,
		&w.ProfessionalID,
		&w.Weekday,
		&start,
		&end,
		&w.SlotMinutes,
		&w.CreatedAt,
		&w.UpdatedAt,
		&w.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWindowNotFound
		}
		return nil, err
	}

	if w.Start, err = ParseClock(start); err != nil {
		return nil, fmt.Errorf("window %s start: %w", w.ID, err)
	}
	if w.End, err = ParseClock(end); err != nil {
		return nil, fmt.Errorf("window %s end: %w", w.ID, err)
	}
	return &w, nil
}

// GetForWeekday returns the live window for the weekday. With includeDeleted
// the most recently updated row wins.
func (s *PgWindowStore) GetForWeekday(ctx context.Context, professionalID uuid.UUID, weekday Weekday, includeDeleted bool) (*Window, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+windowColumns+`
		FROM attention_windows
		WHERE professional_id = $1
		  AND weekday = $2
		  AND ($3::boolean OR deleted_at IS NULL)
		ORDER BY deleted_at NULLS FIRST, updated_at DESC
		LIMIT 1
	`, professionalID, weekday, includeDeleted)
	return scanWindow(row)
}

func (s *PgWindowStore) GetByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (*Window, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+windowColumns+`
		FROM attention_windows
		WHERE id = $1
		  AND ($2::boolean OR deleted_at IS NULL)
	`, id, includeDeleted)
	return scanWindow(row)
}

func (s *PgWindowStore) ListByProfessional(ctx context.Context, professionalID uuid.UUID, includeDeleted bool) ([]Window, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+windowColumns+`
		FROM attention_windows
		WHERE professional_id = $1
		  AND ($2::boolean OR deleted_at IS NULL)
		ORDER BY array_position(ARRAY['Lunes','Martes','Miércoles','Jueves','Viernes','Sábado']::text[], weekday::text), start_time
	`, professionalID, includeDeleted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Window
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *w)
	}
	return result, rows.Err()
}

// Create inserts w. A live window on the same weekday yields ErrWindowExists.
func (s *PgWindowStore) Create(ctx context.Context, w Window) (*Window, error) {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO attention_windows (id, professional_id, weekday, start_time, end_time, slot_minutes, created_at, updated_at)
		VALUES ($1, $2, $3, $4::time, $5::time, $6, now(), now())
		RETURNING `+windowColumns,
		w.ID, w.ProfessionalID, w.Weekday, w.Start.String(), w.End.String(), w.SlotMinutes)

	created, err := scanWindow(row)
	if err != nil {
		if db.IsUniqueViolation(err, uqLiveWeekday) {
			return nil, ErrWindowExists
		}
		return nil, err
	}
	return created, nil
}

func (s *PgWindowStore) Update(ctx context.Context, w Window) (*Window, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE attention_windows
		SET weekday = $2,
		    start_time = $3::time,
		    end_time = $4::time,
		    slot_minutes = $5,
		    updated_at = now()
		WHERE id = $1
		  AND deleted_at IS NULL
		RETURNING `+windowColumns,
		w.ID, w.Weekday, w.Start.String(), w.End.String(), w.SlotMinutes)

	updated, err := scanWindow(row)
	if err != nil {
		if db.IsUniqueViolation(err, uqLiveWeekday) {
			return nil, ErrWindowExists
		}
		return nil, err
	}
	return updated, nil
}

// SoftDelete stamps deleted_at on a live window.
func (s *PgWindowStore) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE attention_windows
		SET deleted_at = now(),
		    updated_at = now()
		WHERE id = $1
		  AND deleted_at IS NULL
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrWindowNotFound
	}
	return nil
}
