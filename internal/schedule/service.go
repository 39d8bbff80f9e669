package schedule

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/professional"
)

// Service administers attention windows.
type Service struct {
	windows       WindowStore
	professionals professional.Store
	logger        zerolog.Logger
}

// NewService creates the attention window service.
func NewService(windows WindowStore, professionals professional.Store, logger zerolog.Logger) *Service {
	return &Service{
		windows:       windows,
		professionals: professionals,
		logger:        logger.With().Str("component", "schedule").Logger(),
	}
}

type WindowInput struct {
	ProfessionalID uuid.UUID
	Weekday        string
	Start          string
	End            string
	SlotMinutes    int
}

func (in WindowInput) toWindow() (Window, error) {
	weekday, err := ParseWeekday(in.Weekday)
	if err != nil {
		return Window{}, apperr.Validation("%v", err)
	}
	start, err := ParseClock(in.Start)
	if err != nil {
		return Window{}, apperr.Validation("%v", err)
	}
	end, err := ParseClock(in.End)
	if err != nil {
		return Window{}, apperr.Validation("%v", err)
	}
	return NewWindow(in.ProfessionalID, weekday, start, end, in.SlotMinutes)
}

// CreateWindow validates and stores a window for an existing professional.
func (s *Service) CreateWindow(ctx context.Context, in WindowInput) (*Window, error) {
	w, err := in.toWindow()
	if err != nil {
		return nil, err
	}

	if err := s.ensureProfessional(ctx, w.ProfessionalID); err != nil {
		return nil, err
	}

	created, err := s.windows.Create(ctx, w)
	if err != nil {
		if errors.Is(err, ErrWindowExists) {
			return nil, apperr.Conflict("professional already has a window on %s", w.Weekday)
		}
		return nil, apperr.Internal(err, "create attention window")
	}

	s.logger.Info().
		Str("window_id", created.ID.String()).
		Str("professional_id", created.ProfessionalID.String()).
		Str("weekday", created.Weekday.String()).
		Msg("attention window created")
	return created, nil
}

// UpdateWindow replaces weekday, bounds and slot length of a live window.
// The owning professional cannot change.
func (s *Service) UpdateWindow(ctx context.Context, id uuid.UUID, in WindowInput) (*Window, error) {
	current, err := s.GetWindow(ctx, id)
	if err != nil {
		return nil, err
	}

	in.ProfessionalID = current.ProfessionalID
	w, err := in.toWindow()
	if err != nil {
		return nil, err
	}
	w.ID = id

	updated, err := s.windows.Update(ctx, w)
	if err != nil {
		switch {
		case errors.Is(err, ErrWindowExists):
			return nil, apperr.Conflict("professional already has a window on %s", w.Weekday)
		case errors.Is(err, ErrWindowNotFound):
			return nil, apperr.NotFound("attention window not found")
		}
		return nil, apperr.Internal(err, "update attention window")
	}
	return updated, nil
}

// DeleteWindow soft deletes a live window.
func (s *Service) DeleteWindow(ctx context.Context, id uuid.UUID) error {
	if err := s.windows.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, ErrWindowNotFound) {
			return apperr.NotFound("attention window not found")
		}
		return apperr.Internal(err, "delete attention window")
	}
	return nil
}

func (s *Service) GetWindow(ctx context.Context, id uuid.UUID) (*Window, error) {
	w, err := s.windows.GetByID(ctx, id, false)
	if err != nil {
		if errors.Is(err, ErrWindowNotFound) {
			return nil, apperr.NotFound("attention window not found")
		}
		return nil, apperr.Internal(err, "load attention window")
	}
	return w, nil
}

// ListWindows returns the live windows of a professional.
func (s *Service) ListWindows(ctx context.Context, professionalID uuid.UUID) ([]Window, error) {
	if err := s.ensureProfessional(ctx, professionalID); err != nil {
		return nil, err
	}
	windows, err := s.windows.ListByProfessional(ctx, professionalID, false)
	if err != nil {
		return nil, apperr.Internal(err, "list attention windows")
	}
	return windows, nil
}

func (s *Service) ensureProfessional(ctx context.Context, id uuid.UUID) error {
	if _, err := s.professionals.GetByID(ctx, id); err != nil {
		if errors.Is(err, professional.ErrProfessionalNotFound) {
			return apperr.NotFound("professional not found")
		}
		return apperr.Internal(fmt.Errorf("load professional %s: %w", id, err), "load professional")
	}
	return nil
}
