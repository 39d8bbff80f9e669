package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/schedule"
)

type WindowService interface {
	CreateWindow(ctx context.Context, in schedule.WindowInput) (*schedule.Window, error)
	UpdateWindow(ctx context.Context, id uuid.UUID, in schedule.WindowInput) (*schedule.Window, error)
	DeleteWindow(ctx context.Context, id uuid.UUID) error
	ListWindows(ctx context.Context, professionalID uuid.UUID) ([]schedule.Window, error)
}

func (req WindowRequest) toInput(professionalID uuid.UUID) schedule.WindowInput {
	return schedule.WindowInput{
		ProfessionalID: professionalID,
		Weekday:        req.Weekday,
		Start:          req.StartTime,
		End:            req.EndTime,
		SlotMinutes:    req.SlotMinutes,
	}
}

func listWindowsHandler(svc WindowService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		proID, err := pathUUID(r, "id")
		if err != nil {
			writeAppError(w, r, err)
			return
		}

		windows, err := svc.ListWindows(r.Context(), proID)
		if err != nil {
			writeAppError(w, r, err)
			return
		}

		resp := make([]WindowResponse, 0, len(windows))
		for _, win := range windows {
			resp = append(resp, toWindowResponse(win))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func createWindowHandler(svc WindowService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req WindowRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeAppError(w, r, err)
			return
		}
		if req.ProfessionalID == "" {
			writeAppError(w, r, apperr.Validation("professional_id is required"))
			return
		}

		win, err := svc.CreateWindow(r.Context(), req.toInput(uuid.MustParse(req.ProfessionalID)))
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, toWindowResponse(*win))
	}
}

func updateWindowHandler(svc WindowService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "id")
		if err != nil {
			writeAppError(w, r, err)
			return
		}

		var req WindowRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeAppError(w, r, err)
			return
		}

		win, err := svc.UpdateWindow(r.Context(), id, req.toInput(uuid.Nil))
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toWindowResponse(*win))
	}
}

func deleteWindowHandler(svc WindowService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "id")
		if err != nil {
			writeAppError(w, r, err)
			return
		}

		if err := svc.DeleteWindow(r.Context(), id); err != nil {
			writeAppError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
