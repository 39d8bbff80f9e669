package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/schedule"
)

type AppointmentService interface {
	AvailableSlots(ctx context.Context, professionalID uuid.UUID, date string) (*appointment.Availability, error)
	Create(ctx context.Context, in appointment.CreateInput) (*appointment.Appointment, error)
	Update(ctx context.Context, id uuid.UUID, in appointment.UpdateInput) (*appointment.Appointment, error)
	Cancel(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*appointment.AppointmentDetail, error)
	List(ctx context.Context, filter appointment.ListFilter) ([]appointment.Appointment, error)
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, apperr.Validation("%s must be a valid UUID", name)
	}
	return id, nil
}

func availabilityHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		proID, err := pathUUID(r, "id")
		if err != nil {
			writeAppError(w, r, err)
			return
		}

		date := r.URL.Query().Get("date")
		if date == "" {
			writeAppError(w, r, apperr.Validation("date query parameter is required"))
			return
		}

		av, err := svc.AvailableSlots(r.Context(), proID, date)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toAvailabilityResponse(*av))
	}
}

func createAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeAppError(w, r, err)
			return
		}

		appt, err := svc.Create(r.Context(), appointment.CreateInput{
			ProfessionalID: uuid.MustParse(req.ProfessionalID),
			Date:           req.Date,
			Time:           req.Time,
			Patient:        req.Patient.toPatient(),
		})
		if err != nil {
			writeAppError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(*appt))
	}
}

func listAppointmentsHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := parseListFilter(r)
		if err != nil {
			writeAppError(w, r, err)
			return
		}

		items, err := svc.List(r.Context(), filter)
		if err != nil {
			writeAppError(w, r, err)
			return
		}

		resp := AppointmentListResponse{Items: make([]AppointmentResponse, 0, len(items)), Offset: filter.Offset, Limit: filter.Limit}
		for _, a := range items {
			resp.Items = append(resp.Items, toAppointmentResponse(a))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func parseListFilter(r *http.Request) (appointment.ListFilter, error) {
	q := r.URL.Query()
	var f appointment.ListFilter

	if v := q.Get("date"); v != "" {
		d, err := schedule.ParseDate(v)
		if err != nil {
			return f, apperr.Validation("%v", err)
		}
		f.Date = &d
	}
	for name, dst := range map[string]**uuid.UUID{"professional_id": &f.ProfessionalID, "patient_id": &f.PatientID} {
		if v := q.Get(name); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				return f, apperr.Validation("%s must be a valid UUID", name)
			}
			*dst = &id
		}
	}
	if v := q.Get("state"); v != "" {
		st := appointment.State(v)
		f.State = &st
	}
	if v := q.Get("include_deleted"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, apperr.Validation("include_deleted must be a boolean")
		}
		f.IncludeDeleted = b
	}

	var err error
	if f.Offset, err = intParam(q.Get("offset"), "offset"); err != nil {
		return f, err
	}
	if f.Limit, err = intParam(q.Get("limit"), "limit"); err != nil {
		return f, err
	}
	if f.Limit <= 0 {
		f.Limit = 10
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	return f, nil
}

func intParam(v, name string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, apperr.Validation("%s must be a non-negative integer", name)
	}
	return n, nil
}

func getAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "id")
		if err != nil {
			writeAppError(w, r, err)
			return
		}

		detail, err := svc.Get(r.Context(), id)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toDetailResponse(*detail))
	}
}

func updateAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "id")
		if err != nil {
			writeAppError(w, r, err)
			return
		}

		var req UpdateAppointmentRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeAppError(w, r, err)
			return
		}
		if req.Date == nil && req.Time == nil && req.State == nil {
			writeAppError(w, r, apperr.Validation("nothing to update"))
			return
		}

		appt, err := svc.Update(r.Context(), id, appointment.UpdateInput{Date: req.Date, Time: req.Time, State: req.State})
		if err != nil {
			writeAppError(w, r, err)
			return
		}

		staffAction(r, "appointment updated", id)
		writeJSON(w, http.StatusOK, toAppointmentResponse(*appt))
	}
}

func cancelAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "id")
		if err != nil {
			writeAppError(w, r, err)
			return
		}

		appt, err := svc.Cancel(r.Context(), id)
		if err != nil {
			writeAppError(w, r, err)
			return
		}

		staffAction(r, "appointment cancelled", id)
		writeJSON(w, http.StatusOK, toAppointmentResponse(*appt))
	}
}

func deleteAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "id")
		if err != nil {
			writeAppError(w, r, err)
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			writeAppError(w, r, err)
			return
		}

		staffAction(r, "appointment deleted", id)
		w.WriteHeader(http.StatusNoContent)
	}
}

func staffAction(r *http.Request, msg string, id uuid.UUID) {
	zerolog.Ctx(r.Context()).Info().
		Str("staff", StaffSubject(r.Context())).
		Str("appointment_id", id.String()).
		Msg(msg)
}
