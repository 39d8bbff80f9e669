package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/patient"
	"github.com/hackgods/clinic-scheduling/internal/schedule"
)

type PatientRequest struct {
	FirstName           string     `json:"first_name" validate:"required,max=100"`
	LastName            string     `json:"last_name" validate:"required,max=100"`
	Phone               *string    `json:"phone,omitempty" validate:"omitempty,max=40"`
	Email               *string    `json:"email,omitempty" validate:"omitempty,email,max=150"`
	DocumentType        string     `json:"document_type" validate:"required,oneof=LE LC DNI"`
	BiologicalSex       string     `json:"biological_sex" validate:"required,oneof=Masculino Femenino"`
	Document            string     `json:"document" validate:"required,max=30"`
	AffiliateNumber     *string    `json:"affiliate_number,omitempty" validate:"omitempty,max=60"`
	InsuranceProviderID *uuid.UUID `json:"insurance_provider_id,omitempty"`
}

func (p PatientRequest) toPatient() patient.Patient {
	return patient.Patient{
		FirstName:           p.FirstName,
		LastName:            p.LastName,
		Phone:               p.Phone,
		Email:               p.Email,
		DocumentType:        patient.DocumentType(p.DocumentType),
		BiologicalSex:       p.BiologicalSex,
		Document:            p.Document,
		AffiliateNumber:     p.AffiliateNumber,
		InsuranceProviderID: p.InsuranceProviderID,
	}
}

type CreateAppointmentRequest struct {
	ProfessionalID string         `json:"professional_id" validate:"required,uuid"`
	Date           string         `json:"date" validate:"required"`
	Time           string         `json:"time" validate:"required"`
	Patient        PatientRequest `json:"patient"`
}

type UpdateAppointmentRequest struct {
	Date  *string `json:"date,omitempty"`
	Time  *string `json:"time,omitempty"`
	State *string `json:"state,omitempty"`
}

type AppointmentResponse struct {
	ID             uuid.UUID  `json:"id"`
	ProfessionalID uuid.UUID  `json:"professional_id"`
	PatientID      uuid.UUID  `json:"patient_id"`
	Date           string     `json:"date"`
	Time           string     `json:"time"`
	State          string     `json:"state"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty"`
}

func toAppointmentResponse(a appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:             a.ID,
		ProfessionalID: a.ProfessionalID,
		PatientID:      a.PatientID,
		Date:           schedule.FormatDate(a.Date),
		Time:           a.Time.String(),
		State:          string(a.State),
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
		DeletedAt:      a.DeletedAt,
	}
}

type AppointmentDetailResponse struct {
	AppointmentResponse
	PatientName      string  `json:"patient_name"`
	PatientDocument  string  `json:"patient_document"`
	PatientEmail     *string `json:"patient_email,omitempty"`
	ProfessionalName string  `json:"professional_name"`
}

func toDetailResponse(d appointment.AppointmentDetail) AppointmentDetailResponse {
	resp := AppointmentDetailResponse{AppointmentResponse: toAppointmentResponse(d.Appointment)}
	if d.Patient != nil {
		resp.PatientName = d.Patient.FullName()
		resp.PatientDocument = d.Patient.Document
		resp.PatientEmail = d.Patient.Email
	}
	if d.Professional != nil {
		resp.ProfessionalName = d.Professional.FullName()
	}
	return resp
}

type AppointmentListResponse struct {
	Items  []AppointmentResponse `json:"items"`
	Offset int                   `json:"offset"`
	Limit  int                   `json:"limit"`
}

type AvailabilityResponse struct {
	ProfessionalID uuid.UUID `json:"professional_id"`
	Date           string    `json:"date"`
	Weekday        string    `json:"weekday"`
	SlotMinutes    int       `json:"slot_minutes"`
	Slots          []string  `json:"slots"`
}

func toAvailabilityResponse(av appointment.Availability) AvailabilityResponse {
	slots := make([]string, len(av.Slots))
	for i, s := range av.Slots {
		slots[i] = s.String()
	}
	return AvailabilityResponse{
		ProfessionalID: av.ProfessionalID,
		Date:           schedule.FormatDate(av.Date),
		Weekday:        av.Weekday.String(),
		SlotMinutes:    av.SlotMinutes,
		Slots:          slots,
	}
}

type WindowRequest struct {
	ProfessionalID string `json:"professional_id,omitempty" validate:"omitempty,uuid"`
	Weekday        string `json:"weekday" validate:"required"`
	StartTime      string `json:"start_time" validate:"required"`
	EndTime        string `json:"end_time" validate:"required"`
	SlotMinutes    int    `json:"slot_minutes"`
}

type WindowResponse struct {
	ID             uuid.UUID `json:"id"`
	ProfessionalID uuid.UUID `json:"professional_id"`
	Weekday        string    `json:"weekday"`
	StartTime      string    `json:"start_time"`
	EndTime        string    `json:"end_time"`
	SlotMinutes    int       `json:"slot_minutes"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toWindowResponse(w schedule.Window) WindowResponse {
	return WindowResponse{
		ID:             w.ID,
		ProfessionalID: w.ProfessionalID,
		Weekday:        w.Weekday.String(),
		StartTime:      w.Start.String(),
		EndTime:        w.End.String(),
		SlotMinutes:    w.SlotMinutes,
		CreatedAt:      w.CreatedAt,
		UpdatedAt:      w.UpdatedAt,
	}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
