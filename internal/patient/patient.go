package patient

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPatientNotFound   = errors.New("patient not found")
	ErrDuplicateDocument = errors.New("patient document already registered")
)

type DocumentType string

const (
	DocumentLE  DocumentType = "LE"
	DocumentLC  DocumentType = "LC"
	DocumentDNI DocumentType = "DNI"
)

type Patient struct {
	ID                  uuid.UUID
	FirstName           string
	LastName            string
	Phone               *string
	Email               *string
	DocumentType        DocumentType
	BiologicalSex       string
	Document            string
	AffiliateNumber     *string
	InsuranceProviderID *uuid.UUID
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (p Patient) FullName() string {
	return p.FirstName + " " + p.LastName
}

// Store is the patient collaborator the booking flow depends on.
type Store interface {
	FindByDocument(ctx context.Context, document string) (*Patient, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	Create(ctx context.Context, p Patient) (*Patient, error)
}
