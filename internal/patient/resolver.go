package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Resolver finds a patient by document number or registers a new one. Two
// concurrent registrations of the same document converge on one row.
type Resolver struct {
	store  Store
	logger zerolog.Logger
}

// NewResolver creates a find-or-create resolver over store.
func NewResolver(store Store, logger zerolog.Logger) *Resolver {
	return &Resolver{store: store, logger: logger}
}

// Resolve returns the patient registered under data.Document, registering
// data when there is none.
func (r *Resolver) Resolve(ctx context.Context, data Patient) (*Patient, error) {
	data.Document = strings.TrimSpace(data.Document)
	if data.Document == "" {
		return nil, errors.New("patient document is required")
	}

	existing, err := r.store.FindByDocument(ctx, data.Document)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrPatientNotFound) {
		return nil, fmt.Errorf("find patient by document: %w", err)
	}

	r.logger.Debug().Str("document_type", string(data.DocumentType)).Msg("patient not found, registering")

	created, err := r.store.Create(ctx, data)
	if err == nil {
		return created, nil
	}
	if !errors.Is(err, ErrDuplicateDocument) {
		return nil, fmt.Errorf("create patient: %w", err)
	}

	// Lost a registration race; the winner's row is the patient.
	existing, err = r.store.FindByDocument(ctx, data.Document)
	if err != nil {
		return nil, fmt.Errorf("reload patient by document: %w", err)
	}
	return existing, nil
}
