package patient

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/clinic-scheduling/internal/db"
)

type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a Postgres-backed patient store.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

const patientColumns = `id, first_name, last_name, phone, email, document_type, biological_sex, document,
	affiliate_number, insurance_provider_id, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID,
		&p.FirstName,
		&p.LastName,
		&p.Phone,
		&p.Email,
		&p.DocumentType,
		&p.BiologicalSex,
		&p.Document,
		&p.AffiliateNumber,
		&p.InsuranceProviderID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *PgStore) FindByDocument(ctx context.Context, document string) (*Patient, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+patientColumns+` FROM patients WHERE document = $1`, document)
	return scanPatient(row)
}

func (s *PgStore) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+patientColumns+` FROM patients WHERE id = $1`, id)
	return scanPatient(row)
}

// Create inserts p. A taken document yields ErrDuplicateDocument.
func (s *PgStore) Create(ctx context.Context, p Patient) (*Patient, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO patients (id, first_name, last_name, phone, email, document_type, biological_sex, document,
			affiliate_number, insurance_provider_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		RETURNING `+patientColumns,
		p.ID, p.FirstName, p.LastName, p.Phone, p.Email, p.DocumentType, p.BiologicalSex, p.Document,
		p.AffiliateNumber, p.InsuranceProviderID)

	created, err := scanPatient(row)
	if err != nil {
		if db.IsUniqueViolation(err, "uq_patients_document") {
			return nil, ErrDuplicateDocument
		}
		return nil, err
	}
	return created, nil
}
