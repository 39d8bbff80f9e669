package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/db"
	"github.com/hackgods/clinic-scheduling/internal/logging"
	"github.com/hackgods/clinic-scheduling/internal/schedule"
)

var (
	professionalCount = flag.Int("professionals", 40, "number of professionals to create")
	patientCount      = flag.Int("patients", 3000, "number of patients to create")
	migrate           = flag.Bool("migrate", true, "apply migrations before seeding")
)

var insurers = []string{
	"OSDE",
	"Swiss Medical",
	"Galeno",
	"Medifé",
	"IOMA",
	"PAMI",
	"Sancor Salud",
	"Omint",
}

// shifts are the window shapes handed out to professionals.
var shifts = []struct {
	start, end string
	minutes    int
}{
	{"08:00", "12:00", 30},
	{"09:00", "13:00", 20},
	{"14:00", "18:00", 30},
	{"15:00", "19:30", 15},
}

var workdays = []schedule.Weekday{
	schedule.Lunes,
	schedule.Martes,
	schedule.Miercoles,
	schedule.Jueves,
	schedule.Viernes,
}

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("config load error")
	}
	logger := logging.New(cfg.Env, "seed")
	if cfg.PostgresDSN == "" {
		logger.Fatal().Msg("POSTGRES_DSN is required")
	}
	logger.Info().Msg("seed starting")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, db.PoolOptions{})
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	ctx = context.Background()
	if *migrate {
		if err := db.NewMigrator(pool, logger).Up(ctx); err != nil {
			logger.Fatal().Err(err).Msg("migrations failed")
		}
	}

	faker := gofakeit.New(uint64(time.Now().UnixNano()))
	s := &seeder{pool: pool, faker: faker, logger: logger}

	insurerIDs, err := s.insuranceProviders(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed insurance providers")
	}
	proIDs, err := s.professionals(ctx, *professionalCount)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed professionals")
	}
	if err := s.windows(ctx, proIDs); err != nil {
		logger.Fatal().Err(err).Msg("seed attention windows")
	}
	if err := s.patients(ctx, *patientCount, insurerIDs); err != nil {
		logger.Fatal().Err(err).Msg("seed patients")
	}

	logger.Info().Msg("seed complete")
}

type seeder struct {
	pool   *pgxpool.Pool
	faker  *gofakeit.Faker
	logger zerolog.Logger
}

func (s *seeder) insuranceProviders(ctx context.Context) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(insurers))
	for _, name := range insurers {
		var id uuid.UUID
		err := s.pool.QueryRow(ctx, `
			INSERT INTO insurance_providers (id, name)
			VALUES ($1, $2)
			ON CONFLICT (name) DO UPDATE SET updated_at = now()
			RETURNING id
		`, uuid.New(), name).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("insert insurer %q: %w", name, err)
		}
		ids = append(ids, id)
	}
	s.logger.Info().Int("count", len(ids)).Msg("insurance providers seeded")
	return ids, nil
}

func (s *seeder) professionals(ctx context.Context, count int) ([]uuid.UUID, error) {
	s.logger.Info().Int("count", count).Msg("seeding professionals")

	ids := make([]uuid.UUID, 0, count)
	batch := &pgx.Batch{}
	for i := 0; i < count; i++ {
		id := uuid.New()
		ids = append(ids, id)
		batch.Queue(`
			INSERT INTO professionals (id, first_name, last_name, email)
			VALUES ($1, $2, $3, $4)
		`, id, s.faker.FirstName(), s.faker.LastName(), fmt.Sprintf("%s.%d@clinic.test", s.faker.Username(), i))
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return nil, err
	}
	return ids, nil
}

// windows gives every professional between two and four workdays,
// each with one shift.
func (s *seeder) windows(ctx context.Context, professionals []uuid.UUID) error {
	batch := &pgx.Batch{}
	total := 0
	for _, proID := range professionals {
		days := append([]schedule.Weekday(nil), workdays...)
		s.faker.ShuffleAnySlice(days)
		n := s.faker.Number(2, 4)

		for _, day := range days[:n] {
			shift := shifts[s.faker.Number(0, len(shifts)-1)]
			w, err := schedule.NewWindow(proID, day, schedule.MustParseClock(shift.start), schedule.MustParseClock(shift.end), shift.minutes)
			if err != nil {
				return err
			}
			batch.Queue(`
				INSERT INTO attention_windows (id, professional_id, weekday, start_time, end_time, slot_minutes)
				VALUES ($1, $2, $3, $4::time, $5::time, $6)
			`, uuid.New(), w.ProfessionalID, w.Weekday.String(), w.Start.String(), w.End.String(), w.SlotMinutes)
			total++
		}
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}
	s.logger.Info().Int("count", total).Msg("attention windows seeded")
	return nil
}

func (s *seeder) patients(ctx context.Context, count int, insurerIDs []uuid.UUID) error {
	s.logger.Info().Int("count", count).Msg("seeding patients")

	const batchSize = 500
	sexes := []string{"Masculino", "Femenino"}

	for offset := 0; offset < count; offset += batchSize {
		end := min(offset+batchSize, count)

		batch := &pgx.Batch{}
		for i := offset; i < end; i++ {
			var insurer *uuid.UUID
			var affiliate *string
			if s.faker.Bool() {
				id := insurerIDs[s.faker.Number(0, len(insurerIDs)-1)]
				num := s.faker.Numerify("##########")
				insurer, affiliate = &id, &num
			}
			batch.Queue(`
				INSERT INTO patients (id, first_name, last_name, phone, email, document_type,
					biological_sex, document, affiliate_number, insurance_provider_id)
				VALUES ($1, $2, $3, $4, $5, 'DNI', $6, $7, $8, $9)
				ON CONFLICT (document) DO NOTHING
			`,
				uuid.New(),
				s.faker.FirstName(),
				s.faker.LastName(),
				s.faker.Phone(),
				s.faker.Email(),
				sexes[s.faker.Number(0, 1)],
				fmt.Sprintf("%d", 20_000_000+i),
				affiliate,
				insurer,
			)
		}
		if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
			return err
		}
		s.logger.Info().Int("done", end).Int("total", count).Msg("patients seeded")
	}
	return nil
}
