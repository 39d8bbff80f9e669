package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/api"
	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/db"
	"github.com/hackgods/clinic-scheduling/internal/logging"
	"github.com/hackgods/clinic-scheduling/internal/schedule"
)

type SimConfig struct {
	APIBaseURL      string
	Duration        time.Duration
	Workers         int
	BookingRatio    float64
	ContentionRatio float64
	StaffRatio      float64
	ContentionWidth int
	HorizonDays     int
	PatientLimit    int
	PostgresDSN     string
	JWTSecret       string
	Location        *time.Location
}

type DataPool struct {
	Professionals []uuid.UUID
	Patients      []api.PatientRequest

	mu           sync.RWMutex
	appointments []uuid.UUID
}

func (dp *DataPool) AddAppointment(id uuid.UUID) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, id)
}

func (dp *DataPool) RandomAppointment(rng *rand.Rand) (uuid.UUID, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.appointments) == 0 {
		return uuid.Nil, false
	}
	return dp.appointments[rng.Intn(len(dp.appointments))], true
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	mu        sync.Mutex
	latencies []time.Duration
}

func (om *OperationMetrics) Record(latency time.Duration, status int) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case status >= 200 && status < 300:
		atomic.AddInt64(&om.Success, 1)
	case status == http.StatusConflict:
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.latencies = append(om.latencies, latency)
	om.mu.Unlock()
}

type LatencyStats struct {
	Avg, Min, Max, P50, P95 time.Duration
}

func (om *OperationMetrics) Stats() LatencyStats {
	om.mu.Lock()
	latencies := append([]time.Duration(nil), om.latencies...)
	om.mu.Unlock()

	if len(latencies) == 0 {
		return LatencyStats{}
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	pct := func(p int) time.Duration {
		return latencies[min(len(latencies)*p/100, len(latencies)-1)]
	}
	return LatencyStats{
		Avg: sum / time.Duration(len(latencies)),
		Min: latencies[0],
		Max: latencies[len(latencies)-1],
		P50: pct(50),
		P95: pct(95),
	}
}

type Metrics struct {
	Availability OperationMetrics
	Booking      OperationMetrics
	Contention   OperationMetrics
	Confirm      OperationMetrics
	Cancel       OperationMetrics
	List         OperationMetrics

	// DoubleBookings counts contention bursts where more than one request won.
	DoubleBookings int64
	Bursts         int64
}

type Simulator struct {
	config     SimConfig
	pool       *DataPool
	client     *http.Client
	staffToken string
	logger     zerolog.Logger
	metrics    Metrics
}

func main() {
	cfg, base := loadConfig()
	logger := logging.New(base.Env, "simulate")

	if err := validateConfig(cfg); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}
	logger.Info().
		Dur("duration", cfg.Duration).
		Int("workers", cfg.Workers).
		Float64("booking", cfg.BookingRatio).
		Float64("contention", cfg.ContentionRatio).
		Float64("staff", cfg.StaffRatio).
		Msg("simulator starting")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, db.PoolOptions{MaxConns: 2})
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	dataPool, err := loadDataPool(ctx, pgPool, cfg)
	pgPool.Close()
	if err != nil {
		logger.Fatal().Err(err).Msg("load data pool")
	}
	logger.Info().Int("professionals", len(dataPool.Professionals)).Int("patients", len(dataPool.Patients)).Msg("data pool loaded")

	token, err := staffToken(cfg.JWTSecret, cfg.Duration+time.Minute)
	if err != nil {
		logger.Fatal().Err(err).Msg("sign staff token")
	}

	sim := &Simulator{
		config:     cfg,
		pool:       dataPool,
		client:     &http.Client{Timeout: 10 * time.Second},
		staffToken: token,
		logger:     logger,
	}
	sim.Run()
	sim.PrintReport(os.Stdout)
}

func loadConfig() (SimConfig, config.Config) {
	base, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("failed to load base config")
	}

	cfg := SimConfig{
		APIBaseURL:      getEnv("SIM_API_BASE_URL", "http://localhost:"+base.HTTPPort),
		Duration:        getDuration("SIM_DURATION", 30*time.Second),
		Workers:         getInt("SIM_WORKERS", 10),
		BookingRatio:    getFloat("SIM_BOOKING_RATIO", 0.5),
		ContentionRatio: getFloat("SIM_CONTENTION_RATIO", 0.2),
		StaffRatio:      getFloat("SIM_STAFF_RATIO", 0.3),
		ContentionWidth: getInt("SIM_CONTENTION_WIDTH", 8),
		HorizonDays:     getInt("SIM_HORIZON_DAYS", 14),
		PatientLimit:    getInt("SIM_PATIENT_LIMIT", 4000),
		PostgresDSN:     base.PostgresDSN,
		JWTSecret:       base.JWTSecret,
		Location:        base.ClinicLocation,
	}

	total := cfg.BookingRatio + cfg.ContentionRatio + cfg.StaffRatio
	if total > 0 {
		cfg.BookingRatio /= total
		cfg.ContentionRatio /= total
		cfg.StaffRatio /= total
	}
	return cfg, base
}

func validateConfig(cfg SimConfig) error {
	if cfg.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required (set in .env or environment)")
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	if cfg.ContentionWidth < 2 {
		return fmt.Errorf("SIM_CONTENTION_WIDTH must be >= 2")
	}
	if cfg.HorizonDays < 1 {
		return fmt.Errorf("SIM_HORIZON_DAYS must be >= 1")
	}
	return nil
}

// staffToken signs a short-lived staff JWT. An empty secret yields no token,
// matching an API running with open staff routes.
func staffToken(secret string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", nil
	}
	claims := api.StaffClaims{
		Role: "staff",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "simulator",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig) (*DataPool, error) {
	dataPool := &DataPool{}

	rows, err := pool.Query(ctx, `
		SELECT DISTINCT professional_id FROM attention_windows WHERE deleted_at IS NULL
	`)
	if err != nil {
		return nil, fmt.Errorf("load professionals: %w", err)
	}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		dataPool.Professionals = append(dataPool.Professionals, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = pool.Query(ctx, `
		SELECT first_name, last_name, email, document_type, biological_sex, document
		FROM patients LIMIT $1
	`, cfg.PatientLimit)
	if err != nil {
		return nil, fmt.Errorf("load patients: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p api.PatientRequest
		if err := rows.Scan(&p.FirstName, &p.LastName, &p.Email, &p.DocumentType, &p.BiologicalSex, &p.Document); err != nil {
			return nil, err
		}
		dataPool.Patients = append(dataPool.Patients, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(dataPool.Professionals) == 0 {
		return nil, fmt.Errorf("no professionals with attention windows")
	}
	if len(dataPool.Patients) == 0 {
		return nil, fmt.Errorf("no patients loaded")
	}
	return dataPool, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	s.logger.Info().Msg("starting simulation")

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}
	wg.Wait()

	s.logger.Info().Msg("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for ctx.Err() == nil {
		r := rng.Float64()
		switch {
		case r < s.config.BookingRatio:
			s.doBooking(ctx, rng)
		case r < s.config.BookingRatio+s.config.ContentionRatio:
			s.doContention(ctx, rng)
		default:
			switch rng.Intn(3) {
			case 0:
				s.doConfirm(ctx, rng)
			case 1:
				s.doCancel(ctx, rng)
			case 2:
				s.doList(ctx, rng)
			}
		}
	}
}

type slotPick struct {
	professionalID uuid.UUID
	date           string
	time           string
}

// pickSlot asks the availability endpoint for a random professional and day
// and returns one of the free slots, if any.
func (s *Simulator) pickSlot(ctx context.Context, rng *rand.Rand) (slotPick, bool) {
	proID := s.pool.Professionals[rng.Intn(len(s.pool.Professionals))]
	day := schedule.Today(time.Now(), s.config.Location).AddDate(0, 0, rng.Intn(s.config.HorizonDays))
	date := schedule.FormatDate(day)

	url := fmt.Sprintf("%s/professionals/%s/availability?date=%s", s.config.APIBaseURL, proID, date)
	var av api.AvailabilityResponse
	status, latency := s.call(ctx, http.MethodGet, url, nil, false, &av)
	s.metrics.Availability.Record(latency, status)

	if status != http.StatusOK || len(av.Slots) == 0 {
		return slotPick{}, false
	}
	return slotPick{professionalID: proID, date: date, time: av.Slots[rng.Intn(len(av.Slots))]}, true
}

func (s *Simulator) bookingBody(rng *rand.Rand, slot slotPick) api.CreateAppointmentRequest {
	return api.CreateAppointmentRequest{
		ProfessionalID: slot.professionalID.String(),
		Date:           slot.date,
		Time:           slot.time,
		Patient:        s.pool.Patients[rng.Intn(len(s.pool.Patients))],
	}
}

func (s *Simulator) book(ctx context.Context, body api.CreateAppointmentRequest) (int, time.Duration) {
	var created api.AppointmentResponse
	status, latency := s.call(ctx, http.MethodPost, s.config.APIBaseURL+"/appointments", body, false, &created)
	if status == http.StatusCreated && created.ID != uuid.Nil {
		s.pool.AddAppointment(created.ID)
	}
	return status, latency
}

func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand) {
	slot, ok := s.pickSlot(ctx, rng)
	if !ok {
		return
	}
	status, latency := s.book(ctx, s.bookingBody(rng, slot))
	s.metrics.Booking.Record(latency, status)
}

// doContention fires several concurrent bookings at one free slot. At most
// one of them may be accepted.
func (s *Simulator) doContention(ctx context.Context, rng *rand.Rand) {
	slot, ok := s.pickSlot(ctx, rng)
	if !ok {
		return
	}

	bodies := make([]api.CreateAppointmentRequest, s.config.ContentionWidth)
	for i := range bodies {
		bodies[i] = s.bookingBody(rng, slot)
	}

	var wins int64
	var wg sync.WaitGroup
	for _, body := range bodies {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, latency := s.book(ctx, body)
			s.metrics.Contention.Record(latency, status)
			if status == http.StatusCreated {
				atomic.AddInt64(&wins, 1)
			}
		}()
	}
	wg.Wait()

	atomic.AddInt64(&s.metrics.Bursts, 1)
	if wins > 1 {
		atomic.AddInt64(&s.metrics.DoubleBookings, 1)
		s.logger.Error().
			Str("professional_id", slot.professionalID.String()).
			Str("date", slot.date).
			Str("time", slot.time).
			Int64("accepted", wins).
			Msg("slot accepted more than one booking")
	}
}

func (s *Simulator) doConfirm(ctx context.Context, rng *rand.Rand) {
	id, ok := s.pool.RandomAppointment(rng)
	if !ok {
		return
	}
	state := "Confirmado"
	status, latency := s.call(ctx, http.MethodPut, fmt.Sprintf("%s/appointments/%s", s.config.APIBaseURL, id),
		api.UpdateAppointmentRequest{State: &state}, true, nil)
	s.metrics.Confirm.Record(latency, status)
}

func (s *Simulator) doCancel(ctx context.Context, rng *rand.Rand) {
	id, ok := s.pool.RandomAppointment(rng)
	if !ok {
		return
	}
	status, latency := s.call(ctx, http.MethodPost, fmt.Sprintf("%s/appointments/%s/cancel", s.config.APIBaseURL, id), nil, true, nil)
	s.metrics.Cancel.Record(latency, status)
}

func (s *Simulator) doList(ctx context.Context, rng *rand.Rand) {
	proID := s.pool.Professionals[rng.Intn(len(s.pool.Professionals))]
	url := fmt.Sprintf("%s/appointments?professional_id=%s&limit=20&offset=0", s.config.APIBaseURL, proID)
	status, latency := s.call(ctx, http.MethodGet, url, nil, true, nil)
	s.metrics.List.Record(latency, status)
}

// call performs one request and decodes a 2xx body into out when given.
// Transport failures report status 0.
func (s *Simulator) call(ctx context.Context, method, url string, body any, staff bool, out any) (int, time.Duration) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, 0
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, 0
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if staff && s.staffToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.staffToken)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Debug().Err(err).Str("url", url).Msg("request failed")
		}
		return 0, latency
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			s.logger.Warn().Err(err).Str("url", url).Msg("undecodable response")
		}
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}
	return resp.StatusCode, latency
}

func (s *Simulator) PrintReport(w io.Writer) {
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 80))
	fmt.Fprintln(w, "SIMULATION REPORT")
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintf(w, "Duration: %s\n", s.config.Duration)
	fmt.Fprintf(w, "Workers: %d\n\n", s.config.Workers)

	printOperationReport(w, "Availability", &s.metrics.Availability)
	printOperationReport(w, "Booking", &s.metrics.Booking)
	printOperationReport(w, "Contended booking", &s.metrics.Contention)
	printOperationReport(w, "Confirm", &s.metrics.Confirm)
	printOperationReport(w, "Cancel", &s.metrics.Cancel)
	printOperationReport(w, "List", &s.metrics.List)

	bursts := atomic.LoadInt64(&s.metrics.Bursts)
	doubles := atomic.LoadInt64(&s.metrics.DoubleBookings)
	fmt.Fprintf(w, "Contention bursts: %d, double bookings: %d\n", bursts, doubles)
}

func printOperationReport(w io.Writer, name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}
	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	failed := atomic.LoadInt64(&om.Error)
	st := om.Stats()

	fmt.Fprintf(w, "%s:\n", name)
	fmt.Fprintf(w, "  Total: %d\n", total)
	fmt.Fprintf(w, "  Success: %d (%.1f%%)\n", success, percent(success, total))
	if conflict > 0 {
		fmt.Fprintf(w, "  Conflicts: %d (%.1f%%)\n", conflict, percent(conflict, total))
	}
	if failed > 0 {
		fmt.Fprintf(w, "  Errors: %d (%.1f%%)\n", failed, percent(failed, total))
	}
	fmt.Fprintf(w, "  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n\n",
		st.Avg.Round(time.Millisecond), st.Min.Round(time.Millisecond), st.Max.Round(time.Millisecond),
		st.P50.Round(time.Millisecond), st.P95.Round(time.Millisecond))
}

func percent(n, total int64) float64 {
	return float64(n) / float64(total) * 100
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
