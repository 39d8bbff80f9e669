package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"
)

type RouterConfig struct {
	Appointments   AppointmentService
	Windows        WindowService
	Health         *HealthHandler
	Logger         zerolog.Logger
	JWTSecret      []byte
	AllowedOrigins []string
	RateLimitRPS   int
}

// NewRouter builds the HTTP handler with public booking routes and the
// staff-only group.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(RecoverMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	if cfg.Health != nil {
		r.Get("/health/live", cfg.Health.Liveness)
		r.Get("/health/ready", cfg.Health.Readiness)
	}

	// Public booking surface.
	r.Get("/professionals/{id}/availability", availabilityHandler(cfg.Appointments))
	r.With(bookingLimiter(cfg.RateLimitRPS)).Post("/appointments", createAppointmentHandler(cfg.Appointments))

	// Staff surface.
	r.Group(func(r chi.Router) {
		if len(cfg.JWTSecret) > 0 {
			r.Use(RequireStaff(cfg.JWTSecret))
		} else {
			cfg.Logger.Warn().Msg("no JWT secret configured, staff routes are open")
			r.Use(DevStaff)
		}

		r.Get("/appointments", listAppointmentsHandler(cfg.Appointments))
		r.Get("/appointments/{id}", getAppointmentHandler(cfg.Appointments))
		r.Put("/appointments/{id}", updateAppointmentHandler(cfg.Appointments))
		r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Appointments))
		r.Delete("/appointments/{id}", deleteAppointmentHandler(cfg.Appointments))

		r.Get("/professionals/{id}/windows", listWindowsHandler(cfg.Windows))
		r.Post("/windows", createWindowHandler(cfg.Windows))
		r.Put("/windows/{id}", updateWindowHandler(cfg.Windows))
		r.Delete("/windows/{id}", deleteWindowHandler(cfg.Windows))
	})

	return r
}

func bookingLimiter(rps int) func(http.Handler) http.Handler {
	if rps <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.LimitByIP(rps, time.Second)
}
