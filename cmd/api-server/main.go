package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/api"
	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/db"
	"github.com/hackgods/clinic-scheduling/internal/logging"
	"github.com/hackgods/clinic-scheduling/internal/notify"
	"github.com/hackgods/clinic-scheduling/internal/patient"
	"github.com/hackgods/clinic-scheduling/internal/professional"
	redisclient "github.com/hackgods/clinic-scheduling/internal/redis"
	"github.com/hackgods/clinic-scheduling/internal/schedule"
)

const version = "1.0.0"

func main() {
	cfg, err := config.LoadAPI()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("config load error")
	}

	logger := logging.New(cfg.Env, "api-server")
	logger.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.PoolOptions{})
	cancelPg()
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	logger.Info().Msg("connected to Postgres")

	if cfg.MigrateOnStart {
		if err := db.NewMigrator(pgPool, logger).Up(rootCtx); err != nil {
			logger.Fatal().Err(err).Msg("migrations failed")
		}
	}

	rdb, err := redisclient.NewRedisClient(rootCtx, redisclient.Options{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Warn().Err(err).Msg("error closing redis")
		}
	}()
	logger.Info().Msg("connected to Redis")

	var publisher notify.Publisher = notify.NewLogPublisher(logger)
	if cfg.AMQPURL != "" {
		conn, err := notify.Dial(cfg.AMQPURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("rabbitmq connection error")
		}
		defer conn.Close()

		amqpPub, err := notify.NewAMQPPublisher(conn, cfg.NotifyQueue)
		if err != nil {
			logger.Fatal().Err(err).Msg("rabbitmq publisher error")
		}
		defer amqpPub.Close()
		publisher = amqpPub
		logger.Info().Str("queue", cfg.NotifyQueue).Msg("connected to RabbitMQ")
	}
	dispatcher := notify.NewDispatcher(publisher, logger)

	windows := schedule.NewPgWindowStore(pgPool)
	professionals := professional.NewPgStore(pgPool)

	apptSvc := appointment.NewService(appointment.Deps{
		Repo:          appointment.NewPgRepository(pgPool),
		Windows:       windows,
		Professionals: professionals,
		Patients:      patient.NewPgStore(pgPool),
		Locker:        redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL),
		Notifier:      dispatcher,
		Policy: appointment.Policy{
			HorizonWeeks: cfg.HorizonWeeks,
			HorizonDays:  cfg.HorizonDays,
			Location:     cfg.ClinicLocation,
		},
		Logger: logger,
	})
	windowSvc := schedule.NewService(windows, professionals, logger)

	health := api.NewHealthHandler(
		pgPool.Ping,
		func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		cfg.Env, version,
	)

	srv := &http.Server{
		Addr: ":" + cfg.HTTPPort,
		Handler: api.NewRouter(api.RouterConfig{
			Appointments:   apptSvc,
			Windows:        windowSvc,
			Health:         health,
			Logger:         logger,
			JWTSecret:      []byte(cfg.JWTSecret),
			AllowedOrigins: cfg.CORSAllowedOrigins,
			RateLimitRPS:   cfg.RateLimitRPS,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
			stop()
		}
	}()

	<-rootCtx.Done()
	logger.Info().Msg("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	dispatcher.Wait()
}
