package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/logging"
	"github.com/hackgods/clinic-scheduling/internal/notify"
)

const prefetch = 10

func main() {
	cfg, err := config.LoadWorker()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("config load error")
	}

	logger := logging.New(cfg.Env, "notification-worker")
	logger.Info().Str("queue", cfg.NotifyQueue).Str("smtp_host", cfg.SMTPHost).Msg("notification-worker starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := notify.Dial(cfg.AMQPURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("rabbitmq connection error")
	}
	defer conn.Close()

	consumer, err := notify.NewConsumer(conn, cfg.NotifyQueue, prefetch, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("rabbitmq consumer error")
	}
	defer consumer.Close()

	mailer, err := notify.NewMailer(notify.NewSMTPSender(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	}), cfg.ClinicName, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("mailer setup error")
	}

	if err := consumer.Run(rootCtx, mailer.Handle); err != nil {
		logger.Fatal().Err(err).Msg("consumer stopped")
	}
	logger.Info().Msg("shutdown signal received, stopping notification worker")
}
