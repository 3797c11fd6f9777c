package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/clinicbooking/config"
	"github.com/Domenick1991/clinicbooking/internal/audit"
	"github.com/Domenick1991/clinicbooking/internal/kafka"
	"github.com/Domenick1991/clinicbooking/internal/logging"
	"github.com/Domenick1991/clinicbooking/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// The worker consumes booking lifecycle events and appends them to the audit trail.
// It exits non-zero when an event cannot be stored, leaving the offset
// uncommitted for the next run.
func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format)

	if err := run(cfg, logger); err != nil {
		logger.Error().Err(err).Msg("audit worker stopped")
		os.Exit(1)
	}
	logger.Info().Msg("audit worker stopped")
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	if len(cfg.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers is required for the worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.BookingEventsTopic, logger)
	defer consumer.Close()

	recorder := audit.NewRecorder(repository.NewAuditRepository(pool), logger)

	logger.Info().
		Str("topic", cfg.Kafka.BookingEventsTopic).
		Str("group", cfg.Kafka.GroupID).
		Msg("audit worker started")

	return consumer.Consume(ctx, recorder.Handle)
}
