package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/clinicbooking/api"
	"github.com/Domenick1991/clinicbooking/config"
	"github.com/Domenick1991/clinicbooking/internal/admission"
	"github.com/Domenick1991/clinicbooking/internal/bootstrap"
	"github.com/Domenick1991/clinicbooking/internal/cache"
	"github.com/Domenick1991/clinicbooking/internal/kafka"
	"github.com/Domenick1991/clinicbooking/internal/logging"
	"github.com/Domenick1991/clinicbooking/internal/metrics"
	"github.com/Domenick1991/clinicbooking/internal/repository"
	"github.com/Domenick1991/clinicbooking/internal/schedule"
	"github.com/Domenick1991/clinicbooking/internal/service/availability"
	"github.com/Domenick1991/clinicbooking/internal/service/booking"
	"github.com/Domenick1991/clinicbooking/migrations"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "clinicbooking",
		Short: "Clinic appointment booking API",
	}
	rootCmd.PersistentFlags().String("config", "", "path to config file (defaults to $CONFIG_PATH or config.yaml)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "config.yaml"
	}
	return config.LoadConfig(path)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}
}

func runServer(ctx context.Context, cfg *config.Config) error {
	logger := logging.New(cfg.Log.Level, cfg.Log.Format)
	loc, err := cfg.Booking.Location()
	if err != nil {
		return fmt.Errorf("load timezone: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	bookingMetrics := metrics.NewBookingMetrics(registry)

	bookingRepo := repository.NewBookingRepository(pool)
	directoryRepo := repository.NewDirectoryRepository(pool)

	var scheduleCache schedule.Cache
	if cfg.Redis.Addr != "" {
		redisCache := cache.NewRedisCache(cfg.Redis, cfg.Booking.ScheduleCacheTTL())
		defer redisCache.Close()
		if err := redisCache.Ping(ctx); err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, schedules will be read from postgres")
		}
		scheduleCache = redisCache
	}
	schedules := schedule.NewProvider(directoryRepo, scheduleCache, logger)

	guard := admission.NewGuard(bookingRepo,
		admission.WithTimeout(cfg.Booking.AdmissionTimeout()),
		admission.WithObserver(bookingMetrics),
		admission.WithLogger(logger),
	)

	bookingOpts := []booking.BookingServiceOption{
		booking.WithTransitionObserver(bookingMetrics),
		booking.WithLogger(logger),
		booking.WithLocation(loc),
		booking.WithMaxDaysAhead(cfg.Booking.MaxDaysAhead),
	}
	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.BookingEventsTopic, logger)
		defer producer.Close()
		if err := producer.CheckConnection(ctx); err != nil {
			logger.Warn().Err(err).Msg("kafka unavailable, booking events may be dropped")
		}
		bookingOpts = append(bookingOpts, booking.WithPublisher(producer))
	}

	bookingService := booking.NewBookingService(bookingRepo, directoryRepo, schedules, guard, bookingOpts...)
	availabilityService := availability.NewAvailabilityService(directoryRepo, schedules, bookingRepo,
		availability.WithLocation(loc),
		availability.WithLogger(logger),
	)

	handlers := api.Handlers{
		Bookings: api.NewBookingHandler(bookingService),
		Doctors:  api.NewDoctorHandler(availabilityService),
	}
	verifier := api.NewTokenVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)

	return bootstrap.Run(ctx, cfg, handlers, verifier, registry, logger)
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(m *migrate.Migrate) error {
				if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
					return fmt.Errorf("migrate up: %w", err)
				}
				fmt.Println("migrations complete")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the last migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(m *migrate.Migrate) error {
				if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
					return fmt.Errorf("migrate down: %w", err)
				}
				fmt.Println("rolled back one migration")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(m *migrate.Migrate) error {
				version, dirty, err := m.Version()
				if errors.Is(err, migrate.ErrNilVersion) {
					fmt.Println("no migrations applied")
					return nil
				}
				if err != nil {
					return fmt.Errorf("read version: %w", err)
				}
				fmt.Printf("version %d (dirty: %t)\n", version, dirty)
				return nil
			})
		},
	})

	return cmd
}

func withMigrator(cmd *cobra.Command, fn func(m *migrate.Migrate) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := sql.Open("pgx", cfg.Database.URL())
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping db: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("db driver: %w", err)
	}
	srcDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("source driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", srcDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	return fn(m)
}
