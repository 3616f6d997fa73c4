package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/ulule/limiter/v3"
	memorystore "github.com/ulule/limiter/v3/drivers/store/memory"

	portssvc "github.com/ledgerline/receipt-backoffice/internal/core/ports/services"
	"github.com/ledgerline/receipt-backoffice/internal/core/services"
	"github.com/ledgerline/receipt-backoffice/internal/exporter"
	"github.com/ledgerline/receipt-backoffice/internal/handlers"
	"github.com/ledgerline/receipt-backoffice/internal/ledger"
	"github.com/ledgerline/receipt-backoffice/internal/middleware"
	"github.com/ledgerline/receipt-backoffice/internal/platform/config"
	"github.com/ledgerline/receipt-backoffice/internal/repositories/database/pgsql"
	"github.com/ledgerline/receipt-backoffice/internal/workers"
	"github.com/ledgerline/receipt-backoffice/pkg/database"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// @title Receipt Backoffice API
// @version 1.0
// @description Accounting back-office core: journal transactions, split entries, shadow-ledger sync and export retry queue.

// @host localhost:8080
// @BasePath /api/v1
func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	dbPool, err := database.NewPgxPool(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.ClosePgxPool(dbPool)
	logger.Info("Database connection pool established.")

	if err := runMigrations(cfg.DatabaseURL, logger); err != nil {
		logger.Error("Failed to apply migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Shadow-ledger client wrapped with circuit breaker and retry
	ledgerClient := ledger.NewClient(ledger.ClientConfig{
		BaseURL: cfg.Ledger.BaseURL,
		APIKey:  cfg.Ledger.APIKey,
		Timeout: cfg.Ledger.Timeout,
	})
	resilientLedger := ledger.NewResilientLedger(ledgerClient, ledger.ResilienceConfig{
		FailureThreshold: cfg.Ledger.FailureThreshold,
		CoolDown:         cfg.Ledger.CoolDown,
		MaxAttempts:      cfg.Ledger.MaxAttempts,
		RetryBaseDelay:   cfg.Ledger.RetryBaseDelay,
	}, logger)

	// External accounting exporter
	exportClient := exporter.NewClient(exporter.ClientConfig{
		EndpointURL: cfg.Export.Endpoint,
		APIKey:      cfg.Export.APIKey,
		Timeout:     cfg.Export.Timeout,
	})

	repos := pgsql.NewRepositoryProvider(dbPool)
	container := services.NewServiceContainer(cfg, repos, resilientLedger, exportClient)

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())
	r.Use(cors.Default())

	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	rate, err := limiter.NewRateFromFormatted(cfg.RateLimit)
	if err != nil {
		logger.Error("Invalid rate limit format", slog.String("error", err.Error()))
		os.Exit(1)
	}
	r.Use(middleware.RateLimit(limiter.New(memorystore.NewStore(), rate)))

	handlers.RegisterValidators()
	handlers.RegisterRoutes(r, cfg, container)

	startWorkers(cfg, container, logger)

	logger.Info("Server starting", slog.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Error("Server failed to run", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// startWorkers launches the asynq task server (document events, export
// sweeps) and the scheduler that enqueues the periodic sweep.
func startWorkers(cfg *config.Config, container *portssvc.ServiceContainer, logger *slog.Logger) {
	redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisAddr}

	worker := workers.NewWorker(container.Workflow, container.Export, logger)
	mux := asynq.NewServeMux()
	worker.RegisterHandlers(mux)

	srv := asynq.NewServer(redisOpt, asynq.Config{Concurrency: 10})
	go func() {
		if err := srv.Run(mux); err != nil {
			logger.Error("Task server stopped", slog.String("error", err.Error()))
		}
	}()

	scheduler := asynq.NewScheduler(redisOpt, nil)
	sweepTask, err := workers.NewExportSweepTask(cfg.Export.SweepBatchSize)
	if err != nil {
		logger.Error("Failed to build export sweep task", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if _, err := scheduler.Register(cfg.Export.SweepInterval, sweepTask); err != nil {
		logger.Error("Failed to register export sweep schedule", slog.String("error", err.Error()))
		os.Exit(1)
	}
	go func() {
		if err := scheduler.Run(); err != nil {
			logger.Error("Scheduler stopped", slog.String("error", err.Error()))
		}
	}()
}

// runMigrations applies all pending "up" migrations before the server starts.
func runMigrations(databaseURL string, logger *slog.Logger) error {
	logger.Info("Running database migrations...")

	migrationDB, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return err
	}
	if err := migrationDB.Ping(); err != nil {
		migrationDB.Close()
		return err
	}

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		migrationDB.Close()
		return err
	}

	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		migrationDB.Close()
		return err
	}

	upErr := m.Up()
	sourceErr, dbErr := m.Close()
	if sourceErr != nil {
		return sourceErr
	}
	if dbErr != nil {
		return dbErr
	}
	if upErr != nil && upErr != migrate.ErrNoChange {
		return upErr
	}

	if upErr == migrate.ErrNoChange {
		logger.Info("No new migrations to apply.")
	} else {
		logger.Info("Database migrations applied successfully.")
	}
	return nil
}
