package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"payment_batch_service/internal/app"
	"payment_batch_service/internal/domain/alert"
	"payment_batch_service/internal/domain/payment"
	"payment_batch_service/internal/infra/config"
	idb "payment_batch_service/internal/infra/database"
	"payment_batch_service/internal/infra/filesink"
	"payment_batch_service/internal/infra/logger"
	"payment_batch_service/internal/infra/metrics"
	"payment_batch_service/internal/infra/telegram"

	"github.com/prometheus/client_golang/prometheus"
)

// application holds the wired services shared by all commands.
type application struct {
	cfg      *config.AppConfig
	db       *sql.DB
	registry *prometheus.Registry
	auth     *app.AuthService
	ingest   *app.IngestService
	export   *app.ExportService
}

func bootstrap(ctx context.Context) (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("could not load application configuration: %w", err)
	}
	logger.Init(cfg)
	log := logger.Component("main")
	log.WithField("environment", cfg.Environment).Info("Configuration loaded")

	// Initialize Database Connection
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}
	log.Info("Database connection established successfully.")

	if cfg.RunMigrations {
		if err := idb.Migrate(db); err != nil {
			db.Close()
			return nil, err
		}
		log.Info("Database migrations applied.")
	}

	// Initialize Repositories
	paymentRepo := idb.NewPostgresPaymentRepository(db)
	orgRepo := idb.NewPostgresOrganizationRepository(db)

	sink, err := filesink.NewLocalSink(cfg.ExportDir, cfg.OutboxDir)
	if err != nil {
		db.Close()
		return nil, err
	}

	var notifier alert.Notifier = logger.NewNotifier(logger.Component("alerts"))
	if cfg.AlertsEnabled() {
		bot, err := telegram.NewOfflineBot(cfg.TelegramToken)
		if err != nil {
			db.Close()
			return nil, err
		}
		notifier = telegram.NewOpsNotifier(telegram.NewTelebotAdapter(bot), cfg.OpsTelegramChatID)
		log.Info("Telegram operator alerts enabled.")
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	validator := payment.NewValidator(cfg.SupportedCurrencies, cfg.BusinessLocation, time.Now)

	return &application{
		cfg:      cfg,
		db:       db,
		registry: registry,
		auth:     app.NewAuthService(orgRepo, logger.Component("auth")),
		ingest:   app.NewIngestService(validator, paymentRepo, m, logger.Component("ingest")),
		export: app.NewExportService(
			paymentRepo,
			sink,
			notifier,
			m,
			logger.Component("export"),
			cfg.ExportBatchSize,
			cfg.BusinessLocation,
			time.Now,
		),
	}, nil
}

func openDatabase(ctx context.Context, cfg *config.AppConfig) (*sql.DB, error) {
	pool := idb.DefaultPoolConfig()
	pool.MaxOpenConns = cfg.DBMaxOpenConns
	pool.MaxIdleConns = cfg.DBMaxOpenConns
	return idb.NewPostgresConnection(ctx, cfg.DatabaseURL, pool)
}

func (a *application) Close() {
	a.db.Close()
}
