package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	DatabaseURL         string
	DBMaxOpenConns      int
	HTTPAddr            string
	ExportDir           string // staging location for export files
	OutboxDir           string // handoff location picked up downstream
	ExportBatchSize     int
	ExportCronSpec      string
	ExportTimeout       time.Duration
	SupportedCurrencies []string
	BusinessLocation    *time.Location // "today" for pay dates is evaluated here
	LogLevel            string
	Environment         string
	TelegramToken       string // optional, enables operator alerts
	OpsTelegramChatID   int64
	RunMigrations       bool
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.DBMaxOpenConns, err = strconv.Atoi(envOr("DB_MAX_OPEN_CONNS", "25"))
	if err != nil || cfg.DBMaxOpenConns <= 0 {
		return nil, fmt.Errorf("invalid DB_MAX_OPEN_CONNS: must be a positive integer")
	}

	cfg.HTTPAddr = envOr("HTTP_ADDR", ":8080")
	cfg.ExportDir = envOr("EXPORT_DIR", "exports")
	cfg.OutboxDir = envOr("OUTBOX_DIR", "outbox")
	if cfg.ExportDir == cfg.OutboxDir {
		return nil, fmt.Errorf("EXPORT_DIR and OUTBOX_DIR must differ")
	}

	cfg.ExportBatchSize, err = strconv.Atoi(envOr("EXPORT_BATCH_SIZE", "1000"))
	if err != nil || cfg.ExportBatchSize <= 0 {
		return nil, fmt.Errorf("invalid EXPORT_BATCH_SIZE: must be a positive integer")
	}

	cfg.ExportCronSpec = envOr("EXPORT_CRON_SPEC", "0 17 * * *") // Default: 5 PM daily

	cfg.ExportTimeout, err = time.ParseDuration(envOr("EXPORT_TIMEOUT", "10m"))
	if err != nil {
		return nil, fmt.Errorf("invalid EXPORT_TIMEOUT: %w", err)
	}

	for _, c := range strings.Split(envOr("SUPPORTED_CURRENCIES", "AUD"), ",") {
		if c = strings.ToUpper(strings.TrimSpace(c)); c != "" {
			cfg.SupportedCurrencies = append(cfg.SupportedCurrencies, c)
		}
	}
	if len(cfg.SupportedCurrencies) == 0 {
		return nil, fmt.Errorf("SUPPORTED_CURRENCIES must list at least one currency")
	}

	cfg.BusinessLocation, err = time.LoadLocation(envOr("BUSINESS_TIMEZONE", "Australia/Sydney"))
	if err != nil {
		return nil, fmt.Errorf("invalid BUSINESS_TIMEZONE: %w", err)
	}

	cfg.LogLevel = strings.ToLower(envOr("LOG_LEVEL", "info"))
	cfg.Environment = strings.ToLower(envOr("ENVIRONMENT", "development"))

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	chatIDStr := os.Getenv("OPS_TELEGRAM_CHAT_ID")
	if (cfg.TelegramToken == "") != (chatIDStr == "") {
		return nil, fmt.Errorf("TELEGRAM_TOKEN and OPS_TELEGRAM_CHAT_ID must be set together")
	}
	if chatIDStr != "" {
		cfg.OpsTelegramChatID, err = strconv.ParseInt(chatIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid OPS_TELEGRAM_CHAT_ID: %w", err)
		}
	}

	if v := os.Getenv("RUN_MIGRATIONS"); v != "" {
		cfg.RunMigrations, err = strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid RUN_MIGRATIONS: %w", err)
		}
	}

	return cfg, nil
}

// AlertsEnabled reports whether Telegram operator alerts are configured.
func (c *AppConfig) AlertsEnabled() bool {
	return c.TelegramToken != "" && c.OpsTelegramChatID != 0
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
