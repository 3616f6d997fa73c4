package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ledgerline/receipt-backoffice/internal/core/domain"
)

// LedgerConfig holds the shadow-ledger client and resilience settings.
type LedgerConfig struct {
	BaseURL          string
	APIKey           string
	Timeout          time.Duration
	FailureThreshold uint32
	CoolDown         time.Duration
	MaxAttempts      int
	RetryBaseDelay   time.Duration
}

// ExportConfig holds the external accounting exporter and retry-queue settings.
type ExportConfig struct {
	Endpoint        string
	APIKey          string
	Timeout         time.Duration
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	SweepInterval   string
	SweepBatchSize  int
	ClaimTimeout    time.Duration
}

// Config holds application configuration.
type Config struct {
	DatabaseURL   string
	Port          string
	IsProduction  bool
	EnableDBCheck bool
	RedisAddr     string
	RateLimit     string

	Ledger LedgerConfig
	Export ExportConfig
}

// ExportBackoffPolicy builds the retry-delay policy from the export settings.
func (c *Config) ExportBackoffPolicy() domain.BackoffPolicy {
	return domain.BackoffPolicy{
		InitialInterval: c.Export.InitialInterval,
		MaxInterval:     c.Export.MaxInterval,
		Multiplier:      c.Export.Multiplier,
	}
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", false)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("RATE_LIMIT", "100-M")
	viper.SetDefault("LEDGER_BASE_URL", "")
	viper.SetDefault("LEDGER_API_KEY", "")
	viper.SetDefault("LEDGER_TIMEOUT", "30s")
	viper.SetDefault("LEDGER_FAILURE_THRESHOLD", 5)
	viper.SetDefault("LEDGER_COOLDOWN", "30s")
	viper.SetDefault("LEDGER_MAX_ATTEMPTS", 3)
	viper.SetDefault("LEDGER_RETRY_BASE_DELAY", "2s")
	viper.SetDefault("EXPORT_ENDPOINT", "")
	viper.SetDefault("EXPORT_API_KEY", "")
	viper.SetDefault("EXPORT_TIMEOUT", "30s")
	viper.SetDefault("EXPORT_MAX_RETRIES", 3)
	viper.SetDefault("EXPORT_INITIAL_INTERVAL", "1m")
	viper.SetDefault("EXPORT_MAX_INTERVAL", "1h")
	viper.SetDefault("EXPORT_MULTIPLIER", 2.0)
	viper.SetDefault("EXPORT_SWEEP_INTERVAL", "@every 1m")
	viper.SetDefault("EXPORT_SWEEP_BATCH_SIZE", 50)
	viper.SetDefault("EXPORT_CLAIM_TIMEOUT", "10m")

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")
	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.EnableDBCheck = viper.GetBool("ENABLE_DB_CHECK")
	cfg.RedisAddr = viper.GetString("REDIS_ADDR")
	cfg.RateLimit = viper.GetString("RATE_LIMIT")

	cfg.Ledger = LedgerConfig{
		BaseURL:          viper.GetString("LEDGER_BASE_URL"),
		APIKey:           viper.GetString("LEDGER_API_KEY"),
		Timeout:          parseDurationOr("LEDGER_TIMEOUT", 30*time.Second),
		FailureThreshold: viper.GetUint32("LEDGER_FAILURE_THRESHOLD"),
		CoolDown:         parseDurationOr("LEDGER_COOLDOWN", 30*time.Second),
		MaxAttempts:      viper.GetInt("LEDGER_MAX_ATTEMPTS"),
		RetryBaseDelay:   parseDurationOr("LEDGER_RETRY_BASE_DELAY", 2*time.Second),
	}
	if cfg.Ledger.BaseURL == "" {
		log.Println("Warning: LEDGER_BASE_URL not set. Shadow-ledger sync will be skipped.")
	}

	cfg.Export = ExportConfig{
		Endpoint:        viper.GetString("EXPORT_ENDPOINT"),
		APIKey:          viper.GetString("EXPORT_API_KEY"),
		Timeout:         parseDurationOr("EXPORT_TIMEOUT", 30*time.Second),
		MaxRetries:      viper.GetInt("EXPORT_MAX_RETRIES"),
		InitialInterval: parseDurationOr("EXPORT_INITIAL_INTERVAL", time.Minute),
		MaxInterval:     parseDurationOr("EXPORT_MAX_INTERVAL", time.Hour),
		Multiplier:      viper.GetFloat64("EXPORT_MULTIPLIER"),
		SweepInterval:   viper.GetString("EXPORT_SWEEP_INTERVAL"),
		SweepBatchSize:  viper.GetInt("EXPORT_SWEEP_BATCH_SIZE"),
		ClaimTimeout:    parseDurationOr("EXPORT_CLAIM_TIMEOUT", 10*time.Minute),
	}
	if cfg.Export.Endpoint == "" {
		log.Println("Warning: EXPORT_ENDPOINT not set. Export processing will fail until configured.")
	}

	return cfg, nil
}

func parseDurationOr(key string, fallback time.Duration) time.Duration {
	raw := viper.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		if raw != "" {
			log.Printf("Warning: Invalid value for %s ('%s'). Defaulting to %s.\n", key, raw, fallback)
		}
		return fallback
	}
	return d
}
