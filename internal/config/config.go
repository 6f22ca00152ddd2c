package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const PROD_STRING = "prod"

// Config holds all application configuration loaded from environment.
type Config struct {
	AppEnv      string `envconfig:"APP_ENV" default:"dev"`
	ProdOrigins string `envconfig:"PROD_ORIGINS"`
	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8080"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DBDSN string `envconfig:"DB_DSN" required:"true"`

	JWTSecret         string        `envconfig:"JWT_SECRET" required:"true"`
	JWTAccessTokenTTL time.Duration `envconfig:"JWT_ACCESS_TOKEN_TTL" default:"1h"`

	// Shared secret for payment webhook signatures. Empty runs the webhook in degraded mode.
	PaymentWebhookSecret   string        `envconfig:"PAYMENT_WEBHOOK_SECRET"`
	PaymentProviderBaseURL string        `envconfig:"PAYMENT_PROVIDER_BASE_URL" default:"https://api.mercadopago.com"`
	PaymentProviderTimeout time.Duration `envconfig:"PAYMENT_PROVIDER_TIMEOUT" default:"10s"`

	// Key used to encrypt payment provider credentials at rest.
	CredentialsKey string `envconfig:"CREDENTIALS_KEY" required:"true"`

	PendingGrace time.Duration `envconfig:"PENDING_GRACE" default:"5m"`
	SweepCron    string        `envconfig:"SWEEP_CRON" default:"* * * * *"`
	RolloverCron string        `envconfig:"ROLLOVER_CRON" default:"5 0 * * *"`

	RabbitURL      string `envconfig:"RABBIT_URL"`
	RabbitExchange string `envconfig:"RABBIT_EXCHANGE" default:"booking.exchange"`

	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// IsProduction reports whether APP_ENV selects production.
func (c *Config) IsProduction() bool {
	return c.AppEnv == PROD_STRING
}

// Load loads configuration from .env (optional) and environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values envconfig cannot express.
func (c *Config) Validate() error {
	if c.DBDSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.CredentialsKey == "" {
		return fmt.Errorf("CREDENTIALS_KEY is required")
	}
	if c.JWTAccessTokenTTL <= 0 {
		return fmt.Errorf("JWT_ACCESS_TOKEN_TTL must be positive")
	}
	if c.PendingGrace <= 0 {
		return fmt.Errorf("PENDING_GRACE must be positive")
	}
	if c.PaymentProviderTimeout <= 0 {
		return fmt.Errorf("PAYMENT_PROVIDER_TIMEOUT must be positive")
	}
	if _, err := cron.ParseStandard(c.SweepCron); err != nil {
		return fmt.Errorf("invalid SWEEP_CRON: %w", err)
	}
	if _, err := cron.ParseStandard(c.RolloverCron); err != nil {
		return fmt.Errorf("invalid ROLLOVER_CRON: %w", err)
	}
	return nil
}
