package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all runtime settings for the views service
type Config struct {
	Port        string `env:"PORT" envDefault:"8787"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`

	Database DatabaseConfig
	Redis    RedisConfig

	// JWTSecret signs and verifies bearer tokens issued by the identity service
	JWTSecret string `env:"JWT_SECRET"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE" envDefault:"server.log"`

	// RepairInterval controls how often aggregates are recomputed from the ledger (0 disables)
	RepairInterval    time.Duration `env:"REPAIR_INTERVAL" envDefault:"6h"`
	RepairConcurrency int           `env:"REPAIR_CONCURRENCY" envDefault:"4"`

	// ViewRateLimit is the max number of view submissions per requester per minute (0 disables)
	ViewRateLimit int `env:"VIEW_RATE_LIMIT" envDefault:"600"`

	// RequiredServices lists backing services that must pass a startup
	// probe (database, redis); anything else is best effort
	RequiredServices []string `env:"REQUIRED_SERVICES" envSeparator:","`

	Telemetry TelemetryConfig
}

// DatabaseConfig describes the primary store
type DatabaseConfig struct {
	Driver   string `env:"DATABASE_DRIVER" envDefault:"postgres"` // postgres or sqlite
	URL      string `env:"DATABASE_URL"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD"`
	Name     string `env:"DB_NAME" envDefault:"sidechain_views"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
}

// RedisConfig is optional; an empty host disables the flag cache and rate limiting
type RedisConfig struct {
	Host     string `env:"REDIS_HOST"`
	Port     string `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD"`
}

// TelemetryConfig configures OpenTelemetry tracing
type TelemetryConfig struct {
	Enabled      bool    `env:"OTEL_ENABLED" envDefault:"false"`
	ServiceName  string  `env:"OTEL_SERVICE_NAME" envDefault:"sidechain-views"`
	OTLPEndpoint string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	Insecure     bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
	SamplingRate float64 `env:"OTEL_SAMPLING_RATE" envDefault:"1.0"`
}

// Load reads an optional .env file and parses the environment into a Config
func Load() (*Config, error) {
	// .env is optional; the process environment wins either way
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints that struct tags can't express
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q (want postgres or sqlite)", c.Database.Driver)
	}
	if c.Database.Driver == "sqlite" && c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required when DATABASE_DRIVER=sqlite")
	}
	if c.RepairInterval < 0 {
		return fmt.Errorf("REPAIR_INTERVAL must not be negative")
	}
	if c.RepairConcurrency < 1 {
		c.RepairConcurrency = 1
	}
	return nil
}

// DSN returns the connection string for the configured driver
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	dsn := fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Name, d.SSLMode)
	if d.Password != "" {
		dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
	}
	return dsn
}

// IsProduction reports whether the service runs with production defaults
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
