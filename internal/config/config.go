// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/neomorfeo/rsvp/internal/adapter/otel"
)

// Storage backends.
const (
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// Config is the full service configuration.
type Config struct {
	Port           int           `envconfig:"PORT" default:"8080"`
	Storage        string        `envconfig:"STORAGE" default:"sqlite"`
	DatabasePath   string        `envconfig:"DATABASE_PATH" default:"rsvp.db"`
	PostgresDSN    string        `envconfig:"POSTGRES_DSN"`
	QueuePath      string        `envconfig:"QUEUE_PATH" default:"rsvp-queue.db"`
	QueueWorkers   int           `envconfig:"QUEUE_WORKERS" default:"2"`
	StorageTimeout time.Duration `envconfig:"STORAGE_TIMEOUT" default:"5s"`
	RateLimit      float64       `envconfig:"RATE_LIMIT" default:"100"`
	Log            Log
	Telemetry      Telemetry
}

// Log configures the zap logger.
type Log struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEVELOPMENT" default:"false"`
}

// Telemetry configures the OpenTelemetry providers.
type Telemetry struct {
	ServiceName    string `envconfig:"OTEL_SERVICE_NAME" default:"rsvp"`
	ServiceVersion string `envconfig:"OTEL_SERVICE_VERSION" default:"0.1.0"`
	Environment    string `envconfig:"OTEL_ENVIRONMENT" default:"development"`
	Exporter       string `envconfig:"OTEL_EXPORTER" default:"stdout"`
	Insecure       bool   `envconfig:"OTEL_INSECURE" default:"false"`
}

// OTel converts t to the provider configuration. Development environments
// always talk plain HTTP to the collector.
func (t Telemetry) OTel() otel.Config {
	return otel.Config{
		ServiceName:    t.ServiceName,
		ServiceVersion: t.ServiceVersion,
		Environment:    t.Environment,
		Exporter:       t.Exporter,
		Insecure:       t.Insecure || t.Environment == "development",
	}
}

// Load reads an optional .env file from the working directory and then the
// process environment. Variables already set in the environment win.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}
	return FromEnv()
}

// FromEnv reads the configuration from the process environment only.
func FromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("processing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints envconfig cannot express.
func (c Config) Validate() error {
	switch c.Storage {
	case StorageSQLite:
		if c.DatabasePath == "" {
			return errors.New("DATABASE_PATH is required for sqlite storage")
		}
	case StoragePostgres:
		if c.PostgresDSN == "" {
			return errors.New("POSTGRES_DSN is required for postgres storage")
		}
		if c.QueuePath == "" {
			return errors.New("QUEUE_PATH is required for postgres storage")
		}
	default:
		return fmt.Errorf("unsupported STORAGE %q (use %q or %q)", c.Storage, StorageSQLite, StoragePostgres)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT %d out of range", c.Port)
	}
	if c.StorageTimeout < 0 {
		return errors.New("STORAGE_TIMEOUT must not be negative")
	}
	return nil
}
