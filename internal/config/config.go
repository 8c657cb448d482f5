// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every setting the service reads at startup.
type Config struct {
	Port string `env:"PORT" envDefault:"8080"`
	// Store selects the persistence backend: "postgres" or "memory".
	Store string `env:"STORE" envDefault:"postgres"`
	// LockTimeout bounds the wait for a busy session before the request is
	// rejected as retryable.
	LockTimeout time.Duration `env:"LOCK_TIMEOUT" envDefault:"3s"`
	LogLevel    string        `env:"LOG_LEVEL" envDefault:"info"`
	// DefaultPriority is the waitlist score given to players registering
	// without one. Empty means no score.
	DefaultPriority string `env:"DEFAULT_PRIORITY"`

	Database Database `envPrefix:"DB_"`
}

// Database holds PostgreSQL connection settings.
type Database struct {
	URL      string `env:"URL"`
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     string `env:"PORT" envDefault:"5432"`
	User     string `env:"USER" envDefault:"postgres"`
	Password string `env:"PASSWORD" envDefault:"postgres"`
	Name     string `env:"NAME" envDefault:"training"`
	SSLMode  string `env:"SSLMODE" envDefault:"disable"`
	MaxConns int32  `env:"MAX_CONNS" envDefault:"20"`
	// ApplySchema creates missing tables at startup.
	ApplySchema bool `env:"APPLY_SCHEMA" envDefault:"true"`
}

// DSN builds a libpq-compatible connection string. DB_URL wins when set.
func (d Database) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks settings env tags cannot express.
func (c Config) Validate() error {
	switch c.Store {
	case "postgres", "memory":
	default:
		return fmt.Errorf("config: STORE must be postgres or memory, got %q", c.Store)
	}
	if c.LockTimeout < 0 {
		return fmt.Errorf("config: LOCK_TIMEOUT must not be negative")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if _, err := c.DefaultPriorityScore(); err != nil {
		return err
	}
	return nil
}

// DefaultPriorityScore parses DEFAULT_PRIORITY. It returns nil when unset.
func (c Config) DefaultPriorityScore() (*float64, error) {
	if c.DefaultPriority == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(c.DefaultPriority, 64)
	if err != nil {
		return nil, fmt.Errorf("config: DEFAULT_PRIORITY: %w", err)
	}
	return &v, nil
}

// SlogLevel maps LOG_LEVEL to a slog level.
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("config: LOG_LEVEL: %w", err)
	}
	return level, nil
}
