package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// StatServer holds all configuration for the stat tree service and CLI.
type StatServer struct {
	LogLevel string `yaml:"log_level"` // debug, info, warn, error

	// Definitions
	DefinitionsDir   string        `yaml:"definitions_dir"`
	WatchDefinitions bool          `yaml:"watch_definitions"`
	WatchDebounce    time.Duration `yaml:"watch_debounce"`

	// HTTP (metrics + read-only tree endpoints)
	HTTPAddress     string        `yaml:"http_address"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Metrics
	Metrics MetricsConfig `yaml:"metrics"`

	// Database
	Database DatabaseConfig `yaml:"database"`
}

// MetricsConfig controls Prometheus metric naming.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
	Subsystem string `yaml:"subsystem"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// DefaultStatServer returns StatServer config with sensible defaults.
func DefaultStatServer() StatServer {
	return StatServer{
		LogLevel:         "info",
		DefinitionsDir:   "definitions",
		WatchDefinitions: true,
		WatchDebounce:    100 * time.Millisecond,
		HTTPAddress:      "127.0.0.1:9180",
		ShutdownTimeout:  5 * time.Second,
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "statustree",
			Subsystem: "engine",
		},
		Database: DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     5432,
			User:     "statustree",
			Password: "statustree",
			DBName:   "statustree",
			SSLMode:  "disable",
		},
	}
}

// LoadStatServer loads config from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadStatServer(path string) (StatServer, error) {
	cfg := DefaultStatServer()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validating config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks values that cannot be defaulted.
func (c StatServer) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	if c.DefinitionsDir == "" {
		return fmt.Errorf("definitions_dir must not be empty")
	}
	if c.WatchDebounce < 0 {
		return fmt.Errorf("watch_debounce must not be negative")
	}
	return nil
}
