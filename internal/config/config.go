// Package config defines service configuration structures and loading hooks.
package config

import (
	"fmt"
	"runtime"
	"strings"
)

// Storage drivers.
const (
	StorageMemory   = "memory"
	StorageBadger   = "badger"
	StoragePostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// PriorWeight, Tolerance and MaxIterations tune the rating solver.
	PriorWeight   float64 `koanf:"prior_weight"`
	Tolerance     float64 `koanf:"tolerance"`
	MaxIterations int     `koanf:"max_iterations"`

	// DefaultSimulations is the trial count when a request names none;
	// MaxSimulations caps what a request may ask for.
	DefaultSimulations int `koanf:"default_simulations"`
	MaxSimulations     int `koanf:"max_simulations"`

	// SimulationWorkers bounds the goroutines sharing one simulation.
	SimulationWorkers int `koanf:"simulation_workers"`

	// SimulateRate and SimulateBurst throttle POST /simulate per second.
	// A zero rate disables the limit.
	SimulateRate  float64 `koanf:"simulate_rate"`
	SimulateBurst int     `koanf:"simulate_burst"`

	// PersistQueueSize bounds the snapshot queue; PersistWorkers drain it.
	PersistQueueSize int `koanf:"persist_queue_size"`
	PersistWorkers   int `koanf:"persist_workers"`

	// DedupeSize bounds each event's pool id ledger. Zero keeps every id.
	DedupeSize int `koanf:"dedupe_size"`

	// StorageDriver is memory, badger or postgres.
	StorageDriver string `koanf:"storage_driver"`

	// StoragePath is the badger data directory.
	StoragePath string `koanf:"storage_path"`

	// DatabaseURL is the postgres connection string.
	DatabaseURL string `koanf:"database_url"`

	// MaxRequestBytes bounds request bodies.
	MaxRequestBytes int64 `koanf:"max_request_bytes"`

	// AllowedOrigins lists the browser origins, besides the server's own,
	// that may open a live stream. "*" admits any origin.
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// New creates a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":8080",
		PriorWeight:        0.3,
		Tolerance:          1e-6,
		MaxIterations:      200,
		DefaultSimulations: 10_000,
		MaxSimulations:     1_000_000,
		SimulationWorkers:  runtime.NumCPU(),
		SimulateRate:       2,
		SimulateBurst:      4,
		PersistQueueSize:   1024,
		PersistWorkers:     2,
		DedupeSize:         0,
		StorageDriver:      StorageMemory,
		StoragePath:        "data/touchrank",
		MaxRequestBytes:    1 << 20,
	}
}

// Validate reports the first setting that cannot be served.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.PriorWeight <= 0:
		return fmt.Errorf("%w: prior_weight must be positive, got %g", ErrInvalidConfig, c.PriorWeight)
	case c.Tolerance <= 0:
		return fmt.Errorf("%w: tolerance must be positive, got %g", ErrInvalidConfig, c.Tolerance)
	case c.MaxIterations < 1:
		return fmt.Errorf("%w: max_iterations must be at least 1, got %d", ErrInvalidConfig, c.MaxIterations)
	case c.DefaultSimulations < 1:
		return fmt.Errorf("%w: default_simulations must be at least 1, got %d", ErrInvalidConfig, c.DefaultSimulations)
	case c.MaxSimulations < c.DefaultSimulations:
		return fmt.Errorf("%w: max_simulations %d is below default_simulations %d", ErrInvalidConfig, c.MaxSimulations, c.DefaultSimulations)
	case c.SimulateRate < 0:
		return fmt.Errorf("%w: simulate_rate must not be negative", ErrInvalidConfig)
	case c.DedupeSize < 0:
		return fmt.Errorf("%w: dedupe_size must not be negative", ErrInvalidConfig)
	}

	origins := c.AllowedOrigins[:0]
	for _, o := range c.AllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	c.AllowedOrigins = origins

	c.StorageDriver = strings.ToLower(strings.TrimSpace(c.StorageDriver))
	switch c.StorageDriver {
	case StorageMemory:
	case StorageBadger:
		if c.StoragePath == "" {
			return fmt.Errorf("%w: storage_path is required for badger", ErrInvalidConfig)
		}
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: database_url is required for postgres", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown storage_driver %q", ErrInvalidConfig, c.StorageDriver)
	}
	return nil
}
