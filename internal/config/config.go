// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New(ctx) returns a Config holding every default.
// - Load layers a YAML file and SALESCORE_* environment variables over it.
// - Validation failures wrap ErrInvalidConfig; source failures wrap ErrLoadConfig.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// CatalogPath points at a YAML signal catalog. Empty uses the built-in catalog.
	CatalogPath string `koanf:"catalog_path"`

	// CoefficientsPath points at a YAML coefficient table. Empty uses the built-in table.
	CoefficientsPath string `koanf:"coefficients_path"`

	// StoreBackend selects the journey store: memory, redis or sqlite.
	StoreBackend string `koanf:"store_backend"`
	RedisAddr    string `koanf:"redis_addr"`
	RedisPrefix  string `koanf:"redis_prefix"`
	SQLitePath   string `koanf:"sqlite_path"`

	// ClampMin and ClampMax bound the calibrated probability, in percent.
	ClampMin float64 `koanf:"clamp_min"`
	ClampMax float64 `koanf:"clamp_max"`

	// IntensityCap bounds the summed strength of resolved signals.
	IntensityCap float64 `koanf:"intensity_cap"`

	// AffordabilityThreshold is the payment-to-income ratio above which
	// AffordabilityPenalty points are subtracted.
	AffordabilityThreshold float64 `koanf:"affordability_threshold"`
	AffordabilityPenalty   float64 `koanf:"affordability_penalty"`

	// DecayMax is the largest fraction a stale journey probability loses,
	// reached after DecayHorizon.
	DecayMax     float64       `koanf:"decay_max"`
	DecayHorizon time.Duration `koanf:"decay_horizon"`

	// DedupeSize sets the size of the record deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// LockStripes sets the number of per-customer append locks.
	LockStripes int `koanf:"lock_stripes"`

	// MaxRetries bounds retries of conflicting journey appends.
	MaxRetries int `koanf:"max_retries"`
}

// New creates a Config holding the defaults. Context is accepted first to
// satisfy the project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		Addr:                   ":9080",
		LogLevel:               "info",
		LogFormat:              "text",
		StoreBackend:           "memory",
		RedisAddr:              "localhost:6379",
		RedisPrefix:            "salescore:",
		SQLitePath:             "data/salescore.db",
		ClampMin:               15,
		ClampMax:               92,
		IntensityCap:           250,
		AffordabilityThreshold: 0.15,
		AffordabilityPenalty:   12,
		DecayMax:               0.30,
		DecayHorizon:           30 * 24 * time.Hour,
		DedupeSize:             10_000,
		LockStripes:            64,
		MaxRetries:             3,
	}
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	case c.ClampMin < 0 || c.ClampMax > 100 || c.ClampMin >= c.ClampMax:
		return fmt.Errorf("%w: clamp bounds [%v,%v] must satisfy 0 <= min < max <= 100", ErrInvalidConfig, c.ClampMin, c.ClampMax)
	case c.IntensityCap <= 0:
		return fmt.Errorf("%w: intensity_cap must be positive", ErrInvalidConfig)
	case c.AffordabilityThreshold <= 0 || c.AffordabilityPenalty < 0:
		return fmt.Errorf("%w: affordability threshold must be positive and penalty non-negative", ErrInvalidConfig)
	case c.DecayMax < 0 || c.DecayMax > 1:
		return fmt.Errorf("%w: decay_max must be in [0,1]", ErrInvalidConfig)
	case c.DecayHorizon <= 0:
		return fmt.Errorf("%w: decay_horizon must be positive", ErrInvalidConfig)
	case c.LockStripes <= 0 || c.MaxRetries < 0 || c.DedupeSize < 0:
		return fmt.Errorf("%w: lock_stripes must be positive, max_retries and dedupe_size non-negative", ErrInvalidConfig)
	}

	switch strings.ToLower(c.StoreBackend) {
	case "memory":
	case "redis":
		if c.RedisAddr == "" {
			return fmt.Errorf("%w: redis_addr is required for the redis backend", ErrInvalidConfig)
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("%w: sqlite_path is required for the sqlite backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store_backend %q", ErrInvalidConfig, c.StoreBackend)
	}
	return nil
}
