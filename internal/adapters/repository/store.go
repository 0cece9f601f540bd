// Package repository provides journey.Store implementations backed by
// memory, Redis and SQLite.
package repository

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/okian/salescore/internal/domain/journey"
	"github.com/okian/salescore/pkg/metrics"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// ClosableStore is a journey store that owns resources.
type ClosableStore interface {
	journey.Store
	io.Closer
}

// Config selects and configures a backend.
type Config struct {
	Backend     string
	RedisAddr   string
	RedisPrefix string
	SQLitePath  string
}

// Open builds the store named by cfg.Backend.
func Open(ctx context.Context, cfg Config, opts ...Option) (ClosableStore, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendMemory:
		return NewMemoryStore(opts...), nil
	case BackendRedis:
		return NewRedisStore(ctx, cfg.RedisAddr, append([]Option{WithKeyPrefix(cfg.RedisPrefix)}, opts...)...)
	case BackendSQLite:
		return NewSQLiteStore(ctx, cfg.SQLitePath, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}

// observe records the latency of a store operation.
func observe(backend, operation string, start time.Time) {
	metrics.RecordStoreLatency(backend, operation, float64(time.Since(start).Microseconds())/1000)
}

// checkAppend enforces the compare-and-append contract shared by all backends.
// exists reports whether a journey was found.
func checkAppend(current journey.Journey, exists bool, sessionID string, expectedLen int) error {
	if !exists {
		if expectedLen != 0 {
			return journey.ErrConflict
		}
		return nil
	}
	if current.SessionID != sessionID || current.Len() != expectedLen {
		metrics.RecordJourneyConflict()
		return journey.ErrConflict
	}
	return nil
}
