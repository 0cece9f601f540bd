package journey

import (
	"time"

	"github.com/okian/salescore/internal/domain/dedupe"
	"github.com/okian/salescore/pkg/logger"
)

// Option applies a configuration option to the Tracker.
type Option func(*Tracker)

// WithDecay sets the time-decay parameters.
func WithDecay(d Decay) Option {
	return func(t *Tracker) {
		if d.Max >= 0 && d.Max <= 1 && d.Horizon > 0 {
			t.decay = d
		}
	}
}

// WithClock sets the time source used for defaults and decay.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// WithDeduper sets the deduper that remembers recent submissions.
func WithDeduper(d dedupe.Deduper) Option {
	return func(t *Tracker) {
		if d != nil {
			t.deduper = d
		}
	}
}

// WithLockStripes sets the number of per-customer lock stripes.
func WithLockStripes(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.stripes = n
		}
	}
}

// WithMaxRetries sets how many times a conflicting append is retried.
func WithMaxRetries(n int) Option {
	return func(t *Tracker) {
		if n >= 0 {
			t.maxRetries = n
		}
	}
}

// WithLogger sets a custom logger for the tracker.
func WithLogger(l logger.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}
