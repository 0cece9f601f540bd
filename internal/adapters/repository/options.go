package repository

import (
	"github.com/okian/salescore/pkg/logger"
)

// Option applies a configuration option to a store.
type Option func(*storeOptions)

type storeOptions struct {
	keyPrefix string
	logger    logger.Logger
}

func defaultOptions() storeOptions {
	return storeOptions{
		keyPrefix: "salescore:",
		logger:    logger.Nop(),
	}
}

func applyOptions(opts []Option) storeOptions {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithKeyPrefix sets the Redis key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(o *storeOptions) {
		if prefix != "" {
			o.keyPrefix = prefix
		}
	}
}

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(o *storeOptions) {
		if l != nil {
			o.logger = l
		}
	}
}
