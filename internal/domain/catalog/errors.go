package catalog

import "errors"

// Sentinel kinds for catalog errors.
var (
	// ErrInitialization marks a catalog that failed to load or validate.
	// It is fatal: a process must not serve scoring requests without a catalog.
	ErrInitialization = errors.New("signal catalog initialization failed")
)
