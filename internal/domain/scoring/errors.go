package scoring

import (
	"errors"
	"fmt"
)

// Sentinel kinds for scoring errors.
var (
	// ErrValidation marks malformed or out-of-domain request input. It is
	// returned before any scoring runs.
	ErrValidation = errors.New("validation failed")
	// ErrInitialization marks a coefficient table that failed to load or validate.
	ErrInitialization = errors.New("coefficient table initialization failed")
)

// ValidationError describes one invalid input field.
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrValidation, e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error { return ErrValidation }
