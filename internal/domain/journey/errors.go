package journey

import "errors"

// Sentinel kinds for journey errors.
var (
	// ErrStageRegression rejects a record whose stage precedes the last recorded stage.
	ErrStageRegression = errors.New("stage regression")
	// ErrOutOfOrder rejects a record that is not strictly later than the last one.
	ErrOutOfOrder = errors.New("record timestamp out of order")
	// ErrInvalidEvidence rejects stage evidence outside its allowed values.
	ErrInvalidEvidence = errors.New("invalid stage evidence")
	// ErrInvalidRecord rejects a record with a missing customer or unknown stage.
	ErrInvalidRecord = errors.New("invalid journey record")
	// ErrNotFound is returned when no journey exists for a customer.
	ErrNotFound = errors.New("journey not found")
	// ErrConflict is returned by a store when the journey changed since it was read.
	ErrConflict = errors.New("journey modified concurrently")
)
