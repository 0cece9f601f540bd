package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrUnknownBackend = errors.New("unknown store backend")
	ErrStoreClosed    = errors.New("store closed")
)
