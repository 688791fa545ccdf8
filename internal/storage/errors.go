package storage

import "errors"

// Sentinel errors returned by the store.
var (
	// ErrNotFound is returned when a requested incident or contact
	// does not exist.
	ErrNotFound = errors.New("storage: not found")
)
