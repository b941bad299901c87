package storage

import "errors"

// Storage errors for append-only stores.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when attempting to insert a record
	// with a key that already exists. Archived runs are never overwritten.
	ErrDuplicateKey = errors.New("duplicate key: append-only store does not allow updates")
)
