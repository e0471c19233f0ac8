package identity

import "errors"

var (
	// ErrStoreWrite is returned when a new record could not be persisted.
	// The identifier returned alongside it is usable for the current
	// session but will not survive a restart.
	ErrStoreWrite = errors.New("identity: store write failed")

	// ErrInvalidName is returned when resolving an empty name.
	ErrInvalidName = errors.New("identity: name is required")
)
