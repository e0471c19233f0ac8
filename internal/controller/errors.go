package controller

import "errors"

// Domain errors for the controller package.
//
//	if errors.Is(err, controller.ErrUnknownConnection) {
//	    // sample for a pad that already disconnected
//	}
var (
	// ErrDuplicateConnection is returned when a connect reuses a live
	// connection index. The existing record is kept.
	ErrDuplicateConnection = errors.New("controller: connection index already connected")

	// ErrUnknownConnection is returned for events naming a connection
	// index with no live record. The event is dropped.
	ErrUnknownConnection = errors.New("controller: unknown connection index")

	// ErrUnknownIdentifier is returned when no live record carries the identifier.
	ErrUnknownIdentifier = errors.New("controller: unknown identifier")

	// ErrInvalidControl is returned for a negative button or axis index.
	ErrInvalidControl = errors.New("controller: invalid control index")
)
