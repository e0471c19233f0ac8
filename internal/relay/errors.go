package relay

import "errors"

var (
	// ErrEngineStopped is returned when submitting to an engine whose Run has returned.
	ErrEngineStopped = errors.New("relay: engine stopped")

	// ErrEngineRunning is returned when Run is called more than once.
	ErrEngineRunning = errors.New("relay: engine already started")
)
