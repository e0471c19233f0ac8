package capture

import "errors"

var (
	// ErrInvalidEvent is returned by Decode for malformed or out-of-range payloads.
	ErrInvalidEvent = errors.New("capture: invalid event")

	// ErrUnknownKind is returned by Decode for an unrecognised event kind.
	ErrUnknownKind = errors.New("capture: unknown event kind")

	// ErrHapticQueueFull is returned by SendHaptic when commands back up.
	ErrHapticQueueFull = errors.New("capture: haptic queue full")
)
