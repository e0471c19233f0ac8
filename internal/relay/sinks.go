package relay

import (
	"context"
	"encoding/json"
	"time"
)

// Subscriber is a remote viewer. Implementations must be comparable
// (pointer receivers) because subscribers are used as map keys.
type Subscriber interface {
	// ID identifies the subscriber in logs.
	ID() string

	// Send queues msg and reports whether it was accepted.
	// It must not block.
	Send(msg Message) bool
}

// HapticSink forwards haptic commands to the capture collaborator.
type HapticSink interface {
	SendHaptic(connectionIndex int, hapticType string, params json.RawMessage) error
}

// Telemetry records input samples that changed state.
// Writes must be asynchronous.
type Telemetry interface {
	WriteButtonSample(identifier string, button int, pressed, touched bool, value float64, percent int)
	WriteAxisSample(identifier string, axis int, pressed bool, value float64)
}

// EventSink streams controller lifecycle and delta events out of process.
// Publish must not wait on the network.
type EventSink interface {
	Publish(ctx context.Context, key string, value any) error
}

// StreamEvent is the value handed to the EventSink, keyed by Identifier.
type StreamEvent struct {
	Type            string       `json:"type"`
	Identifier      string       `json:"identifier"`
	Name            string       `json:"name,omitempty"`
	ConnectionIndex int          `json:"index"`
	Button          *ButtonDelta `json:"button,omitempty"`
	Axis            *AxisDelta   `json:"axis,omitempty"`
	Timestamp       time.Time    `json:"timestamp"`
}

// Stream event types.
const (
	StreamConnected    = "connected"
	StreamDisconnected = "disconnected"
	StreamButton       = "button"
	StreamAxis         = "axis"
)
