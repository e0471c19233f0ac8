// Package capture connects the relay to the capture collaborator, the
// process that reads raw gamepad input and publishes normalised events
// over MQTT.
//
// Decode validates an inbound payload; Bridge subscribes to the capture
// topics, submits decoded events to the relay engine, and publishes
// haptic commands back to the collaborator.
package capture
