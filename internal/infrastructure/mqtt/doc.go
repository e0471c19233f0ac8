// Package mqtt connects to the broker shared with the capture
// collaborator.
//
// The capture process publishes normalised pad events under a topic
// prefix (Topics) and subscribes to haptic commands the relay publishes
// back. The client reconnects automatically, replays subscriptions after
// a reconnect, and keeps a retained status message per client ID with a
// Last Will for crash detection:
//
//	gamepadio/capture/connect      inbound
//	gamepadio/capture/disconnect   inbound
//	gamepadio/capture/button       inbound
//	gamepadio/capture/axis         inbound
//	gamepadio/capture/haptic/{n}   outbound
//	gamepadio/status/{client_id}   retained
//
// Handlers run on paho goroutines and have panics recovered.
package mqtt
