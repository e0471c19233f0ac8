// Package kafka publishes controller lifecycle and input events to a
// Kafka topic for downstream consumers.
//
// Messages are keyed by the controller identifier so every event for one
// controller lands on the same partition and keeps its order. The writer
// runs in async mode: Publish enqueues and returns, and delivery failures
// are passed to the SetOnError callback.
package kafka
