// Package relay moves gamepad state from the capture collaborator to
// subscribers.
//
// Engine is the single writer: one goroutine (Run) drains a queue of
// capture events and subscriber requests, applies them to a
// controller.Registry and routes the results through a Router. Because
// nothing else touches the registry, no locks guard it.
//
// Snapshots of every connected pad go to every subscriber after a
// connect, disconnect, join or leave. Button and axis deltas go only to
// the subscription group of the pad's identifier. Subscriber.Send never
// blocks, so a slow subscriber loses messages instead of stalling the
// engine.
package relay
