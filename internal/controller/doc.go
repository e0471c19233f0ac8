// Package controller holds the live table of connected gamepads and
// decides which input samples are worth broadcasting.
//
// Records are keyed twice, by the capture layer's connection index and by
// the durable identifier, and kept in connection order for snapshots.
// ApplyButton and ApplyAxis compare a sample with the stored control using
// exact equality and report Created, Updated or Unchanged.
//
// A Registry is not safe for concurrent use. relay.Engine owns it and
// serialises every call on one goroutine. Everything returned to callers
// is a copy.
package controller
