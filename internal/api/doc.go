// Package api exposes the relay to subscribers over HTTP and WebSocket.
//
// REST endpoints under /api/v1 report health, version and the controller
// registry. The /ws endpoint upgrades to a WebSocket; each connection is a
// relay subscriber that receives the controllers snapshot on connect and
// may join one controller's group to receive its button and axis deltas.
//
// Every socket message uses one envelope:
//
//	{"type": "...", "id": "...", "event_type": "...", "timestamp": "...", "payload": {...}}
//
// Inbound types are version, controllers, join, leave, haptic and ping.
// Outbound messages are event (event_type controllers, button_event or
// axis_event), response, pong and error.
//
// Lifecycle:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
