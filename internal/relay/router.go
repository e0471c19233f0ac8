package relay

import "github.com/nerrad567/gamepad-io/internal/controller"

// Router delivers messages to attached subscribers.
type Router struct {
	subscribers map[Subscriber]struct{}
	groups      *Groups
	logger      Logger
}

// NewRouter creates a router with no subscribers.
func NewRouter() *Router {
	return &Router{
		subscribers: make(map[Subscriber]struct{}),
		groups:      NewGroups(),
		logger:      noopLogger{},
	}
}

// SetLogger sets the logger for the router.
func (r *Router) SetLogger(logger Logger) {
	r.logger = logger
}

// Add attaches sub so it receives broadcasts.
func (r *Router) Add(sub Subscriber) {
	r.subscribers[sub] = struct{}{}
}

// Remove detaches sub and drops it from its group.
// It returns the group sub was in, if any.
func (r *Router) Remove(sub Subscriber) (identifier string, wasMember bool) {
	delete(r.subscribers, sub)
	return r.groups.Drop(sub)
}

// Len returns the number of attached subscribers.
func (r *Router) Len() int {
	return len(r.subscribers)
}

// Groups exposes group membership.
func (r *Router) Groups() *Groups {
	return r.groups
}

// JoinGroup adds sub to the group for identifier. See Groups.Join.
func (r *Router) JoinGroup(sub Subscriber, identifier string) (previous string) {
	return r.groups.Join(sub, identifier)
}

// LeaveGroup removes sub from the group for identifier.
func (r *Router) LeaveGroup(sub Subscriber, identifier string) bool {
	return r.groups.Leave(sub, identifier)
}

// BroadcastSnapshot sends snapshot to every attached subscriber and
// returns how many accepted it.
func (r *Router) BroadcastSnapshot(snapshot []controller.Record) int {
	msg := Message{Type: MessageControllers, Controllers: snapshot}
	delivered := 0
	for sub := range r.subscribers {
		delivered += r.send(sub, msg)
	}
	return delivered
}

// SendSnapshot sends snapshot to sub alone.
func (r *Router) SendSnapshot(sub Subscriber, snapshot []controller.Record) bool {
	return r.send(sub, Message{Type: MessageControllers, Controllers: snapshot}) == 1
}

// RouteButtonDelta sends d to the group for d.Identifier only.
// An empty group is not an error.
func (r *Router) RouteButtonDelta(d ButtonDelta) int {
	return r.route(d.Identifier, Message{Type: MessageButton, Button: &d})
}

// RouteAxisDelta sends d to the group for d.Identifier only.
func (r *Router) RouteAxisDelta(d AxisDelta) int {
	return r.route(d.Identifier, Message{Type: MessageAxis, Axis: &d})
}

func (r *Router) route(identifier string, msg Message) int {
	delivered := 0
	for _, sub := range r.groups.Members(identifier) {
		delivered += r.send(sub, msg)
	}
	return delivered
}

func (r *Router) send(sub Subscriber, msg Message) int {
	if sub.Send(msg) {
		return 1
	}
	r.logger.Debug("subscriber buffer full, message dropped", "subscriber", sub.ID(), "type", msg.Type)
	return 0
}
