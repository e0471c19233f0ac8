package relay

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gamepad-io/internal/controller"
	"github.com/nerrad567/gamepad-io/internal/identity"
)

// DefaultQueueSize is used when Config.QueueSize is not positive.
const DefaultQueueSize = 1024

// Logger defines the logging interface used by the relay package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Config configures an Engine.
type Config struct {
	// QueueSize bounds the inbound queue. Submitters block when it is full.
	QueueSize int

	// Version is reported to subscribers that ask for it.
	Version string
}

// Stats is a point-in-time count of engine state.
type Stats struct {
	Controllers int `json:"controllers"`
	Subscribers int `json:"subscribers"`
}

// op runs on the engine goroutine.
type op func(ctx context.Context)

// Engine serialises every registry mutation and routing decision onto
// the goroutine running Run.
//
// Callers never touch the registry or the router directly. Capture events
// and subscriber requests are queued as closures and run in arrival
// order; reads such as Snapshot go through the same queue and wait for
// the answer.
//
// Collaborators (SetHapticSink, SetTelemetry, SetEventSink, SetLogger)
// must be set before Run is called.
//
// Thread Safety:
// All exported methods except the setters are safe for concurrent use.
// They block only while the queue is full, until ctx is done or the
// engine stops.
type Engine struct {
	registry *controller.Registry
	router   *Router
	queue    chan op
	done     chan struct{}
	running  atomic.Bool
	version  string

	// admitMu is held shared by submitters while they enqueue and
	// exclusively by Run once it stops admitting work.
	admitMu  sync.RWMutex
	stopped  bool
	stopping chan struct{}

	haptics   HapticSink
	telemetry Telemetry
	events    EventSink
	logger    Logger
}

// New creates an engine that owns registry.
func New(cfg Config, registry *controller.Registry) *Engine {
	size := cfg.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Engine{
		registry: registry,
		router:   NewRouter(),
		queue:    make(chan op, size),
		done:     make(chan struct{}),
		stopping: make(chan struct{}),
		version:  cfg.Version,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the engine and its router.
func (e *Engine) SetLogger(logger Logger) {
	e.logger = logger
	e.router.SetLogger(logger)
}

// SetHapticSink sets where haptic commands are forwarded.
func (e *Engine) SetHapticSink(sink HapticSink) {
	e.haptics = sink
}

// SetTelemetry sets the optional input telemetry collaborator.
func (e *Engine) SetTelemetry(t Telemetry) {
	e.telemetry = t
}

// SetEventSink sets the optional event stream collaborator.
func (e *Engine) SetEventSink(sink EventSink) {
	e.events = sink
}

// Version returns the software version reported to subscribers.
func (e *Engine) Version() string {
	return e.version
}

// Run processes queued work until ctx is cancelled. It returns nil on
// cancellation.
//
// On cancellation Run stops admitting work, then executes everything that
// was already accepted before returning, so a nil error from a submission
// always means the work ran. Submissions after that point fail with
// ErrEngineStopped.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrEngineRunning
	}
	defer close(e.done)

	e.logger.Info("relay engine started", "queue_size", cap(e.queue))
	for {
		select {
		case <-ctx.Done():
			drained := e.stop(context.WithoutCancel(ctx))
			e.logger.Info("relay engine stopped", "drained", drained)
			return nil
		case fn := <-e.queue:
			fn(ctx)
		}
	}
}

// stop closes admission and runs the accepted backlog. It returns the
// number of ops drained.
func (e *Engine) stop(ctx context.Context) int {
	close(e.stopping)

	// Wait for submitters that are mid-enqueue.
	e.admitMu.Lock()
	e.stopped = true
	e.admitMu.Unlock()

	n := 0
	for {
		select {
		case fn := <-e.queue:
			fn(ctx)
			n++
		default:
			return n
		}
	}
}

// Done is closed once Run has returned.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

func (e *Engine) submit(ctx context.Context, fn op) error {
	e.admitMu.RLock()
	defer e.admitMu.RUnlock()

	if e.stopped {
		return ErrEngineStopped
	}
	select {
	case <-e.stopping:
		return ErrEngineStopped
	default:
	}
	select {
	case e.queue <- fn:
		return nil
	case <-e.stopping:
		return ErrEngineStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// query runs fn on the engine goroutine and waits for its result.
func query[T any](ctx context.Context, e *Engine, fn func() T) (T, error) {
	var zero T
	reply := make(chan T, 1)
	if err := e.submit(ctx, func(context.Context) { reply <- fn() }); err != nil {
		return zero, err
	}
	select {
	case v := <-reply:
		return v, nil
	case <-e.done:
		// Accepted work runs before done closes.
		select {
		case v := <-reply:
			return v, nil
		default:
			return zero, ErrEngineStopped
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Capture side.

// Connect queues a connect event from the capture collaborator.
//
// Parameters:
//   - ctx: bounds the wait for queue space
//   - connectionIndex: capture-layer slot of the pad
//   - name: device name, used to pick a stable identifier
//   - buttonCount, axisCount: sizes of the pad's state arrays
//
// Returns:
//   - error: ErrEngineStopped or ctx.Err() if the event was not queued.
//     Registry errors (duplicate slot, store failure) are logged on the
//     engine goroutine, not returned.
func (e *Engine) Connect(ctx context.Context, connectionIndex int, name string, buttonCount, axisCount int) error {
	return e.submit(ctx, func(ctx context.Context) {
		e.handleConnect(ctx, connectionIndex, name, buttonCount, axisCount)
	})
}

// Disconnect queues a disconnect event. The pad's record is removed and
// a snapshot broadcast; its group members stay joined.
func (e *Engine) Disconnect(ctx context.Context, connectionIndex int) error {
	return e.submit(ctx, func(ctx context.Context) {
		e.handleDisconnect(ctx, connectionIndex)
	})
}

// Button queues a button sample. Only a changed sample reaches the pad's
// group and the telemetry and event sinks.
func (e *Engine) Button(ctx context.Context, connectionIndex int, sample controller.ButtonState) error {
	return e.submit(ctx, func(ctx context.Context) {
		e.handleButton(ctx, connectionIndex, sample)
	})
}

// Axis queues an axis sample.
func (e *Engine) Axis(ctx context.Context, connectionIndex int, sample controller.AxisState) error {
	return e.submit(ctx, func(ctx context.Context) {
		e.handleAxis(ctx, connectionIndex, sample)
	})
}

// Subscriber side.

// Attach registers sub and sends it the current snapshot.
// sub receives every later broadcast until Detach.
func (e *Engine) Attach(ctx context.Context, sub Subscriber) error {
	return e.submit(ctx, func(context.Context) {
		e.router.Add(sub)
		e.router.SendSnapshot(sub, e.registry.Snapshot())
		e.logger.Debug("subscriber attached", "subscriber", sub.ID(), "subscribers", e.router.Len())
	})
}

// Detach unregisters sub and takes it out of its group.
func (e *Engine) Detach(ctx context.Context, sub Subscriber) error {
	return e.submit(ctx, func(context.Context) {
		identifier, wasMember := e.router.Remove(sub)
		e.logger.Debug("subscriber detached", "subscriber", sub.ID(), "subscribers", e.router.Len())
		if wasMember && e.refreshInUse(identifier) {
			e.broadcast()
		}
	})
}

// Join puts sub in the group for identifier, leaving its previous group.
// The pad is marked in use and a snapshot is broadcast. Joining an
// identifier with no live pad is allowed; deltas flow once it connects.
func (e *Engine) Join(ctx context.Context, sub Subscriber, identifier string) error {
	return e.submit(ctx, func(context.Context) {
		if previous := e.router.JoinGroup(sub, identifier); previous != "" {
			e.refreshInUse(previous)
		}
		e.refreshInUse(identifier)
		e.broadcast()
	})
}

// Leave takes sub out of the group for identifier. The pad is marked not
// in use once its group is empty, and a snapshot is broadcast.
func (e *Engine) Leave(ctx context.Context, sub Subscriber, identifier string) error {
	return e.submit(ctx, func(context.Context) {
		e.router.LeaveGroup(sub, identifier)
		e.refreshInUse(identifier)
		e.broadcast()
	})
}

// Haptic forwards a haptic command to the pad with identifier.
// Unknown identifiers are ignored.
func (e *Engine) Haptic(ctx context.Context, identifier, hapticType string, params json.RawMessage) error {
	return e.submit(ctx, func(context.Context) {
		rec, ok := e.registry.LookupByIdentifier(identifier)
		if !ok {
			e.logger.Debug("haptic for unknown identifier ignored", "identifier", identifier)
			return
		}
		if e.haptics == nil {
			return
		}
		if err := e.haptics.SendHaptic(rec.ConnectionIndex, hapticType, params); err != nil {
			e.logger.Warn("haptic forward failed", "identifier", identifier, "index", rec.ConnectionIndex, "error", err)
		}
	})
}

// Snapshot returns the current ordered registry snapshot.
//
// Returns:
//   - []controller.Record: deep copies in connection order, never nil
//   - error: ErrEngineStopped or ctx.Err()
func (e *Engine) Snapshot(ctx context.Context) ([]controller.Record, error) {
	return query(ctx, e, e.registry.Snapshot)
}

// Lookup returns the live record carrying identifier.
func (e *Engine) Lookup(ctx context.Context, identifier string) (controller.Record, bool, error) {
	type result struct {
		rec controller.Record
		ok  bool
	}
	r, err := query(ctx, e, func() result {
		rec, ok := e.registry.LookupByIdentifier(identifier)
		return result{rec, ok}
	})
	return r.rec, r.ok, err
}

// Stats returns current pad and subscriber counts.
func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	return query(ctx, e, func() Stats {
		return Stats{Controllers: e.registry.Len(), Subscribers: e.router.Len()}
	})
}

// Handlers. These run on the engine goroutine only.

func (e *Engine) handleConnect(ctx context.Context, connectionIndex int, name string, buttonCount, axisCount int) {
	rec, err := e.registry.OnConnect(ctx, connectionIndex, name, buttonCount, axisCount)
	switch {
	case err == nil:
	case errors.Is(err, identity.ErrStoreWrite):
		e.logger.Error("identity store write failed; identifier valid for this session only",
			"index", connectionIndex, "name", name, "identifier", rec.Identifier, "error", err)
	default:
		e.logger.Warn("connect rejected", "index", connectionIndex, "name", name, "error", err)
		return
	}

	// Subscribers may have joined this identifier before the pad arrived.
	e.refreshInUse(rec.Identifier)
	e.broadcast()
	e.publish(ctx, StreamEvent{
		Type:            StreamConnected,
		Identifier:      rec.Identifier,
		Name:            rec.Name,
		ConnectionIndex: rec.ConnectionIndex,
	})
}

func (e *Engine) handleDisconnect(ctx context.Context, connectionIndex int) {
	rec, err := e.registry.OnDisconnect(connectionIndex)
	if err != nil {
		e.logger.Warn("disconnect for unknown connection", "index", connectionIndex, "error", err)
		return
	}
	e.broadcast()
	e.publish(ctx, StreamEvent{
		Type:            StreamDisconnected,
		Identifier:      rec.Identifier,
		Name:            rec.Name,
		ConnectionIndex: rec.ConnectionIndex,
	})
}

func (e *Engine) handleButton(ctx context.Context, connectionIndex int, sample controller.ButtonState) {
	identifier, outcome, err := e.registry.ApplyButton(connectionIndex, sample)
	if err != nil {
		e.logger.Warn("button sample dropped", "index", connectionIndex, "button", sample.Index, "error", err)
		return
	}
	if !outcome.Changed() {
		return
	}

	d := buttonDelta(identifier, sample)
	e.router.RouteButtonDelta(d)
	if e.telemetry != nil {
		e.telemetry.WriteButtonSample(identifier, sample.Index, sample.Pressed, sample.Touched, sample.Value, sample.Percent)
	}
	e.publish(ctx, StreamEvent{Type: StreamButton, Identifier: identifier, ConnectionIndex: connectionIndex, Button: &d})
}

func (e *Engine) handleAxis(ctx context.Context, connectionIndex int, sample controller.AxisState) {
	identifier, outcome, err := e.registry.ApplyAxis(connectionIndex, sample)
	if err != nil {
		e.logger.Warn("axis sample dropped", "index", connectionIndex, "axis", sample.Index, "error", err)
		return
	}
	if !outcome.Changed() {
		return
	}

	d := axisDelta(identifier, sample)
	e.router.RouteAxisDelta(d)
	if e.telemetry != nil {
		e.telemetry.WriteAxisSample(identifier, sample.Index, sample.Pressed, sample.Value)
	}
	e.publish(ctx, StreamEvent{Type: StreamAxis, Identifier: identifier, ConnectionIndex: connectionIndex, Axis: &d})
}

// refreshInUse sets the pad's InUse flag from its group size and reports
// whether the flag changed. Identifiers with no live pad are a no-op.
func (e *Engine) refreshInUse(identifier string) bool {
	changed, err := e.registry.SetInUse(identifier, e.router.Groups().Size(identifier) > 0)
	if err != nil {
		e.logger.Debug("in-use change for unknown identifier", "identifier", identifier)
		return false
	}
	return changed
}

func (e *Engine) broadcast() {
	e.router.BroadcastSnapshot(e.registry.Snapshot())
}

func (e *Engine) publish(ctx context.Context, ev StreamEvent) {
	if e.events == nil {
		return
	}
	ev.Timestamp = time.Now().UTC()
	if err := e.events.Publish(ctx, ev.Identifier, ev); err != nil {
		e.logger.Warn("event stream publish failed", "type", ev.Type, "identifier", ev.Identifier, "error", err)
	}
}
