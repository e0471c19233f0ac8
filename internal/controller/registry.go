package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/nerrad567/gamepad-io/internal/identity"
)

// Resolver assigns identifiers to newly connected pads.
// identity.Resolver implements it.
//
// inUse holds the identifiers of every live record, so the resolver can
// hand out a free stored identifier before minting a new one.
type Resolver interface {
	Resolve(ctx context.Context, name string, inUse map[string]struct{}) (string, error)
}

// Logger defines the logging interface used by the Registry.
// *logging.Logger satisfies it.
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

// Registry is the live table of connected gamepads.
//
// Records are indexed twice, by connection index (what the capture layer
// reports) and by identifier (what subscribers address), and both indexes
// are updated together on connect and disconnect. A separate slice keeps
// connection order for snapshots.
//
// Every method returns deep copies; the stored records are never shared.
//
// Thread Safety:
// The registry is not locked. It is owned by a single goroutine, the
// relay engine, which serialises every call.
type Registry struct {
	resolver     Resolver
	byIndex      map[int]*Record
	byIdentifier map[string]*Record
	order        []int // connection indices in connection order
	logger       Logger
}

// NewRegistry creates an empty registry.
// resolver is consulted once per connect.
func NewRegistry(resolver Resolver) *Registry {
	return &Registry{
		resolver:     resolver,
		byIndex:      make(map[int]*Record),
		byIdentifier: make(map[string]*Record),
		logger:       noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// OnConnect resolves an identifier for name and inserts a record with
// zeroed button and axis states.
//
// Parameters:
//   - ctx: passed to the resolver, which may write to the identity store
//   - connectionIndex: capture-layer slot; must not already be live
//   - name: device name reported by the pad
//   - buttonCount, axisCount: sizes of the state arrays (negative is zero)
//
// Returns:
//   - Record: copy of the inserted record
//   - error: ErrDuplicateConnection if the slot is live. When the identifier
//     could not be persisted the record is still inserted and returned,
//     together with an error wrapping identity.ErrStoreWrite. Any other
//     error leaves the registry unchanged.
func (r *Registry) OnConnect(ctx context.Context, connectionIndex int, name string, buttonCount, axisCount int) (Record, error) {
	if _, exists := r.byIndex[connectionIndex]; exists {
		return Record{}, fmt.Errorf("%w: %d", ErrDuplicateConnection, connectionIndex)
	}

	identifier, err := r.resolver.Resolve(ctx, name, r.Identifiers())
	var storeErr error
	switch {
	case err == nil:
	case errors.Is(err, identity.ErrStoreWrite) && identifier != "":
		storeErr = err
	default:
		return Record{}, fmt.Errorf("resolving identifier for %q: %w", name, err)
	}

	rec := &Record{
		ConnectionIndex: connectionIndex,
		Name:            name,
		Identifier:      identifier,
		Buttons:         make([]ButtonState, max(buttonCount, 0)),
		Axes:            make([]AxisState, max(axisCount, 0)),
	}
	for i := range rec.Buttons {
		rec.Buttons[i].Index = i
	}
	for i := range rec.Axes {
		rec.Axes[i].Index = i
	}

	r.byIndex[connectionIndex] = rec
	r.byIdentifier[identifier] = rec
	r.order = append(r.order, connectionIndex)

	r.logger.Info("controller connected",
		"index", connectionIndex, "name", name, "identifier", identifier,
		"buttons", len(rec.Buttons), "axes", len(rec.Axes))
	return rec.DeepCopy(), storeErr
}

// OnDisconnect removes the record for connectionIndex and returns it.
// Returns ErrUnknownConnection if the slot is not live; later samples for
// the slot are rejected the same way.
func (r *Registry) OnDisconnect(connectionIndex int) (Record, error) {
	rec, ok := r.byIndex[connectionIndex]
	if !ok {
		return Record{}, fmt.Errorf("%w: %d", ErrUnknownConnection, connectionIndex)
	}

	delete(r.byIndex, connectionIndex)
	delete(r.byIdentifier, rec.Identifier)
	for i, idx := range r.order {
		if idx == connectionIndex {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	r.logger.Info("controller disconnected",
		"index", connectionIndex, "name", rec.Name, "identifier", rec.Identifier)
	return rec.DeepCopy(), nil
}

// LookupByIndex returns a copy of the record for connectionIndex.
func (r *Registry) LookupByIndex(connectionIndex int) (Record, bool) {
	rec, ok := r.byIndex[connectionIndex]
	if !ok {
		return Record{}, false
	}
	return rec.DeepCopy(), true
}

// LookupByIdentifier returns a copy of the record carrying identifier.
func (r *Registry) LookupByIdentifier(identifier string) (Record, bool) {
	rec, ok := r.byIdentifier[identifier]
	if !ok {
		return Record{}, false
	}
	return rec.DeepCopy(), true
}

// SetInUse sets the InUse flag of the record carrying identifier.
// It reports whether the flag changed, so callers only broadcast a new
// snapshot when something visible moved.
// Returns ErrUnknownIdentifier when no live record carries identifier.
func (r *Registry) SetInUse(identifier string, inUse bool) (bool, error) {
	rec, ok := r.byIdentifier[identifier]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownIdentifier, identifier)
	}
	if rec.InUse == inUse {
		return false, nil
	}
	rec.InUse = inUse
	return true, nil
}

// Snapshot returns copies of every live record in connection order.
// It never returns nil so an empty registry encodes as [].
func (r *Registry) Snapshot() []Record {
	out := make([]Record, 0, len(r.order))
	for _, idx := range r.order {
		out = append(out, r.byIndex[idx].DeepCopy())
	}
	return out
}

// Identifiers returns the set of identifiers held by live records.
// The map is freshly allocated on each call.
func (r *Registry) Identifiers() map[string]struct{} {
	ids := make(map[string]struct{}, len(r.byIdentifier))
	for id := range r.byIdentifier {
		ids[id] = struct{}{}
	}
	return ids
}

// Len returns the number of connected pads.
func (r *Registry) Len() int {
	return len(r.order)
}
