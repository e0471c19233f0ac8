package identity

import (
	"context"
	"fmt"
	"sync"
)

// Logger is the logging interface used by the Resolver.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Resolver picks the identifier for a newly connected gamepad.
//
// Records that could not be persisted are kept in a session overlay, so
// a pad that reconnects in the same session keeps its identifier. Every
// Resolve retries persisting the overlay before it looks anything up.
//
// Thread Safety: safe for concurrent use; calls are serialised.
type Resolver struct {
	store  Store
	mint   func() string
	logger Logger

	mu      sync.Mutex
	pending []Record
}

// NewResolver creates a resolver over store.
func NewResolver(store Store) *Resolver {
	return &Resolver{
		store:  store,
		mint:   NewIdentifier,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the resolver.
func (r *Resolver) SetLogger(logger Logger) {
	r.logger = logger
}

// Resolve returns the identifier a pad called name should use.
//
// Candidates are the stored records for name, followed by any unpersisted
// records for name from this session. The first candidate not in inUse
// wins. When every candidate is taken, a new identifier is minted and
// appended to the store before it is returned.
//
// Parameters:
//   - name: the device name reported by the capture layer
//   - inUse: identifiers currently held by connected pads
//
// Returns:
//   - string: the identifier, non-empty unless the lookup itself failed
//   - error: wraps ErrStoreWrite when the returned identifier is not yet
//     durable; the identifier is still valid for this session
func (r *Resolver) Resolve(ctx context.Context, name string, inUse map[string]struct{}) (string, error) {
	if name == "" {
		return "", ErrInvalidName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.flushPending(ctx)

	known, err := r.store.ByName(ctx, name)
	if err != nil {
		return "", fmt.Errorf("looking up %q: %w", name, err)
	}
	for _, rec := range known {
		if _, taken := inUse[rec.Identifier]; !taken {
			return rec.Identifier, nil
		}
	}
	for _, rec := range r.pending {
		if rec.Name != name {
			continue
		}
		if _, taken := inUse[rec.Identifier]; !taken {
			return rec.Identifier, fmt.Errorf("%w: %s still unsaved", ErrStoreWrite, rec.Identifier)
		}
	}

	rec := Record{Name: name, Identifier: r.mint()}
	if err := r.store.Append(ctx, rec); err != nil {
		r.pending = append(r.pending, rec)
		r.logger.Error("identity record not persisted; identifier will not survive restart",
			"name", name, "identifier", rec.Identifier, "error", err)
		return rec.Identifier, fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}

	r.logger.Info("identifier issued", "name", name, "identifier", rec.Identifier, "known", len(known))
	return rec.Identifier, nil
}

// flushPending retries persisting the overlay in issue order. Records the
// store already holds are dropped without a second append. It stops at the
// first failure so the stored order matches the issue order.
func (r *Resolver) flushPending(ctx context.Context) {
	for len(r.pending) > 0 {
		rec := r.pending[0]

		stored, err := r.store.ByName(ctx, rec.Name)
		if err != nil {
			return
		}
		if !containsIdentifier(stored, rec.Identifier) {
			if err := r.store.Append(ctx, rec); err != nil {
				return
			}
		}

		r.pending = r.pending[1:]
		r.logger.Info("identity record persisted on retry", "name", rec.Name, "identifier", rec.Identifier)
	}
}

func containsIdentifier(records []Record, identifier string) bool {
	for _, rec := range records {
		if rec.Identifier == identifier {
			return true
		}
	}
	return false
}
