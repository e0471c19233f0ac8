package identity

import (
	"context"

	"github.com/google/uuid"
)

// Record is one persisted name to identifier assignment.
// Names repeat across records; identifiers never do.
type Record struct {
	Name       string `yaml:"name" json:"name"`
	Identifier string `yaml:"identifier" json:"identifier"`
}

// Store is the durable, append-only identity log.
type Store interface {
	// List returns every record in insertion order.
	List(ctx context.Context) ([]Record, error)

	// ByName returns the records for name in insertion order.
	ByName(ctx context.Context, name string) ([]Record, error)

	// Append persists rec. It must not return until the write is durable.
	Append(ctx context.Context, rec Record) error
}

// NewIdentifier mints a globally unique identifier.
func NewIdentifier() string {
	return uuid.NewString()
}
