// Package storage defines the persistence port for chronology state. The
// repository loads the full state once at startup and saves it wholesale
// after every mutation; stores never interpret or partially update it.
package storage

import (
	"context"

	"github.com/casefolio/chronicle/pkg/types"
)

// Store persists chronology state as a single unit.
type Store interface {
	// Load returns the persisted state, or the empty initial state when
	// nothing has been persisted yet. Malformed persisted state is an error.
	Load(ctx context.Context) (*types.Chronology, error)

	// Save replaces the persisted state.
	Save(ctx context.Context, c *types.Chronology) error

	// Close releases any resources held by the store.
	Close() error
}
