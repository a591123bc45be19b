// Package memory provides an in-memory chronology store for tests and
// ephemeral runs.
package memory

import (
	"context"

	"github.com/casefolio/chronicle/pkg/types"
)

// Store keeps the chronology in process memory. Load and Save exchange deep
// copies so callers cannot alias the stored state.
type Store struct {
	state *types.Chronology
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{}
}

func (s *Store) Load(_ context.Context) (*types.Chronology, error) {
	if s.state == nil {
		return types.NewChronology(), nil
	}
	return s.state.Clone(), nil
}

func (s *Store) Save(_ context.Context, c *types.Chronology) error {
	s.state = c.Clone()
	return nil
}

func (s *Store) Close() error {
	return nil
}
