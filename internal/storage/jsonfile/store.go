// Package jsonfile persists the chronology as a single JSON document on
// disk. This is the default engine and matches the documented persisted
// layout: events with YYYY-MM-DD dates, the id counter, and both indices.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/casefolio/chronicle/pkg/types"
)

// Store reads and writes one JSON file. Writes go through a temp file and
// rename so a crash mid-save cannot truncate the chronology.
type Store struct {
	path string
}

// New creates a store for the given file path, creating the parent
// directory if needed.
func New(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory %s: %w", dir, err)
	}
	return &Store{path: path}, nil
}

func (s *Store) Load(_ context.Context) (*types.Chronology, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return types.NewChronology(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read chronology file: %w", err)
	}

	var c types.Chronology
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("malformed chronology file %s: %w", s.path, err)
	}
	c.Normalize()
	return &c, nil
}

func (s *Store) Save(_ context.Context, c *types.Chronology) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode chronology: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write chronology file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace chronology file: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return nil
}
