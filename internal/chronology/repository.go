// Package chronology owns the case timeline: event creation, update and
// deletion, index maintenance, timeline queries, and summaries. The
// repository is the single writer of chronology state; every mutation ends
// with a wholesale save through the storage port.
package chronology

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/casefolio/chronicle/internal/dateparse"
	"github.com/casefolio/chronicle/internal/storage"
	"github.com/casefolio/chronicle/pkg/types"
)

// ErrNotFound is returned when an event id does not exist.
var ErrNotFound = errors.New("event not found")

// Observer is notified after a successful mutation. Action is one of
// "created", "updated", "deleted".
type Observer func(action string, e types.Event)

// Repository holds the canonical chronology in memory and keeps the party
// and document indices consistent with the event list across every
// operation. It is not safe for concurrent use; callers that serve parallel
// requests must serialise access themselves.
type Repository struct {
	store    storage.Store
	state    *types.Chronology
	position map[int]int // event id -> index in state.Events
	observer Observer
	now      func() time.Time
}

// NewRepository loads persisted state through the store and rebuilds the
// derived indices. This is the only point where indices are derived by a
// full rescan; afterwards they are maintained incrementally.
func NewRepository(ctx context.Context, store storage.Store) (*Repository, error) {
	state, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load chronology: %w", err)
	}
	state.Normalize()
	state.RebuildIndices()

	r := &Repository{
		store: store,
		state: state,
		now:   func() time.Time { return time.Now().UTC() },
	}
	r.reindexPositions()
	return r, nil
}

// SetObserver registers a post-mutation hook. Pass nil to remove it.
func (r *Repository) SetObserver(fn Observer) {
	r.observer = fn
}

// AddParams are the inputs for creating an event. DateString is required
// and must parse; everything else is optional.
type AddParams struct {
	DateString      string
	Description     string
	Parties         []string
	DocumentSource  string
	DocumentExcerpt string
	Tags            []string
	Significance    string
}

// Add creates an event, assigns it the next id, updates both indices, and
// persists. A date parse failure leaves the chronology untouched and
// returns the parser's *dateparse.ParseError.
func (r *Repository) Add(ctx context.Context, p AddParams) (*types.Event, error) {
	date, precision, err := dateparse.Parse(p.DateString)
	if err != nil {
		return nil, err
	}

	e := types.Event{
		ID:              r.state.NextID,
		Date:            date,
		DatePrecision:   precision,
		Description:     p.Description,
		Parties:         append([]string{}, p.Parties...),
		DocumentSource:  p.DocumentSource,
		DocumentExcerpt: p.DocumentExcerpt,
		Tags:            append([]string{}, p.Tags...),
		Significance:    p.Significance,
		CreatedAt:       r.now(),
	}

	r.state.Events = append(r.state.Events, e)
	r.position[e.ID] = len(r.state.Events) - 1
	r.state.NextID++

	for _, party := range e.Parties {
		addIndexEntry(r.state.Parties, party, e.ID)
	}
	if e.DocumentSource != "" {
		addIndexEntry(r.state.Documents, e.DocumentSource, e.ID)
	}

	if err := r.store.Save(ctx, r.state); err != nil {
		return nil, fmt.Errorf("save chronology: %w", err)
	}
	r.notify("created", e)

	out := e.Clone()
	return &out, nil
}

// UpdateParams describe a partial event update. Empty DateString or
// Description means "leave unchanged". For Parties and Tags a nil slice
// means "leave unchanged" while an empty non-nil slice clears the field.
// Significance follows the same convention via its pointer.
type UpdateParams struct {
	DateString   string
	Description  string
	Parties      []string
	Tags         []string
	Significance *string
}

// Update applies the provided fields to an existing event and persists.
// The new date (if any) is parsed before anything is touched, so a parse
// failure or unknown id never leaves a partial mutation behind. When the
// party list changes, the old entries are removed from the index and the
// new ones added; labels left with no events are pruned.
func (r *Repository) Update(ctx context.Context, id int, p UpdateParams) (*types.Event, error) {
	idx, ok := r.position[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}

	var (
		newDate      types.Date
		newPrecision types.Precision
	)
	if p.DateString != "" {
		d, precision, err := dateparse.Parse(p.DateString)
		if err != nil {
			return nil, err
		}
		newDate, newPrecision = d, precision
	}

	e := &r.state.Events[idx]
	if p.DateString != "" {
		e.Date = newDate
		e.DatePrecision = newPrecision
	}
	if p.Description != "" {
		e.Description = p.Description
	}
	if p.Parties != nil {
		for _, party := range e.Parties {
			removeIndexEntry(r.state.Parties, party, id)
		}
		e.Parties = append([]string{}, p.Parties...)
		for _, party := range e.Parties {
			addIndexEntry(r.state.Parties, party, id)
		}
	}
	if p.Tags != nil {
		e.Tags = append([]string{}, p.Tags...)
	}
	if p.Significance != nil {
		e.Significance = *p.Significance
	}
	now := r.now()
	e.UpdatedAt = &now

	if err := r.store.Save(ctx, r.state); err != nil {
		return nil, fmt.Errorf("save chronology: %w", err)
	}
	r.notify("updated", *e)

	out := e.Clone()
	return &out, nil
}

// Delete removes an event and its index entries and persists. The freed id
// is never reassigned.
func (r *Repository) Delete(ctx context.Context, id int) error {
	idx, ok := r.position[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	e := r.state.Events[idx]

	r.state.Events = append(r.state.Events[:idx], r.state.Events[idx+1:]...)
	r.reindexPositions()

	for _, party := range e.Parties {
		removeIndexEntry(r.state.Parties, party, id)
	}
	if e.DocumentSource != "" {
		removeIndexEntry(r.state.Documents, e.DocumentSource, id)
	}

	if err := r.store.Save(ctx, r.state); err != nil {
		return fmt.Errorf("save chronology: %w", err)
	}
	r.notify("deleted", e)
	return nil
}

// Snapshot is a read-only copy of the current chronology: deep-copied
// events in insertion order plus the sorted index keys.
type Snapshot struct {
	Events    []types.Event
	Parties   []string
	Documents []string
	NextID    int
}

// Snapshot returns a copy of the current state safe to hand to queries,
// exporters, and handlers.
func (r *Repository) Snapshot() Snapshot {
	events := make([]types.Event, 0, len(r.state.Events))
	for _, e := range r.state.Events {
		events = append(events, e.Clone())
	}
	return Snapshot{
		Events:    events,
		Parties:   sortedKeys(r.state.Parties),
		Documents: sortedKeys(r.state.Documents),
		NextID:    r.state.NextID,
	}
}

// EventIDsForParty returns the ids indexed under a party label, in index
// order. The second return reports whether the label exists.
func (r *Repository) EventIDsForParty(label string) ([]int, bool) {
	ids, ok := r.state.Parties[label]
	if !ok {
		return nil, false
	}
	return append([]int{}, ids...), true
}

// EventIDsForDocument returns the ids indexed under a document source.
func (r *Repository) EventIDsForDocument(source string) ([]int, bool) {
	ids, ok := r.state.Documents[source]
	if !ok {
		return nil, false
	}
	return append([]int{}, ids...), true
}

func (r *Repository) reindexPositions() {
	r.position = make(map[int]int, len(r.state.Events))
	for i, e := range r.state.Events {
		r.position[e.ID] = i
	}
}

func (r *Repository) notify(action string, e types.Event) {
	if r.observer != nil {
		r.observer(action, e.Clone())
	}
}

// addIndexEntry appends an id under a key unless already present, so an
// event listing the same party twice gets one index entry.
func addIndexEntry(index map[string][]int, key string, id int) {
	for _, existing := range index[key] {
		if existing == id {
			return
		}
	}
	index[key] = append(index[key], id)
}

// removeIndexEntry drops an id from a key's list and prunes the key when
// the list empties.
func removeIndexEntry(index map[string][]int, key string, id int) {
	ids, ok := index[key]
	if !ok {
		return
	}
	out := ids[:0]
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	if len(out) == 0 {
		delete(index, key)
		return
	}
	index[key] = out
}

func sortedKeys(m map[string][]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
