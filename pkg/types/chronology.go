package types

// Chronology is the full persisted state of a case timeline: the canonical
// event list, the id counter, and the two derived indices. Stores load and
// save it wholesale; the repository is the only component that mutates it.
type Chronology struct {
	// Events in insertion order (which equals id-assignment order).
	Events []Event `json:"events"`

	// NextID is the id the next created event will receive. Strictly greater
	// than every id ever assigned, even after deletions.
	NextID int `json:"next_id"`

	// Parties maps a party label to the ids of events currently listing it.
	Parties map[string][]int `json:"parties"`

	// Documents maps a document source to the ids of events currently citing it.
	Documents map[string][]int `json:"documents"`
}

// NewChronology returns the empty initial state.
func NewChronology() *Chronology {
	return &Chronology{
		Events:    []Event{},
		NextID:    1,
		Parties:   map[string][]int{},
		Documents: map[string][]int{},
	}
}

// Normalize repairs the containers of a freshly loaded state so the
// repository never has to nil-check them.
func (c *Chronology) Normalize() {
	if c.Events == nil {
		c.Events = []Event{}
	}
	if c.NextID < 1 {
		c.NextID = 1
	}
	for _, e := range c.Events {
		if e.ID >= c.NextID {
			c.NextID = e.ID + 1
		}
	}
	if c.Parties == nil {
		c.Parties = map[string][]int{}
	}
	if c.Documents == nil {
		c.Documents = map[string][]int{}
	}
}

// RebuildIndices regenerates the party and document indices from the event
// list. Only called at load time; all steady-state index maintenance is
// incremental in the repository.
func (c *Chronology) RebuildIndices() {
	c.Parties = map[string][]int{}
	c.Documents = map[string][]int{}
	for _, e := range c.Events {
		for _, p := range e.Parties {
			if !containsID(c.Parties[p], e.ID) {
				c.Parties[p] = append(c.Parties[p], e.ID)
			}
		}
		if e.DocumentSource != "" {
			if !containsID(c.Documents[e.DocumentSource], e.ID) {
				c.Documents[e.DocumentSource] = append(c.Documents[e.DocumentSource], e.ID)
			}
		}
	}
}

// Clone returns a deep copy of the chronology.
func (c *Chronology) Clone() *Chronology {
	out := &Chronology{
		Events:    make([]Event, 0, len(c.Events)),
		NextID:    c.NextID,
		Parties:   make(map[string][]int, len(c.Parties)),
		Documents: make(map[string][]int, len(c.Documents)),
	}
	for _, e := range c.Events {
		out.Events = append(out.Events, e.Clone())
	}
	for k, ids := range c.Parties {
		out.Parties[k] = append([]int{}, ids...)
	}
	for k, ids := range c.Documents {
		out.Documents[k] = append([]int{}, ids...)
	}
	return out
}

func containsID(ids []int, id int) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
