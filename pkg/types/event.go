package types

import "time"

// Precision describes how much resolution a parsed date expression carried.
type Precision string

const (
	// PrecisionExact means the expression named a full calendar date.
	PrecisionExact Precision = "exact"
	// PrecisionMonth means only a month and year were given; the date is
	// normalised to the 1st of that month.
	PrecisionMonth Precision = "month"
	// PrecisionQuarter means a Q<n> YYYY expression; the date is the first
	// day of the quarter.
	PrecisionQuarter Precision = "quarter"
	// PrecisionApproximate means the expression carried an early/mid/late/
	// around qualifier.
	PrecisionApproximate Precision = "approximate"
)

// Event is a single chronology entry. The ID is assigned once at creation and
// never reused; all other fields are replaceable through the repository's
// update operation.
type Event struct {
	ID              int        `json:"id"`
	Date            Date       `json:"date"`
	DatePrecision   Precision  `json:"date_precision"`
	Description     string     `json:"description"`
	Parties         []string   `json:"parties"`
	DocumentSource  string     `json:"document_source,omitempty"`
	DocumentExcerpt string     `json:"document_excerpt,omitempty"`
	Tags            []string   `json:"tags,omitempty"`
	Significance    string     `json:"significance,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}

// Clone returns a deep copy of the event.
func (e Event) Clone() Event {
	out := e
	out.Parties = append([]string{}, e.Parties...)
	if e.Tags != nil {
		out.Tags = append([]string{}, e.Tags...)
	}
	if e.UpdatedAt != nil {
		t := *e.UpdatedAt
		out.UpdatedAt = &t
	}
	return out
}
