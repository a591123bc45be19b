package chronology

import (
	"sort"
	"strings"

	"github.com/casefolio/chronicle/pkg/types"
)

// Filter narrows a timeline search. Zero-valued fields do not constrain:
// a zero Start or End leaves that bound open, nil Parties/Tags and an empty
// Keywords string match everything. Provided filters combine with AND.
type Filter struct {
	// Start and End are inclusive date bounds.
	Start types.Date
	End   types.Date

	// Parties matches events listing at least one of these labels exactly.
	Parties []string

	// Keywords is a case-insensitive substring matched against the
	// description, document excerpt, and significance.
	Keywords string

	// Tags matches events carrying at least one of these tags exactly.
	Tags []string
}

// Search filters events and returns them sorted by date ascending. Events
// on the same date keep their relative insertion order. The input slice is
// not modified.
func Search(events []types.Event, f Filter) []types.Event {
	matched := make([]types.Event, 0, len(events))
	for _, e := range events {
		if f.matches(e) {
			matched = append(matched, e)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Date.Before(matched[j].Date)
	})
	return matched
}

func (f Filter) matches(e types.Event) bool {
	if !f.Start.IsZero() && e.Date.Before(f.Start) {
		return false
	}
	if !f.End.IsZero() && e.Date.After(f.End) {
		return false
	}
	if len(f.Parties) > 0 && !anyOverlap(e.Parties, f.Parties) {
		return false
	}
	if len(f.Tags) > 0 && !anyOverlap(e.Tags, f.Tags) {
		return false
	}
	if f.Keywords != "" {
		needle := strings.ToLower(f.Keywords)
		haystack := strings.ToLower(e.Description + " " + e.DocumentExcerpt + " " + e.Significance)
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}

func anyOverlap(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}
