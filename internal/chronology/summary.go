package chronology

import (
	"fmt"
	"sort"
)

// Summary is the aggregate view of a chronology.
type Summary struct {
	TotalEvents int      `json:"total_events"`
	DateRange   string   `json:"date_range"`
	Parties     []string `json:"parties"`
	Documents   []string `json:"documents"`
	Tags        []string `json:"tags"`
}

// Summarize computes event count, the min-to-max date span, the known
// party and document labels, and the distinct tags in sorted order.
func Summarize(snap Snapshot) Summary {
	s := Summary{
		TotalEvents: len(snap.Events),
		DateRange:   "No events",
		Parties:     snap.Parties,
		Documents:   snap.Documents,
		Tags:        []string{},
	}
	if len(snap.Events) == 0 {
		return s
	}

	min, max := snap.Events[0].Date, snap.Events[0].Date
	tagSet := map[string]struct{}{}
	for _, e := range snap.Events {
		if e.Date.Before(min) {
			min = e.Date
		}
		if e.Date.After(max) {
			max = e.Date
		}
		for _, tag := range e.Tags {
			tagSet[tag] = struct{}{}
		}
	}

	s.DateRange = fmt.Sprintf("%s to %s", min, max)
	for tag := range tagSet {
		s.Tags = append(s.Tags, tag)
	}
	sort.Strings(s.Tags)
	return s
}
