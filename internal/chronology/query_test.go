package chronology_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casefolio/chronicle/internal/chronology"
	"github.com/casefolio/chronicle/pkg/types"
)

func event(id int, date types.Date, description string, parties, tags []string) types.Event {
	return types.Event{
		ID:            id,
		Date:          date,
		DatePrecision: types.PrecisionExact,
		Description:   description,
		Parties:       parties,
		Tags:          tags,
	}
}

func sampleEvents() []types.Event {
	return []types.Event{
		event(1, types.NewDate(2023, time.June, 1), "Deposition of witness", []string{"Jones LLC"}, []string{"discovery"}),
		event(2, types.NewDate(2023, time.January, 10), "Complaint filed", []string{"Acme Corp"}, []string{"pleading"}),
		event(3, types.NewDate(2023, time.March, 15), "Contract breach alleged", []string{"Acme Corp", "Jones LLC"}, []string{"contract", "dispute"}),
		event(4, types.NewDate(2023, time.March, 15), "Response letter sent", []string{"Jones LLC"}, nil),
	}
}

func ids(events []types.Event) []int {
	out := make([]int, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}

func TestSearchNoFilterSortsByDate(t *testing.T) {
	got := chronology.Search(sampleEvents(), chronology.Filter{})
	assert.Equal(t, []int{2, 3, 4, 1}, ids(got))
}

func TestSearchSameDateKeepsInsertionOrder(t *testing.T) {
	got := chronology.Search(sampleEvents(), chronology.Filter{
		Start: types.NewDate(2023, time.March, 15),
		End:   types.NewDate(2023, time.March, 15),
	})
	assert.Equal(t, []int{3, 4}, ids(got))
}

func TestSearchDateBoundsAreInclusive(t *testing.T) {
	events := []types.Event{
		event(1, types.NewDate(2023, time.March, 1), "a", nil, nil),
		event(2, types.NewDate(2023, time.March, 15), "b", nil, nil),
		event(3, types.NewDate(2023, time.April, 1), "c", nil, nil),
	}
	got := chronology.Search(events, chronology.Filter{
		Start: types.NewDate(2023, time.March, 1),
		End:   types.NewDate(2023, time.March, 31),
	})
	assert.Equal(t, []int{1, 2}, ids(got))
}

func TestSearchOpenEndedBounds(t *testing.T) {
	got := chronology.Search(sampleEvents(), chronology.Filter{
		Start: types.NewDate(2023, time.April, 1),
	})
	assert.Equal(t, []int{1}, ids(got))

	got = chronology.Search(sampleEvents(), chronology.Filter{
		End: types.NewDate(2023, time.January, 31),
	})
	assert.Equal(t, []int{2}, ids(got))
}

func TestSearchPartiesMatchAny(t *testing.T) {
	got := chronology.Search(sampleEvents(), chronology.Filter{
		Parties: []string{"Acme Corp", "Nobody Inc"},
	})
	assert.Equal(t, []int{2, 3}, ids(got))
}

func TestSearchPartyMatchIsExact(t *testing.T) {
	got := chronology.Search(sampleEvents(), chronology.Filter{
		Parties: []string{"Acme"},
	})
	assert.Empty(t, got)
}

func TestSearchKeywordsCaseInsensitive(t *testing.T) {
	got := chronology.Search(sampleEvents(), chronology.Filter{
		Keywords: "CONTRACT",
	})
	assert.Equal(t, []int{3}, ids(got))
}

func TestSearchKeywordsCoverExcerptAndSignificance(t *testing.T) {
	events := []types.Event{
		{ID: 1, Date: types.NewDate(2023, time.May, 1), DocumentExcerpt: "payment was overdue"},
		{ID: 2, Date: types.NewDate(2023, time.May, 2), Significance: "turning point"},
		{ID: 3, Date: types.NewDate(2023, time.May, 3), Description: "unrelated"},
	}
	got := chronology.Search(events, chronology.Filter{Keywords: "overdue"})
	assert.Equal(t, []int{1}, ids(got))

	got = chronology.Search(events, chronology.Filter{Keywords: "turning"})
	assert.Equal(t, []int{2}, ids(got))
}

func TestSearchTagsMatchAny(t *testing.T) {
	got := chronology.Search(sampleEvents(), chronology.Filter{
		Tags: []string{"discovery", "pleading"},
	})
	assert.Equal(t, []int{2, 1}, ids(got))
}

func TestSearchFiltersCombineWithAnd(t *testing.T) {
	got := chronology.Search(sampleEvents(), chronology.Filter{
		Parties:  []string{"Jones LLC"},
		Keywords: "contract",
	})
	assert.Equal(t, []int{3}, ids(got))

	got = chronology.Search(sampleEvents(), chronology.Filter{
		Parties: []string{"Jones LLC"},
		Tags:    []string{"pleading"},
	})
	assert.Empty(t, got)
}

func TestSummarize(t *testing.T) {
	snap := chronology.Snapshot{
		Events: []types.Event{
			event(1, types.NewDate(2023, time.June, 1), "a", nil, []string{"discovery"}),
			event(2, types.NewDate(2023, time.January, 10), "b", nil, []string{"pleading", "discovery"}),
		},
		Parties:   []string{"Acme Corp", "Jones LLC"},
		Documents: []string{"contract.pdf"},
	}

	s := chronology.Summarize(snap)
	assert.Equal(t, 2, s.TotalEvents)
	assert.Equal(t, "2023-01-10 to 2023-06-01", s.DateRange)
	assert.Equal(t, []string{"Acme Corp", "Jones LLC"}, s.Parties)
	assert.Equal(t, []string{"contract.pdf"}, s.Documents)
	assert.Equal(t, []string{"discovery", "pleading"}, s.Tags)
}

func TestSummarizeEmpty(t *testing.T) {
	s := chronology.Summarize(chronology.Snapshot{})
	assert.Equal(t, 0, s.TotalEvents)
	assert.Equal(t, "No events", s.DateRange)
	require.NotNil(t, s.Tags)
	assert.Empty(t, s.Tags)
}
