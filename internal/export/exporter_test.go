package export_test

import (
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casefolio/chronicle/internal/export"
	"github.com/casefolio/chronicle/pkg/types"
)

func sampleEvents() []types.Event {
	return []types.Event{
		{
			ID:              1,
			Date:            types.NewDate(2023, time.January, 10),
			DatePrecision:   types.PrecisionExact,
			Description:     "Complaint filed",
			Parties:         []string{"Acme Corp", "Jones LLC"},
			DocumentSource:  "complaint.pdf",
			DocumentExcerpt: "plaintiff alleges breach",
			Tags:            []string{"pleading"},
			Significance:    "starts the limitation clock",
		},
		{
			ID:            2,
			Date:          types.NewDate(2023, time.March, 1),
			DatePrecision: types.PrecisionMonth,
			Description:   "Settlement discussions, began",
			Parties:       []string{},
		},
	}
}

func TestRenderEmpty(t *testing.T) {
	for _, format := range []string{"markdown", "csv", "brief", "json"} {
		assert.Equal(t, export.EmptyMessage, export.Render(nil, export.Options{Format: format}))
	}
}

func TestRenderMarkdown(t *testing.T) {
	out := export.Render(sampleEvents(), export.Options{
		Format:              "markdown",
		IncludeDocuments:    true,
		IncludeSignificance: true,
	})

	assert.True(t, strings.HasPrefix(out, "# Case Chronology\n"))
	assert.Contains(t, out, "## January 10, 2023\n")
	assert.Contains(t, out, "Complaint filed")
	assert.Contains(t, out, "**Parties:** Acme Corp, Jones LLC")
	assert.Contains(t, out, "**Source:** complaint.pdf")
	assert.Contains(t, out, "> plaintiff alleges breach")
	assert.Contains(t, out, "**Significance:** starts the limitation clock")
	assert.Contains(t, out, "**Tags:** pleading")

	// Month precision is annotated; exact is not.
	assert.Contains(t, out, "## March 1, 2023 (month)")
	assert.NotContains(t, out, "January 10, 2023 (exact)")
}

func TestRenderMarkdownOmitsOptionalSections(t *testing.T) {
	out := export.Render(sampleEvents(), export.Options{Format: "markdown"})
	assert.NotContains(t, out, "**Source:**")
	assert.NotContains(t, out, "**Significance:**")
}

func TestRenderCSVRoundTrips(t *testing.T) {
	out := export.Render(sampleEvents(), export.Options{Format: "csv"})

	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{"Date", "Precision", "Description", "Parties", "Document", "Tags"}, records[0])
	assert.Equal(t, []string{"2023-01-10", "exact", "Complaint filed", "Acme Corp|Jones LLC", "complaint.pdf", "pleading"}, records[1])
	// The embedded comma survives CSV quoting.
	assert.Equal(t, "Settlement discussions, began", records[2][2])
}

func TestRenderBrief(t *testing.T) {
	out := export.Render(sampleEvents(), export.Options{Format: "brief"})
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2)

	// Exact dates carry no precision annotation; everything else does.
	assert.Equal(t, "2023-01-10: Complaint filed", lines[0])
	assert.Equal(t, "2023-03-01 (month): Settlement discussions, began", lines[1])
}

func TestRenderBriefAnnotatesEveryInexactPrecision(t *testing.T) {
	events := []types.Event{
		{Date: types.NewDate(2023, time.April, 1), DatePrecision: types.PrecisionQuarter, Description: "a"},
		{Date: types.NewDate(2023, time.June, 15), DatePrecision: types.PrecisionApproximate, Description: "b"},
	}
	out := export.Render(events, export.Options{Format: "brief"})
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "2023-04-01 (quarter): a", lines[0])
	assert.Equal(t, "2023-06-15 (approximate): b", lines[1])
}

func TestRenderUnknownFormatFallsBackToJSON(t *testing.T) {
	out := export.Render(sampleEvents(), export.Options{Format: "yaml"})

	var decoded []types.Event
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "Complaint filed", decoded[0].Description)
}
