// Package export renders a chronology in the formats lawyers actually hand
// around: a narrative markdown outline, CSV for spreadsheets, a one-line-
// per-event brief, and a raw JSON dump as the fallback.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/casefolio/chronicle/pkg/types"
)

// EmptyMessage is returned for every format when there are no events.
const EmptyMessage = "No events in chronology"

// Options control the output format and which optional sections appear.
type Options struct {
	// Format is one of "markdown", "csv", "brief"; any other value
	// produces an indented JSON dump.
	Format string

	// IncludeDocuments adds document sources and excerpts to markdown
	// output.
	IncludeDocuments bool

	// IncludeSignificance adds significance notes to markdown output.
	IncludeSignificance bool
}

// Render formats the given events, which are expected to be in the desired
// output order (callers sort by date first).
func Render(events []types.Event, opts Options) string {
	if len(events) == 0 {
		return EmptyMessage
	}
	switch opts.Format {
	case "markdown":
		return renderMarkdown(events, opts)
	case "csv":
		return renderCSV(events)
	case "brief":
		return renderBrief(events)
	default:
		return renderJSON(events)
	}
}

func renderMarkdown(events []types.Event, opts Options) string {
	var b strings.Builder
	b.WriteString("# Case Chronology\n\n")
	fmt.Fprintf(&b, "*Generated on %s*\n\n", time.Now().Format("January 2, 2006"))

	for _, e := range events {
		fmt.Fprintf(&b, "## %s", e.Date.Time().Format("January 2, 2006"))
		if e.DatePrecision != types.PrecisionExact {
			fmt.Fprintf(&b, " (%s)", e.DatePrecision)
		}
		b.WriteString("\n\n")
		fmt.Fprintf(&b, "%s\n\n", e.Description)

		if len(e.Parties) > 0 {
			fmt.Fprintf(&b, "**Parties:** %s\n\n", strings.Join(e.Parties, ", "))
		}
		if opts.IncludeDocuments && e.DocumentSource != "" {
			fmt.Fprintf(&b, "**Source:** %s\n\n", e.DocumentSource)
			if e.DocumentExcerpt != "" {
				fmt.Fprintf(&b, "> %s\n\n", e.DocumentExcerpt)
			}
		}
		if opts.IncludeSignificance && e.Significance != "" {
			fmt.Fprintf(&b, "**Significance:** %s\n\n", e.Significance)
		}
		if len(e.Tags) > 0 {
			fmt.Fprintf(&b, "**Tags:** %s\n\n", strings.Join(e.Tags, ", "))
		}
	}
	return b.String()
}

func renderCSV(events []types.Event) string {
	var b strings.Builder
	w := csv.NewWriter(&b)

	w.Write([]string{"Date", "Precision", "Description", "Parties", "Document", "Tags"})
	for _, e := range events {
		w.Write([]string{
			e.Date.String(),
			string(e.DatePrecision),
			e.Description,
			strings.Join(e.Parties, "|"),
			e.DocumentSource,
			strings.Join(e.Tags, "|"),
		})
	}
	w.Flush()
	return b.String()
}

// renderBrief emits one line per event; the precision is annotated only
// when the date is not exact.
func renderBrief(events []types.Event) string {
	lines := make([]string, 0, len(events))
	for _, e := range events {
		if e.DatePrecision == types.PrecisionExact {
			lines = append(lines, fmt.Sprintf("%s: %s", e.Date, e.Description))
		} else {
			lines = append(lines, fmt.Sprintf("%s (%s): %s", e.Date, e.DatePrecision, e.Description))
		}
	}
	return strings.Join(lines, "\n")
}

func renderJSON(events []types.Event) string {
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		// Events are plain data; this cannot realistically fail.
		return EmptyMessage
	}
	return string(data)
}
