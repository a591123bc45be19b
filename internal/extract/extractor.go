// Package extract scans raw document text for date expressions and turns
// each hit into a chronology event. Recognition is regex-based and
// deliberately permissive; candidates that fail date parsing are skipped
// rather than failing the whole document.
package extract

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/casefolio/chronicle/internal/chronology"
	"github.com/casefolio/chronicle/internal/dateparse"
	"github.com/casefolio/chronicle/pkg/types"
)

// AutoTag marks events created by extraction rather than by hand.
const AutoTag = "auto-extracted"

// EventAdder is the slice of the repository the extractor needs.
type EventAdder interface {
	Add(ctx context.Context, p chronology.AddParams) (*types.Event, error)
}

// Extractor finds dated statements in documents and records them.
type Extractor struct {
	repo EventAdder
}

// New creates an extractor writing through the given repository.
func New(repo EventAdder) *Extractor {
	return &Extractor{repo: repo}
}

// Result reports what a document scan produced. EventsFound counts every
// candidate the patterns matched; EventsAdded counts those whose date
// expression actually parsed.
type Result struct {
	EventsFound int
	EventsAdded int
	EventIDs    []int
}

// Patterns tried per line, anchored forms first. Group 1 is the date
// expression. The same text region may match an anchored and a bare
// pattern; both candidates are kept, so duplicates are possible and left
// for human review.
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:on|dated|as of)\s+(\d{1,2}/\d{1,2}/\d{4})`),
	regexp.MustCompile(`(?i)(?:on|dated|as of)\s+([A-Za-z]+\s+\d{1,2},?\s+\d{4})`),
	regexp.MustCompile(`(\d{1,2}/\d{1,2}/\d{4})`),
	regexp.MustCompile(`([A-Za-z]+\s+\d{1,2},?\s+\d{4})`),
}

const (
	contextBefore = 50
	contextAfter  = 100
	maxDescLen    = 100
)

// Extract scans content line by line and adds one event per matched date
// candidate. A leading YAML front matter block may declare extra parties
// and tags; it is excluded from scanning. defaultParties are attached to
// every created event, before any front matter parties.
func (x *Extractor) Extract(ctx context.Context, content, documentName string, defaultParties []string) (*Result, error) {
	fm, body, err := splitFrontMatter(content)
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", documentName, err)
	}

	parties := append(append([]string{}, defaultParties...), fm.Parties...)
	tags := append([]string{AutoTag}, fm.Tags...)

	result := &Result{EventIDs: []int{}}
	for _, line := range strings.Split(body, "\n") {
		for _, c := range scanLine(line) {
			result.EventsFound++

			e, err := x.repo.Add(ctx, chronology.AddParams{
				DateString:      c.dateString,
				Description:     truncate(c.context, maxDescLen),
				Parties:         parties,
				DocumentSource:  documentName,
				DocumentExcerpt: c.context,
				Tags:            tags,
			})
			if err != nil {
				var perr *dateparse.ParseError
				if errors.As(err, &perr) {
					continue
				}
				return nil, fmt.Errorf("add extracted event: %w", err)
			}
			result.EventsAdded++
			result.EventIDs = append(result.EventIDs, e.ID)
		}
	}
	return result, nil
}

type candidate struct {
	dateString string
	context    string
}

// scanLine runs every pattern over one line and builds a context window
// around each match: up to 50 characters before and 100 after, with "..."
// marking truncation. Window bounds are counted in runes so a multibyte
// character at the edge is never split.
func scanLine(line string) []candidate {
	var out []candidate
	for _, pattern := range datePatterns {
		for _, m := range pattern.FindAllStringSubmatchIndex(line, -1) {
			start, end := m[0], m[1]
			dateString := line[m[2]:m[3]]

			ctxStart := backRunes(line, start, contextBefore)
			ctxEnd := forwardRunes(line, end, contextAfter)
			prefix, suffix := "", ""
			if ctxStart > 0 {
				prefix = "..."
			}
			if ctxEnd < len(line) {
				suffix = "..."
			}

			out = append(out, candidate{
				dateString: dateString,
				context:    prefix + strings.TrimSpace(line[ctxStart:ctxEnd]) + suffix,
			})
		}
	}
	return out
}

// backRunes moves a byte offset back by up to n runes.
func backRunes(s string, idx, n int) int {
	for n > 0 && idx > 0 {
		_, size := utf8.DecodeLastRuneInString(s[:idx])
		idx -= size
		n--
	}
	return idx
}

// forwardRunes moves a byte offset forward by up to n runes.
func forwardRunes(s string, idx, n int) int {
	for n > 0 && idx < len(s) {
		_, size := utf8.DecodeRuneInString(s[idx:])
		idx += size
		n--
	}
	return idx
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
