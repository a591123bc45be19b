// Package dateparse turns loose date expressions from legal documents into
// calendar dates with an explicit precision tier. Expressions like
// "3/15/2023", "March 2023", "early June 2022", and "Q2 2023" all resolve to
// a concrete date; the precision records how much of that date the source
// text actually pinned down.
package dateparse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/casefolio/chronicle/pkg/types"
)

// ParseError reports an expression that matched no recognised date form.
type ParseError struct {
	Input string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not parse date: %q", e.Input)
}

var (
	numericPattern   = regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`)
	monthYearPattern = regexp.MustCompile(`(?i)^([A-Za-z]+)\s+(\d{4})$`)
	qualifierPattern = regexp.MustCompile(`(?i)^(early|mid|late|around|approximately)\s+`)
	quarterPattern   = regexp.MustCompile(`^Q([1-4])\s+(\d{4})$`)
)

// Rules are evaluated in order; the first whose pattern matches decides the
// outcome, even if its inner parse then fails.
type rule struct {
	match func(string) bool
	apply func(string) (types.Date, types.Precision, error)
}

var rules = []rule{
	{matchNumeric, applyExact},
	{matchMonthYear, applyMonthYear},
	{matchQualifier, applyQualifier},
	{matchQuarter, applyQuarter},
}

// Parse resolves a date expression to a calendar date and precision tier.
// Leading and trailing whitespace is ignored. On failure the returned error
// is a *ParseError carrying the original input.
func Parse(input string) (types.Date, types.Precision, error) {
	s := strings.TrimSpace(input)
	for _, r := range rules {
		if r.match(s) {
			return r.apply(s)
		}
	}
	// Generic fallback: anything the layout list understands is exact.
	d, err := parseGeneric(s)
	if err != nil {
		return types.Date{}, "", &ParseError{Input: input}
	}
	return d, types.PrecisionExact, nil
}

func matchNumeric(s string) bool { return numericPattern.MatchString(s) }

func applyExact(s string) (types.Date, types.Precision, error) {
	d, err := parseGeneric(s)
	if err != nil {
		return types.Date{}, "", &ParseError{Input: s}
	}
	return d, types.PrecisionExact, nil
}

func matchMonthYear(s string) bool {
	m := monthYearPattern.FindStringSubmatch(s)
	if m == nil {
		return false
	}
	_, ok := monthByName(m[1])
	return ok
}

func applyMonthYear(s string) (types.Date, types.Precision, error) {
	m := monthYearPattern.FindStringSubmatch(s)
	month, _ := monthByName(m[1])
	year, _ := strconv.Atoi(m[2])
	return types.NewDate(year, month, 1), types.PrecisionMonth, nil
}

func matchQualifier(s string) bool { return qualifierPattern.MatchString(s) }

func applyQualifier(s string) (types.Date, types.Precision, error) {
	m := qualifierPattern.FindStringSubmatch(s)
	qualifier := strings.ToLower(m[1])
	rest := strings.TrimSpace(s[len(m[0]):])

	var d types.Date
	if mm := monthYearPattern.FindStringSubmatch(rest); mm != nil {
		month, ok := monthByName(mm[1])
		if !ok {
			return types.Date{}, "", &ParseError{Input: s}
		}
		year, _ := strconv.Atoi(mm[2])
		d = types.NewDate(year, month, 1)
	} else {
		parsed, err := parseGeneric(rest)
		if err != nil {
			return types.Date{}, "", &ParseError{Input: s}
		}
		d = parsed
	}

	switch qualifier {
	case "early":
		d = d.WithDay(1)
	case "mid":
		d = d.WithDay(15)
	case "late":
		d = d.WithDay(28)
	}
	// around/approximately keep the resolved day.
	return d, types.PrecisionApproximate, nil
}

func matchQuarter(s string) bool { return quarterPattern.MatchString(s) }

func applyQuarter(s string) (types.Date, types.Precision, error) {
	m := quarterPattern.FindStringSubmatch(s)
	quarter, _ := strconv.Atoi(m[1])
	year, _ := strconv.Atoi(m[2])
	month := time.Month((quarter-1)*3 + 1)
	return types.NewDate(year, month, 1), types.PrecisionQuarter, nil
}

// Layouts tried by the generic parser, most specific first. Month-name case
// is normalised before matching so "march 15, 2023" parses.
var genericLayouts = []string{
	"1/2/2006",
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
	"January 2 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	"January 2006",
	"Jan 2006",
}

func parseGeneric(s string) (types.Date, error) {
	normalized := capitalizeWords(s)
	for _, layout := range genericLayouts {
		if t, err := time.Parse(layout, normalized); err == nil {
			return types.DateOf(t), nil
		}
	}
	return types.Date{}, fmt.Errorf("no layout matched %q", s)
}

// capitalizeWords title-cases each alphabetic token so month names match Go
// layout casing regardless of input case.
func capitalizeWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		runes := []rune(w)
		if len(runes) > 0 && unicode.IsLetter(runes[0]) {
			words[i] = string(unicode.ToUpper(runes[0])) + strings.ToLower(string(runes[1:]))
		}
	}
	return strings.Join(words, " ")
}

var monthAbbrevs = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// monthByName resolves a month name or abbreviation of at least three
// letters ("Sep", "Sept", "September") case-insensitively.
func monthByName(name string) (time.Month, bool) {
	lower := strings.ToLower(name)
	if len(lower) < 3 {
		return 0, false
	}
	m, ok := monthAbbrevs[lower[:3]]
	if !ok {
		return 0, false
	}
	// Reject words that merely share the first three letters ("margin" is
	// not March). Prefixes of the full name ("Sept") are accepted.
	full := strings.ToLower(m.String())
	if !strings.HasPrefix(full, lower) && !strings.HasPrefix(lower, full) {
		return 0, false
	}
	return m, true
}
