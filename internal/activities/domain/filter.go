package domain

import (
	"strings"
	"time"
)

// Filter is the value-comparable filter set that keys feeds and aggregate
// caches. The zero value matches everything.
type Filter struct {
	From         time.Time
	To           time.Time
	ConsultantID string
	Branch       string
	Kind         Kind
}

// CacheKey returns the canonical serialization of the filter. Equal
// filters always produce equal keys, so cache entries and feed sessions
// can be keyed by value equality.
func (f Filter) CacheKey() string {
	parts := []string{
		timePart(f.From),
		timePart(f.To),
		orDash(f.ConsultantID),
		orDash(f.Branch),
		orDash(string(f.Kind)),
	}
	return strings.Join(parts, "|")
}

// MatchesBranch reports whether a mutation scoped to branch affects data
// selected by this filter.
func (f Filter) MatchesBranch(branch string) bool {
	return f.Branch == "" || branch == "" || f.Branch == branch
}

func timePart(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
