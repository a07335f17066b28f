// Package filter narrows a fetched record set by date window, category,
// level and free text, and derives the facets the selection UI offers.
//
// Every function here is pure. The only time dependency is the now value
// passed in, which preset windows are measured against.
package filter

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/five82/logsift/internal/logentry"
)

// Apply returns the records that satisfy every active predicate, in their
// original order. The input slice is not modified.
func Apply(records []logentry.Record, c Criteria, now time.Time) []logentry.Record {
	m := newMatcher(c, now)
	out := make([]logentry.Record, 0, len(records))
	for _, r := range records {
		if m.match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Match reports whether a single record passes the criteria.
func Match(r logentry.Record, c Criteria, now time.Time) bool {
	return newMatcher(c, now).match(r)
}

type matcher struct {
	from, to   time.Time
	categories map[string]struct{}
	levels     map[logentry.Level]struct{}
	needle     string
	caser      cases.Caser
}

func newMatcher(c Criteria, now time.Time) *matcher {
	from, to := c.Window(now)
	m := &matcher{
		from:       from,
		to:         to,
		categories: c.Categories,
		levels:     c.Levels,
		caser:      cases.Fold(),
	}
	if c.SearchText != "" {
		m.needle = m.caser.String(c.SearchText)
	}
	return m
}

func (m *matcher) match(r logentry.Record) bool {
	if r.Timestamp.Before(m.from) || r.Timestamp.After(m.to) {
		return false
	}
	if len(m.categories) > 0 {
		if _, ok := m.categories[r.Category]; !ok {
			return false
		}
	}
	if len(m.levels) > 0 {
		if _, ok := m.levels[r.Level]; !ok {
			return false
		}
	}
	if m.needle != "" && !strings.Contains(m.caser.String(r.Message), m.needle) {
		return false
	}
	return true
}

// DistinctCategories returns the unique categories of records, sorted.
func DistinctCategories(records []logentry.Record) []string {
	seen := make(map[string]struct{}, 8)
	out := make([]string, 0, 8)
	for _, r := range records {
		if _, ok := seen[r.Category]; ok {
			continue
		}
		seen[r.Category] = struct{}{}
		out = append(out, r.Category)
	}
	slices.Sort(out)
	return out
}

// DistinctLevels returns the unique levels of records, least severe first.
func DistinctLevels(records []logentry.Record) []logentry.Level {
	seen := make(map[logentry.Level]struct{}, 5)
	out := make([]logentry.Level, 0, 5)
	for _, r := range records {
		if _, ok := seen[r.Level]; ok {
			continue
		}
		seen[r.Level] = struct{}{}
		out = append(out, r.Level)
	}
	slices.SortFunc(out, func(a, b logentry.Level) int { return cmp.Compare(a, b) })
	return out
}
