package source

import (
	"errors"
	"fmt"
	"time"

	"github.com/five82/logsift/internal/logentry"
)

var (
	// ErrPermission means the process may not read the log store.
	ErrPermission = errors.New("permission denied reading logs")
	// ErrUnavailable means the log store or its tooling is missing.
	ErrUnavailable = errors.New("log store unavailable")
)

// Query selects the records a source returns. From and To are inclusive.
// When ExcludeSystem is set only records produced by Identifier are kept.
type Query struct {
	From          time.Time
	To            time.Time
	ExcludeSystem bool
	Identifier    string
}

// Contains reports whether t falls inside the query window. A zero bound is
// open.
func (q Query) Contains(t time.Time) bool {
	if !q.From.IsZero() && t.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && t.After(q.To) {
		return false
	}
	return true
}

func (q Query) keeps(r logentry.Record) bool {
	if !q.Contains(r.Timestamp) {
		return false
	}
	if q.ExcludeSystem && q.Identifier != "" && r.Subsystem != q.Identifier {
		return false
	}
	return true
}

// FetchError wraps a failure to read from a source.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch from %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// LineFormat renders a record as the native single-line log format used by
// every source.
func LineFormat(r logentry.Record) string {
	return logentry.FormatLine(r)
}
