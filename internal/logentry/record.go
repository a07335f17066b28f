// Package logentry defines the log record value shared by every other
// logsift package.
package logentry

import (
	"fmt"
	"strings"
	"time"
)

// Record is one captured log line. Records are values and are never mutated
// after a source constructs them.
type Record struct {
	ID        string    `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Subsystem string    `json:"subsystem"`
	Category  string    `json:"category"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
}

// Equal reports whether two records carry the same values. IDs only take
// part when both records have one.
func Equal(a, b Record) bool {
	if a.ID != "" && b.ID != "" && a.ID != b.ID {
		return false
	}
	return a.Timestamp.Equal(b.Timestamp) &&
		a.Subsystem == b.Subsystem &&
		a.Category == b.Category &&
		a.Level == b.Level &&
		a.Message == b.Message
}

const lineTimestampLayout = "2006-01-02 15:04:05.000"

// FormatLine renders a record in the native single-line log format:
//
//	2025-12-13 10:11:12.000 ERROR [net:http] – request timed out
func FormatLine(r Record) string {
	ts := r.Timestamp.In(time.Local).Format(lineTimestampLayout)
	level := strings.ToUpper(r.Level.String())
	parts := []string{ts, level}
	if tag := composeTag(r.Subsystem, r.Category); tag != "" {
		parts = append(parts, tag)
	}
	header := strings.Join(parts, " ")
	message := strings.TrimSpace(r.Message)
	if message == "" {
		return header
	}
	// Multi-line messages stay on one line so every record maps to one line.
	message = strings.ReplaceAll(message, "\n", `\n`)
	return header + " – " + message
}

// Tag returns the bracketed subsystem and category, or "" when both are empty.
func (r Record) Tag() string {
	return composeTag(r.Subsystem, r.Category)
}

func composeTag(subsystem, category string) string {
	subsystem = strings.TrimSpace(subsystem)
	category = strings.TrimSpace(category)
	switch {
	case subsystem != "" && category != "":
		return fmt.Sprintf("[%s:%s]", subsystem, category)
	case subsystem != "":
		return fmt.Sprintf("[%s]", subsystem)
	case category != "":
		return fmt.Sprintf("[:%s]", category)
	default:
		return ""
	}
}
