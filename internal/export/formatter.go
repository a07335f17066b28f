// Package export renders log records into the supported file types and
// writes the result to a destination.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/five82/logsift/internal/logentry"
)

// EmptyPlaceholder is the payload of human-readable exports, including the
// clipboard copy, when there is nothing to export.
const EmptyPlaceholder = "No log entries found"

const humanTimestampLayout = "2006-01-02 15:04:05.000 -0700"

// csvHeader is the column order of CSV exports.
var csvHeader = []string{"id", "timestamp", "subsystem", "category", "level", "message"}

// Formatter renders records. LineFormat produces the native line for the
// log type; nil uses logentry.FormatLine.
type Formatter struct {
	LineFormat func(logentry.Record) string
}

// Render serializes records as the given file type.
func (f Formatter) Render(t FileType, records []logentry.Record) ([]byte, error) {
	spec, ok := fileTypeSpecs[t]
	if !ok {
		return nil, fmt.Errorf("unsupported export type %d", int(t))
	}
	return spec.render(f, records)
}

func (f Formatter) lineFormat() func(logentry.Record) string {
	if f.LineFormat != nil {
		return f.LineFormat
	}
	return logentry.FormatLine
}

func renderLog(f Formatter, records []logentry.Record) ([]byte, error) {
	format := f.lineFormat()
	var buf bytes.Buffer
	for _, r := range records {
		buf.WriteString(format(r))
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

func renderJSON(_ Formatter, records []logentry.Record) ([]byte, error) {
	if records == nil {
		records = []logentry.Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return append(data, '\n'), nil
}

func renderCSV(_ Formatter, records []logentry.Record) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range records {
		row := []string{
			csvField(r.ID),
			r.Timestamp.Format(time.RFC3339Nano),
			csvField(r.Subsystem),
			csvField(r.Category),
			r.Level.Name(),
			csvField(r.Message),
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// csvField doubles the carriage return of every CRLF in a field. The csv
// reader folds each "\r\n" line ending into "\n", so the extra "\r" is
// what survives parsing.
func csvField(value string) string {
	return strings.ReplaceAll(value, "\r\n", "\r\r\n")
}

func renderMarkdown(_ Formatter, records []logentry.Record) ([]byte, error) {
	return renderBlocks(records, func(b *strings.Builder, r logentry.Record) {
		fmt.Fprintf(b, "### %s\n", humanTimestamp(r.Timestamp))
		fmt.Fprintf(b, "- **Subsystem:** %s\n", r.Subsystem)
		fmt.Fprintf(b, "- **Category:** %s\n", r.Category)
		fmt.Fprintf(b, "- **Level:** %s\n", r.Level)
		fmt.Fprintf(b, "- **Message:** %s\n", r.Message)
	}), nil
}

func renderText(_ Formatter, records []logentry.Record) ([]byte, error) {
	return renderBlocks(records, func(b *strings.Builder, r logentry.Record) {
		fmt.Fprintf(b, "Date: %s\n", humanTimestamp(r.Timestamp))
		fmt.Fprintf(b, "Subsystem: %s\n", r.Subsystem)
		fmt.Fprintf(b, "Category: %s\n", r.Category)
		fmt.Fprintf(b, "Level: %s\n", r.Level)
		fmt.Fprintf(b, "Message: %s\n", r.Message)
	}), nil
}

func renderBlocks(records []logentry.Record, block func(*strings.Builder, logentry.Record)) []byte {
	if len(records) == 0 {
		return []byte(EmptyPlaceholder + "\n")
	}
	var b strings.Builder
	for i, r := range records {
		if i > 0 {
			b.WriteByte('\n')
		}
		block(&b, r)
	}
	return []byte(b.String())
}

func humanTimestamp(t time.Time) string {
	return t.In(time.Local).Format(humanTimestampLayout)
}
