package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/five82/logsift/internal/logentry"
)

// ParseJSON reads a JSON export back into records.
func ParseJSON(r io.Reader) ([]logentry.Record, error) {
	var records []logentry.Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode json export: %w", err)
	}
	return records, nil
}

// ParseCSV reads a CSV export back into records. Columns are matched by
// header name, so reordered exports still parse.
func ParseCSV(r io.Reader) ([]logentry.Record, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"timestamp", "level", "message"} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("csv export missing %q column", required)
		}
	}

	field := func(row []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var records []logentry.Record
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", line, err)
		}
		ts, err := time.Parse(time.RFC3339Nano, field(row, "timestamp"))
		if err != nil {
			return nil, fmt.Errorf("row %d timestamp: %w", line, err)
		}
		level, err := logentry.ParseLevel(field(row, "level"))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		records = append(records, logentry.Record{
			ID:        field(row, "id"),
			Timestamp: ts,
			Subsystem: field(row, "subsystem"),
			Category:  field(row, "category"),
			Level:     level,
			Message:   field(row, "message"),
		})
	}
	return records, nil
}
