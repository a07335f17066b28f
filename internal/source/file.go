package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/five82/logsift/internal/export"
	"github.com/five82/logsift/internal/logentry"
)

// DefaultMaxLines bounds how much of a JSON-lines log is read per fetch.
const DefaultMaxLines = 50000

// lineNamespace seeds the IDs derived for log lines that carry none.
var lineNamespace = uuid.MustParse("4f1c3b0e-2f5d-4d7e-9a57-6c1e8f0b5a21")

// File reads records from a file on disk. The format follows the
// extension: .json is an export array, .csv a CSV export, anything else is
// read as JSON lines.
type File struct {
	Path string
	// MaxLines keeps only the most recent lines of a JSON-lines log. Zero
	// uses DefaultMaxLines; negative reads everything.
	MaxLines int
	Logger   *slog.Logger
}

func (f File) Describe() string {
	return f.Path
}

func (f File) LineFormat(r logentry.Record) string {
	return LineFormat(r)
}

// Fetch returns the records inside the query window. A missing file yields
// no records.
func (f File) Fetch(ctx context.Context, q Query) ([]logentry.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(f.Path)
	if err != nil {
		switch {
		case errors.Is(err, os.ErrNotExist):
			return nil, nil
		case errors.Is(err, os.ErrPermission):
			return nil, &FetchError{Source: f.Path, Err: fmt.Errorf("%w: %v", ErrPermission, err)}
		}
		return nil, &FetchError{Source: f.Path, Err: fmt.Errorf("open log: %w", err)}
	}
	defer file.Close()

	var records []logentry.Record
	switch strings.ToLower(filepath.Ext(f.Path)) {
	case ".json":
		records, err = export.ParseJSON(file)
	case ".csv":
		records, err = export.ParseCSV(file)
	default:
		records, err = f.readLines(ctx, file)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &FetchError{Source: f.Path, Err: err}
	}

	kept := make([]logentry.Record, 0, len(records))
	for _, r := range records {
		if q.keeps(r) {
			kept = append(kept, r)
		}
	}
	slices.SortStableFunc(kept, func(a, b logentry.Record) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return kept, nil
}

func (f File) readLines(ctx context.Context, r io.Reader) ([]logentry.Record, error) {
	lines, oversized, err := tail(r, f.maxLines())
	if err != nil {
		return nil, err
	}
	logger := f.Logger
	if logger == nil {
		logger = slog.Default()
	}

	records := make([]logentry.Record, 0, len(lines))
	skipped := oversized
	for _, line := range lines {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := parseLine(line)
		if err != nil {
			skipped++
			continue
		}
		records = append(records, record)
	}
	if skipped > 0 {
		logger.Debug("skipped unparseable log lines", "path", f.Path, "count", skipped)
	}
	return records, nil
}

func (f File) maxLines() int {
	switch {
	case f.MaxLines == 0:
		return DefaultMaxLines
	case f.MaxLines < 0:
		return 0
	}
	return f.MaxLines
}

// maxLineBytes bounds a single log line. Longer lines are skipped.
const maxLineBytes = 4 * 1024 * 1024

// tail returns at most maxLines non-empty lines from the end of r, and the
// number of lines dropped for exceeding maxLineBytes. Zero maxLines means no
// limit.
func tail(r io.Reader, maxLines int) ([][]byte, int, error) {
	if maxLines <= 0 {
		var lines [][]byte
		oversized, err := eachLine(r, func(line []byte) {
			lines = append(lines, bytes.Clone(line))
		})
		if err != nil {
			return nil, 0, err
		}
		return lines, oversized, nil
	}

	ring := make([][]byte, maxLines)
	count := 0
	idx := 0
	oversized, err := eachLine(r, func(line []byte) {
		ring[idx] = bytes.Clone(line)
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	})
	if err != nil {
		return nil, 0, err
	}

	lines := make([][]byte, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, oversized, nil
}

// eachLine calls fn with every non-empty trimmed line of r. The slice passed
// to fn is reused. Lines over maxLineBytes are counted and skipped.
func eachLine(r io.Reader, fn func(line []byte)) (int, error) {
	reader := bufio.NewReaderSize(r, 64*1024)
	var buf []byte
	oversized := 0
	tooLong := false
	for {
		chunk, err := reader.ReadSlice('\n')
		if !tooLong {
			if len(buf)+len(chunk) > maxLineBytes {
				tooLong = true
				buf = buf[:0]
			} else {
				buf = append(buf, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}

		if tooLong {
			oversized++
		} else if line := bytes.TrimSpace(buf); len(line) > 0 {
			fn(line)
		}
		buf = buf[:0]
		tooLong = false

		if err != nil {
			if errors.Is(err, io.EOF) {
				return oversized, nil
			}
			return oversized, fmt.Errorf("read log: %w", err)
		}
	}
}

// parseLine decodes one JSON log line. Both slog's keys (time, level, msg)
// and the export keys (timestamp, message) are accepted.
func parseLine(line []byte) (logentry.Record, error) {
	var fields map[string]any
	if err := json.Unmarshal(line, &fields); err != nil {
		return logentry.Record{}, err
	}

	ts, err := parseTime(firstString(fields, "time", "timestamp", "ts"))
	if err != nil {
		return logentry.Record{}, err
	}
	level, err := parseLevelField(firstString(fields, "level", "severity"))
	if err != nil {
		return logentry.Record{}, err
	}

	id := firstString(fields, "id")
	if id == "" {
		id = uuid.NewSHA1(lineNamespace, line).String()
	}
	return logentry.Record{
		ID:        id,
		Timestamp: ts,
		Subsystem: firstString(fields, "subsystem", "source"),
		Category:  firstString(fields, "category", "component"),
		Level:     level,
		Message:   firstString(fields, "msg", "message"),
	}, nil
}

func firstString(fields map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := fields[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("missing timestamp")
	}
	return time.Parse(time.RFC3339Nano, value)
}

// parseLevelField accepts slog level strings, including offsets such as
// "INFO+2" or "ERROR-4". Offsets are dropped.
func parseLevelField(value string) (logentry.Level, error) {
	if value == "" {
		return logentry.LevelInfo, nil
	}
	if i := strings.IndexAny(value[1:], "+-"); i >= 0 {
		value = value[:i+1]
	}
	return logentry.ParseLevel(value)
}
