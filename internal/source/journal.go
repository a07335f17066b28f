package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/five82/logsift/internal/logentry"
)

const journalTimeLayout = "2006-01-02 15:04:05.000000"

// Runner executes a command and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Journal reads the systemd journal via journalctl.
type Journal struct {
	// Binary defaults to "journalctl".
	Binary string
	// Run defaults to executing Binary on the host.
	Run Runner
}

func (j Journal) Describe() string {
	return "journal"
}

func (j Journal) LineFormat(r logentry.Record) string {
	return LineFormat(r)
}

// Fetch returns the journal entries inside the query window.
func (j Journal) Fetch(ctx context.Context, q Query) ([]logentry.Record, error) {
	binary := j.Binary
	if binary == "" {
		binary = "journalctl"
	}
	run := j.Run
	if run == nil {
		run = execRunner
	}

	out, err := run(ctx, binary, journalArgs(q)...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &FetchError{Source: j.Describe(), Err: classifyJournalError(err)}
	}

	records, err := decodeJournal(out)
	if err != nil {
		return nil, &FetchError{Source: j.Describe(), Err: err}
	}
	filtered := records[:0]
	for _, r := range records {
		if q.keeps(r) {
			filtered = append(filtered, r)
		}
	}
	slices.SortStableFunc(filtered, func(a, b logentry.Record) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return filtered, nil
}

func journalArgs(q Query) []string {
	args := []string{"--output=json", "--no-pager", "--quiet"}
	if !q.From.IsZero() {
		args = append(args, "--since="+q.From.In(time.Local).Format(journalTimeLayout))
	}
	if !q.To.IsZero() {
		args = append(args, "--until="+q.To.In(time.Local).Format(journalTimeLayout))
	}
	if q.ExcludeSystem {
		if q.Identifier != "" {
			args = append(args, "--identifier="+q.Identifier)
		} else {
			args = append(args, "--user")
		}
	}
	return args
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return out, nil
}

func classifyJournalError(err error) error {
	if errors.Is(err, exec.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "permission"), strings.Contains(msg, "insufficient permissions"):
		return fmt.Errorf("%w: %v", ErrPermission, err)
	case strings.Contains(msg, "no journal files"):
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

// journalEntry keeps every field raw: journalctl writes a field as an array
// when it repeats within an entry and as a byte array when it is not valid
// UTF-8.
type journalEntry struct {
	Cursor     json.RawMessage `json:"__CURSOR"`
	Realtime   json.RawMessage `json:"__REALTIME_TIMESTAMP"`
	Identifier json.RawMessage `json:"SYSLOG_IDENTIFIER"`
	Comm       json.RawMessage `json:"_COMM"`
	Category   json.RawMessage `json:"CATEGORY"`
	Unit       json.RawMessage `json:"_SYSTEMD_UNIT"`
	Priority   json.RawMessage `json:"PRIORITY"`
	Message    json.RawMessage `json:"MESSAGE"`
}

func decodeJournal(out []byte) ([]logentry.Record, error) {
	var records []logentry.Record
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var entry journalEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, fmt.Errorf("decode journal line %d: %w", line, err)
		}
		record, err := entry.record()
		if err != nil {
			return nil, fmt.Errorf("journal line %d: %w", line, err)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read journal output: %w", err)
	}
	return records, nil
}

func (e journalEntry) record() (logentry.Record, error) {
	realtime := journalField(e.Realtime)
	micros, err := strconv.ParseInt(realtime, 10, 64)
	if err != nil {
		return logentry.Record{}, fmt.Errorf("realtime timestamp %q: %w", realtime, err)
	}
	subsystem := journalField(e.Identifier)
	if subsystem == "" {
		subsystem = journalField(e.Comm)
	}
	category := journalField(e.Category)
	if category == "" {
		category = journalField(e.Unit)
	}
	return logentry.Record{
		ID:        journalField(e.Cursor),
		Timestamp: time.UnixMicro(micros),
		Subsystem: subsystem,
		Category:  category,
		Level:     priorityLevel(journalField(e.Priority)),
		Message:   journalField(e.Message),
	}, nil
}

// priorityLevel maps a syslog priority. Missing or malformed priorities are
// treated as info, the journal's default.
func priorityLevel(priority string) logentry.Level {
	p, err := strconv.Atoi(strings.TrimSpace(priority))
	if err != nil {
		return logentry.LevelInfo
	}
	switch {
	case p <= 2:
		return logentry.LevelFault
	case p == 3:
		return logentry.LevelError
	case p <= 5:
		return logentry.LevelNotice
	case p == 6:
		return logentry.LevelInfo
	default:
		return logentry.LevelDebug
	}
}

// journalField decodes one journal field value. A plain string is returned
// as is, a byte array is decoded with invalid UTF-8 replaced, and a repeated
// field yields its first non-empty value.
func journalField(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}
	var data []int
	if err := json.Unmarshal(raw, &data); err == nil {
		buf := make([]byte, len(data))
		for i, b := range data {
			buf[i] = byte(b)
		}
		return strings.ToValidUTF8(string(buf), "\uFFFD")
	}
	var values []json.RawMessage
	if err := json.Unmarshal(raw, &values); err == nil {
		for _, v := range values {
			if s := journalField(v); s != "" {
				return s
			}
		}
		return ""
	}
	return string(raw)
}
