package source

import (
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/five82/logsift/internal/logentry"
)

const journalOutput = `{"__CURSOR":"s=1;i=2","__REALTIME_TIMESTAMP":"1749565860000000","SYSLOG_IDENTIFIER":"logsift","CATEGORY":"ui","PRIORITY":"6","MESSAGE":"loaded"}
{"__CURSOR":"s=1;i=1","__REALTIME_TIMESTAMP":"1749565800000000","_COMM":"sshd","_SYSTEMD_UNIT":"ssh.service","PRIORITY":"3","MESSAGE":"auth failed"}

{"__CURSOR":"s=1;i=3","__REALTIME_TIMESTAMP":"1749565920000000","SYSLOG_IDENTIFIER":"kernel","MESSAGE":[104,105,255]}
`

type recordedRun struct {
	name string
	args []string
}

func fakeRunner(out string, err error, calls *[]recordedRun) Runner {
	return func(_ context.Context, name string, args ...string) ([]byte, error) {
		if calls != nil {
			*calls = append(*calls, recordedRun{name: name, args: args})
		}
		return []byte(out), err
	}
}

func TestJournalFetchDecodesEntries(t *testing.T) {
	j := Journal{Run: fakeRunner(journalOutput, nil, nil)}

	records, err := j.Fetch(context.Background(), Query{})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}

	first := records[0]
	if first.ID != "s=1;i=1" || first.Subsystem != "sshd" || first.Category != "ssh.service" {
		t.Fatalf("first record = %+v", first)
	}
	if first.Level != logentry.LevelError {
		t.Fatalf("first level = %s, want Error", first.Level)
	}
	if !first.Timestamp.Equal(time.Unix(1749565800, 0)) {
		t.Fatalf("first timestamp = %v", first.Timestamp)
	}

	if records[1].Subsystem != "logsift" || records[1].Category != "ui" || records[1].Level != logentry.LevelInfo {
		t.Fatalf("second record = %+v", records[1])
	}

	third := records[2]
	if third.Message != "hi�" {
		t.Fatalf("byte-array message = %q, want %q", third.Message, "hi�")
	}
	if third.Level != logentry.LevelInfo {
		t.Fatalf("missing priority level = %s, want Info", third.Level)
	}
}

func TestJournalArgs(t *testing.T) {
	prev := time.Local
	time.Local = time.UTC
	t.Cleanup(func() { time.Local = prev })

	from := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	to := time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		q    Query
		want []string
		not  []string
	}{
		{
			name: "window only",
			q:    Query{From: from, To: to, Identifier: "logsift"},
			want: []string{"--output=json", "--since=2025-06-10 09:00:00.000000", "--until=2025-06-10 15:00:00.000000"},
			not:  []string{"--identifier=logsift", "--user"},
		},
		{
			name: "exclude with identifier",
			q:    Query{ExcludeSystem: true, Identifier: "logsift"},
			want: []string{"--identifier=logsift"},
		},
		{
			name: "exclude without identifier",
			q:    Query{ExcludeSystem: true},
			want: []string{"--user"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []recordedRun
			j := Journal{Run: fakeRunner("", nil, &calls)}
			if _, err := j.Fetch(context.Background(), tt.q); err != nil {
				t.Fatalf("Fetch error: %v", err)
			}
			if len(calls) != 1 || calls[0].name != "journalctl" {
				t.Fatalf("calls = %+v", calls)
			}
			for _, arg := range tt.want {
				if !slices.Contains(calls[0].args, arg) {
					t.Errorf("args %v missing %q", calls[0].args, arg)
				}
			}
			for _, arg := range tt.not {
				if slices.Contains(calls[0].args, arg) {
					t.Errorf("args %v should not contain %q", calls[0].args, arg)
				}
			}
		})
	}
}

func TestJournalFetchFiltersWindowAndIdentifier(t *testing.T) {
	j := Journal{Run: fakeRunner(journalOutput, nil, nil)}
	q := Query{
		From:          time.Unix(1749565800, 0),
		To:            time.Unix(1749565860, 0),
		ExcludeSystem: true,
		Identifier:    "logsift",
	}
	records, err := j.Fetch(context.Background(), q)
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(records) != 1 || records[0].Message != "loaded" {
		t.Fatalf("records = %+v, want only the logsift entry", records)
	}
}

func TestJournalFetchErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"missing binary", &exec.Error{Name: "journalctl", Err: exec.ErrNotFound}, ErrUnavailable},
		{"permission", errors.New("exit status 1: No journal files were opened due to insufficient permissions."), ErrPermission},
		{"no files", errors.New("exit status 1: No journal files were found."), ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := Journal{Run: fakeRunner("", tt.err, nil)}
			_, err := j.Fetch(context.Background(), Query{})
			var fetchErr *FetchError
			if !errors.As(err, &fetchErr) {
				t.Fatalf("error = %v, want *FetchError", err)
			}
			if fetchErr.Source != "journal" {
				t.Fatalf("Source = %q, want journal", fetchErr.Source)
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestJournalFetchMalformedOutput(t *testing.T) {
	j := Journal{Run: fakeRunner("{not json}\n", nil, nil)}
	_, err := j.Fetch(context.Background(), Query{})
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("error = %v, want *FetchError", err)
	}
	if !strings.Contains(err.Error(), "line 1") {
		t.Fatalf("error = %v, want line number", err)
	}
}

func TestJournalFetchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	j := Journal{Run: fakeRunner("", errors.New("signal: killed"), nil)}
	if _, err := j.Fetch(ctx, Query{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestPriorityLevel(t *testing.T) {
	tests := map[string]logentry.Level{
		"0": logentry.LevelFault,
		"2": logentry.LevelFault,
		"3": logentry.LevelError,
		"4": logentry.LevelNotice,
		"5": logentry.LevelNotice,
		"6": logentry.LevelInfo,
		"7": logentry.LevelDebug,
		"":  logentry.LevelInfo,
		"x": logentry.LevelInfo,
	}
	for in, want := range tests {
		if got := priorityLevel(in); got != want {
			t.Errorf("priorityLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestJournalField(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"string", `"sshd"`, "sshd"},
		{"missing", ``, ""},
		{"null", `null`, ""},
		{"byte array", `[104,105]`, "hi"},
		{"invalid utf8 bytes", `[104,105,255]`, "hi�"},
		{"repeated string", `["first","second"]`, "first"},
		{"repeated with empty first", `["","second"]`, "second"},
		{"repeated byte arrays", `[[111,107],[110,111]]`, "ok"},
		{"empty array", `[]`, ""},
		{"number", `6`, "6"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := journalField(json.RawMessage(tt.raw)); got != tt.want {
				t.Fatalf("journalField(%s) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestJournalFetchRepeatedAndBinaryFields(t *testing.T) {
	out := `{"__CURSOR":"s=1;i=1","__REALTIME_TIMESTAMP":"1749565800000000","SYSLOG_IDENTIFIER":"logsift","PRIORITY":"6","MESSAGE":"plain"}
{"__CURSOR":"s=1;i=2","__REALTIME_TIMESTAMP":"1749565860000000","SYSLOG_IDENTIFIER":["a","b"],"_SYSTEMD_UNIT":[117,110,105,116,255],"PRIORITY":["3","6"],"MESSAGE":["first","second"]}
`
	j := Journal{Run: fakeRunner(out, nil, nil)}

	records, err := j.Fetch(context.Background(), Query{})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	got := records[1]
	if got.Subsystem != "a" {
		t.Fatalf("Subsystem = %q, want %q", got.Subsystem, "a")
	}
	if got.Category != "unit�" {
		t.Fatalf("Category = %q, want %q", got.Category, "unit�")
	}
	if got.Level != logentry.LevelError {
		t.Fatalf("Level = %s, want Error", got.Level)
	}
	if got.Message != "first" {
		t.Fatalf("Message = %q, want %q", got.Message, "first")
	}
}
