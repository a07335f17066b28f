package logentry

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestParseLevel_Synonyms(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"TRACE", LevelDebug},
		{" Info ", LevelInfo},
		{"default", LevelNotice},
		{"WARN", LevelNotice},
		{"err", LevelError},
		{"Error", LevelError},
		{"fatal", LevelFault},
		{"emerg", LevelFault},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if err != nil {
				t.Fatalf("ParseLevel(%q) returned error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Fatalf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseLevel_Unknown(t *testing.T) {
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("ParseLevel returned nil error, want error")
	}
}

func TestLevels_AscendingSeverity(t *testing.T) {
	levels := Levels()
	for i := 1; i < len(levels); i++ {
		if levels[i-1] >= levels[i] {
			t.Fatalf("Levels() not ascending at %d: %v", i, levels)
		}
	}
}

func TestLevel_JSONUsesLowercaseNames(t *testing.T) {
	data, err := json.Marshal(Record{Level: LevelFault})
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	if !strings.Contains(string(data), `"level":"fault"`) {
		t.Fatalf("json = %s, want level fault", data)
	}

	var back Record
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if back.Level != LevelFault {
		t.Fatalf("Level = %v, want Fault", back.Level)
	}
}

func TestEqual(t *testing.T) {
	ts := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	a := Record{ID: "1", Timestamp: ts, Subsystem: "net", Category: "http", Level: LevelError, Message: "timeout"}
	b := a
	b.Timestamp = ts.In(time.FixedZone("X", 3600))
	if !Equal(a, b) {
		t.Fatalf("Equal = false for same instant in different zones")
	}

	b.ID = ""
	if !Equal(a, b) {
		t.Fatalf("Equal = false when one side has no ID")
	}

	b.ID = "2"
	if Equal(a, b) {
		t.Fatalf("Equal = true for different IDs")
	}
}

func TestFormatLine(t *testing.T) {
	oldLocal := time.Local
	time.Local = time.FixedZone("TestLocal", -5*60*60)
	defer func() {
		time.Local = oldLocal
	}()

	r := Record{
		Timestamp: time.Date(2025, 12, 13, 10, 11, 12, 0, time.UTC),
		Subsystem: "net",
		Category:  "http",
		Level:     LevelError,
		Message:   " request\ntimed out ",
	}
	got := FormatLine(r)
	want := `2025-12-13 05:11:12.000 ERROR [net:http] – request\ntimed out`
	if got != want {
		t.Fatalf("FormatLine = %q, want %q", got, want)
	}
}

func TestComposeTag(t *testing.T) {
	if got := composeTag("", ""); got != "" {
		t.Fatalf("composeTag = %q, want empty", got)
	}
	if got := composeTag("app", ""); got != "[app]" {
		t.Fatalf("composeTag = %q, want [app]", got)
	}
	if got := composeTag("", "ui"); got != "[:ui]" {
		t.Fatalf("composeTag = %q, want [:ui]", got)
	}
}
