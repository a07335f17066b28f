package logentry

import (
	"fmt"
	"strings"
)

// Level is the severity of a record. The zero value is Debug and levels
// order from least to most severe.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelNotice
	LevelError
	LevelFault
)

var levelNames = [...]string{"debug", "info", "notice", "error", "fault"}

var levelDescriptions = [...]string{"Debug", "Info", "Notice", "Error", "Fault"}

// Levels returns every level in ascending severity.
func Levels() []Level {
	return []Level{LevelDebug, LevelInfo, LevelNotice, LevelError, LevelFault}
}

// Valid reports whether l is one of the defined levels.
func (l Level) Valid() bool {
	return l >= LevelDebug && l <= LevelFault
}

// String returns the human description of the level.
func (l Level) String() string {
	if !l.Valid() {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return levelDescriptions[l]
}

// Name returns the lowercase wire name used in exports.
func (l Level) Name() string {
	if !l.Valid() {
		return ""
	}
	return levelNames[l]
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid level %d", int(l))
	}
	return []byte(l.Name()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLevel maps level names from the supported sources onto Level.
// Matching is case-insensitive and accepts the common syslog/slog synonyms.
func ParseLevel(value string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug", "trace":
		return LevelDebug, nil
	case "info", "information":
		return LevelInfo, nil
	case "notice", "default", "warn", "warning":
		return LevelNotice, nil
	case "error", "err":
		return LevelError, nil
	case "fault", "crit", "critical", "fatal", "panic", "alert", "emerg", "emergency":
		return LevelFault, nil
	default:
		return LevelDebug, fmt.Errorf("unknown level %q", value)
	}
}
