package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/five82/logsift/internal/logentry"
)

// Mode selects which date/time predicate is active. Modes are mutually
// exclusive; the bounds of inactive modes are ignored.
type Mode int

const (
	ModeSpecificDate Mode = iota
	ModeDateRange
	ModeHourRange
	ModePreset
)

var modeOrder = []Mode{ModeSpecificDate, ModeDateRange, ModeHourRange, ModePreset}

// Modes returns every mode in picker order.
func Modes() []Mode {
	return append([]Mode(nil), modeOrder...)
}

func (m Mode) String() string {
	switch m {
	case ModeSpecificDate:
		return "Specific date"
	case ModeDateRange:
		return "Date range"
	case ModeHourRange:
		return "Hour range"
	case ModePreset:
		return "Preset"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Preset is a rolling window ending at evaluation time.
type Preset int

const (
	PresetLastHour Preset = iota
	PresetLast6Hours
	PresetLast12Hours
	PresetLast24Hours
	PresetLast7Days
	PresetLast30Days
)

var presetOrder = []Preset{
	PresetLastHour, PresetLast6Hours, PresetLast12Hours,
	PresetLast24Hours, PresetLast7Days, PresetLast30Days,
}

// Presets returns every preset from shortest to longest.
func Presets() []Preset {
	return append([]Preset(nil), presetOrder...)
}

// Duration returns the length of the rolling window.
func (p Preset) Duration() time.Duration {
	switch p {
	case PresetLastHour:
		return time.Hour
	case PresetLast6Hours:
		return 6 * time.Hour
	case PresetLast12Hours:
		return 12 * time.Hour
	case PresetLast24Hours:
		return 24 * time.Hour
	case PresetLast7Days:
		return 7 * 24 * time.Hour
	case PresetLast30Days:
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

func (p Preset) String() string {
	switch p {
	case PresetLastHour:
		return "1 hour"
	case PresetLast6Hours:
		return "6 hours"
	case PresetLast12Hours:
		return "12 hours"
	case PresetLast24Hours:
		return "24 hours"
	case PresetLast7Days:
		return "7 days"
	case PresetLast30Days:
		return "30 days"
	default:
		return fmt.Sprintf("Preset(%d)", int(p))
	}
}

// ParsePreset accepts the short config spellings ("1h", "6h", "12h", "24h",
// "7d", "30d") as well as the display names.
func ParsePreset(value string) (Preset, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1h", "1 hour":
		return PresetLastHour, nil
	case "6h", "6 hours":
		return PresetLast6Hours, nil
	case "12h", "12 hours":
		return PresetLast12Hours, nil
	case "24h", "1d", "24 hours":
		return PresetLast24Hours, nil
	case "7d", "7 days":
		return PresetLast7Days, nil
	case "30d", "30 days":
		return PresetLast30Days, nil
	default:
		return PresetLast24Hours, fmt.Errorf("unknown preset %q", value)
	}
}

// Clock is a time of day with minute resolution.
type Clock struct {
	Hour   int
	Minute int
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

func (c Clock) minutes() int {
	return c.Hour*60 + c.Minute
}

func clockFromMinutes(total int) Clock {
	total = max(0, min(total, lastMinuteOfDay))
	return Clock{Hour: total / 60, Minute: total % 60}
}

const lastMinuteOfDay = 23*60 + 59

// Criteria is the live filter state of a session.
type Criteria struct {
	Mode Mode

	// Date is the day used by ModeSpecificDate and ModeHourRange.
	Date       time.Time
	RangeStart time.Time
	RangeEnd   time.Time
	HourStart  Clock
	HourEnd    Clock
	Preset     Preset

	// ExcludeSystemLogs restricts fetches to the application's own subsystem.
	ExcludeSystemLogs bool

	Categories map[string]struct{}
	Levels     map[logentry.Level]struct{}
	SearchText string
}

// Defaults returns the criteria a session starts with.
func Defaults(now time.Time) Criteria {
	today := startOfDay(now)
	return Criteria{
		Mode:       ModePreset,
		Date:       today,
		RangeStart: today,
		RangeEnd:   today,
		HourStart:  Clock{},
		HourEnd:    Clock{Hour: 23, Minute: 59},
		Preset:     PresetLast24Hours,
		Categories: map[string]struct{}{},
		Levels:     map[logentry.Level]struct{}{},
	}
}

// Clone returns a deep copy so callers can mutate the selection sets.
func (c Criteria) Clone() Criteria {
	out := c
	out.Categories = make(map[string]struct{}, len(c.Categories))
	for k := range c.Categories {
		out.Categories[k] = struct{}{}
	}
	out.Levels = make(map[logentry.Level]struct{}, len(c.Levels))
	for k := range c.Levels {
		out.Levels[k] = struct{}{}
	}
	return out
}

// Window returns the inclusive time window selected by the active mode.
func (c Criteria) Window(now time.Time) (from, to time.Time) {
	switch c.Mode {
	case ModeSpecificDate:
		return startOfDay(c.Date), endOfDay(c.Date)
	case ModeDateRange:
		return startOfDay(c.RangeStart), endOfDay(c.RangeEnd)
	case ModeHourRange:
		y, m, d := c.Date.Date()
		loc := c.Date.Location()
		from = time.Date(y, m, d, c.HourStart.Hour, c.HourStart.Minute, 0, 0, loc)
		// The end minute is inclusive.
		to = time.Date(y, m, d, c.HourEnd.Hour, c.HourEnd.Minute, 59, int(time.Second-time.Nanosecond), loc)
		return from, to
	default:
		return now.Add(-c.Preset.Duration()), now
	}
}

// FetchBoundaryChanged reports whether moving from a to b changes what a
// source must be asked for: the exclusion flag or the active window.
func FetchBoundaryChanged(a, b Criteria) bool {
	if a.ExcludeSystemLogs != b.ExcludeSystemLogs || a.Mode != b.Mode {
		return true
	}
	switch b.Mode {
	case ModeSpecificDate:
		return !sameDay(a.Date, b.Date)
	case ModeDateRange:
		return !sameDay(a.RangeStart, b.RangeStart) || !sameDay(a.RangeEnd, b.RangeEnd)
	case ModeHourRange:
		return !sameDay(a.Date, b.Date) || a.HourStart != b.HourStart || a.HourEnd != b.HourEnd
	default:
		return a.Preset != b.Preset
	}
}

// SelectionActive reports whether any category, level or search restriction
// is set.
func (c Criteria) SelectionActive() bool {
	return len(c.Categories) > 0 || len(c.Levels) > 0 || strings.TrimSpace(c.SearchText) != ""
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
