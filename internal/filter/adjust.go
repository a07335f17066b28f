package filter

import (
	"time"

	"github.com/five82/logsift/internal/logentry"
)

// The helpers below back the interactive controls. They keep the bounds
// sensible (no future dates, start before end) the way the pickers do; the
// predicates themselves never enforce ordering.

// NextMode cycles to the following date mode.
func (c *Criteria) NextMode() {
	c.Mode = modeOrder[(indexOf(modeOrder, c.Mode)+1)%len(modeOrder)]
}

// PrevMode cycles to the preceding date mode.
func (c *Criteria) PrevMode() {
	c.Mode = modeOrder[(indexOf(modeOrder, c.Mode)+len(modeOrder)-1)%len(modeOrder)]
}

// NextPreset cycles to the following preset.
func (c *Criteria) NextPreset() {
	c.Preset = presetOrder[(indexOf(presetOrder, c.Preset)+1)%len(presetOrder)]
}

// PrevPreset cycles to the preceding preset.
func (c *Criteria) PrevPreset() {
	c.Preset = presetOrder[(indexOf(presetOrder, c.Preset)+len(presetOrder)-1)%len(presetOrder)]
}

// ShiftDate moves the primary date of the active mode by days: the range
// start in date-range mode, the selected day otherwise.
func (c *Criteria) ShiftDate(days int, now time.Time) {
	if c.Mode == ModeDateRange {
		upper := c.RangeEnd
		if upper.After(now) {
			upper = now
		}
		c.RangeStart = clampDay(c.RangeStart.AddDate(0, 0, days), time.Time{}, upper)
		return
	}
	c.Date = clampDay(c.Date.AddDate(0, 0, days), time.Time{}, now)
}

// ShiftRangeEnd moves the end of the date range by days.
func (c *Criteria) ShiftRangeEnd(days int, now time.Time) {
	c.RangeEnd = clampDay(c.RangeEnd.AddDate(0, 0, days), c.RangeStart, now)
}

// ShiftHourStart moves the start of the hour range, never past its end.
func (c *Criteria) ShiftHourStart(hours int) {
	total := max(0, min(c.HourStart.minutes()+hours*60, c.HourEnd.minutes()))
	c.HourStart = clockFromMinutes(total)
}

// ShiftHourEnd moves the end of the hour range, never before its start.
func (c *Criteria) ShiftHourEnd(hours int) {
	total := max(c.HourStart.minutes(), min(c.HourEnd.minutes()+hours*60, lastMinuteOfDay))
	c.HourEnd = clockFromMinutes(total)
}

// Clamp pins every date to today or earlier and restores start <= end
// ordering for both ranges.
func (c *Criteria) Clamp(now time.Time) {
	c.Date = clampDay(c.Date, time.Time{}, now)
	c.RangeEnd = clampDay(c.RangeEnd, time.Time{}, now)
	c.RangeStart = clampDay(c.RangeStart, time.Time{}, c.RangeEnd)
	if c.HourStart.minutes() > c.HourEnd.minutes() {
		c.HourStart = c.HourEnd
	}
	c.HourStart = clockFromMinutes(c.HourStart.minutes())
	c.HourEnd = clockFromMinutes(c.HourEnd.minutes())
}

// ToggleCategory adds or removes a category from the selection.
func (c *Criteria) ToggleCategory(name string) {
	if c.Categories == nil {
		c.Categories = map[string]struct{}{}
	}
	if _, ok := c.Categories[name]; ok {
		delete(c.Categories, name)
		return
	}
	c.Categories[name] = struct{}{}
}

// ToggleLevel adds or removes a level from the selection.
func (c *Criteria) ToggleLevel(level logentry.Level) {
	if c.Levels == nil {
		c.Levels = map[logentry.Level]struct{}{}
	}
	if _, ok := c.Levels[level]; ok {
		delete(c.Levels, level)
		return
	}
	c.Levels[level] = struct{}{}
}

// ClearSelections empties the category and level sets.
func (c *Criteria) ClearSelections() {
	c.Categories = map[string]struct{}{}
	c.Levels = map[logentry.Level]struct{}{}
}

// clampDay keeps t between the days of lo and hi (zero bounds are open) and
// normalises it to the start of its day.
func clampDay(t, lo, hi time.Time) time.Time {
	day := startOfDay(t)
	if !hi.IsZero() {
		if top := startOfDay(hi.In(t.Location())); day.After(top) {
			day = top
		}
	}
	if !lo.IsZero() {
		if bottom := startOfDay(lo.In(t.Location())); day.Before(bottom) {
			day = bottom
		}
	}
	return day
}

func indexOf[T comparable](values []T, v T) int {
	for i, candidate := range values {
		if candidate == v {
			return i
		}
	}
	return -1
}
