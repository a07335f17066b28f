package ui

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/logsift/internal/export"
	"github.com/five82/logsift/internal/filter"
	"github.com/five82/logsift/internal/session"
)

const (
	exportNameLayout = "20060102-150405"
	panelDateLayout  = "Mon, Jan 2 2006"
	panelLabelWidth  = 22
	toastDuration    = 2 * time.Second
)

// panelRow is one focusable line of the export panel.
type panelRow int

const (
	rowMode panelRow = iota
	rowDate
	rowRangeStart
	rowRangeEnd
	rowHourStart
	rowHourEnd
	rowPreset
	rowExcludeSystem
	rowFileType
	rowCopy
	rowExport
	rowShare
)

// panelRows returns the rows shown for a filter mode, top to bottom.
func panelRows(mode filter.Mode) []panelRow {
	rows := []panelRow{rowMode}
	switch mode {
	case filter.ModeSpecificDate:
		rows = append(rows, rowDate)
	case filter.ModeDateRange:
		rows = append(rows, rowRangeStart, rowRangeEnd)
	case filter.ModeHourRange:
		rows = append(rows, rowDate, rowHourStart, rowHourEnd)
	case filter.ModePreset:
		rows = append(rows, rowPreset)
	}
	return append(rows, rowExcludeSystem, rowFileType, rowCopy, rowExport, rowShare)
}

func (r panelRow) isAction() bool {
	return r == rowCopy || r == rowExport || r == rowShare
}

var modeFooters = map[filter.Mode]string{
	filter.ModeSpecificDate: "Select a specific date to filter logs from that day only. All times are considered within the selected date.",
	filter.ModeDateRange:    "Choose a start and end date to filter logs within a specific date range. Logs from both dates will be included.",
	filter.ModeHourRange:    "Set a specific date and a range of hours to narrow down logs to a precise time window within the chosen day.",
	filter.ModePreset:       "Select a preset option to quickly apply common date and time filters without manual adjustments.",
}

const optionsFooter = "If you activate Exclude system logs then only entries linked to this app's identifier will be extracted."

// exportAction identifies which export button ran.
type exportAction int

const (
	actionCopy exportAction = iota
	actionExport
	actionShare
)

// exportState holds export panel state.
type exportState struct {
	cursor int
	// running is set between dispatching an export and its exportDoneMsg.
	running bool
}

type exportDoneMsg struct {
	action exportAction
	result session.ExportResult
	err    error
}

type toastExpiredMsg struct {
	seq int
}

// exportBusy reports whether panel controls are disabled.
func (m Model) exportBusy() bool {
	return m.exportState.running || m.snapshot.State == session.StateExporting
}

// handleExportKey processes keyboard input for the export panel.
func (m Model) handleExportKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rows := panelRows(m.criteria.Mode)
	m.exportState.cursor = min(m.exportState.cursor, len(rows)-1)

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.exportState.cursor > 0 {
			m.exportState.cursor--
		}
		return m, nil
	case key.Matches(msg, m.keys.Down):
		if m.exportState.cursor < len(rows)-1 {
			m.exportState.cursor++
		}
		return m, nil
	case key.Matches(msg, m.keys.Top):
		m.exportState.cursor = 0
		return m, nil
	case key.Matches(msg, m.keys.Bottom):
		m.exportState.cursor = len(rows) - 1
		return m, nil
	}

	if m.exportBusy() {
		return m, nil
	}

	row := rows[m.exportState.cursor]
	switch {
	case key.Matches(msg, m.keys.Left):
		return m.adjustRow(row, -1)
	case key.Matches(msg, m.keys.Right):
		return m.adjustRow(row, 1)
	case key.Matches(msg, m.keys.Toggle), key.Matches(msg, m.keys.Confirm):
		switch row {
		case rowCopy:
			return m.startExport(actionCopy)
		case rowExport:
			return m.startExport(actionExport)
		case rowShare:
			return m.startExport(actionShare)
		}
		return m.adjustRow(row, 1)
	}
	return m, nil
}

// adjustRow steps the value on row in direction dir (-1 or 1).
func (m Model) adjustRow(row panelRow, dir int) (tea.Model, tea.Cmd) {
	if row == rowFileType {
		m.exportType = stepFileType(m.exportType, dir)
		return m, nil
	}
	if row.isAction() {
		return m, nil
	}

	now := m.now()
	cmd := m.updateCriteria(func(c *filter.Criteria) {
		switch row {
		case rowMode:
			if dir < 0 {
				c.PrevMode()
			} else {
				c.NextMode()
			}
		case rowDate, rowRangeStart:
			c.ShiftDate(dir, now)
		case rowRangeEnd:
			c.ShiftRangeEnd(dir, now)
		case rowHourStart:
			c.ShiftHourStart(dir)
		case rowHourEnd:
			c.ShiftHourEnd(dir)
		case rowPreset:
			if dir < 0 {
				c.PrevPreset()
			} else {
				c.NextPreset()
			}
		case rowExcludeSystem:
			c.ExcludeSystemLogs = !c.ExcludeSystemLogs
		}
	})

	// Mode changes add or remove bound rows.
	if row == rowMode {
		m.exportState.cursor = 0
	}
	return m, cmd
}

func stepFileType(t export.FileType, dir int) export.FileType {
	if dir >= 0 {
		return t.Next()
	}
	types := export.FileTypes()
	for i, candidate := range types {
		if candidate == t {
			return types[(i+len(types)-1)%len(types)]
		}
	}
	return types[0]
}

// startExport dispatches an export and disables the panel until it returns.
func (m Model) startExport(action exportAction) (tea.Model, tea.Cmd) {
	m.exportState.running = true
	m.alert = ""

	ctx := m.ctx
	ctrl := m.controller
	fileType := m.exportType

	var dest export.Destination
	switch action {
	case actionCopy:
		dest = m.clipboard
		return m, func() tea.Msg {
			result, err := ctrl.CopyToClipboard(ctx, dest)
			return exportDoneMsg{action: action, result: result, err: err}
		}
	case actionShare:
		dest = export.Share{Process: m.identifier, Now: m.now}
	default:
		dest = export.File{Path: m.exportPath(), Unique: true}
	}
	return m, func() tea.Msg {
		result, err := ctrl.RequestExport(ctx, fileType, dest)
		return exportDoneMsg{action: action, result: result, err: err}
	}
}

// exportPath returns the export file path without extension.
func (m Model) exportPath() string {
	name := fmt.Sprintf("%s-%s", m.identifier, m.now().Format(exportNameLayout))
	return filepath.Join(m.exportDir, name)
}

// handleExportDone reports the outcome of an export.
func (m Model) handleExportDone(msg exportDoneMsg) (tea.Model, tea.Cmd) {
	m.exportState.running = false
	m.reload()

	if msg.err != nil {
		switch {
		case errors.Is(msg.err, session.ErrExportInProgress):
			m.alert = "An export is already running"
		case errors.Is(msg.err, session.ErrExportCancelled):
			m.alert = "Export cancelled"
		default:
			m.alert = msg.err.Error()
		}
		return m, nil
	}

	switch msg.action {
	case actionCopy:
		return m.showToast("Copied!")
	case actionShare:
		return m.showToast("Share file ready: " + msg.result.Location)
	default:
		return m.showToast(fmt.Sprintf("Exported %d entries to %s", msg.result.Count, msg.result.Location))
	}
}

// showToast displays a transient message in the header.
func (m Model) showToast(text string) (tea.Model, tea.Cmd) {
	m.toast = text
	m.toastSeq++
	seq := m.toastSeq
	return m, tea.Tick(toastDuration, func(time.Time) tea.Msg {
		return toastExpiredMsg{seq: seq}
	})
}

// renderExport renders the export panel.
func (m Model) renderExport() string {
	styles := m.theme.Styles().WithBackground(m.theme.FocusBg)
	bg := NewBgStyle(m.theme.FocusBg)
	contentHeight := m.height - 3
	innerWidth := max(m.width-4, 10)

	rows := panelRows(m.criteria.Mode)
	cursor := min(m.exportState.cursor, len(rows)-1)
	busy := m.exportBusy()

	footerStyle := styles.FaintText.Width(innerWidth)

	var lines []string
	section := func(title string) {
		lines = append(lines, bg.Render(title, styles.AccentText.Bold(true)))
	}

	section("Filter")
	for i, row := range rows {
		if row == rowExcludeSystem {
			lines = append(lines, footerStyle.Render(modeFooters[m.criteria.Mode]), "")
			section("Options")
		}
		if row == rowCopy {
			lines = append(lines, footerStyle.Render(optionsFooter), "")
			section("Actions")
		}
		lines = append(lines, m.renderPanelRow(row, i == cursor, busy, styles, bg, innerWidth))
	}

	lines = append(lines, "")
	switch {
	case busy:
		lines = append(lines, bg.Render("Exporting...", styles.InfoText))
	case m.alert != "":
		lines = append(lines, bg.Render("Error: "+truncate(m.alert, innerWidth-7), styles.DangerText))
	}

	box := m.renderTitledBox("Export", strings.Join(lines, "\n"), m.width, contentHeight, true)
	status := bg.Render(fmt.Sprintf("%d entries will be exported", m.snapshot.Visible), styles.FaintText)
	return box + "\n" + status
}

func (m Model) renderPanelRow(row panelRow, focused, busy bool, styles Styles, bg BgStyle, width int) string {
	label, value := m.panelRowText(row)

	var line string
	if row.isAction() {
		line = "  " + label
		if value != "" {
			line += "  " + value
		}
	} else {
		line = "  " + padRight(label, panelLabelWidth) + value
	}
	line = truncate(line, width)

	switch {
	case busy && (row.isAction() || !focused):
		return bg.Render(line, styles.FaintText)
	case focused:
		return lipgloss.NewStyle().
			Background(lipgloss.Color(m.theme.SelectionBg)).
			Foreground(lipgloss.Color(m.theme.SelectionText)).
			Width(width).
			Render(line)
	case row.isAction():
		return bg.Render(line, styles.AccentText)
	}
	return bg.Render(line, styles.Text)
}

// panelRowText returns the label and current value for a row.
func (m Model) panelRowText(row panelRow) (string, string) {
	c := m.criteria
	switch row {
	case rowMode:
		return "Filter by", "‹ " + c.Mode.String() + " ›"
	case rowDate:
		return "Specific date", "‹ " + c.Date.Format(panelDateLayout) + " ›"
	case rowRangeStart:
		return "Start date", "‹ " + c.RangeStart.Format(panelDateLayout) + " ›"
	case rowRangeEnd:
		return "Finish date", "‹ " + c.RangeEnd.Format(panelDateLayout) + " ›"
	case rowHourStart:
		return "Start time", "‹ " + c.HourStart.String() + " ›"
	case rowHourEnd:
		return "Finish time", "‹ " + c.HourEnd.String() + " ›"
	case rowPreset:
		return "Preset option", "‹ Last " + c.Preset.String() + " ›"
	case rowExcludeSystem:
		if c.ExcludeSystemLogs {
			return "Exclude system logs", "[x]"
		}
		return "Exclude system logs", "[ ]"
	case rowFileType:
		return "Export filetype", fmt.Sprintf("‹ %s (.%s) ›", m.exportType.Description(), m.exportType.Extension())
	case rowCopy:
		return "Copy to clipboard", ""
	case rowExport:
		return "Export log file", "→ " + truncateMiddle(m.exportDir, 40)
	case rowShare:
		return "Share log file", "→ " + truncateMiddle(export.Share{}.Describe(), 40)
	}
	return "", ""
}
