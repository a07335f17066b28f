package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/logsift/internal/export"
	"github.com/five82/logsift/internal/filter"
	"github.com/five82/logsift/internal/logentry"
)

const (
	logTimestampLayout = "Jan 02 15:04:05.000"
	levelBadgeWidth    = 8
)

// logState holds all log-list state.
type logState struct {
	// Search input is live: every keystroke updates the criteria.
	searchActive bool
	searchInput  textinput.Model

	// Content caching - skip re-render when unchanged
	contentVersion uint64
	lastRendered   uint64
}

// initLogState initializes the log state.
func (m *Model) initLogState() {
	ti := textinput.New()
	ti.Placeholder = "Search messages..."
	ti.CharLimit = 200
	ti.Prompt = "/"

	m.logState = logState{searchInput: ti}
}

// initLogViewport initializes the log viewport.
func (m *Model) initLogViewport() {
	m.logViewport = viewport.New(max(m.width-4, 0), max(m.height-5, 0))
	m.logViewport.Style = lipgloss.NewStyle()
}

// updateLogViewport updates the log viewport with current content.
func (m *Model) updateLogViewport() {
	if m.logViewport.Width == 0 {
		m.initLogViewport()
	}

	// Box height = m.height - 3 (header, cmdbar, status bar below)
	// Box inner = box height - 2 (top and bottom borders) = m.height - 5
	m.logViewport.Width = max(m.width-4, 0)
	m.logViewport.Height = max(m.height-5, 0)
	m.logViewport.Style = lipgloss.NewStyle().Background(lipgloss.Color(m.theme.FocusBg))

	if m.logState.lastRendered == 0 || m.logState.contentVersion != m.logState.lastRendered {
		m.logViewport.SetContent(m.renderLogContent())
		m.logState.lastRendered = m.logState.contentVersion
		if m.logState.lastRendered == 0 {
			m.logState.lastRendered = 1 // Mark as rendered at least once
		}
	}
}

// renderLogs renders the log list view.
func (m Model) renderLogs() string {
	bg := NewBgStyle(m.theme.FocusBg)
	styles := m.theme.Styles()
	contentHeight := m.height - 3 // header + cmdbar + status bar below

	box := m.renderTitledBox(m.getLogTitle(), m.logViewport.View(), m.width, contentHeight, true)
	return box + "\n" + m.renderLogStatus(styles, bg)
}

// getLogTitle returns the plain text title for the log view.
func (m Model) getLogTitle() string {
	if m.criteria.SelectionActive() || m.criteria.SearchText != "" {
		return "Logs (filtered)"
	}
	return "Logs"
}

// renderLogStatus renders the log status bar.
func (m Model) renderLogStatus(styles Styles, bg BgStyle) string {
	if m.logState.searchActive {
		return m.logState.searchInput.View()
	}

	var parts []string
	parts = append(parts, bg.Render(fmt.Sprintf("%d of %d entries", m.snapshot.Visible, m.snapshot.Total), styles.FaintText))

	if m.criteria.SearchText != "" {
		parts = append(parts,
			bg.Render("/"+m.criteria.SearchText, styles.AccentText)+
				bg.Render(" - Press ", styles.FaintText)+
				bg.Render("Esc", styles.AccentText)+
				bg.Render(" to clear", styles.FaintText))
	}

	parts = append(parts,
		bg.Render("categories: "+selectionSummary(len(m.criteria.Categories)), styles.MutedText),
		bg.Render("levels: "+selectionSummary(len(m.criteria.Levels)), styles.MutedText))

	sep := bg.Space() + bg.Render("•", styles.FaintText) + bg.Space()
	return strings.Join(parts, sep)
}

// renderLogContent renders one line per filtered record.
func (m *Model) renderLogContent() string {
	bg := NewBgStyle(m.theme.FocusBg)
	styles := m.theme.Styles().WithBackground(m.theme.FocusBg)
	width := m.logViewport.Width

	if len(m.records) == 0 {
		return bg.FillLine(bg.Render(export.EmptyPlaceholder, styles.MutedText), width)
	}

	var b strings.Builder
	for i, r := range m.records {
		b.WriteString(bg.FillLine(m.renderRecordLine(r, styles, bg, width), width))
		if i < len(m.records)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// renderRecordLine renders a record cell: date, level badge, tag, message.
func (m *Model) renderRecordLine(r logentry.Record, styles Styles, bg BgStyle, width int) string {
	ts := r.Timestamp.Local().Format(logTimestampLayout)
	badge := styles.LevelBadge(r.Level).Render(padRight(" "+strings.ToUpper(r.Level.Name()), levelBadgeWidth))

	prefix := bg.Render(ts, styles.FaintText) + bg.Space() + badge + bg.Space()
	if tag := r.Tag(); tag != "" {
		prefix += bg.Render(tag, styles.AccentText) + bg.Space()
	}

	message := strings.ReplaceAll(strings.TrimSpace(r.Message), "\n", " ")
	room := width - lipgloss.Width(prefix)
	if room > 0 {
		message = truncate(message, room)
	}
	return prefix + bg.Render(message, styles.Text)
}

// handleLogsKey processes keyboard input for the log list.
func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.logState.searchActive {
		return m.handleLogSearchInput(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Search):
		m.logState.searchActive = true
		m.logState.searchInput.SetValue(m.criteria.SearchText)
		m.logState.searchInput.CursorEnd()
		return m, m.logState.searchInput.Focus()

	case key.Matches(msg, m.keys.Filters):
		m.modal = newFilterSheet(m.controller.Categories(), m.controller.Levels(), m.criteria)
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		return m, m.fetchCmd()

	case key.Matches(msg, m.keys.Escape):
		if m.criteria.SearchText != "" {
			return m.setSearchText("")
		}
		return m, nil

	case key.Matches(msg, m.keys.Top):
		m.logViewport.GotoTop()
	case key.Matches(msg, m.keys.Bottom):
		m.logViewport.GotoBottom()
	case key.Matches(msg, m.keys.Down):
		m.logViewport.ScrollDown(1)
	case key.Matches(msg, m.keys.Up):
		m.logViewport.ScrollUp(1)
	case key.Matches(msg, m.keys.HalfPageDown):
		m.logViewport.HalfPageDown()
	case key.Matches(msg, m.keys.HalfPageUp):
		m.logViewport.HalfPageUp()
	case key.Matches(msg, m.keys.PageDown):
		m.logViewport.PageDown()
	case key.Matches(msg, m.keys.PageUp):
		m.logViewport.PageUp()
	}

	return m, nil
}

// handleLogSearchInput handles keyboard input while the search line is open.
func (m Model) handleLogSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		m.logState.searchActive = false
		m.logState.searchInput.Blur()
		return m, nil

	case key.Matches(msg, m.keys.Escape):
		m.logState.searchActive = false
		m.logState.searchInput.Blur()
		m.logState.searchInput.SetValue("")
		return m.setSearchText("")
	}

	var cmd tea.Cmd
	m.logState.searchInput, cmd = m.logState.searchInput.Update(msg)
	if value := m.logState.searchInput.Value(); value != m.criteria.SearchText {
		next, refetch := m.setSearchText(value)
		return next, tea.Batch(cmd, refetch)
	}
	return m, cmd
}

// setSearchText stores the search text in the live criteria.
func (m Model) setSearchText(text string) (tea.Model, tea.Cmd) {
	cmd := m.updateCriteria(func(c *filter.Criteria) {
		c.SearchText = text
	})
	m.logViewport.GotoTop()
	return m, cmd
}
