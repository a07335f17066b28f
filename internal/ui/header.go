package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/logsift/internal/session"
)

// renderHeader renders the status bar with all information.
func (m Model) renderHeader() string {
	// Header uses Surface background
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	compact := m.width < 100

	var parts []string
	parts = append(parts, bg.Render("logsift", styles.Logo))

	switch m.snapshot.State {
	case session.StateFetching:
		parts = append(parts, bg.Render("● Fetching", styles.WarningText.Bold(true)))
	case session.StateExporting:
		parts = append(parts, bg.Render("● Exporting", styles.InfoText.Bold(true)))
	case session.StateReady:
		parts = append(parts, bg.Render("● Ready", styles.SuccessText))
	default:
		parts = append(parts, bg.Render("● Idle", styles.MutedText))
	}

	if m.sourceName != "" && !compact {
		parts = append(parts,
			bg.Render("Source:", styles.MutedText)+bg.Space()+
				bg.Render(truncateMiddle(m.sourceName, 40), styles.Text))
	}

	parts = append(parts,
		bg.Render("Entries:", styles.MutedText)+bg.Space()+
			bg.Render(fmt.Sprintf("%d/%d", m.snapshot.Visible, m.snapshot.Total), styles.Text))

	parts = append(parts,
		bg.Render("Window:", styles.MutedText)+bg.Space()+
			bg.Render(m.windowLabel(), styles.InfoText))

	if ts := m.formatTimestamp(); ts != "" {
		parts = append(parts, bg.Render(ts, styles.MutedText))
	}

	if m.snapshot.Stale {
		parts = append(parts, bg.Render("STALE", styles.WarningText.Bold(true)))
	}

	if m.toast != "" {
		parts = append(parts, bg.Render(m.toast, styles.SuccessText))
	}

	if errText := m.errorText(); errText != "" {
		maxErr := 80
		if compact {
			maxErr = 40
		}
		parts = append(parts,
			bg.Render("ERROR", styles.DangerText.Bold(true))+bg.Space()+
				bg.Render(truncate(errText, maxErr), styles.DangerText))
	}

	return styles.Header.Width(m.width).Render(bg.Join(parts, "  "))
}

// errorText returns the alert shown to the user, preferring the most recent
// action failure over the last fetch failure.
func (m Model) errorText() string {
	if m.alert != "" {
		return m.alert
	}
	if m.snapshot.LastError != nil {
		return m.snapshot.LastError.Error()
	}
	return ""
}

// windowLabel summarizes the active time window.
func (m Model) windowLabel() string {
	from, to := m.criteria.Window(m.now())
	const layout = "Jan 2 15:04"
	return from.Format(layout) + " → " + to.Format(layout)
}

// formatTimestamp formats the last fetch time with relative indicator.
func (m Model) formatTimestamp() string {
	fetched := m.snapshot.FetchedAt
	if fetched.IsZero() {
		return ""
	}

	timeSince := m.now().Sub(fetched)
	timeStr := fetched.Local().Format("15:04:05")

	switch {
	case timeSince < time.Minute:
		timeStr += " (now)"
	case timeSince < time.Hour:
		timeStr += fmt.Sprintf(" (%dm ago)", int(timeSince.Minutes()))
	case timeSince < 24*time.Hour:
		timeStr += fmt.Sprintf(" (%dh ago)", int(timeSince.Hours()))
	}
	return timeStr
}

// renderCommandBar renders the command hints bar.
func (m Model) renderCommandBar() string {
	// Command bar uses Surface background
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	type cmd struct{ key, desc string }
	var commands []cmd

	switch m.currentView {
	case ViewExport:
		commands = []cmd{
			{"j/k", "Navigate"},
			{"←/→", "Change"},
			{"Enter", "Run"},
			{"Esc", "Logs"},
			{"?", "More"},
		}
	default: // ViewLogs
		commands = []cmd{
			{"/", "Search"},
			{"F", "Filters"},
			{"x", "Export"},
			{"r", "Refresh"},
			{"j/k", "Scroll"},
			{"?", "More"},
		}
	}

	colon := bg.Sep(":")
	sep := bg.Spaces(2)

	segments := make([]string, 0, len(commands)+2)
	for _, c := range commands {
		segments = append(segments,
			bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}

	if m.criteria.SearchText != "" {
		segments = append(segments,
			bg.Render("/"+truncate(m.criteria.SearchText, 18), styles.AccentText))
	}

	// Theme indicator
	segments = append(segments,
		bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).Render(strings.Join(segments, sep))
}

// renderTitledBox renders content in a box with the title embedded in the top border:
// ┌─── Title ───┐
func (m Model) renderTitledBox(title, content string, width, height int, focused bool) string {
	var borderColorStr, bgColorStr string
	if focused {
		borderColorStr = m.theme.BorderFocus
		bgColorStr = m.theme.FocusBg
	} else {
		borderColorStr = m.theme.Border
		bgColorStr = m.theme.SurfaceAlt
	}
	bg := NewBgStyle(bgColorStr)
	borderStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(borderColorStr))
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.theme.Text))

	innerWidth := max(width-2, 0)
	title = truncate(title, max(innerWidth-4, 0))
	titleLen := lipgloss.Width(title)
	leftPad := max((innerWidth-titleLen-2)/2, 0)
	rightPad := max(innerWidth-titleLen-2-leftPad, 0)

	topBorder := bg.Render("┌", borderStyle) +
		bg.Render(strings.Repeat("─", leftPad), borderStyle) +
		bg.Render(" "+title+" ", titleStyle) +
		bg.Render(strings.Repeat("─", rightPad), borderStyle) +
		bg.Render("┐", borderStyle)

	bottomBorder := bg.Render("└", borderStyle) +
		bg.Render(strings.Repeat("─", innerWidth), borderStyle) +
		bg.Render("┘", borderStyle)

	contentStyle := lipgloss.NewStyle().Width(innerWidth).Background(lipgloss.Color(bgColorStr))

	contentLines := strings.Split(content, "\n")
	boxHeight := height - 2

	lines := make([]string, 0, max(boxHeight, 0))
	for i := 0; i < boxHeight; i++ {
		var line string
		if i < len(contentLines) {
			line = contentLines[i]
		}
		lines = append(lines,
			bg.Render("│", borderStyle)+
				contentStyle.Render(line)+
				bg.Render("│", borderStyle))
	}

	return topBorder + "\n" + strings.Join(lines, "\n") + "\n" + bottomBorder
}
