package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
)

// renderHelp renders the help overlay.
func (m Model) renderHelp() string {
	styles := m.theme.Styles()

	sections := []helpSection{
		{title: "Views", bindings: []key.Binding{m.keys.Tab, m.keys.ViewLogs, m.keys.ViewExport, m.keys.Escape}},
		{title: "Navigation", bindings: []key.Binding{m.keys.Up, m.keys.Down, m.keys.Top, m.keys.Bottom, m.keys.HalfPageDown, m.keys.HalfPageUp}},
		{title: "Logs", bindings: []key.Binding{m.keys.Search, m.keys.Filters, m.keys.Refresh}},
		{title: "Export", bindings: []key.Binding{m.keys.Left, m.keys.Right, m.keys.Toggle, m.keys.Confirm}},
		{title: "General", bindings: []key.Binding{m.keys.CycleTheme, m.keys.Help, m.keys.Quit}},
	}

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Keyboard Shortcuts"))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", 30)))
	b.WriteString("\n\n")

	keyStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(m.theme.Warning)).
		Width(12)

	for i, section := range sections {
		b.WriteString(styles.AccentText.Bold(true).Render(section.title))
		b.WriteString("\n")

		for _, binding := range section.bindings {
			h := binding.Help()
			b.WriteString(keyStyle.Render(h.Key))
			b.WriteString(styles.Text.Render(h.Desc))
			b.WriteString("\n")
		}

		if i < len(sections)-1 {
			b.WriteString("\n")
		}
	}

	return placeModal(m.theme, m.width, m.height, 44, b.String())
}

type helpSection struct {
	title    string
	bindings []key.Binding
}
