package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/logsift/internal/filter"
	"github.com/five82/logsift/internal/logentry"
)

// applySelectionMsg carries the category and level sets chosen in the
// filter sheet.
type applySelectionMsg struct {
	categories map[string]struct{}
	levels     map[logentry.Level]struct{}
}

type sheetItem struct {
	category string
	level    logentry.Level
	isLevel  bool
}

// filterSheet is the multi-select modal for categories and levels.
type filterSheet struct {
	items      []sheetItem
	categories map[string]struct{}
	levels     map[logentry.Level]struct{}
	cursor     int
}

// newFilterSheet lists the facets of the fetched set plus anything already
// selected, so stale selections can still be cleared.
func newFilterSheet(categories []string, levels []logentry.Level, c filter.Criteria) filterSheet {
	c = c.Clone()

	catSet := make(map[string]struct{}, len(categories))
	for _, name := range categories {
		catSet[name] = struct{}{}
	}
	for name := range c.Categories {
		catSet[name] = struct{}{}
	}
	names := make([]string, 0, len(catSet))
	for name := range catSet {
		names = append(names, name)
	}
	sort.Strings(names)

	levelSet := make(map[logentry.Level]struct{}, len(levels))
	for _, l := range levels {
		levelSet[l] = struct{}{}
	}
	for l := range c.Levels {
		levelSet[l] = struct{}{}
	}

	items := make([]sheetItem, 0, len(names)+len(levelSet))
	for _, name := range names {
		items = append(items, sheetItem{category: name})
	}
	for _, l := range logentry.Levels() {
		if _, ok := levelSet[l]; ok {
			items = append(items, sheetItem{level: l, isLevel: true})
		}
	}

	return filterSheet{
		items:      items,
		categories: c.Categories,
		levels:     c.Levels,
	}
}

func (s filterSheet) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return s, nil, false
	}

	switch {
	case key.Matches(keyMsg, keys.Escape):
		return s, nil, true
	case key.Matches(keyMsg, keys.Confirm):
		apply := applySelectionMsg{categories: s.categories, levels: s.levels}
		return s, func() tea.Msg { return apply }, true
	case key.Matches(keyMsg, keys.Up):
		if s.cursor > 0 {
			s.cursor--
		}
	case key.Matches(keyMsg, keys.Down):
		if s.cursor < len(s.items)-1 {
			s.cursor++
		}
	case key.Matches(keyMsg, keys.Toggle):
		s.toggle()
	case key.Matches(keyMsg, keys.Clear):
		s.categories = map[string]struct{}{}
		s.levels = map[logentry.Level]struct{}{}
	}
	return s, nil, false
}

func (s *filterSheet) toggle() {
	if s.cursor < 0 || s.cursor >= len(s.items) {
		return
	}
	item := s.items[s.cursor]
	if item.isLevel {
		if _, ok := s.levels[item.level]; ok {
			delete(s.levels, item.level)
		} else {
			s.levels[item.level] = struct{}{}
		}
		return
	}
	if _, ok := s.categories[item.category]; ok {
		delete(s.categories, item.category)
	} else {
		s.categories[item.category] = struct{}{}
	}
}

func (s filterSheet) selected(item sheetItem) bool {
	if item.isLevel {
		_, ok := s.levels[item.level]
		return ok
	}
	_, ok := s.categories[item.category]
	return ok
}

func (s filterSheet) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	modalWidth := 50

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Filter"))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", modalWidth-6)))
	b.WriteString("\n\n")

	writeHeading := func(title string, count int) {
		b.WriteString(styles.AccentText.Bold(true).Render(title))
		b.WriteString("  ")
		b.WriteString(styles.MutedText.Render(selectionSummary(count)))
		b.WriteString("\n")
	}

	writeHeading("Categories", len(s.categories))
	wroteLevels := false
	if len(s.items) == 0 || s.items[0].isLevel {
		b.WriteString(styles.FaintText.Render("  No categories"))
		b.WriteString("\n")
	}
	for i, item := range s.items {
		if item.isLevel && !wroteLevels {
			b.WriteString("\n")
			writeHeading("Levels", len(s.levels))
			wroteLevels = true
		}
		b.WriteString(s.renderItem(theme, styles, item, i == s.cursor, modalWidth-6))
		b.WriteString("\n")
	}
	if !wroteLevels {
		b.WriteString("\n")
		writeHeading("Levels", len(s.levels))
		b.WriteString(styles.FaintText.Render("  No levels"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(styles.MutedText.Render("Space toggle • c clear • Enter apply • Esc cancel"))

	return placeModal(theme, width, height, modalWidth, b.String())
}

func (s filterSheet) renderItem(theme Theme, styles Styles, item sheetItem, focused bool, width int) string {
	mark := "[ ]"
	if s.selected(item) {
		mark = "[x]"
	}

	var label string
	if item.isLevel {
		label = styles.LevelBadge(item.level).Render(fmt.Sprintf(" %s ", strings.ToUpper(item.level.Name())))
	} else {
		label = truncate(item.category, width-6)
	}

	line := fmt.Sprintf(" %s %s", mark, label)
	if focused {
		return lipgloss.NewStyle().
			Background(lipgloss.Color(theme.SelectionBg)).
			Foreground(lipgloss.Color(theme.SelectionText)).
			Width(width).
			Render(line)
	}
	return styles.Text.Render(line)
}
