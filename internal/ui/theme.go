package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/logsift/internal/logentry"
)

// Theme defines colors and styles for the UI.
type Theme struct {
	Name string

	// Base colors
	Background string // Outermost background
	Surface    string // Header and command bar
	SurfaceAlt string // Unfocused panels
	FocusBg    string // Focused panel

	SelectionBg   string
	SelectionText string

	Border      string
	BorderMuted string
	BorderFocus string

	Text    string
	Muted   string
	Faint   string
	Accent  string
	Success string
	Warning string
	Danger  string
	Info    string

	// LevelColors maps logentry level names to badge colors.
	LevelColors map[string]string
}

// Styles returns Lipgloss styles for this theme.
func (t Theme) Styles() Styles {
	return Styles{
		Background: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Background)),

		Surface: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Surface)).
			Foreground(lipgloss.Color(t.Text)),

		Text: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Text)),

		MutedText: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Muted)),

		FaintText: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Faint)),

		AccentText: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Accent)),

		SuccessText: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Success)).
			Bold(true),

		WarningText: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Warning)),

		DangerText: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Danger)).
			Bold(true),

		InfoText: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Info)),

		Header: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Surface)).
			Foreground(lipgloss.Color(t.Text)).
			Padding(0, 1),

		Logo: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Warning)).
			Bold(true),

		Selected: lipgloss.NewStyle().
			Background(lipgloss.Color(t.SelectionBg)).
			Foreground(lipgloss.Color(t.SelectionText)),

		levelColors: t.LevelColors,
		background:  t.Background,
		muted:       t.Muted,
	}
}

// Styles contains pre-built Lipgloss styles for the theme.
type Styles struct {
	Background lipgloss.Style
	Surface    lipgloss.Style

	Text        lipgloss.Style
	MutedText   lipgloss.Style
	FaintText   lipgloss.Style
	AccentText  lipgloss.Style
	SuccessText lipgloss.Style
	WarningText lipgloss.Style
	DangerText  lipgloss.Style
	InfoText    lipgloss.Style

	Header   lipgloss.Style
	Logo     lipgloss.Style
	Selected lipgloss.Style

	levelColors map[string]string
	background  string
	muted       string
}

// LevelBadge returns the badge style for a record level.
func (s Styles) LevelBadge(level logentry.Level) lipgloss.Style {
	color := s.levelColors[level.Name()]
	if color == "" {
		color = s.muted
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(s.background)).
		Background(lipgloss.Color(color)).
		Bold(true)
}

// WithBackground returns a copy of Styles with all text styles having the specified background.
func (s Styles) WithBackground(bgColor string) Styles {
	bg := lipgloss.Color(bgColor)

	return Styles{
		Background: s.Background.Background(bg),
		Surface:    s.Surface.Background(bg),

		Text:        s.Text.Background(bg),
		MutedText:   s.MutedText.Background(bg),
		FaintText:   s.FaintText.Background(bg),
		AccentText:  s.AccentText.Background(bg),
		SuccessText: s.SuccessText.Background(bg),
		WarningText: s.WarningText.Background(bg),
		DangerText:  s.DangerText.Background(bg),
		InfoText:    s.InfoText.Background(bg),

		Header:   s.Header.Background(bg),
		Logo:     s.Logo.Background(bg),
		Selected: s.Selected,

		levelColors: s.levelColors,
		background:  s.background,
		muted:       s.muted,
	}
}

// Theme definitions

var themes = map[string]Theme{
	"Nightfox": nightfoxTheme(),
	"Kanagawa": kanagawaTheme(),
	"Slate":    slateTheme(),
}

var themeOrder = []string{"Nightfox", "Kanagawa", "Slate"}

// GetTheme returns a theme by name.
func GetTheme(name string) Theme {
	if t, ok := themes[name]; ok {
		return t
	}
	return nightfoxTheme()
}

// NextTheme returns the next theme name in the cycle.
func NextTheme(current string) string {
	for i, name := range themeOrder {
		if name == current {
			return themeOrder[(i+1)%len(themeOrder)]
		}
	}
	return themeOrder[0]
}

// ThemeNames returns available theme names.
func ThemeNames() []string {
	return append([]string(nil), themeOrder...)
}

func nightfoxTheme() Theme {
	// Nightfox palette: https://github.com/EdenEast/nightfox.nvim
	return Theme{
		Name: "Nightfox",

		Background: "#131a24", // bg0
		Surface:    "#192330", // bg1
		SurfaceAlt: "#212e3f", // bg2
		FocusBg:    "#29394f", // bg3

		SelectionBg:   "#2b3b51", // sel0
		SelectionText: "#cdcecf", // fg1

		Border:      "#39506d", // bg4
		BorderMuted: "#212e3f", // bg2
		BorderFocus: "#719cd6", // blue

		Text:    "#cdcecf", // fg1
		Muted:   "#738091", // comment
		Faint:   "#71839b", // fg3
		Accent:  "#719cd6", // blue
		Success: "#81b29a", // green
		Warning: "#dbc074", // yellow
		Danger:  "#c94f6d", // red
		Info:    "#63cdcf", // cyan

		LevelColors: map[string]string{
			"debug":  "#738091", // comment
			"info":   "#63cdcf", // cyan
			"notice": "#dbc074", // yellow
			"error":  "#c94f6d", // red
			"fault":  "#9d79d6", // magenta
		},
	}
}

func kanagawaTheme() Theme {
	// Kanagawa palette: https://github.com/rebelot/kanagawa.nvim
	return Theme{
		Name: "Kanagawa",

		Background: "#16161D", // sumiInk0
		Surface:    "#1F1F28", // sumiInk3
		SurfaceAlt: "#2A2A37", // sumiInk4
		FocusBg:    "#2A2A37", // sumiInk4

		SelectionBg:   "#2D4F67", // waveBlue1
		SelectionText: "#DCD7BA", // fujiWhite

		Border:      "#54546D", // sumiInk6
		BorderMuted: "#2A2A37", // sumiInk4
		BorderFocus: "#7E9CD8", // crystalBlue

		Text:    "#DCD7BA", // fujiWhite
		Muted:   "#C8C093", // oldWhite
		Faint:   "#727169", // fujiGray
		Accent:  "#7E9CD8", // crystalBlue
		Success: "#98BB6C", // springGreen
		Warning: "#E6C384", // carpYellow
		Danger:  "#E46876", // waveRed
		Info:    "#7FB4CA", // springBlue

		LevelColors: map[string]string{
			"debug":  "#727169", // fujiGray
			"info":   "#7FB4CA", // springBlue
			"notice": "#E6C384", // carpYellow
			"error":  "#E46876", // waveRed
			"fault":  "#957FB8", // oniViolet
		},
	}
}

func slateTheme() Theme {
	// Tailwind CSS Slate/Sky palette: https://tailwindcss.com/docs/colors
	return Theme{
		Name: "Slate",

		Background: "#020617", // slate-950
		Surface:    "#0f172a", // slate-900
		SurfaceAlt: "#1e293b", // slate-800
		FocusBg:    "#283548",

		SelectionBg:   "#0284c7", // sky-600
		SelectionText: "#f8fafc", // slate-50

		Border:      "#334155", // slate-700
		BorderMuted: "#1e293b", // slate-800
		BorderFocus: "#38bdf8", // sky-400

		Text:    "#f1f5f9", // slate-100
		Muted:   "#94a3b8", // slate-400
		Faint:   "#64748b", // slate-500
		Accent:  "#38bdf8", // sky-400
		Success: "#22c55e", // green-500
		Warning: "#f59e0b", // amber-500
		Danger:  "#ef4444", // red-500
		Info:    "#06b6d4", // cyan-500

		LevelColors: map[string]string{
			"debug":  "#64748b", // slate-500
			"info":   "#06b6d4", // cyan-500
			"notice": "#f59e0b", // amber-500
			"error":  "#dc2626", // red-600
			"fault":  "#a855f7", // purple-500
		},
	}
}
