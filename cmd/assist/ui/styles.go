// Package ui holds the look of the assist panel: the clinic palette in a
// light and a dark variant, and the lipgloss styles built from it.
package ui

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Semantic colors, shared by both palettes.
var (
	ColorError   = lipgloss.Color("#dc2626") // red-600
	ColorWarning = lipgloss.Color("#d97706") // amber-600
	ColorInfo    = lipgloss.Color("#2563eb") // blue-600
	titleText    = lipgloss.Color("#ffffff")
)

// Theme is one palette of the panel.
type Theme struct {
	Text    lipgloss.Color
	Primary lipgloss.Color // title bar, headings
	Accent  lipgloss.Color // selection, spinner, prompt
	Chip    lipgloss.Color // suggestion background
	Muted   lipgloss.Color
	Border  lipgloss.Color
	IsDark  bool
}

// LightTheme is the default blue/indigo palette.
func LightTheme() Theme {
	return Theme{
		Text:    lipgloss.Color("#1f2937"),
		Primary: lipgloss.Color("#2563eb"),
		Accent:  lipgloss.Color("#4f46e5"),
		Chip:    lipgloss.Color("#eef2ff"),
		Muted:   lipgloss.Color("#6b7280"),
		Border:  lipgloss.Color("#c7d2fe"),
	}
}

// DarkTheme is the palette for dark terminals.
func DarkTheme() Theme {
	return Theme{
		Text:    lipgloss.Color("#f1f5f9"),
		Primary: lipgloss.Color("#3b82f6"),
		Accent:  lipgloss.Color("#818cf8"),
		Chip:    lipgloss.Color("#1e293b"),
		Muted:   lipgloss.Color("#94a3b8"),
		Border:  lipgloss.Color("#334155"),
		IsDark:  true,
	}
}

// ThemeByName maps the ui.theme config value to a theme. Anything other
// than "light" or "dark" falls back to terminal detection.
func ThemeByName(name string) Theme {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "dark":
		return DarkTheme()
	case "light":
		return LightTheme()
	}
	return DetectTheme()
}

// DetectTheme guesses the terminal background, defaulting to light.
func DetectTheme() Theme {
	// COLORFGBG is "fg;bg"; ANSI backgrounds 0-6 and 8 are dark.
	if fgbg := os.Getenv("COLORFGBG"); fgbg != "" {
		if i := strings.LastIndex(fgbg, ";"); i >= 0 {
			if bg, err := strconv.Atoi(fgbg[i+1:]); err == nil && (bg <= 6 || bg == 8) && bg >= 0 {
				return DarkTheme()
			}
		}
	}
	if os.Getenv("AMBUASSIST_DARK_MODE") == "1" {
		return DarkTheme()
	}
	return LightTheme()
}

// Styles are the rendered pieces of the panel.
type Styles struct {
	Theme Theme

	Panel    lipgloss.Style
	TitleBar lipgloss.Style
	Title    lipgloss.Style
	Muted    lipgloss.Style
	Bold     lipgloss.Style
	Prompt   lipgloss.Style

	UserInput     lipgloss.Style
	Suggestion    lipgloss.Style
	QuickReply    lipgloss.Style
	QuickReplySel lipgloss.Style

	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
	Spinner lipgloss.Style
	Divider lipgloss.Style
}

// NewStyles builds the styles of theme.
func NewStyles(theme Theme) Styles {
	base := lipgloss.NewStyle().Foreground(theme.Text)
	bar := lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).PaddingLeft(1)

	return Styles{
		Theme: theme,

		Panel: base.
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border),
		TitleBar: lipgloss.NewStyle().
			Background(theme.Primary).
			Foreground(titleText).
			Bold(true).
			Padding(0, 1),
		Title:  lipgloss.NewStyle().Foreground(theme.Primary).Bold(true),
		Muted:  lipgloss.NewStyle().Foreground(theme.Muted),
		Bold:   base.Bold(true),
		Prompt: lipgloss.NewStyle().Foreground(theme.Accent).Bold(true),

		UserInput:     base,
		Suggestion:    lipgloss.NewStyle().Foreground(theme.Primary).Background(theme.Chip).Padding(0, 1),
		QuickReply:    bar.Foreground(theme.Text).BorderForeground(theme.Border),
		QuickReplySel: bar.Foreground(theme.Accent).BorderForeground(theme.Accent).Bold(true),

		Error:   lipgloss.NewStyle().Foreground(ColorError).Bold(true),
		Warning: lipgloss.NewStyle().Foreground(ColorWarning).Bold(true),
		Info:    lipgloss.NewStyle().Foreground(ColorInfo),
		Spinner: lipgloss.NewStyle().Foreground(theme.Accent),
		Divider: lipgloss.NewStyle().Foreground(theme.Border),
	}
}

// RenderDivider returns a horizontal rule of width cells.
func (s Styles) RenderDivider(width int) string {
	if width < 0 {
		width = 0
	}
	return s.Divider.Render(strings.Repeat("─", width))
}
