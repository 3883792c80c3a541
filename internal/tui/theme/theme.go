package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/glabrego/odyssey-reader/internal/config"
)

type Theme struct {
	Name string
	// Glamour is the glamour standard style used for commentary Markdown.
	Glamour string

	Title      lipgloss.Style
	ModePill   lipgloss.Style
	Section    lipgloss.Style
	Selection  lipgloss.Style
	Cursor     lipgloss.Style
	ActiveLine lipgloss.Style
	MetaLabel  lipgloss.Style
	MetaValue  lipgloss.Style
	StateIdle  lipgloss.Style
	StateWarn  lipgloss.Style
	StateLoad  lipgloss.Style

	CardTitle   lipgloss.Style
	CardFocused lipgloss.Style
	CardError   lipgloss.Style
	Hint        lipgloss.Style
	Modal       lipgloss.Style
}

type palette struct {
	rosewater, mauve, red, peach, yellow, green, teal, lavender lipgloss.Color
	text, subtext0, subtext1, overlay1, surface0, surface1      lipgloss.Color
}

// Catppuccin Mocha.
var mocha = palette{
	rosewater: "#f5e0dc",
	mauve:     "#cba6f7",
	red:       "#f38ba8",
	peach:     "#fab387",
	yellow:    "#f9e2af",
	green:     "#a6e3a1",
	teal:      "#94e2d5",
	lavender:  "#b4befe",
	text:      "#cdd6f4",
	subtext0:  "#a6adc8",
	subtext1:  "#bac2de",
	overlay1:  "#7f849c",
	surface0:  "#313244",
	surface1:  "#45475a",
}

// Catppuccin Latte.
var latte = palette{
	rosewater: "#dc8a78",
	mauve:     "#8839ef",
	red:       "#d20f39",
	peach:     "#fe640b",
	yellow:    "#df8e1d",
	green:     "#40a02b",
	teal:      "#179299",
	lavender:  "#7287fd",
	text:      "#4c4f69",
	subtext0:  "#6c6f85",
	subtext1:  "#5c5f77",
	overlay1:  "#8c8fa1",
	surface0:  "#ccd0da",
	surface1:  "#bcc0cc",
}

func Dark() Theme {
	return build(config.ThemeDark, "dark", mocha)
}

func Light() Theme {
	return build(config.ThemeLight, "light", latte)
}

// ForName returns the theme for a persisted theme name; unknown names get the default.
func ForName(name string) Theme {
	if name == config.ThemeDark {
		return Dark()
	}
	return Light()
}

func Default() Theme {
	return ForName(config.DefaultTheme)
}

func build(name, glamourStyle string, p palette) Theme {
	return Theme{
		Name:       name,
		Glamour:    glamourStyle,
		Title:      lipgloss.NewStyle().Bold(true).Foreground(p.mauve),
		ModePill:   lipgloss.NewStyle().Foreground(p.lavender).Background(p.surface0).Padding(0, 1),
		Section:    lipgloss.NewStyle().Bold(true).Foreground(p.teal),
		Selection:  lipgloss.NewStyle().Background(p.yellow).Foreground(p.surface0),
		Cursor:     lipgloss.NewStyle().Underline(true).Bold(true).Foreground(p.peach),
		ActiveLine: lipgloss.NewStyle().Background(p.surface0).Foreground(p.text),
		MetaLabel:  lipgloss.NewStyle().Foreground(p.overlay1),
		MetaValue:  lipgloss.NewStyle().Foreground(p.subtext1),
		StateIdle:  lipgloss.NewStyle().Foreground(p.green),
		StateWarn:  lipgloss.NewStyle().Foreground(p.red),
		StateLoad:  lipgloss.NewStyle().Foreground(p.peach),
		CardTitle:  lipgloss.NewStyle().Bold(true).Foreground(p.rosewater),
		CardFocused: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.lavender),
		CardError: lipgloss.NewStyle().Foreground(p.red),
		Hint:      lipgloss.NewStyle().Italic(true).Foreground(p.subtext0),
		Modal: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.surface1).
			Padding(0, 1),
	}
}

func (t Theme) RenderActiveLine(active bool, line string) string {
	if !active {
		return line
	}
	return t.ActiveLine.Render(line)
}

// CardHeading styles a card title, marking the focused card.
func (t Theme) CardHeading(focused bool, title string) string {
	if focused {
		return t.CardFocused.Render("› " + title)
	}
	return t.CardTitle.Render("  " + title)
}
