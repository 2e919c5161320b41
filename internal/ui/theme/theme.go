package theme

import (
	"image/color"

	"charm.land/lipgloss/v2"
)

// Palette: bright and friendly on a dark background.
var (
	Primary   = lipgloss.Color("#8B5CF6") // purple
	Secondary = lipgloss.Color("#14B8A6") // teal
	Accent    = lipgloss.Color("#F97316") // orange
	Success   = lipgloss.Color("#22C55E")
	Error     = lipgloss.Color("#F43F5E")
	Gold      = lipgloss.Color("#FACC15")
	Text      = lipgloss.Color("#F8FAFC")
	TextDim   = lipgloss.Color("#94A3B8")
	BgCard    = lipgloss.Color("#1E293B")
	Border    = lipgloss.Color("#334155")
)

var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary).
		Align(lipgloss.Center)

	Subtitle = lipgloss.NewStyle().
			Foreground(TextDim).
			Align(lipgloss.Center)

	Body = lipgloss.NewStyle().
		Foreground(Text)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)

	Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(1, 2)
)

// Rhythm lane.
var (
	Note = lipgloss.NewStyle().
		Foreground(Accent).
		Bold(true)

	Hit = lipgloss.NewStyle().
		Foreground(Success).
		Bold(true)

	Miss = lipgloss.NewStyle().
		Foreground(Error).
		Bold(true)

	SpeedUp = lipgloss.NewStyle().
		Foreground(Gold).
		Bold(true)

	SlowDown = lipgloss.NewStyle().
			Foreground(Secondary).
			Bold(true)
)

// Badge is the style of an unlocked badge line.
var Badge = lipgloss.NewStyle().
	Foreground(Gold).
	Bold(true)

// GrowthColor returns the color of a growth level name.
func GrowthColor(level string) color.Color {
	switch level {
	case "advanced":
		return Gold
	case "proficient":
		return Success
	case "developing":
		return Secondary
	default:
		return TextDim
	}
}
