package components

import (
	"fmt"
	"image/color"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/learnloop/internal/ui/theme"
)

// Meter is a labelled horizontal bar for a 0..1 ratio.
type Meter struct {
	Label   string
	Ratio   float64
	Width   int
	Fill    color.Color
	Caption string // right of the bar; defaults to the percentage
}

// NewMeter creates a teal meter.
func NewMeter(label string, ratio float64, width int) Meter {
	return Meter{Label: label, Ratio: ratio, Width: width, Fill: theme.Secondary}
}

// View renders the meter.
func (m Meter) View() string {
	var out string
	if m.Label != "" {
		out = lipgloss.NewStyle().Foreground(theme.Text).Render(m.Label) + "  "
	}

	caption := m.Caption
	if caption == "" {
		caption = fmt.Sprintf("%d%%", int(m.Ratio*100+0.5))
	}
	caption = "  " + caption

	barWidth := max(m.Width-lipgloss.Width(out)-lipgloss.Width(caption), 4)
	filled := min(max(int(float64(barWidth)*m.Ratio), 0), barWidth)

	fill := m.Fill
	if fill == nil {
		fill = theme.Secondary
	}
	out += lipgloss.NewStyle().Background(fill).Render(strings.Repeat(" ", filled))
	out += lipgloss.NewStyle().Background(theme.Border).Render(strings.Repeat(" ", barWidth-filled))
	out += lipgloss.NewStyle().Foreground(theme.TextDim).Render(caption)
	return out
}

// Rubric renders a 1..4 score as filled and empty pips.
func Rubric(label string, score int) string {
	score = min(max(score, 0), 4)
	pips := lipgloss.NewStyle().Foreground(theme.Gold).Render(strings.Repeat("●", score)) +
		lipgloss.NewStyle().Foreground(theme.Border).Render(strings.Repeat("●", 4-score))
	return fmt.Sprintf("%-22s %s", label, pips)
}
