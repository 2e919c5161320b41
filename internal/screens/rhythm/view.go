package rhythm

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/learnloop/internal/tempo"
	"github.com/abhisek/learnloop/internal/ui/components"
	"github.com/abhisek/learnloop/internal/ui/layout"
	"github.com/abhisek/learnloop/internal/ui/theme"
)

const laneWidth = 21

func (s *RhythmScreen) View(width, height int) string {
	switch s.phase {
	case phaseReflect:
		return s.renderReflect(width)
	case phaseSaving:
		return layout.Center(theme.Hint.Render("Saving your progress..."), width)
	}
	return s.renderLane(width)
}

func (s *RhythmScreen) renderLane(width int) string {
	var b strings.Builder
	line := func(str string) {
		b.WriteString(layout.Center(str, width))
		b.WriteString("\n")
	}

	line(theme.Subtitle.Render("Tap Space when the note lights up"))
	b.WriteString("\n")

	lane := strings.Repeat("─", laneWidth)
	mid := laneWidth / 2
	switch {
	case s.note != 0:
		lane = lane[:mid*len("─")] + theme.Note.Render("●") + lane[(mid+1)*len("─"):]
	case s.flash == tempo.EventHit:
		lane = lane[:mid*len("─")] + theme.Hit.Render("✓") + lane[(mid+1)*len("─"):]
	case s.flash == tempo.EventMiss:
		lane = lane[:mid*len("─")] + theme.Miss.Render("✗") + lane[(mid+1)*len("─"):]
	}
	line(lipgloss.NewStyle().Foreground(theme.Border).Render("│ ") + lane + lipgloss.NewStyle().Foreground(theme.Border).Render(" │"))
	b.WriteString("\n")

	line(cueText(s.lastCue))
	b.WriteString("\n")

	done := s.hits + s.misses
	meter := components.NewMeter("Notes", float64(done)/float64(s.opts.Notes), min(width-8, 48))
	meter.Caption = fmt.Sprintf("%d/%d", done, s.opts.Notes)
	line(meter.View())
	b.WriteString("\n")

	line(theme.Hit.Render(fmt.Sprintf("hits %d", s.hits)) + "    " +
		theme.Miss.Render(fmt.Sprintf("misses %d", s.misses)))
	if s.ctrl != nil {
		line(theme.Hint.Render(fmt.Sprintf("tempo ×%.2f", s.ctrl.State().SpeedMultiplier)))
	}
	return b.String()
}

func (s *RhythmScreen) renderReflect(width int) string {
	var b strings.Builder
	b.WriteString(layout.Center(theme.Title.Render("How did that feel?"), width))
	b.WriteString("\n\n")
	parts := make([]string, len(Moods))
	for i, mood := range Moods {
		parts[i] = fmt.Sprintf("%d %s", i+1, mood)
	}
	b.WriteString(layout.Center(theme.Body.Render(strings.Join(parts, "    ")), width))
	b.WriteString("\n")
	return b.String()
}

func cueText(c tempo.Cue) string {
	switch c {
	case tempo.CueSpeedUp:
		return theme.SpeedUp.Render("Speeding up!")
	case tempo.CueSlowDown:
		return theme.SlowDown.Render("Slowing down")
	}
	return ""
}
