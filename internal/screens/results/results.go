package results

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/learnloop/internal/assessment"
	"github.com/abhisek/learnloop/internal/feedback"
	"github.com/abhisek/learnloop/internal/router"
	"github.com/abhisek/learnloop/internal/screen"
	"github.com/abhisek/learnloop/internal/ui/components"
	"github.com/abhisek/learnloop/internal/ui/layout"
	"github.com/abhisek/learnloop/internal/ui/theme"
)

// Result is everything gathered when a rhythm activity ends.
type Result struct {
	Hits       int
	Misses     int
	Multiplier float64
	Assessment *assessment.ActivityAssessment // nil if assessing failed
	NewBadges  []assessment.Badge
	Feedback   feedback.Feedback
	Err        error
}

// Accuracy returns hits as a 0..1 ratio of all notes.
func (r Result) Accuracy() float64 {
	total := r.Hits + r.Misses
	if total == 0 {
		return 0
	}
	return float64(r.Hits) / float64(total)
}

// ResultsScreen shows the outcome of one rhythm activity.
type ResultsScreen struct {
	result Result
	again  func() screen.Screen
}

var _ screen.Screen = (*ResultsScreen)(nil)
var _ screen.KeyHintProvider = (*ResultsScreen)(nil)

// New creates a results screen. again builds the screen for "play again";
// when nil, Enter just quits.
func New(result Result, again func() screen.Screen) *ResultsScreen {
	return &ResultsScreen{result: result, again: again}
}

func (s *ResultsScreen) Init() tea.Cmd {
	return nil
}

func (s *ResultsScreen) Title() string {
	return "Results"
}

func (s *ResultsScreen) KeyHints() []layout.KeyHint {
	hints := []layout.KeyHint{{Key: "q", Description: "Quit"}}
	if s.again != nil {
		hints = append([]layout.KeyHint{{Key: "Enter", Description: "Play again"}}, hints...)
	}
	return hints
}

func (s *ResultsScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if kmsg, ok := msg.(tea.KeyMsg); ok {
		switch kmsg.String() {
		case "enter":
			if s.again == nil {
				return s, tea.Quit
			}
			next := s.again()
			return s, func() tea.Msg { return router.ReplaceScreenMsg{Screen: next} }
		case "q", "esc":
			return s, tea.Quit
		}
	}
	return s, nil
}

func (s *ResultsScreen) View(width, height int) string {
	r := s.result
	var b strings.Builder

	center := func(str string) {
		b.WriteString(layout.Center(str, width))
		b.WriteString("\n")
	}

	center(theme.Title.Render("Activity complete!"))
	b.WriteString("\n")

	barWidth := min(width-8, 56)
	meter := components.NewMeter("Accuracy", r.Accuracy(), barWidth)
	meter.Caption = fmt.Sprintf("%d/%d", r.Hits, r.Hits+r.Misses)
	center(meter.View())
	center(theme.Hint.Render(fmt.Sprintf("Tempo ×%.2f", r.Multiplier)))
	b.WriteString("\n")

	if r.Err != nil {
		center(lipgloss.NewStyle().Foreground(theme.Error).Render("Could not save results: " + r.Err.Error()))
		b.WriteString("\n")
	}

	if a := r.Assessment; a != nil {
		growth := lipgloss.NewStyle().
			Foreground(theme.GrowthColor(string(a.GrowthLevel))).
			Bold(true).
			Render(a.GrowthLevel.DisplayName())
		center(theme.Subtitle.Render("Growth: ") + growth)
		center(components.Rubric("Rhythm", a.Scores.RhythmPerformance))
		center(components.Rubric("Artistic expression", a.Scores.ArtisticExpression))
		center(components.Rubric("Reflection", a.Scores.EmotionalReflection))
		b.WriteString("\n")
	}

	if len(r.NewBadges) > 0 {
		center(theme.Subtitle.Render("New badges"))
		for _, badge := range r.NewBadges {
			center(theme.Badge.Render(fmt.Sprintf("%s %s", badge.Type.Icon(), badge.Type.DisplayName())))
		}
		b.WriteString("\n")
	}

	if card := feedbackCard(r.Feedback, min(width-8, 64)); card != "" {
		center(card)
	}

	return b.String()
}

func feedbackCard(f feedback.Feedback, width int) string {
	if f.EncouragingNote == "" && f.StrategyUsed == "" {
		return ""
	}
	body := theme.Body.Width(max(width-6, 10))
	lines := []string{
		theme.Subtitle.Render("What you did"),
		body.Render(f.StrategyUsed),
		theme.Subtitle.Render("What worked"),
		body.Render(f.WhatWorkedWell),
		theme.Subtitle.Render("Try next time"),
		body.Render(f.AlternativeApproach),
		"",
		lipgloss.NewStyle().Foreground(theme.Gold).Render(f.EncouragingNote),
	}
	return theme.Card.Width(width).Render(strings.Join(lines, "\n"))
}
