package results

import (
	"errors"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/learnloop/internal/assessment"
	"github.com/abhisek/learnloop/internal/feedback"
	"github.com/abhisek/learnloop/internal/router"
	"github.com/abhisek/learnloop/internal/screen"
)

func testResult() Result {
	return Result{
		Hits:       9,
		Misses:     3,
		Multiplier: 1.25,
		Assessment: &assessment.ActivityAssessment{
			Scores: assessment.RubricScores{
				RhythmPerformance:   3,
				ArtisticExpression:  2,
				EmotionalReflection: 4,
			},
			GrowthLevel: assessment.GrowthProficient,
		},
		NewBadges: []assessment.Badge{{Type: assessment.AllBadgeTypes()[0]}},
		Feedback: feedback.Feedback{
			StrategyUsed:        "You kept a steady beat.",
			WhatWorkedWell:      "Listening before tapping.",
			AlternativeApproach: "Try counting out loud.",
			EncouragingNote:     "Keep going!",
		},
	}
}

func TestResultsScreen_Title(t *testing.T) {
	s := New(testResult(), nil)
	if s.Title() != "Results" {
		t.Errorf("Title = %q, want %q", s.Title(), "Results")
	}
}

func TestResultsScreen_Accuracy(t *testing.T) {
	if got := testResult().Accuracy(); got != 0.75 {
		t.Errorf("Accuracy = %v, want 0.75", got)
	}
	if got := (Result{}).Accuracy(); got != 0 {
		t.Errorf("empty Accuracy = %v, want 0", got)
	}
}

func TestResultsScreen_Display(t *testing.T) {
	view := New(testResult(), nil).View(100, 40)
	for _, want := range []string{"9/12", "Proficient", "Keep going!", assessment.AllBadgeTypes()[0].DisplayName()} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestResultsScreen_DisplayError(t *testing.T) {
	r := Result{Hits: 1, Err: errors.New("store offline")}
	view := New(r, nil).View(100, 40)
	if !strings.Contains(view, "store offline") {
		t.Error("expected error in view")
	}
}

func TestResultsScreen_EnterPlaysAgain(t *testing.T) {
	built := 0
	again := func() screen.Screen {
		built++
		return New(Result{}, nil)
	}
	s := New(testResult(), again)
	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected a command on Enter")
	}
	if _, ok := cmd().(router.ReplaceScreenMsg); !ok {
		t.Error("expected ReplaceScreenMsg on Enter")
	}
	if built != 1 {
		t.Errorf("again built %d screens, want 1", built)
	}
}

func TestResultsScreen_EscQuits(t *testing.T) {
	s := New(testResult(), nil)
	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEscape})
	if cmd == nil {
		t.Fatal("expected a command on Esc")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected QuitMsg on Esc")
	}
}

func TestResultsScreen_KeyHints(t *testing.T) {
	if n := len(New(testResult(), nil).KeyHints()); n != 1 {
		t.Errorf("KeyHints without again = %d, want 1", n)
	}
	again := func() screen.Screen { return nil }
	if n := len(New(testResult(), again).KeyHints()); n != 2 {
		t.Errorf("KeyHints with again = %d, want 2", n)
	}
}
