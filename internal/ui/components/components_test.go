package components

import (
	"strings"
	"testing"

	"charm.land/lipgloss/v2"
)

func TestMeterWidth(t *testing.T) {
	for _, ratio := range []float64{-1, 0, 0.37, 1, 3} {
		view := NewMeter("Accuracy", ratio, 50).View()
		if w := lipgloss.Width(view); w != 50 {
			t.Errorf("Meter(%v) width = %d, want 50", ratio, w)
		}
	}
}

func TestMeterCaption(t *testing.T) {
	if view := NewMeter("", 0.5, 30).View(); !strings.Contains(view, "50%") {
		t.Errorf("Meter view = %q, want 50%%", view)
	}
	m := NewMeter("", 0.5, 30)
	m.Caption = "12/24"
	if view := m.View(); !strings.Contains(view, "12/24") {
		t.Errorf("Meter view = %q, want caption", view)
	}
}

func TestRubricPips(t *testing.T) {
	for _, score := range []int{-2, 0, 1, 4, 9} {
		view := Rubric("Rhythm", score)
		if got := strings.Count(view, "●"); got != 4 {
			t.Errorf("Rubric(%d) pips = %d, want 4", score, got)
		}
		if !strings.HasPrefix(view, "Rhythm") {
			t.Errorf("Rubric(%d) = %q, want label prefix", score, view)
		}
	}
}
