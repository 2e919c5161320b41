package router

import (
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/learnloop/internal/screen"
)

// stubScreen is a minimal screen for testing.
type stubScreen struct {
	title   string
	initRan bool
	closed  int
}

func (s *stubScreen) Init() tea.Cmd {
	s.initRan = true
	return nil
}
func (s *stubScreen) Update(tea.Msg) (screen.Screen, tea.Cmd) { return s, nil }
func (s *stubScreen) View(int, int) string                    { return s.title }
func (s *stubScreen) Title() string                           { return s.title }
func (s *stubScreen) Close()                                  { s.closed++ }

func TestPush(t *testing.T) {
	r := New(&stubScreen{title: "rhythm"})

	s2 := &stubScreen{title: "results"}
	r.Update(PushScreenMsg{Screen: s2})

	if r.Depth() != 2 {
		t.Errorf("expected depth 2, got %d", r.Depth())
	}
	if r.Active().Title() != "results" {
		t.Errorf("expected active 'results', got %q", r.Active().Title())
	}
	if !s2.initRan {
		t.Error("expected Init() to run on pushed screen")
	}
}

func TestPopClosesScreen(t *testing.T) {
	s1 := &stubScreen{title: "rhythm"}
	r := New(s1)

	s2 := &stubScreen{title: "results"}
	r.Push(s2)
	r.Update(PopScreenMsg{})

	if r.Depth() != 1 {
		t.Errorf("expected depth 1, got %d", r.Depth())
	}
	if r.Active().Title() != "rhythm" {
		t.Errorf("expected active 'rhythm', got %q", r.Active().Title())
	}
	if s2.closed != 1 {
		t.Errorf("popped screen closed %d times, want 1", s2.closed)
	}
	if s1.closed != 0 {
		t.Error("remaining screen should stay open")
	}
}

func TestPopNoopAtBottom(t *testing.T) {
	s1 := &stubScreen{title: "rhythm"}
	r := New(s1)

	r.Pop()

	if r.Depth() != 1 {
		t.Errorf("expected depth 1 after pop at bottom, got %d", r.Depth())
	}
	if s1.closed != 0 {
		t.Error("bottom screen should not be closed by Pop")
	}
}

func TestReplaceScreenMsg(t *testing.T) {
	s1 := &stubScreen{title: "rhythm"}
	r := New(s1)

	s2 := &stubScreen{title: "results"}
	r.Update(ReplaceScreenMsg{Screen: s2})

	if r.Depth() != 1 {
		t.Errorf("expected depth 1 after replace, got %d", r.Depth())
	}
	if r.Active().Title() != "results" {
		t.Errorf("expected active 'results', got %q", r.Active().Title())
	}
	if !s2.initRan {
		t.Error("expected Init() to run via ReplaceScreenMsg")
	}
	if s1.closed != 1 {
		t.Errorf("replaced screen closed %d times, want 1", s1.closed)
	}
}

func TestReplacePreservesStackDepth(t *testing.T) {
	r := New(&stubScreen{title: "first"})
	r.Push(&stubScreen{title: "second"})
	r.Replace(&stubScreen{title: "third"})

	if r.Depth() != 2 {
		t.Errorf("expected depth 2, got %d", r.Depth())
	}
	if r.Active().Title() != "third" {
		t.Errorf("expected active 'third', got %q", r.Active().Title())
	}
}

func TestCloseAll(t *testing.T) {
	s1 := &stubScreen{title: "first"}
	s2 := &stubScreen{title: "second"}
	r := New(s1)
	r.Push(s2)

	r.Close()

	if s1.closed != 1 || s2.closed != 1 {
		t.Errorf("closed counts = %d, %d, want 1, 1", s1.closed, s2.closed)
	}
}

func TestViewRendersActive(t *testing.T) {
	r := New(&stubScreen{title: "first"})
	r.Push(&stubScreen{title: "second"})

	if got := r.View(80, 24); got != "second" {
		t.Errorf("View() = %q, want 'second'", got)
	}
}
