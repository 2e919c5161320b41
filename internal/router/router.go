package router

import (
	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/learnloop/internal/screen"
)

// PushScreenMsg pushes a screen onto the stack.
type PushScreenMsg struct {
	Screen screen.Screen
}

// PopScreenMsg pops the top screen.
type PopScreenMsg struct{}

// ReplaceScreenMsg swaps the top screen for another.
type ReplaceScreenMsg struct {
	Screen screen.Screen
}

// Router manages a stack of screens.
type Router struct {
	stack []screen.Screen
}

// New creates a router showing initial.
func New(initial screen.Screen) *Router {
	return &Router{stack: []screen.Screen{initial}}
}

// Push adds s on top and runs its Init.
func (r *Router) Push(s screen.Screen) tea.Cmd {
	r.stack = append(r.stack, s)
	return s.Init()
}

// Pop removes the top screen. The last screen is never popped.
func (r *Router) Pop() tea.Cmd {
	if len(r.stack) <= 1 {
		return nil
	}
	closeScreen(r.stack[len(r.stack)-1])
	r.stack = r.stack[:len(r.stack)-1]
	return nil
}

// Replace swaps the top screen for s and runs its Init.
func (r *Router) Replace(s screen.Screen) tea.Cmd {
	top := len(r.stack) - 1
	closeScreen(r.stack[top])
	r.stack[top] = s
	return s.Init()
}

// Close closes every screen on the stack.
func (r *Router) Close() {
	for i := len(r.stack) - 1; i >= 0; i-- {
		closeScreen(r.stack[i])
	}
}

// Active returns the top screen.
func (r *Router) Active() screen.Screen {
	if len(r.stack) == 0 {
		return nil
	}
	return r.stack[len(r.stack)-1]
}

// Depth returns the number of stacked screens.
func (r *Router) Depth() int {
	return len(r.stack)
}

// Update handles navigation messages and forwards the rest to the top screen.
func (r *Router) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case PushScreenMsg:
		return r.Push(msg.Screen)
	case PopScreenMsg:
		return r.Pop()
	case ReplaceScreenMsg:
		return r.Replace(msg.Screen)
	}

	active := r.Active()
	if active == nil {
		return nil
	}
	updated, cmd := active.Update(msg)
	r.stack[len(r.stack)-1] = updated
	return cmd
}

// View renders the top screen.
func (r *Router) View(width, height int) string {
	active := r.Active()
	if active == nil {
		return ""
	}
	return active.View(width, height)
}

func closeScreen(s screen.Screen) {
	if c, ok := s.(screen.Closer); ok {
		c.Close()
	}
}
