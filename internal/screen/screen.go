package screen

import (
	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/learnloop/internal/ui/layout"
)

// Screen is one full-window view managed by the router.
type Screen interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (Screen, tea.Cmd)

	// View renders the content area, excluding header and footer.
	View(width, height int) string

	// Title is shown in the header.
	Title() string
}

// KeyHintProvider lets a screen replace the default footer hints.
type KeyHintProvider interface {
	KeyHints() []layout.KeyHint
}

// Closer is implemented by screens that own background work. The router
// calls Close when the screen leaves the stack.
type Closer interface {
	Close()
}
