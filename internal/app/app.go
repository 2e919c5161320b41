package app

import (
	"context"
	"fmt"
	"os"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/learnloop/internal/engine"
	"github.com/abhisek/learnloop/internal/router"
	"github.com/abhisek/learnloop/internal/screen"
	"github.com/abhisek/learnloop/internal/screens/rhythm"
	"github.com/abhisek/learnloop/internal/ui/layout"
)

// Options configures the interactive program.
type Options struct {
	Learner  *engine.Learner
	Language string
	Notes    int
	LevelID  string
}

// statusMsg refreshes the header status.
type statusMsg layout.Status

// AppModel is the root Bubble Tea model.
type AppModel struct {
	router  *router.Router
	learner *engine.Learner
	status  layout.Status
	width   int
	height  int
}

// newAppModel creates an AppModel opening on the rhythm activity.
func newAppModel(opts Options) AppModel {
	first := rhythm.New(opts.Learner, rhythm.Options{
		LevelID:  opts.LevelID,
		Notes:    opts.Notes,
		Language: opts.Language,
	})
	return AppModel{
		router:  router.New(first),
		learner: opts.Learner,
		status:  layout.Status{Learner: opts.Learner.ID, Multiplier: 1},
	}
}

func (m AppModel) Init() tea.Cmd {
	return tea.Batch(m.router.Active().Init(), m.refreshStatus())
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case statusMsg:
		m.status = layout.Status(msg)
		return m, nil

	case router.ReplaceScreenMsg:
		cmd := m.router.Update(msg)
		return m, tea.Batch(cmd, m.refreshStatus())

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.router.Close()
			return m, tea.Quit
		}
	}

	cmd := m.router.Update(msg)
	return m, cmd
}

func (m AppModel) refreshStatus() tea.Cmd {
	l := m.learner
	return func() tea.Msg {
		ctx := context.Background()
		st := layout.Status{Learner: l.ID, Multiplier: 1}
		if mult, err := l.Tempo.Load(ctx); err == nil {
			st.Multiplier = mult
		}
		if badges, err := l.EarnedBadges(ctx); err == nil {
			st.Badges = len(badges)
		}
		return statusMsg(st)
	}
}

func (m AppModel) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true

	if m.width == 0 || m.height == 0 {
		return v
	}

	if layout.IsTooSmall(m.width, m.height) {
		v.SetContent(layout.RenderMinSizeMessage(m.width, m.height))
		return v
	}

	active := m.router.Active()
	title := ""
	if active != nil {
		title = active.Title()
	}

	header := layout.RenderHeader(title, m.status, m.width)

	footerHints := []layout.KeyHint{{Key: "Ctrl+C", Description: "Quit"}}
	if hp, ok := active.(screen.KeyHintProvider); ok {
		footerHints = append(hp.KeyHints(), footerHints...)
	}
	footer := layout.RenderFooter(footerHints, m.width)

	contentHeight := max(m.height-lipgloss.Height(header)-lipgloss.Height(footer), 0)
	content := m.router.View(m.width, contentHeight)
	v.SetContent(layout.RenderFrame(header, content, footer, m.width, m.height))
	return v
}

// Run starts the Bubble Tea program for one learner.
func Run(opts Options) error {
	if opts.Learner == nil {
		return fmt.Errorf("app: no learner")
	}
	model := newAppModel(opts)
	p := tea.NewProgram(model)
	_, err := p.Run()
	model.router.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error running program:", err)
		return err
	}
	return nil
}
