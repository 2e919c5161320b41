package rhythm

import (
	"context"
	"fmt"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/learnloop/internal/assessment"
	"github.com/abhisek/learnloop/internal/feedback"
	"github.com/abhisek/learnloop/internal/observer"
	"github.com/abhisek/learnloop/internal/router"
	"github.com/abhisek/learnloop/internal/screen"
	"github.com/abhisek/learnloop/internal/screens/results"
	"github.com/abhisek/learnloop/internal/tempo"
	"github.com/abhisek/learnloop/internal/ui/layout"
)

// PuzzleType is the puzzle name recorded for rhythm activities.
const PuzzleType = "rhythm"

// DefaultNotes is how many notes one activity spawns.
const DefaultNotes = 16

// Moods offered after the activity, keyed 1-4.
var Moods = []string{"😀", "🙂", "😐", "😟"}

// Player is the slice of a learner the rhythm screen drives.
type Player interface {
	StartSession(puzzleType, levelID string, world observer.World) string
	RecordAction(in observer.ActionInput) bool
	EndSession(ctx context.Context, success bool) *observer.SessionObservation
	TempoController(ctx context.Context) *tempo.Controller
	SaveTempo(ctx context.Context, multiplier float64) (float64, error)
	Assess(ctx context.Context, activityID string, perf assessment.PerformanceData, art assessment.ArtworkData, refl assessment.ReflectionData) (assessment.ActivityAssessment, error)
	Badges(ctx context.Context) ([]assessment.Badge, error)
	Reflect(ctx context.Context, obs observer.SessionObservation, language string) feedback.Feedback
}

// Options configures one activity.
type Options struct {
	LevelID  string
	Notes    int
	Language string
	Clock    tempo.Clock // nil means wall clock
}

type phase int

const (
	phasePlaying phase = iota
	phaseReflect
	phaseSaving
)

// RhythmScreen runs one tap-along activity.
type RhythmScreen struct {
	player Player
	opts   Options

	phase   phase
	ctrl    *tempo.Controller
	loop    *tempo.Loop
	cancel  context.CancelFunc
	done    chan struct{}
	note    int // active note id, 0 when none
	hits    int
	misses  int
	strays  int
	lastCue tempo.Cue
	flash   tempo.EventKind
	quit    bool
}

var _ screen.Screen = (*RhythmScreen)(nil)
var _ screen.KeyHintProvider = (*RhythmScreen)(nil)
var _ screen.Closer = (*RhythmScreen)(nil)

// New creates a rhythm screen for p.
func New(p Player, opts Options) *RhythmScreen {
	if opts.Notes <= 0 {
		opts.Notes = DefaultNotes
	}
	if opts.LevelID == "" {
		opts.LevelID = "rhythm-1"
	}
	return &RhythmScreen{player: p, opts: opts}
}

func (s *RhythmScreen) Init() tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	s.player.StartSession(PuzzleType, s.opts.LevelID, observer.WorldMath)
	s.ctrl = s.player.TempoController(ctx)

	var loopOpts []tempo.LoopOption
	if s.opts.Clock != nil {
		loopOpts = append(loopOpts, tempo.WithLoopClock(s.opts.Clock))
	}
	s.loop = tempo.NewLoop(s.ctrl, loopOpts...)

	go func() {
		defer close(s.done)
		_ = s.loop.Run(ctx)
	}()
	return s.waitEvent()
}

func (s *RhythmScreen) Title() string {
	return "Rhythm"
}

func (s *RhythmScreen) KeyHints() []layout.KeyHint {
	switch s.phase {
	case phaseReflect:
		return []layout.KeyHint{
			{Key: "1-4", Description: "How did it feel?"},
			{Key: "Enter", Description: "Skip"},
		}
	case phaseSaving:
		return nil
	}
	return []layout.KeyHint{
		{Key: "Space", Description: "Tap"},
		{Key: "h", Description: "Hint"},
		{Key: "Esc", Description: "Stop"},
	}
}

func (s *RhythmScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case loopEventMsg:
		return s.handleEvent(msg.Event)
	case loopClosedMsg:
		return s, nil
	case finishedMsg:
		return s, s.showResults(msg.Result)
	case tea.KeyMsg:
		return s.handleKey(msg)
	}
	return s, nil
}

// Close stops the loop. It is safe to call more than once.
func (s *RhythmScreen) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Counts returns the hits and misses so far.
func (s *RhythmScreen) Counts() (hits, misses int) {
	return s.hits, s.misses
}

func (s *RhythmScreen) waitEvent() tea.Cmd {
	events := s.loop.Events()
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return loopClosedMsg{}
		}
		return loopEventMsg{Event: ev}
	}
}

func (s *RhythmScreen) handleEvent(e tempo.Event) (screen.Screen, tea.Cmd) {
	if s.phase != phasePlaying {
		return s, nil
	}
	switch e.Kind {
	case tempo.EventSpawn:
		s.note = e.Note
		s.flash = ""
	case tempo.EventMiss:
		s.misses++
		s.note = 0
		s.flash = tempo.EventMiss
		s.lastCue = e.Cue
		if s.hits+s.misses >= s.opts.Notes {
			return s.stop(true)
		}
	}
	return s, s.waitEvent()
}

func (s *RhythmScreen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	key := msg.String()
	switch s.phase {
	case phaseReflect:
		for i, mood := range Moods {
			if key == fmt.Sprint(i+1) {
				return s, s.wrapUp(mood)
			}
		}
		if key == "enter" {
			return s, s.wrapUp("")
		}
		return s, nil
	case phaseSaving:
		return s, nil
	}

	switch key {
	case "space", " ", "enter":
		s.tap()
		if s.hits+s.misses >= s.opts.Notes {
			return s.stop(true)
		}
	case "h":
		s.player.RecordAction(observer.ActionInput{Kind: observer.ActionHintRequested, Target: PuzzleType})
	case "q", "esc":
		return s.stop(false)
	}
	return s, nil
}

func (s *RhythmScreen) tap() {
	ev, ok := s.loop.Tap()
	if !ok {
		s.strays++
		s.player.RecordAction(observer.ActionInput{
			Kind:    observer.ActionTap,
			Target:  "stray",
			Correct: observer.Bool(false),
		})
		return
	}
	s.hits++
	s.note = 0
	s.flash = tempo.EventHit
	s.lastCue = ev.Cue
}

// stop halts the loop and moves to the reflection prompt.
func (s *RhythmScreen) stop(success bool) (screen.Screen, tea.Cmd) {
	s.Close()
	s.note = 0
	s.phase = phaseReflect
	s.quit = !success
	return s, nil
}

func (s *RhythmScreen) wrapUp(mood string) tea.Cmd {
	s.phase = phaseSaving
	p, opts := s.player, s.opts
	hits, misses, strays, success := s.hits, s.misses, s.strays, !s.quit
	ctrl, done := s.ctrl, s.done

	return func() tea.Msg {
		<-done
		ctx := context.Background()
		res := results.Result{Hits: hits, Misses: misses, Multiplier: ctrl.State().SpeedMultiplier}

		obs := p.EndSession(ctx, success)

		saved, err := p.SaveTempo(ctx, res.Multiplier)
		if err != nil {
			res.Err = err
		} else {
			res.Multiplier = saved
		}

		perf := assessment.PerformanceData{
			Accuracy: res.Accuracy() * 100,
			Taps:     hits + strays,
			Hits:     hits,
			Misses:   misses,
		}
		var refl assessment.ReflectionData
		if mood != "" {
			refl.Emojis = []string{mood}
		}
		a, err := p.Assess(ctx, opts.LevelID, perf, assessment.ArtworkData{}, refl)
		if err != nil {
			res.Err = err
		} else {
			res.Assessment = &a
			if res.NewBadges, err = p.Badges(ctx); err != nil {
				res.Err = err
			}
		}

		if obs != nil {
			res.Feedback = p.Reflect(ctx, *obs, opts.Language)
		}
		return finishedMsg{Result: res}
	}
}

func (s *RhythmScreen) showResults(res results.Result) tea.Cmd {
	p, opts := s.player, s.opts
	again := func() screen.Screen { return New(p, opts) }
	next := results.New(res, again)
	return func() tea.Msg { return router.ReplaceScreenMsg{Screen: next} }
}
