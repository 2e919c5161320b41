package rhythm

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/learnloop/internal/assessment"
	"github.com/abhisek/learnloop/internal/feedback"
	"github.com/abhisek/learnloop/internal/observer"
	"github.com/abhisek/learnloop/internal/router"
	"github.com/abhisek/learnloop/internal/screens/results"
	"github.com/abhisek/learnloop/internal/tempo"
)

type manualClock struct {
	now   time.Time
	fires chan time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Unix(1_700_000_000, 0), fires: make(chan time.Time)}
}

func (c *manualClock) Now() time.Time                       { return c.now }
func (c *manualClock) After(time.Duration) <-chan time.Time { return c.fires }

type fakePlayer struct {
	started   []string
	actions   []observer.ActionInput
	ended     []bool
	saved     float64
	perf      assessment.PerformanceData
	refl      assessment.ReflectionData
	reflected bool
}

func (p *fakePlayer) StartSession(puzzleType, levelID string, _ observer.World) string {
	p.started = append(p.started, puzzleType+"/"+levelID)
	return "session-1"
}

func (p *fakePlayer) RecordAction(in observer.ActionInput) bool {
	p.actions = append(p.actions, in)
	return true
}

func (p *fakePlayer) EndSession(_ context.Context, success bool) *observer.SessionObservation {
	p.ended = append(p.ended, success)
	now := time.Now()
	return &observer.SessionObservation{PuzzleType: PuzzleType, EndTime: &now, Success: success}
}

func (p *fakePlayer) TempoController(context.Context) *tempo.Controller {
	return tempo.NewController(tempo.DefaultConfig(), 1.0, time.Second, nil)
}

func (p *fakePlayer) SaveTempo(_ context.Context, m float64) (float64, error) {
	p.saved = m
	return m, nil
}

func (p *fakePlayer) Assess(_ context.Context, activityID string, perf assessment.PerformanceData, _ assessment.ArtworkData, refl assessment.ReflectionData) (assessment.ActivityAssessment, error) {
	p.perf, p.refl = perf, refl
	return assessment.ActivityAssessment{ActivityID: activityID, GrowthLevel: assessment.GrowthDeveloping}, nil
}

func (p *fakePlayer) Badges(context.Context) ([]assessment.Badge, error) {
	return nil, nil
}

func (p *fakePlayer) Reflect(_ context.Context, obs observer.SessionObservation, _ string) feedback.Feedback {
	p.reflected = true
	return feedback.Fallback{}.For(feedback.Request{PuzzleType: obs.PuzzleType, Outcome: feedback.OutcomeSuccess})
}

// run executes cmd with a deadline so a stuck loop fails the test.
func run(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	require.NotNil(t, cmd)
	out := make(chan tea.Msg, 1)
	go func() { out <- cmd() }()
	select {
	case msg := <-out:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("command did not return")
		return nil
	}
}

func space() tea.KeyPressMsg { return tea.KeyPressMsg{Code: tea.KeySpace} }

func TestRhythm_HitThenMissThenResults(t *testing.T) {
	p := &fakePlayer{}
	clk := newManualClock()
	s := New(p, Options{Notes: 2, Clock: clk, LevelID: "lvl-1"})
	defer s.Close()

	wait := s.Init()
	assert.Equal(t, []string{"rhythm/lvl-1"}, p.started)

	// First note spawns and is tapped.
	_, wait = s.Update(run(t, wait))
	assert.Contains(t, s.View(80, 24), "●")
	s.Update(space())
	hits, misses := s.Counts()
	assert.Equal(t, 1, hits)
	assert.Equal(t, 0, misses)

	// Tapped note retires quietly and the second one spawns.
	clk.fires <- clk.now
	_, wait = s.Update(run(t, wait))

	// Second note expires.
	clk.fires <- clk.now
	_, cmd := s.Update(run(t, wait))
	assert.Nil(t, cmd)
	hits, misses = s.Counts()
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)
	assert.Contains(t, s.View(80, 24), "How did that feel?")

	_, cmd = s.Update(tea.KeyPressMsg{Code: '2', Text: "2"})
	msg := run(t, cmd)
	require.IsType(t, finishedMsg{}, msg)
	res := msg.(finishedMsg).Result

	assert.Equal(t, []bool{true}, p.ended)
	assert.InDelta(t, 50.0, p.perf.Accuracy, 1e-9)
	assert.Equal(t, 1, p.perf.Hits)
	assert.Equal(t, 1, p.perf.Misses)
	assert.Equal(t, []string{Moods[1]}, p.refl.Emojis)
	assert.Equal(t, 1.0, p.saved)
	assert.True(t, p.reflected)
	require.NotNil(t, res.Assessment)
	assert.Equal(t, "lvl-1", res.Assessment.ActivityID)

	_, cmd = s.Update(msg)
	next := run(t, cmd)
	replace, ok := next.(router.ReplaceScreenMsg)
	require.True(t, ok)
	assert.IsType(t, &results.ResultsScreen{}, replace.Screen)
}

func TestRhythm_StrayTapIsRecorded(t *testing.T) {
	p := &fakePlayer{}
	clk := newManualClock()
	s := New(p, Options{Notes: 4, Clock: clk})
	defer s.Close()

	wait := s.Init()
	s.Update(run(t, wait))
	s.Update(space())
	s.Update(space()) // note already consumed

	require.Len(t, p.actions, 1)
	assert.Equal(t, observer.ActionTap, p.actions[0].Kind)
	assert.Equal(t, "stray", p.actions[0].Target)
	require.NotNil(t, p.actions[0].Correct)
	assert.False(t, *p.actions[0].Correct)
}

func TestRhythm_HintKey(t *testing.T) {
	p := &fakePlayer{}
	s := New(p, Options{Clock: newManualClock()})
	defer s.Close()
	s.Init()

	s.Update(tea.KeyPressMsg{Code: 'h', Text: "h"})
	require.Len(t, p.actions, 1)
	assert.Equal(t, observer.ActionHintRequested, p.actions[0].Kind)
}

func TestRhythm_EscEndsUnsuccessfully(t *testing.T) {
	p := &fakePlayer{}
	s := New(p, Options{Clock: newManualClock()})
	s.Init()

	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEscape})
	assert.Nil(t, cmd)
	assert.Len(t, s.KeyHints(), 2)

	_, cmd = s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	msg := run(t, cmd)
	require.IsType(t, finishedMsg{}, msg)
	assert.Equal(t, []bool{false}, p.ended)
	assert.Empty(t, p.refl.Emojis)
	assert.True(t, strings.Contains(s.View(80, 24), "Saving"))
}

func TestRhythm_Defaults(t *testing.T) {
	s := New(&fakePlayer{}, Options{})
	assert.Equal(t, DefaultNotes, s.opts.Notes)
	assert.Equal(t, "Rhythm", s.Title())
	assert.Len(t, s.KeyHints(), 3)
}
