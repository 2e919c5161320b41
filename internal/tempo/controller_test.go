package tempo

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/abhisek/learnloop/internal/store"
)

type sinkRecorder struct {
	outcomes []Outcome
}

func (s *sinkRecorder) LogTempoAction(o Outcome, _ State) {
	s.outcomes = append(s.outcomes, o)
}

func newTestController(seed float64) *Controller {
	return NewController(DefaultConfig(), seed, 2*time.Second, nil)
}

func TestSeedClamped(t *testing.T) {
	tests := []struct {
		seed float64
		want float64
	}{
		{0, 1.0},
		{-3, 1.0},
		{0.1, 0.5},
		{1.5, 1.5},
		{9, 2.0},
	}
	for _, tt := range tests {
		if got := newTestController(tt.seed).State().SpeedMultiplier; got != tt.want {
			t.Errorf("seed %v: SpeedMultiplier = %v, want %v", tt.seed, got, tt.want)
		}
	}
}

func TestFourHitsDouble(t *testing.T) {
	c := newTestController(0.5)
	for i := 0; i < 3; i++ {
		if cue := c.Hit(); cue != CueNone {
			t.Fatalf("hit %d: cue = %q, want none", i+1, cue)
		}
	}
	if cue := c.Hit(); cue != CueSpeedUp {
		t.Fatalf("fourth hit: cue = %q, want speed_up", cue)
	}
	st := c.State()
	if st.SpeedMultiplier != 1.0 || st.ConsecutiveHits != 0 {
		t.Errorf("state = %+v, want multiplier 1.0 and hits reset", st)
	}

	for i := 0; i < 8; i++ {
		c.Hit()
	}
	if got := c.State().SpeedMultiplier; got != 2.0 {
		t.Errorf("SpeedMultiplier = %v, want clamp at 2.0", got)
	}
}

func TestThreeMissesHalve(t *testing.T) {
	c := newTestController(2.0)
	c.Miss()
	c.Miss()
	if cue := c.Miss(); cue != CueSlowDown {
		t.Fatalf("third miss: cue = %q, want slow_down", cue)
	}
	if got := c.State().SpeedMultiplier; got != 1.0 {
		t.Errorf("SpeedMultiplier = %v, want 1.0", got)
	}
	for i := 0; i < 9; i++ {
		c.Miss()
	}
	if got := c.State().SpeedMultiplier; got != 0.5 {
		t.Errorf("SpeedMultiplier = %v, want clamp at 0.5", got)
	}
}

func TestStreaksInterrupted(t *testing.T) {
	c := newTestController(1.0)
	c.Hit()
	c.Hit()
	c.Hit()
	c.Miss()
	if cue := c.Hit(); cue != CueNone {
		t.Errorf("hit after a miss should not complete the old streak, got %q", cue)
	}
	c.Miss()
	c.Miss()
	c.Hit()
	if cue := c.Miss(); cue != CueNone {
		t.Errorf("miss after a hit should not complete the old streak, got %q", cue)
	}
	if got := c.State().SpeedMultiplier; got != 1.0 {
		t.Errorf("SpeedMultiplier = %v, want unchanged 1.0", got)
	}
}

func TestMultiplierStaysInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	c := newTestController(1.0)
	for i := 0; i < 5000; i++ {
		if rng.Intn(2) == 0 {
			c.Hit()
		} else {
			c.Miss()
		}
		m := c.State().SpeedMultiplier
		if m < DefaultMinMultiplier || m > DefaultMaxMultiplier {
			t.Fatalf("step %d: multiplier %v out of range", i, m)
		}
	}
}

func TestInterval(t *testing.T) {
	c := newTestController(1.0)
	if got := c.Interval(); got != 2*time.Second {
		t.Errorf("Interval() = %v, want 2s", got)
	}
	for i := 0; i < 4; i++ {
		c.Hit()
	}
	if got := c.Interval(); got != time.Second {
		t.Errorf("Interval() after speed up = %v, want 1s", got)
	}
	c.Reset(0.5)
	if got := c.Interval(); got != 4*time.Second {
		t.Errorf("Interval() after reset = %v, want 4s", got)
	}
}

func TestBaseInterval(t *testing.T) {
	tests := []struct {
		bpm   float64
		beats int
		want  time.Duration
	}{
		{120, 4, 2 * time.Second},
		{60, 3, 3 * time.Second},
		{90, 4, 2666666666 * time.Nanosecond},
		{0, 4, 0},
	}
	for _, tt := range tests {
		if got := BaseInterval(tt.bpm, tt.beats); got != tt.want {
			t.Errorf("BaseInterval(%v, %d) = %v, want %v", tt.bpm, tt.beats, got, tt.want)
		}
	}
}

func TestSinkReceivesOutcomes(t *testing.T) {
	sink := &sinkRecorder{}
	c := NewController(DefaultConfig(), 1, time.Second, sink)
	c.Hit()
	c.Miss()
	c.Hit()
	want := []Outcome{OutcomeHit, OutcomeMiss, OutcomeHit}
	if len(sink.outcomes) != len(want) {
		t.Fatalf("sink got %v, want %v", sink.outcomes, want)
	}
	for i := range want {
		if sink.outcomes[i] != want[i] {
			t.Errorf("outcome[%d] = %q, want %q", i, sink.outcomes[i], want[i])
		}
	}
}

func TestPreferences(t *testing.T) {
	kv := store.NewMemoryKV()
	prefs := NewPreferences(kv, store.Keys{Learner: "kid"}, DefaultConfig())
	ctx := context.Background()

	m, err := prefs.Load(ctx)
	if err != nil || m != 1.0 {
		t.Fatalf("Load() on empty store = %v, %v; want 1.0", m, err)
	}

	saved, err := prefs.Save(ctx, 3.0)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if saved != 2.0 {
		t.Errorf("Save(3.0) stored %v, want 2.0", saved)
	}
	if m, _ := prefs.Load(ctx); m != 2.0 {
		t.Errorf("Load() = %v, want 2.0", m)
	}

	kv.Set(ctx, store.Keys{Learner: "kid"}.Tempo(), []byte("not json"))
	if m, err := prefs.Load(ctx); err != nil || m != 1.0 {
		t.Errorf("Load() on corrupt doc = %v, %v; want 1.0", m, err)
	}
}
