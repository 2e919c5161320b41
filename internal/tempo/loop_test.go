package tempo

import (
	"context"
	"sync"
	"testing"
	"time"
)

// manualClock hands each After channel to the test, which fires it explicitly.
type manualClock struct {
	mu    sync.Mutex
	now   time.Time
	waits chan chan time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Unix(0, 0), waits: make(chan chan time.Time, 16)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) After(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	c.waits <- ch
	return ch
}

func (c *manualClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fire advances past the current note's lifetime and releases the loop.
func (c *manualClock) fire(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case ch := <-c.waits:
		c.advance(d)
		ch <- c.Now()
	case <-time.After(time.Second):
		t.Fatal("loop never waited")
	}
}

func nextEvent(t *testing.T, l *Loop) Event {
	t.Helper()
	select {
	case ev, ok := <-l.Events():
		if !ok {
			t.Fatal("events closed")
		}
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event")
	}
	return Event{}
}

func TestLoopHitsAndMisses(t *testing.T) {
	clock := newManualClock()
	ctrl := NewController(DefaultConfig(), 1, time.Second, nil)
	l := NewLoop(ctrl, WithLoopClock(clock))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	ev := nextEvent(t, l)
	if ev.Kind != EventSpawn || ev.Note != 1 || ev.Lifetime != time.Second {
		t.Fatalf("first event = %+v, want spawn of note 1 with 1s lifetime", ev)
	}

	hit, ok := l.Tap()
	if !ok || hit.Kind != EventHit || hit.Note != 1 {
		t.Fatalf("Tap() = %+v, %v; want hit on note 1", hit, ok)
	}
	if _, ok := l.Tap(); ok {
		t.Error("second tap on a consumed note should be stray")
	}

	clock.fire(t, time.Second)
	if ev := nextEvent(t, l); ev.Kind != EventSpawn || ev.Note != 2 {
		t.Fatalf("after a hit the loop should spawn note 2, got %+v", ev)
	}

	// Three untapped notes slow the tempo down.
	var last Event
	for i := 0; i < 3; i++ {
		clock.fire(t, 2*time.Second)
		last = nextEvent(t, l)
		if last.Kind != EventMiss {
			t.Fatalf("expected miss, got %+v", last)
		}
		nextEvent(t, l) // spawn
	}
	if last.Cue != CueSlowDown {
		t.Errorf("third miss cue = %q, want slow_down", last.Cue)
	}
	if got := ctrl.State().SpeedMultiplier; got != 0.5 {
		t.Errorf("SpeedMultiplier = %v, want 0.5", got)
	}

	cancel()
	if err := <-done; err != context.Canceled {
		t.Errorf("Run() = %v, want context.Canceled", err)
	}
	if _, ok := <-l.Events(); ok {
		t.Error("events channel should be closed after Run returns")
	}
}

func TestLoopLateTapIsStray(t *testing.T) {
	clock := newManualClock()
	ctrl := NewController(DefaultConfig(), 1, time.Second, nil)
	l := NewLoop(ctrl, WithLoopClock(clock))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	nextEvent(t, l)
	clock.advance(1500 * time.Millisecond)
	if _, ok := l.Tap(); ok {
		t.Error("tap after the note's lifetime should not count as a hit")
	}
	if st := ctrl.State(); st.ConsecutiveHits != 0 {
		t.Errorf("ConsecutiveHits = %d, want 0", st.ConsecutiveHits)
	}
}

func TestTapWithoutNote(t *testing.T) {
	l := NewLoop(NewController(DefaultConfig(), 1, time.Second, nil))
	if _, ok := l.Tap(); ok {
		t.Error("tap before any spawn should be stray")
	}
}
