package tempo

import (
	"context"
	"sync"
	"time"
)

// Clock is the time source for the spawn loop.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// EventKind labels loop events.
type EventKind string

const (
	EventSpawn EventKind = "spawn"
	EventHit   EventKind = "hit"
	EventMiss  EventKind = "miss"
)

// Event is one thing that happened in the spawn loop.
type Event struct {
	Kind     EventKind
	Note     int
	Cue      Cue
	State    State
	Lifetime time.Duration // for spawns, how long the note stays tappable
}

type note struct {
	id       int
	spawned  time.Time
	life     time.Duration
	consumed bool
}

// Loop spawns notes at the controller's interval and turns taps and
// expirations into hits and misses.
type Loop struct {
	ctrl   *Controller
	clock  Clock
	events chan Event

	mu     sync.Mutex
	active *note
	nextID int
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithLoopClock replaces the wall clock.
func WithLoopClock(c Clock) LoopOption {
	return func(l *Loop) { l.clock = c }
}

// NewLoop creates a spawn loop driving ctrl.
func NewLoop(ctrl *Controller, opts ...LoopOption) *Loop {
	l := &Loop{
		ctrl:   ctrl,
		clock:  systemClock{},
		events: make(chan Event, 8),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Events delivers spawn and miss events. It is closed when Run returns.
func (l *Loop) Events() <-chan Event {
	return l.events
}

// Run spawns notes until ctx is cancelled. Cancellation stops the pending
// timer, so nothing mutates the controller after Run returns.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.events)
	for {
		spawn := l.spawn()
		if !l.emit(ctx, spawn) {
			return ctx.Err()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.clock.After(spawn.Lifetime):
		}

		if miss, ok := l.expire(); ok {
			if !l.emit(ctx, miss) {
				return ctx.Err()
			}
		}
	}
}

// Tap consumes the active note if it is still within its lifetime.
// It returns the hit event and true, or false for a stray tap.
func (l *Loop) Tap() (Event, bool) {
	l.mu.Lock()
	n := l.active
	if n == nil || n.consumed || l.clock.Now().Sub(n.spawned) > n.life {
		l.mu.Unlock()
		return Event{}, false
	}
	n.consumed = true
	l.mu.Unlock()

	cue := l.ctrl.Hit()
	return Event{Kind: EventHit, Note: n.id, Cue: cue, State: l.ctrl.State()}, true
}

func (l *Loop) spawn() Event {
	life := l.ctrl.Interval()
	l.mu.Lock()
	l.nextID++
	l.active = &note{id: l.nextID, spawned: l.clock.Now(), life: life}
	id := l.nextID
	l.mu.Unlock()
	return Event{Kind: EventSpawn, Note: id, State: l.ctrl.State(), Lifetime: life}
}

// expire retires the active note, counting a miss if it was never tapped.
func (l *Loop) expire() (Event, bool) {
	l.mu.Lock()
	n := l.active
	l.active = nil
	l.mu.Unlock()
	if n == nil || n.consumed {
		return Event{}, false
	}
	cue := l.ctrl.Miss()
	return Event{Kind: EventMiss, Note: n.id, Cue: cue, State: l.ctrl.State()}, true
}

func (l *Loop) emit(ctx context.Context, ev Event) bool {
	select {
	case l.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
