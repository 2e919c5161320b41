package observer

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/learnloop/internal/logger"
)

// Default thresholds for indicator detection.
const (
	DefaultPauseThreshold      = 10 * time.Second
	DefaultRapidTapWindow      = 5
	DefaultRapidTapMinActions  = 3
	DefaultRapidTapMaxAverage  = 500 * time.Millisecond
	DefaultManyRetriesAttempts = 3
)

// Config holds the tunable thresholds used to derive emotional indicators.
type Config struct {
	// PauseThreshold is the gap between actions that counts as a long pause.
	PauseThreshold time.Duration

	// RapidTapWindow is how many of the most recent actions are averaged.
	RapidTapWindow int

	// RapidTapMinActions is the fewest actions the rapid-tap check looks at.
	RapidTapMinActions int

	// RapidTapMaxAverage is the mean inter-arrival time below which tapping is rapid.
	RapidTapMaxAverage time.Duration

	// ManyRetriesAttempts flags manyRetries once attempts exceed it.
	// Attempts start at 1, so the default fires on the fourth try.
	ManyRetriesAttempts int
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		PauseThreshold:      DefaultPauseThreshold,
		RapidTapWindow:      DefaultRapidTapWindow,
		RapidTapMinActions:  DefaultRapidTapMinActions,
		RapidTapMaxAverage:  DefaultRapidTapMaxAverage,
		ManyRetriesAttempts: DefaultManyRetriesAttempts,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.PauseThreshold <= 0 {
		c.PauseThreshold = d.PauseThreshold
	}
	if c.RapidTapWindow < 2 {
		c.RapidTapWindow = d.RapidTapWindow
	}
	if c.RapidTapMinActions < 2 {
		c.RapidTapMinActions = d.RapidTapMinActions
	}
	if c.RapidTapMinActions > c.RapidTapWindow {
		c.RapidTapMinActions = c.RapidTapWindow
	}
	if c.RapidTapMaxAverage <= 0 {
		c.RapidTapMaxAverage = d.RapidTapMaxAverage
	}
	if c.ManyRetriesAttempts <= 0 {
		c.ManyRetriesAttempts = d.ManyRetriesAttempts
	}
	return c
}

// Option configures an Observer.
type Option func(*Observer)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(o *Observer) { o.clock = c }
}

// WithRecorder sets where sealed sessions are persisted.
func WithRecorder(r Recorder) Option {
	return func(o *Observer) { o.recorder = r }
}

// WithNotifier sets who is told about sealed sessions.
func WithNotifier(n Notifier) Option {
	return func(o *Observer) { o.notifier = n }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *Observer) { o.log = l }
}

// Observer owns the lifecycle of one active session at a time.
type Observer struct {
	cfg      Config
	clock    Clock
	recorder Recorder
	notifier Notifier
	log      *logger.Logger

	mu       sync.Mutex
	active   *SessionObservation
	actions  ActionLog
	lastAt   time.Time
	watchdog Timer
	armed    uint64
}

// New creates an Observer. Zero config fields fall back to the defaults.
func New(cfg Config, opts ...Option) *Observer {
	o := &Observer{
		cfg:   cfg.withDefaults(),
		clock: SystemClock(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.log = logger.OrNop(o.log).With("component", "observer")
	return o
}

// Config returns the effective thresholds.
func (o *Observer) Config() Config {
	return o.cfg
}

// StartSession opens a new session and returns its id. A session that is
// still open is discarded without being persisted.
func (o *Observer) StartSession(puzzleType, levelID string, world World) string {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.active != nil {
		o.log.Debug("discarding unsealed session", "session_id", o.active.SessionID)
	}
	o.stopWatchdog()

	now := o.clock.Now()
	o.active = &SessionObservation{
		SessionID:       uuid.NewString(),
		StartTime:       now,
		PuzzleType:      puzzleType,
		LevelID:         levelID,
		World:           world,
		Attempts:        1,
		CorrectFirstTry: true,
	}
	o.actions = ActionLog{}
	o.lastAt = now
	o.armWatchdog()
	return o.active.SessionID
}

// RecordAction timestamps in and appends it to the active session, updating
// the indicators. It reports whether the action was recorded; with no active
// session or an unknown kind it does nothing.
func (o *Observer) RecordAction(in ActionInput) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := o.active
	if s == nil {
		return false
	}
	if !in.Kind.Valid() {
		o.log.Warn("ignoring unknown action kind", "kind", in.Kind)
		return false
	}

	now := o.clock.Now()
	first := o.actions.Len() == 0
	o.actions.Append(Action{
		Kind:      in.Kind,
		Timestamp: now,
		Target:    in.Target,
		Position:  in.Position,
		Correct:   in.Correct,
	})

	o.notePause(now.Sub(o.lastAt))
	o.lastAt = now

	if o.rapidTapping() {
		s.EmotionalIndicators.RapidTapping = true
	}

	switch in.Kind {
	case ActionHintRequested:
		s.HintsUsed++
	case ActionRetry:
		s.Attempts++
		s.CorrectFirstTry = false
		if s.Attempts > o.cfg.ManyRetriesAttempts {
			s.EmotionalIndicators.ManyRetries = true
			s.EmotionalIndicators.SmoothProgress = false
		}
	}

	if first && in.Correct != nil && !*in.Correct {
		s.CorrectFirstTry = false
	}

	o.armWatchdog()
	return true
}

// EndSession seals the active session, persists it and returns a copy.
// It returns nil when no session is active.
func (o *Observer) EndSession(ctx context.Context, success bool) *SessionObservation {
	o.mu.Lock()
	s := o.active
	if s == nil {
		o.mu.Unlock()
		return nil
	}
	o.stopWatchdog()

	now := o.clock.Now()
	o.notePause(now.Sub(o.lastAt))

	s.Actions = o.actions.Actions()
	s.Success = success
	s.EndTime = &now
	ind := &s.EmotionalIndicators
	if !ind.RapidTapping && !ind.LongPauses && !ind.ManyRetries {
		ind.SmoothProgress = true
	}

	sealed := s.clone()
	o.active = nil
	o.actions = ActionLog{}
	o.mu.Unlock()

	if o.recorder != nil {
		if err := o.recorder.Record(context.WithoutCancel(ctx), sealed); err != nil {
			o.log.Warn("persist session failed", "session_id", sealed.SessionID, "error", err)
		}
	}
	if o.notifier != nil {
		o.notifier.Notify(sealed.clone())
	}

	o.log.Debug("session sealed",
		"session_id", sealed.SessionID,
		"actions", len(sealed.Actions),
		"success", success,
	)
	return &sealed
}

// Active returns a copy of the open session.
func (o *Observer) Active() (SessionObservation, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active == nil {
		return SessionObservation{}, false
	}
	snap := o.active.clone()
	snap.Actions = o.actions.Actions()
	return snap, true
}

// Close cancels pending timers and drops any open session.
func (o *Observer) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stopWatchdog()
	o.active = nil
	o.actions = ActionLog{}
}

// notePause records gap when it exceeds the pause threshold. Caller holds mu.
func (o *Observer) notePause(gap time.Duration) {
	if gap > o.cfg.PauseThreshold {
		o.active.EmotionalIndicators.LongPauses = true
		o.active.PauseDuration += gap.Milliseconds()
	}
}

// rapidTapping checks the mean inter-arrival time of the recent window. Caller holds mu.
func (o *Observer) rapidTapping() bool {
	recent := o.actions.Last(o.cfg.RapidTapWindow)
	if len(recent) < o.cfg.RapidTapMinActions {
		return false
	}
	span := recent[len(recent)-1].Timestamp.Sub(recent[0].Timestamp)
	avg := span / time.Duration(len(recent)-1)
	return avg < o.cfg.RapidTapMaxAverage
}

// armWatchdog flags a long pause as soon as the learner has been idle
// strictly longer than the threshold, without waiting for the next action.
// Caller holds mu.
func (o *Observer) armWatchdog() {
	o.stopWatchdog()
	o.armed++
	token := o.armed
	o.watchdog = o.clock.AfterFunc(o.cfg.PauseThreshold+time.Millisecond, func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		if o.active == nil || o.armed != token {
			return
		}
		if o.clock.Now().Sub(o.lastAt) <= o.cfg.PauseThreshold {
			return
		}
		o.active.EmotionalIndicators.LongPauses = true
	})
}

// stopWatchdog cancels any pending idle timer. Caller holds mu.
func (o *Observer) stopWatchdog() {
	if o.watchdog != nil {
		o.watchdog.Stop()
		o.watchdog = nil
	}
	o.armed++
}
