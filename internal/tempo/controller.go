package tempo

import (
	"math"
	"sync"
	"time"
)

// Default control-loop settings.
const (
	DefaultHitsToSpeedUp    = 4
	DefaultMissesToSlowDown = 3
	DefaultMinMultiplier    = 0.5
	DefaultMaxMultiplier    = 2.0
	DefaultSpeedUpFactor    = 2.0
	DefaultSlowDownFactor   = 2.0
	DefaultMultiplier       = 1.0
)

// Cue tells the activity to announce a tempo change.
type Cue string

const (
	CueNone     Cue = ""
	CueSpeedUp  Cue = "speed_up"
	CueSlowDown Cue = "slow_down"
)

// Outcome is the result of one note, named like the session action taxonomy.
type Outcome string

const (
	OutcomeHit  Outcome = "hit"
	OutcomeMiss Outcome = "miss"
)

// Config holds the streak triggers and multiplier bounds.
type Config struct {
	HitsToSpeedUp    int
	MissesToSlowDown int
	MinMultiplier    float64
	MaxMultiplier    float64
	SpeedUpFactor    float64
	SlowDownFactor   float64
}

// DefaultConfig returns the standard control-loop settings.
func DefaultConfig() Config {
	return Config{
		HitsToSpeedUp:    DefaultHitsToSpeedUp,
		MissesToSlowDown: DefaultMissesToSlowDown,
		MinMultiplier:    DefaultMinMultiplier,
		MaxMultiplier:    DefaultMaxMultiplier,
		SpeedUpFactor:    DefaultSpeedUpFactor,
		SlowDownFactor:   DefaultSlowDownFactor,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.HitsToSpeedUp <= 0 {
		c.HitsToSpeedUp = d.HitsToSpeedUp
	}
	if c.MissesToSlowDown <= 0 {
		c.MissesToSlowDown = d.MissesToSlowDown
	}
	if c.MinMultiplier <= 0 {
		c.MinMultiplier = d.MinMultiplier
	}
	if c.MaxMultiplier < c.MinMultiplier {
		c.MaxMultiplier = math.Max(d.MaxMultiplier, c.MinMultiplier)
	}
	if c.SpeedUpFactor <= 1 {
		c.SpeedUpFactor = d.SpeedUpFactor
	}
	if c.SlowDownFactor <= 1 {
		c.SlowDownFactor = d.SlowDownFactor
	}
	return c
}

// Clamp bounds m to the configured multiplier range. Zero or negative
// values mean "no preference" and map to the default multiplier.
func (c Config) Clamp(m float64) float64 {
	if m <= 0 || math.IsNaN(m) {
		m = DefaultMultiplier
	}
	return math.Min(c.MaxMultiplier, math.Max(c.MinMultiplier, m))
}

// State is the controller's counters and multiplier.
type State struct {
	SpeedMultiplier   float64 `json:"speedMultiplier"`
	ConsecutiveHits   int     `json:"consecutiveHits"`
	ConsecutiveMisses int     `json:"consecutiveMisses"`
}

// ActionSink receives every hit and miss so tempo changes can be lined up
// with session behavior.
type ActionSink interface {
	LogTempoAction(outcome Outcome, state State)
}

// Controller adjusts the speed multiplier from streaks of hits and misses.
// It is safe for concurrent use.
type Controller struct {
	cfg  Config
	base time.Duration
	sink ActionSink

	mu    sync.Mutex
	state State
}

// NewController creates a controller starting at seed (clamped; 0 means 1.0)
// whose unscaled spawn interval is base.
func NewController(cfg Config, seed float64, base time.Duration, sink ActionSink) *Controller {
	cfg = cfg.withDefaults()
	return &Controller{
		cfg:   cfg,
		base:  base,
		sink:  sink,
		state: State{SpeedMultiplier: cfg.Clamp(seed)},
	}
}

// Hit records a note tapped within its lifetime.
func (c *Controller) Hit() Cue {
	c.mu.Lock()
	c.state.ConsecutiveHits++
	c.state.ConsecutiveMisses = 0
	cue := CueNone
	if c.state.ConsecutiveHits >= c.cfg.HitsToSpeedUp {
		c.state.SpeedMultiplier = math.Min(c.cfg.MaxMultiplier, c.state.SpeedMultiplier*c.cfg.SpeedUpFactor)
		c.state.ConsecutiveHits = 0
		cue = CueSpeedUp
	}
	st := c.state
	c.mu.Unlock()

	c.logAction(OutcomeHit, st)
	return cue
}

// Miss records a note that expired without being tapped.
func (c *Controller) Miss() Cue {
	c.mu.Lock()
	c.state.ConsecutiveMisses++
	c.state.ConsecutiveHits = 0
	cue := CueNone
	if c.state.ConsecutiveMisses >= c.cfg.MissesToSlowDown {
		c.state.SpeedMultiplier = math.Max(c.cfg.MinMultiplier, c.state.SpeedMultiplier/c.cfg.SlowDownFactor)
		c.state.ConsecutiveMisses = 0
		cue = CueSlowDown
	}
	st := c.state
	c.mu.Unlock()

	c.logAction(OutcomeMiss, st)
	return cue
}

func (c *Controller) logAction(o Outcome, st State) {
	if c.sink != nil {
		c.sink.LogTempoAction(o, st)
	}
}

// Interval returns the current spawn interval: base divided by the multiplier.
func (c *Controller) Interval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Duration(float64(c.base) / c.state.SpeedMultiplier)
}

// State returns a snapshot of the counters and multiplier.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Reset restarts the controller from seed, clearing both streaks.
func (c *Controller) Reset(seed float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = State{SpeedMultiplier: c.cfg.Clamp(seed)}
}

// BaseInterval converts a fixed tempo into milliseconds per measure.
func BaseInterval(bpm float64, beatsPerMeasure int) time.Duration {
	if bpm <= 0 || beatsPerMeasure <= 0 {
		return 0
	}
	return time.Duration(float64(beatsPerMeasure) * float64(time.Minute) / bpm)
}
