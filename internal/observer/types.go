package observer

import (
	"context"
	"time"
)

// World is the game world a puzzle belongs to.
type World string

const (
	WorldMath    World = "math"
	WorldHistory World = "history"
)

// EmotionalIndicators are behavioral flags derived while a session runs.
type EmotionalIndicators struct {
	RapidTapping   bool `json:"rapidTapping"`
	LongPauses     bool `json:"longPauses"`
	ManyRetries    bool `json:"manyRetries"`
	SmoothProgress bool `json:"smoothProgress"`
}

// SessionObservation is the record of one puzzle attempt. It is mutated only
// through the Observer while active and never changes after it is sealed.
type SessionObservation struct {
	SessionID           string              `json:"sessionId"`
	StartTime           time.Time           `json:"startTime"`
	EndTime             *time.Time          `json:"endTime"`
	PuzzleType          string              `json:"puzzleType"`
	LevelID             string              `json:"levelId"`
	World               World               `json:"world"`
	Actions             []Action            `json:"actions"`
	HintsUsed           int                 `json:"hintsUsed"`
	Attempts            int                 `json:"attempts"`
	PauseDuration       int64               `json:"pauseDuration"` // ms
	CorrectFirstTry     bool                `json:"correctFirstTry"`
	Success             bool                `json:"success"`
	EmotionalIndicators EmotionalIndicators `json:"emotionalIndicators"`
}

// Duration returns the sealed session length, or zero while active.
func (s SessionObservation) Duration() time.Duration {
	if s.EndTime == nil {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

// Sealed reports whether the session has been closed.
func (s SessionObservation) Sealed() bool {
	return s.EndTime != nil
}

// Retries returns the number of retries beyond the first attempt.
func (s SessionObservation) Retries() int {
	if s.Attempts < 1 {
		return 0
	}
	return s.Attempts - 1
}

func (s SessionObservation) clone() SessionObservation {
	out := s
	out.Actions = make([]Action, len(s.Actions))
	copy(out.Actions, s.Actions)
	if s.EndTime != nil {
		end := *s.EndTime
		out.EndTime = &end
	}
	return out
}

// Recorder persists sealed observations. The profile journal implements it.
type Recorder interface {
	Record(ctx context.Context, obs SessionObservation) error
}

// Notifier receives sealed observations for best-effort delivery elsewhere.
// Notify must not block.
type Notifier interface {
	Notify(obs SessionObservation)
}
