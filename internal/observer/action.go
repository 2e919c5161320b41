package observer

import "time"

// ActionKind identifies one kind of learner interaction.
type ActionKind string

const (
	ActionTap           ActionKind = "tap"
	ActionDrag          ActionKind = "drag"
	ActionHintRequested ActionKind = "hint_requested"
	ActionPause         ActionKind = "pause"
	ActionRetry         ActionKind = "retry"
	ActionUndo          ActionKind = "undo"
)

// AllActionKinds lists every recognized action kind.
var AllActionKinds = []ActionKind{
	ActionTap, ActionDrag, ActionHintRequested, ActionPause, ActionRetry, ActionUndo,
}

// Valid reports whether k is a recognized action kind.
func (k ActionKind) Valid() bool {
	for _, known := range AllActionKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Point is a 2D position on the activity canvas.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ActionInput is an action as reported by the UI, before it is timestamped.
type ActionInput struct {
	Kind     ActionKind `json:"kind"`
	Target   string     `json:"target,omitempty"`
	Position *Point     `json:"position,omitempty"`
	Correct  *bool      `json:"correct,omitempty"` // nil means unknown
}

// Action is one recorded learner interaction. Immutable once recorded.
type Action struct {
	Kind      ActionKind `json:"kind"`
	Timestamp time.Time  `json:"timestamp"`
	Target    string     `json:"target,omitempty"`
	Position  *Point     `json:"position,omitempty"`
	Correct   *bool      `json:"correct,omitempty"`
}

// ActionLog is the append-only, arrival-ordered action sequence of one session.
type ActionLog struct {
	actions []Action
}

// Append adds a to the end of the log.
func (l *ActionLog) Append(a Action) {
	l.actions = append(l.actions, a)
}

// Len returns the number of recorded actions.
func (l *ActionLog) Len() int {
	return len(l.actions)
}

// Last returns up to n of the most recent actions, oldest first.
func (l *ActionLog) Last(n int) []Action {
	if n > len(l.actions) {
		n = len(l.actions)
	}
	return l.actions[len(l.actions)-n:]
}

// Actions returns a copy of the log.
func (l *ActionLog) Actions() []Action {
	out := make([]Action, len(l.actions))
	copy(out, l.actions)
	return out
}

// Bool returns a pointer to v, for filling the tri-state Correct field.
func Bool(v bool) *bool {
	return &v
}
