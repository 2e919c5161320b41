// Package feedback produces the reflective card shown to a learner after a
// puzzle. Remote and model generators are tried first; a static template
// always answers when they fail.
package feedback

import (
	"context"
	"fmt"
	"strings"

	"github.com/abhisek/learnloop/internal/observer"
)

// Outcome summarizes how a session went.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomePartial  Outcome = "partial"
	OutcomeStruggle Outcome = "struggle"
)

// Valid reports whether o is a known outcome.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeSuccess, OutcomePartial, OutcomeStruggle:
		return true
	}
	return false
}

// Request is the reflective-feedback request body.
type Request struct {
	PuzzleType    string   `json:"puzzleType"`
	StepsRecorded []string `json:"stepsRecorded"`
	TimeSpent     int      `json:"timeSpent"` // seconds
	HintsUsed     int      `json:"hintsUsed"`
	Outcome       Outcome  `json:"outcome"`
	Language      string   `json:"language"`
}

// Feedback is the reflective card.
type Feedback struct {
	StrategyUsed        string `json:"strategyUsed"`
	WhatWorkedWell      string `json:"whatWorkedWell"`
	AlternativeApproach string `json:"alternativeApproach"`
	EncouragingNote     string `json:"encouragingNote"`
	Source              string `json:"source,omitempty"`
}

func (f Feedback) complete() bool {
	return f.StrategyUsed != "" && f.WhatWorkedWell != "" && f.AlternativeApproach != "" && f.EncouragingNote != ""
}

// Generator produces feedback for one request.
type Generator interface {
	Name() string
	Generate(ctx context.Context, req Request) (Feedback, error)
}

// maxSteps bounds StepsRecorded so long sessions keep requests small.
const maxSteps = 50

// RequestFromObservation derives a feedback request from a sealed session.
func RequestFromObservation(obs observer.SessionObservation, language string) (Request, error) {
	if !obs.Sealed() {
		return Request{}, fmt.Errorf("session %s is not sealed", obs.SessionID)
	}
	steps := make([]string, 0, min(len(obs.Actions), maxSteps))
	for _, a := range obs.Actions {
		if len(steps) == maxSteps {
			break
		}
		steps = append(steps, describeAction(a))
	}
	return Request{
		PuzzleType:    obs.PuzzleType,
		StepsRecorded: steps,
		TimeSpent:     int(obs.Duration().Seconds()),
		HintsUsed:     obs.HintsUsed,
		Outcome:       OutcomeFor(obs),
		Language:      normalizeLanguage(language),
	}, nil
}

// OutcomeFor classifies a sealed session. A success that needed many
// retries counts as partial.
func OutcomeFor(obs observer.SessionObservation) Outcome {
	switch {
	case !obs.Success:
		return OutcomeStruggle
	case obs.EmotionalIndicators.ManyRetries:
		return OutcomePartial
	default:
		return OutcomeSuccess
	}
}

func describeAction(a observer.Action) string {
	var b strings.Builder
	b.WriteString(string(a.Kind))
	if a.Target != "" {
		b.WriteString(" ")
		b.WriteString(a.Target)
	}
	if a.Correct != nil {
		if *a.Correct {
			b.WriteString(" (correct)")
		} else {
			b.WriteString(" (incorrect)")
		}
	}
	return b.String()
}

func normalizeLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	if lang == "" {
		return DefaultLanguage
	}
	return lang
}
