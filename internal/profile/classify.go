package profile

import "github.com/abhisek/learnloop/internal/observer"

// Approach is the problem-solving style a session is bucketed into.
type Approach string

const (
	ApproachPatternRecognition Approach = "pattern-recognition"
	ApproachTrialError         Approach = "trial-error"
	ApproachSequential         Approach = "sequential"
	ApproachVisual             Approach = "visual"
	ApproachMixed              Approach = "mixed"
)

// SequentialMinActions is the action count a session must exceed to read as sequential.
const SequentialMinActions = 10

// Classifier is a rule that buckets a session into an approach.
// It returns "" when the rule doesn't apply.
type Classifier interface {
	Name() string
	Classify(s *observer.SessionObservation) Approach
}

// DefaultClassifiers returns classifiers in priority order. The same order
// breaks ties when picking the preferred approach.
func DefaultClassifiers() []Classifier {
	return []Classifier{
		patternClassifier{},
		trialErrorClassifier{},
		sequentialClassifier{minActions: SequentialMinActions},
		visualClassifier{},
	}
}

// approachPriority lists approaches in tie-break order.
var approachPriority = []Approach{
	ApproachPatternRecognition,
	ApproachTrialError,
	ApproachSequential,
	ApproachVisual,
}

// ClassifySession returns the first matching approach, or visual when no rule matches.
func ClassifySession(classifiers []Classifier, s *observer.SessionObservation) Approach {
	for _, c := range classifiers {
		if a := c.Classify(s); a != "" {
			return a
		}
	}
	return ApproachVisual
}

type patternClassifier struct{}

func (patternClassifier) Name() string { return "pattern-recognition" }

func (patternClassifier) Classify(s *observer.SessionObservation) Approach {
	if s.EmotionalIndicators.SmoothProgress && s.HintsUsed == 0 {
		return ApproachPatternRecognition
	}
	return ""
}

type trialErrorClassifier struct{}

func (trialErrorClassifier) Name() string { return "trial-error" }

func (trialErrorClassifier) Classify(s *observer.SessionObservation) Approach {
	if s.EmotionalIndicators.ManyRetries {
		return ApproachTrialError
	}
	return ""
}

type sequentialClassifier struct {
	minActions int
}

func (sequentialClassifier) Name() string { return "sequential" }

func (c sequentialClassifier) Classify(s *observer.SessionObservation) Approach {
	if len(s.Actions) > c.minActions && !s.EmotionalIndicators.RapidTapping {
		return ApproachSequential
	}
	return ""
}

type visualClassifier struct{}

func (visualClassifier) Name() string { return "visual" }

func (visualClassifier) Classify(*observer.SessionObservation) Approach {
	return ApproachVisual
}
