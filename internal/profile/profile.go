package profile

import (
	"time"

	"github.com/abhisek/learnloop/internal/observer"
)

// Strength and growth tags.
const (
	TagProblemSolving = "problem-solving"
	TagIndependence   = "independence"
	TagAccuracy       = "accuracy"
	TagQuickThinking  = "quick-thinking"
	TagTryBeforeHints = "try-before-hints"
	TagCarefulReading = "careful-reading"
)

// Thresholds tune strength and growth tagging.
type Thresholds struct {
	ProblemSolvingSuccessRate float64       // successRate above this adds problem-solving
	IndependenceHintRate      float64       // hintUsageRate below this adds independence
	AccuracyRetryTendency     float64       // retryTendency below this adds accuracy
	QuickThinkingAverage      time.Duration // averageTimePerPuzzle below this adds quick-thinking
	TryBeforeHintsRate        float64       // hintUsageRate above this adds try-before-hints
	CarefulReadingRetries     float64       // retryTendency above this adds careful-reading
	PuzzleStrengthFirstTries  int           // first-try-correct sessions that make a puzzle type a strength
}

// DefaultThresholds returns the standard tagging thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ProblemSolvingSuccessRate: 0.7,
		IndependenceHintRate:      1,
		AccuracyRetryTendency:     1,
		QuickThinkingAverage:      30 * time.Second,
		TryBeforeHintsRate:        2,
		CarefulReadingRetries:     3,
		PuzzleStrengthFirstTries:  3,
	}
}

// LearnerProfile summarizes a learner's whole session history. It is always
// recomputed from the sessions and never edited directly.
type LearnerProfile struct {
	PreferredApproach    Approach         `json:"preferredApproach"`
	AverageTimePerPuzzle int64            `json:"averageTimePerPuzzle"` // ms
	HintUsageRate        float64          `json:"hintUsageRate"`
	RetryTendency        float64          `json:"retryTendency"`
	SuccessRate          float64          `json:"successRate"`
	ApproachCounts       map[Approach]int `json:"approachCounts,omitempty"`
	StrengthAreas        []string         `json:"strengthAreas"`
	GrowthAreas          []string         `json:"growthAreas"`
	SessionCount         int              `json:"sessionCount"`
	LastUpdated          time.Time        `json:"lastUpdated"`
}

// HasStrength reports whether tag is among the strength areas.
func (p *LearnerProfile) HasStrength(tag string) bool {
	return contains(p.StrengthAreas, tag)
}

// HasGrowthArea reports whether tag is among the growth areas.
func (p *LearnerProfile) HasGrowthArea(tag string) bool {
	return contains(p.GrowthAreas, tag)
}

// Aggregator folds session histories into profiles.
type Aggregator struct {
	classifiers []Classifier
	thresholds  Thresholds
}

// NewAggregator creates an Aggregator with the default classifiers.
func NewAggregator(t Thresholds) *Aggregator {
	return &Aggregator{classifiers: DefaultClassifiers(), thresholds: t}
}

// UpdateProfile computes the profile for sessions at time now. Unsealed
// sessions are ignored.
func (a *Aggregator) UpdateProfile(sessions []observer.SessionObservation, now time.Time) *LearnerProfile {
	p := &LearnerProfile{
		PreferredApproach: ApproachMixed,
		ApproachCounts:    make(map[Approach]int),
		StrengthAreas:     []string{},
		GrowthAreas:       []string{},
		LastUpdated:       now,
	}

	var (
		totalDur   time.Duration
		hints      int
		retries    int
		successes  int
		firstTries = make(map[string]int)
		puzzleSeen []string
	)
	for i := range sessions {
		s := &sessions[i]
		if !s.Sealed() {
			continue
		}
		p.SessionCount++
		totalDur += s.Duration()
		hints += s.HintsUsed
		retries += s.Retries()
		if s.Success {
			successes++
		}
		if s.CorrectFirstTry {
			if _, ok := firstTries[s.PuzzleType]; !ok {
				puzzleSeen = append(puzzleSeen, s.PuzzleType)
			}
			firstTries[s.PuzzleType]++
		}
		p.ApproachCounts[ClassifySession(a.classifiers, s)]++
	}

	if p.SessionCount == 0 {
		return p
	}

	n := float64(p.SessionCount)
	p.AverageTimePerPuzzle = (totalDur / time.Duration(p.SessionCount)).Milliseconds()
	p.HintUsageRate = float64(hints) / n
	p.RetryTendency = float64(retries) / n
	p.SuccessRate = float64(successes) / n
	p.PreferredApproach = preferred(p.ApproachCounts)

	t := a.thresholds
	var strengths, growth tagSet
	if p.SuccessRate > t.ProblemSolvingSuccessRate {
		strengths.add(TagProblemSolving)
	}
	if p.HintUsageRate < t.IndependenceHintRate {
		strengths.add(TagIndependence)
	}
	if p.RetryTendency < t.AccuracyRetryTendency {
		strengths.add(TagAccuracy)
	}
	if time.Duration(p.AverageTimePerPuzzle)*time.Millisecond < t.QuickThinkingAverage {
		strengths.add(TagQuickThinking)
	}
	for _, puzzle := range puzzleSeen {
		if firstTries[puzzle] >= t.PuzzleStrengthFirstTries {
			strengths.add(puzzle)
		}
	}
	if p.HintUsageRate > t.TryBeforeHintsRate {
		growth.add(TagTryBeforeHints)
	}
	if p.RetryTendency > t.CarefulReadingRetries {
		growth.add(TagCarefulReading)
	}
	p.StrengthAreas = strengths.list()
	p.GrowthAreas = growth.list()
	return p
}

// preferred picks the most common approach. Ties go to the approach that
// comes first in priority order.
func preferred(counts map[Approach]int) Approach {
	best, bestN := ApproachMixed, 0
	for _, a := range approachPriority {
		if counts[a] > bestN {
			best, bestN = a, counts[a]
		}
	}
	return best
}

// tagSet is an insertion-ordered set of tags.
type tagSet struct {
	tags []string
}

func (s *tagSet) add(tag string) {
	if tag == "" || contains(s.tags, tag) {
		return
	}
	s.tags = append(s.tags, tag)
}

func (s *tagSet) list() []string {
	if s.tags == nil {
		return []string{}
	}
	return s.tags
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
