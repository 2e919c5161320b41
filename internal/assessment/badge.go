package assessment

import (
	"time"

	"github.com/abhisek/learnloop/internal/observer"
)

// BadgeType identifies an unlockable badge.
type BadgeType string

const (
	BadgeRhythmMaster      BadgeType = "rhythm_master"
	BadgeArtExplorer       BadgeType = "art_explorer"
	BadgeDeepThinker       BadgeType = "deep_thinker"
	BadgeRisingStar        BadgeType = "rising_star"
	BadgePersistentPuzzler BadgeType = "persistent_puzzler"
	BadgeIndependentSolver BadgeType = "independent_solver"
)

// AllBadgeTypes returns all badge types in display order.
func AllBadgeTypes() []BadgeType {
	return []BadgeType{
		BadgeRhythmMaster,
		BadgeArtExplorer,
		BadgeDeepThinker,
		BadgeRisingStar,
		BadgePersistentPuzzler,
		BadgeIndependentSolver,
	}
}

// DisplayName returns a human-readable label for the badge.
func (b BadgeType) DisplayName() string {
	switch b {
	case BadgeRhythmMaster:
		return "Rhythm Master"
	case BadgeArtExplorer:
		return "Art Explorer"
	case BadgeDeepThinker:
		return "Deep Thinker"
	case BadgeRisingStar:
		return "Rising Star"
	case BadgePersistentPuzzler:
		return "Persistent Puzzler"
	case BadgeIndependentSolver:
		return "Independent Solver"
	default:
		return string(b)
	}
}

// Icon returns the display icon for the badge.
func (b BadgeType) Icon() string {
	switch b {
	case BadgeRhythmMaster:
		return "🥁"
	case BadgeArtExplorer:
		return "🎨"
	case BadgeDeepThinker:
		return "💭"
	case BadgeRisingStar:
		return "🌟"
	case BadgePersistentPuzzler:
		return "🧩"
	case BadgeIndependentSolver:
		return "🦉"
	default:
		return "✦"
	}
}

// Badge is an unlocked badge as stored in the progress document.
type Badge struct {
	Type     BadgeType `json:"type"`
	Reason   string    `json:"reason"`
	EarnedAt time.Time `json:"earnedAt"`
}

// Evidence is everything badge rules may look at.
type Evidence struct {
	Assessments []ActivityAssessment
	Sessions    []observer.SessionObservation
}

// BadgeRule is one independent unlock predicate.
type BadgeRule struct {
	Type   BadgeType
	Reason string
	Earned func(Evidence) bool
}

// BadgeThresholds tunes the default badge rules.
type BadgeThresholds struct {
	RhythmMasterAccuracy      float64
	ArtExplorerElements       int
	DeepThinkerChars          int
	IndependentSolverSessions int
}

// DefaultBadgeThresholds returns the standard unlock thresholds.
func DefaultBadgeThresholds() BadgeThresholds {
	return BadgeThresholds{
		RhythmMasterAccuracy:      80,
		ArtExplorerElements:       3,
		DeepThinkerChars:          50,
		IndependentSolverSessions: 5,
	}
}

// DefaultBadgeRules returns the badge catalog in display order.
func DefaultBadgeRules(t BadgeThresholds) []BadgeRule {
	return []BadgeRule{
		{
			Type:   BadgeRhythmMaster,
			Reason: "Kept the beat with great accuracy",
			Earned: func(e Evidence) bool {
				return anyAssessment(e, func(a ActivityAssessment) bool {
					return a.Performance.Accuracy >= t.RhythmMasterAccuracy
				})
			},
		},
		{
			Type:   BadgeArtExplorer,
			Reason: "Used lots of different art elements",
			Earned: func(e Evidence) bool {
				return anyAssessment(e, func(a ActivityAssessment) bool {
					return DistinctElements(a.Artwork.Elements) >= t.ArtExplorerElements
				})
			},
		},
		{
			Type:   BadgeDeepThinker,
			Reason: "Wrote a thoughtful reflection",
			Earned: func(e Evidence) bool {
				return anyAssessment(e, func(a ActivityAssessment) bool {
					return textLen(a.Reflection.Text) > t.DeepThinkerChars
				})
			},
		},
		{
			Type:   BadgeRisingStar,
			Reason: "Reached the advanced growth level",
			Earned: func(e Evidence) bool {
				return anyAssessment(e, func(a ActivityAssessment) bool {
					return a.GrowthLevel == GrowthAdvanced
				})
			},
		},
		{
			Type:   BadgePersistentPuzzler,
			Reason: "Kept trying until the puzzle was solved",
			Earned: func(e Evidence) bool {
				for _, s := range e.Sessions {
					if s.Success && s.EmotionalIndicators.ManyRetries {
						return true
					}
				}
				return false
			},
		},
		{
			Type:   BadgeIndependentSolver,
			Reason: "Solved puzzles without any hints",
			Earned: func(e Evidence) bool {
				n := 0
				for _, s := range e.Sessions {
					if s.Success && s.HintsUsed == 0 {
						n++
					}
				}
				return n >= t.IndependentSolverSessions
			},
		},
	}
}

func anyAssessment(e Evidence, pred func(ActivityAssessment) bool) bool {
	for _, a := range e.Assessments {
		if pred(a) {
			return true
		}
	}
	return false
}
