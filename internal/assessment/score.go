package assessment

import (
	"strings"
	"unicode/utf8"
)

// Thresholds holds the rubric step boundaries. Each array lists the bound
// for scores 4, 3 and 2; anything below the last bound scores 1.
type Thresholds struct {
	Accuracy       [3]float64 // accuracy percent >= bound
	Elements       [3]int     // distinct element tags >= bound
	RichTextChars  int        // reflection text longer than this scores 4
	ShortTextChars int        // reflection text longer than this scores 3
	EmojiCount     int        // at least this many emojis scores 2

	// Growth levels by mean rubric score.
	AdvancedMean   float64
	ProficientMean float64
	DevelopingMean float64
}

// DefaultThresholds returns the standard rubric boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Accuracy:       [3]float64{75, 50, 25},
		Elements:       [3]int{4, 3, 2},
		RichTextChars:  50,
		ShortTextChars: 20,
		EmojiCount:     3,
		AdvancedMean:   3.5,
		ProficientMean: 2.5,
		DevelopingMean: 1.5,
	}
}

// ScoreActivity scores an activity with the default thresholds.
func ScoreActivity(perf PerformanceData, art ArtworkData, refl ReflectionData) RubricScores {
	return DefaultThresholds().Score(perf, art, refl)
}

// GrowthLevelFor maps scores to a growth level with the default thresholds.
func GrowthLevelFor(s RubricScores) GrowthLevel {
	return DefaultThresholds().GrowthLevel(s)
}

// Score converts the three signal bundles into rubric scores.
func (t Thresholds) Score(perf PerformanceData, art ArtworkData, refl ReflectionData) RubricScores {
	return RubricScores{
		RhythmPerformance:   t.rhythm(perf.Accuracy),
		ArtisticExpression:  t.artistic(DistinctElements(art.Elements)),
		EmotionalReflection: t.reflection(refl),
	}
}

func (t Thresholds) rhythm(accuracy float64) int {
	for i, bound := range t.Accuracy {
		if accuracy >= bound {
			return 4 - i
		}
	}
	return 1
}

func (t Thresholds) artistic(distinct int) int {
	for i, bound := range t.Elements {
		if distinct >= bound {
			return 4 - i
		}
	}
	return 1
}

func (t Thresholds) reflection(r ReflectionData) int {
	n := textLen(r.Text)
	switch {
	case n > t.RichTextChars:
		return 4
	case n > t.ShortTextChars:
		return 3
	case len(r.Emojis) >= t.EmojiCount:
		return 2
	default:
		return 1
	}
}

// GrowthLevel maps the mean rubric score to a growth level.
func (t Thresholds) GrowthLevel(s RubricScores) GrowthLevel {
	mean := s.Mean()
	switch {
	case mean >= t.AdvancedMean:
		return GrowthAdvanced
	case mean >= t.ProficientMean:
		return GrowthProficient
	case mean >= t.DevelopingMean:
		return GrowthDeveloping
	default:
		return GrowthEmerging
	}
}

// DistinctElements counts element tags, ignoring case, surrounding space and blanks.
func DistinctElements(elements []string) int {
	seen := make(map[string]struct{}, len(elements))
	for _, e := range elements {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		seen[e] = struct{}{}
	}
	return len(seen)
}

func textLen(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}
