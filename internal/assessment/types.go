package assessment

import "time"

// PerformanceData is the rhythm activity's raw result.
type PerformanceData struct {
	Accuracy float64 `json:"accuracy"` // percent, 0-100
	Taps     int     `json:"taps"`
	Hits     int     `json:"hits"`
	Misses   int     `json:"misses"`
}

// ArtworkData lists what went into the learner's artwork.
type ArtworkData struct {
	Elements []string `json:"elements"`
	Colors   []string `json:"colors,omitempty"`
}

// ReflectionData is the learner's post-activity reflection.
type ReflectionData struct {
	Emojis []string `json:"emojis,omitempty"`
	Colors []string `json:"colors,omitempty"`
	Text   string   `json:"text,omitempty"`
}

// RubricScores are the three bounded rubric dimensions, each in [1,4].
type RubricScores struct {
	RhythmPerformance   int `json:"rhythm_performance"`
	ArtisticExpression  int `json:"artistic_expression"`
	EmotionalReflection int `json:"emotional_reflection"`
}

// Mean returns the average of the three scores.
func (s RubricScores) Mean() float64 {
	return float64(s.RhythmPerformance+s.ArtisticExpression+s.EmotionalReflection) / 3
}

// GrowthLevel is the coarse tier derived from the mean rubric score.
type GrowthLevel string

const (
	GrowthEmerging   GrowthLevel = "emerging"
	GrowthDeveloping GrowthLevel = "developing"
	GrowthProficient GrowthLevel = "proficient"
	GrowthAdvanced   GrowthLevel = "advanced"
)

// DisplayName returns a human-readable label for the level.
func (g GrowthLevel) DisplayName() string {
	switch g {
	case GrowthEmerging:
		return "Emerging"
	case GrowthDeveloping:
		return "Developing"
	case GrowthProficient:
		return "Proficient"
	case GrowthAdvanced:
		return "Advanced"
	default:
		return string(g)
	}
}

// ActivityAssessment is the single stored assessment for a (student, activity) pair.
type ActivityAssessment struct {
	StudentID   string          `json:"student_id"`
	ActivityID  string          `json:"activity_id"`
	Performance PerformanceData `json:"performance"`
	Artwork     ArtworkData     `json:"artwork"`
	Reflection  ReflectionData  `json:"reflection"`
	Scores      RubricScores    `json:"scores"`
	GrowthLevel GrowthLevel     `json:"growth_level"`
	AssessedAt  time.Time       `json:"assessed_at"`
}

// BonusPoints is the best score recorded for one activity.
type BonusPoints struct {
	ActivityID string    `json:"activityId"`
	Points     int       `json:"points"`
	EarnedAt   time.Time `json:"earnedAt"`
}

// Progress is the persisted learner progress document.
type Progress struct {
	Assessments []ActivityAssessment `json:"assessments"`
	BonusPoints []BonusPoints        `json:"bonusPoints"`
	Badges      []Badge              `json:"badges"`
}

func (p *Progress) normalize() {
	if p.Assessments == nil {
		p.Assessments = []ActivityAssessment{}
	}
	if p.BonusPoints == nil {
		p.BonusPoints = []BonusPoints{}
	}
	if p.Badges == nil {
		p.Badges = []Badge{}
	}
}

func (p *Progress) hasBadge(t BadgeType) bool {
	for _, b := range p.Badges {
		if b.Type == t {
			return true
		}
	}
	return false
}
