package assessment

import (
	"strings"
	"testing"
)

func TestRhythmScore(t *testing.T) {
	tests := []struct {
		accuracy float64
		want     int
	}{
		{100, 4},
		{75, 4},
		{74.9, 3},
		{50, 3},
		{49, 2},
		{25, 2},
		{24.99, 1},
		{0, 1},
	}
	for _, tt := range tests {
		got := ScoreActivity(PerformanceData{Accuracy: tt.accuracy}, ArtworkData{}, ReflectionData{})
		if got.RhythmPerformance != tt.want {
			t.Errorf("accuracy %v: RhythmPerformance = %d, want %d", tt.accuracy, got.RhythmPerformance, tt.want)
		}
	}
}

func TestArtisticScore(t *testing.T) {
	tests := []struct {
		name     string
		elements []string
		want     int
	}{
		{"none", nil, 1},
		{"one", []string{"sun"}, 1},
		{"two", []string{"sun", "tree"}, 2},
		{"three", []string{"sun", "tree", "cloud"}, 3},
		{"four", []string{"a", "b", "c", "d"}, 4},
		{"duplicates ignore case", []string{"Sun", "sun", " SUN ", "tree"}, 2},
		{"blank tags", []string{"", "  ", "star"}, 1},
	}
	for _, tt := range tests {
		got := ScoreActivity(PerformanceData{}, ArtworkData{Elements: tt.elements}, ReflectionData{})
		if got.ArtisticExpression != tt.want {
			t.Errorf("%s: ArtisticExpression = %d, want %d", tt.name, got.ArtisticExpression, tt.want)
		}
	}
}

func TestReflectionScore(t *testing.T) {
	tests := []struct {
		name string
		refl ReflectionData
		want int
	}{
		{"empty", ReflectionData{}, 1},
		{"two emojis", ReflectionData{Emojis: []string{"😀", "🎵"}}, 1},
		{"three emojis", ReflectionData{Emojis: []string{"😀", "🎵", "🌈"}}, 2},
		{"exactly 20 chars", ReflectionData{Text: strings.Repeat("a", 20)}, 1},
		{"21 chars", ReflectionData{Text: strings.Repeat("a", 21)}, 3},
		{"exactly 50 chars", ReflectionData{Text: strings.Repeat("a", 50)}, 3},
		{"51 chars", ReflectionData{Text: strings.Repeat("a", 51)}, 4},
		{"padding is trimmed", ReflectionData{Text: "   " + strings.Repeat("a", 20) + "   "}, 1},
		{"runes not bytes", ReflectionData{Text: strings.Repeat("é", 21)}, 3},
		{"text beats emojis", ReflectionData{Text: strings.Repeat("a", 25), Emojis: []string{"a", "b", "c"}}, 3},
	}
	for _, tt := range tests {
		got := ScoreActivity(PerformanceData{}, ArtworkData{}, tt.refl)
		if got.EmotionalReflection != tt.want {
			t.Errorf("%s: EmotionalReflection = %d, want %d", tt.name, got.EmotionalReflection, tt.want)
		}
	}
}

func TestGrowthLevelFor(t *testing.T) {
	tests := []struct {
		scores RubricScores
		want   GrowthLevel
	}{
		{RubricScores{4, 4, 4}, GrowthAdvanced},
		{RubricScores{4, 3, 3}, GrowthProficient},
		{RubricScores{4, 3, 4}, GrowthAdvanced},
		{RubricScores{3, 3, 2}, GrowthProficient},
		{RubricScores{2, 2, 2}, GrowthDeveloping},
		{RubricScores{2, 1, 2}, GrowthDeveloping},
		{RubricScores{1, 1, 2}, GrowthEmerging},
		{RubricScores{1, 1, 1}, GrowthEmerging},
	}
	for _, tt := range tests {
		if got := GrowthLevelFor(tt.scores); got != tt.want {
			t.Errorf("GrowthLevelFor(%+v) = %q (mean %.2f), want %q", tt.scores, got, tt.scores.Mean(), tt.want)
		}
	}
}

func TestScoresStayInRange(t *testing.T) {
	inputs := []struct {
		perf PerformanceData
		art  ArtworkData
		refl ReflectionData
	}{
		{PerformanceData{Accuracy: -20}, ArtworkData{}, ReflectionData{}},
		{PerformanceData{Accuracy: 250}, ArtworkData{Elements: strings.Split("abcdefghij", "")}, ReflectionData{Text: strings.Repeat("x", 500)}},
	}
	for _, in := range inputs {
		s := ScoreActivity(in.perf, in.art, in.refl)
		for _, v := range []int{s.RhythmPerformance, s.ArtisticExpression, s.EmotionalReflection} {
			if v < 1 || v > 4 {
				t.Errorf("score %d out of [1,4] for %+v", v, in)
			}
		}
	}
}

func TestAdvancedScenario(t *testing.T) {
	text := strings.Repeat("I liked the drums ", 4)[:60]
	scores := ScoreActivity(
		PerformanceData{Accuracy: 80},
		ArtworkData{Elements: []string{"a", "b", "c", "d"}},
		ReflectionData{Text: text},
	)
	if scores != (RubricScores{4, 4, 4}) {
		t.Fatalf("scores = %+v, want {4 4 4}", scores)
	}
	if got := GrowthLevelFor(scores); got != GrowthAdvanced {
		t.Errorf("growth level = %q, want advanced", got)
	}
}
