package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abhisek/learnloop/internal/llm"
)

// SourceModel marks feedback written by a language model.
const SourceModel = "model"

var feedbackSchema = &llm.Schema{
	Name:        "reflective-feedback",
	Description: "A short reflective feedback card for a young learner",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"strategyUsed":        map[string]any{"type": "string", "minLength": 1, "maxLength": 240},
			"whatWorkedWell":      map[string]any{"type": "string", "minLength": 1, "maxLength": 240},
			"alternativeApproach": map[string]any{"type": "string", "minLength": 1, "maxLength": 240},
			"encouragingNote":     map[string]any{"type": "string", "minLength": 1, "maxLength": 240},
		},
		"required":             []any{"strategyUsed", "whatWorkedWell", "alternativeApproach", "encouragingNote"},
		"additionalProperties": false,
	},
}

const systemPrompt = `You write reflective feedback for children aged 6 to 10 who just finished a puzzle.
Use short, warm sentences a child can read alone. Name the strategy the child used,
one thing that went well, one different approach to try next time and an encouraging note.
Never mention scores, grades or other children. Answer in the requested language.`

var languageNames = map[string]string{
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"pt": "Portuguese",
	"de": "German",
}

// LLMGenerator asks a language model for the feedback card.
type LLMGenerator struct {
	provider llm.Provider
}

// NewLLMGenerator wraps p. The provider should already carry retries and
// event logging.
func NewLLMGenerator(p llm.Provider) *LLMGenerator {
	return &LLMGenerator{provider: p}
}

func (g *LLMGenerator) Name() string { return SourceModel }

func (g *LLMGenerator) Generate(ctx context.Context, req Request) (Feedback, error) {
	ctx = llm.WithPurpose(ctx, llm.PurposeReflectiveFeedback)
	resp, err := g.provider.Generate(ctx, llm.Request{
		System:      systemPrompt,
		Messages:    llm.UserMessage(buildPrompt(req)),
		Schema:      feedbackSchema,
		MaxTokens:   600,
		Temperature: 0.7,
	})
	if err != nil {
		return Feedback{}, fmt.Errorf("generate feedback: %w", err)
	}

	var fb Feedback
	if err := json.Unmarshal(resp.Content, &fb); err != nil {
		return Feedback{}, fmt.Errorf("decode feedback: %w", err)
	}
	if !fb.complete() {
		return Feedback{}, fmt.Errorf("model feedback is missing fields")
	}
	fb.Source = SourceModel
	return fb, nil
}

func buildPrompt(req Request) string {
	lang, ok := languageNames[normalizeLanguage(req.Language)]
	if !ok {
		lang = languageNames[DefaultLanguage]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Puzzle type: %s\n", req.PuzzleType)
	fmt.Fprintf(&b, "Outcome: %s\n", req.Outcome)
	fmt.Fprintf(&b, "Time spent: %d seconds\n", req.TimeSpent)
	fmt.Fprintf(&b, "Hints used: %d\n", req.HintsUsed)
	if len(req.StepsRecorded) > 0 {
		b.WriteString("Steps:\n")
		for i, s := range req.StepsRecorded {
			fmt.Fprintf(&b, "%d. %s\n", i+1, s)
		}
	}
	fmt.Fprintf(&b, "Language: %s\n", lang)
	return b.String()
}
