package feedback

import (
	"context"
	"strings"
)

// DefaultLanguage is used for unknown languages.
const DefaultLanguage = "en"

// SourceFallback marks feedback produced from the static templates.
const SourceFallback = "fallback"

var templates = map[string]map[Outcome]Feedback{
	"en": {
		OutcomeSuccess: {
			StrategyUsed:        "You looked carefully and found the pattern.",
			WhatWorkedWell:      "You stayed focused and finished the {puzzle} puzzle.",
			AlternativeApproach: "Next time, try saying each step out loud before you move.",
			EncouragingNote:     "Amazing work! You are becoming a great problem solver.",
		},
		OutcomePartial: {
			StrategyUsed:        "You tried different ideas until one worked.",
			WhatWorkedWell:      "You kept going even when the {puzzle} puzzle was tricky.",
			AlternativeApproach: "Try looking at the whole puzzle first, then pick one piece to start with.",
			EncouragingNote:     "Trying again is how we learn. Well done for not giving up!",
		},
		OutcomeStruggle: {
			StrategyUsed:        "You explored the {puzzle} puzzle and tested some ideas.",
			WhatWorkedWell:      "You were brave and tried something new.",
			AlternativeApproach: "A hint can help you spot the first step. Then take it one step at a time.",
			EncouragingNote:     "Every puzzle makes your brain stronger. Let's try again together!",
		},
	},
	"es": {
		OutcomeSuccess: {
			StrategyUsed:        "Observaste con cuidado y encontraste el patrón.",
			WhatWorkedWell:      "Te concentraste y terminaste el rompecabezas de {puzzle}.",
			AlternativeApproach: "La próxima vez, di cada paso en voz alta antes de moverte.",
			EncouragingNote:     "¡Excelente trabajo! Te estás convirtiendo en un gran solucionador de problemas.",
		},
		OutcomePartial: {
			StrategyUsed:        "Probaste distintas ideas hasta que una funcionó.",
			WhatWorkedWell:      "Seguiste adelante aunque el rompecabezas de {puzzle} era difícil.",
			AlternativeApproach: "Mira primero todo el rompecabezas y luego elige una pieza para empezar.",
			EncouragingNote:     "Intentarlo de nuevo es como aprendemos. ¡Bien hecho por no rendirte!",
		},
		OutcomeStruggle: {
			StrategyUsed:        "Exploraste el rompecabezas de {puzzle} y probaste algunas ideas.",
			WhatWorkedWell:      "Fuiste valiente y probaste algo nuevo.",
			AlternativeApproach: "Una pista puede ayudarte a ver el primer paso. Luego ve paso a paso.",
			EncouragingNote:     "Cada rompecabezas hace tu cerebro más fuerte. ¡Intentémoslo otra vez juntos!",
		},
	},
}

// Languages returns the languages with static templates.
func Languages() []string {
	return []string{"en", "es"}
}

// Fallback answers from static templates keyed by outcome and language.
// Unknown languages use English and unknown outcomes use the struggle card.
type Fallback struct{}

func (Fallback) Name() string { return SourceFallback }

func (f Fallback) Generate(_ context.Context, req Request) (Feedback, error) {
	return f.For(req), nil
}

// For returns the template card for req. The result depends only on the
// outcome, the language and the puzzle type.
func (Fallback) For(req Request) Feedback {
	byOutcome, ok := templates[normalizeLanguage(req.Language)]
	if !ok {
		byOutcome = templates[DefaultLanguage]
	}
	fb, ok := byOutcome[req.Outcome]
	if !ok {
		fb = byOutcome[OutcomeStruggle]
	}

	puzzle := strings.ReplaceAll(strings.TrimSpace(req.PuzzleType), "_", " ")
	if puzzle == "" {
		puzzle = "this"
	}
	r := strings.NewReplacer("{puzzle}", puzzle)
	return Feedback{
		StrategyUsed:        r.Replace(fb.StrategyUsed),
		WhatWorkedWell:      r.Replace(fb.WhatWorkedWell),
		AlternativeApproach: r.Replace(fb.AlternativeApproach),
		EncouragingNote:     r.Replace(fb.EncouragingNote),
		Source:              SourceFallback,
	}
}
