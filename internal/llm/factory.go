package llm

import (
	"context"
	"fmt"

	"github.com/abhisek/learnloop/internal/logger"
)

// NewProvider builds the configured provider wrapped as
// caller → retry → logging → base. It returns nil, nil when no provider is
// selected.
func NewProvider(ctx context.Context, cfg Config, events EventLog, log *logger.Logger) (Provider, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		base Provider
		err  error
	)
	switch cfg.Provider {
	case ProviderAnthropic:
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case ProviderOpenAI:
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case ProviderOpenRouter:
		base, err = NewOpenRouterProvider(cfg.OpenRouter)
	case ProviderGemini:
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case ProviderMock:
		base = NewMockProvider()
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	logged := WithLogging(base, cfg.Provider, events, log)
	return WithRetry(logged, cfg.Retry), nil
}
