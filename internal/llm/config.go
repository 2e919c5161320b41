package llm

import (
	"fmt"
	"os"
	"time"

	"github.com/abhisek/learnloop/internal/backoff"
)

// Provider names accepted in Config.Provider.
const (
	ProviderAnthropic  = "anthropic"
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderMock       = "mock"
)

// Config selects and configures the feedback model.
type Config struct {
	Provider string `yaml:"provider"`

	Anthropic  AnthropicConfig  `yaml:"anthropic"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Gemini     GeminiConfig     `yaml:"gemini"`
	OpenRouter OpenRouterConfig `yaml:"openrouter"`

	Retry backoff.Policy `yaml:"retry"`

	// Timeout bounds one request including retries.
	Timeout time.Duration `yaml:"timeout"`
}

type AnthropicConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type OpenRouterConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// DefaultConfig returns the defaults. No provider is selected until a key
// is configured or discovered.
func DefaultConfig() Config {
	return Config{
		Anthropic:  AnthropicConfig{Model: "claude-haiku"},
		OpenAI:     OpenAIConfig{Model: "gpt-4o-mini"},
		Gemini:     GeminiConfig{Model: "gemini-flash"},
		OpenRouter: OpenRouterConfig{Model: "google/gemini-2.0-flash-exp"},
		Retry: backoff.Policy{
			MaxAttempts: 3,
			InitialWait: time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2.0,
		},
		Timeout: 30 * time.Second,
	}
}

// Enabled reports whether a provider has been selected.
func (c Config) Enabled() bool {
	return c.Provider != ""
}

// ApplyEnv overlays LEARNLOOP_* variables, then falls back to the vendors'
// standard key variables when no provider was chosen.
func (c Config) ApplyEnv() Config {
	setIf := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setIf(&c.Provider, "LEARNLOOP_LLM_PROVIDER")
	setIf(&c.Anthropic.APIKey, "LEARNLOOP_ANTHROPIC_API_KEY")
	setIf(&c.Anthropic.Model, "LEARNLOOP_ANTHROPIC_MODEL")
	setIf(&c.OpenAI.APIKey, "LEARNLOOP_OPENAI_API_KEY")
	setIf(&c.OpenAI.Model, "LEARNLOOP_OPENAI_MODEL")
	setIf(&c.OpenAI.BaseURL, "LEARNLOOP_OPENAI_BASE_URL")
	setIf(&c.Gemini.APIKey, "LEARNLOOP_GEMINI_API_KEY")
	setIf(&c.Gemini.Model, "LEARNLOOP_GEMINI_MODEL")
	setIf(&c.OpenRouter.APIKey, "LEARNLOOP_OPENROUTER_API_KEY")
	setIf(&c.OpenRouter.Model, "LEARNLOOP_OPENROUTER_MODEL")

	if c.Provider == "" {
		c = c.discover()
	}
	return c
}

// discover probes the vendors' standard API key variables in priority order
// (Gemini, OpenAI, Anthropic, OpenRouter).
func (c Config) discover() Config {
	if k := os.Getenv("GEMINI_API_KEY"); k != "" {
		c.Provider, c.Gemini.APIKey = ProviderGemini, k
		return c
	}
	if k := os.Getenv("OPENAI_API_KEY"); k != "" {
		c.Provider, c.OpenAI.APIKey = ProviderOpenAI, k
		return c
	}
	if k := os.Getenv("ANTHROPIC_API_KEY"); k != "" {
		c.Provider, c.Anthropic.APIKey = ProviderAnthropic, k
		return c
	}
	if k := os.Getenv("OPENROUTER_API_KEY"); k != "" {
		c.Provider, c.OpenRouter.APIKey = ProviderOpenRouter, k
	}
	return c
}

// Validate checks that the selected provider has its API key. An empty
// provider is valid and disables model feedback.
func (c Config) Validate() error {
	var key string
	switch c.Provider {
	case "", ProviderMock:
		return nil
	case ProviderAnthropic:
		key = c.Anthropic.APIKey
	case ProviderOpenAI:
		key = c.OpenAI.APIKey
	case ProviderGemini:
		key = c.Gemini.APIKey
	case ProviderOpenRouter:
		key = c.OpenRouter.APIKey
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	if key == "" {
		return fmt.Errorf("an API key is required for the %s provider", c.Provider)
	}
	return nil
}
