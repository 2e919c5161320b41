// Package llm talks to hosted language models for reflective feedback.
package llm

import (
	"context"
	"encoding/json"
)

// Provider generates one structured completion.
type Provider interface {
	// Generate sends req and returns the model output. When req.Schema is
	// set the output is JSON validated against it.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the configured model identifier.
	ModelID() string
}

// Request is a single-turn prompt.
type Request struct {
	System      string
	Messages    []Message
	Schema      *Schema
	MaxTokens   int
	Temperature float64 // 0 leaves the provider default
}

// Message is one conversation turn.
type Message struct {
	Role    Role
	Content string
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// UserMessage builds a single user turn.
func UserMessage(content string) []Message {
	return []Message{{Role: RoleUser, Content: content}}
}

// Schema is the JSON Schema a structured response must satisfy. Name is
// kebab-case and doubles as the provider-side schema name.
type Schema struct {
	Name        string
	Description string
	Definition  map[string]any
}

// Response is the provider output.
type Response struct {
	Content    json.RawMessage
	Usage      Usage
	Model      string
	StopReason string // "end" or "max_tokens"
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Purposes label requests in the event log.
const (
	PurposeReflectiveFeedback = "reflective-feedback"
	PurposeUnknown            = "unknown"
)

type purposeKey struct{}

// WithPurpose attaches a purpose label to the context for event logging.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey{}, purpose)
}

// PurposeFrom extracts the purpose label from the context.
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey{}).(string); ok && v != "" {
		return v
	}
	return PurposeUnknown
}

// resolveModel maps a friendly model name to a provider model ID. Unknown
// names pass through unchanged.
func resolveModel(name string, models map[string]string) string {
	if id, ok := models[name]; ok {
		return id
	}
	return name
}
