package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/abhisek/learnloop/internal/logger"
	"github.com/abhisek/learnloop/internal/store"
)

// EventLog persists one row per model request. store.EventRepo implements it.
type EventLog interface {
	AppendLLMRequest(ctx context.Context, data store.LLMRequestEventData) error
}

// LoggingProvider records every request in an EventLog.
type LoggingProvider struct {
	inner  Provider
	name   string
	events EventLog
	log    *logger.Logger
}

// WithLogging wraps p so each request is appended to events. Event log
// failures are logged and never fail the request.
func WithLogging(p Provider, providerName string, events EventLog, log *logger.Logger) Provider {
	return &LoggingProvider{
		inner:  p,
		name:   providerName,
		events: events,
		log:    logger.OrNop(log).With("component", "llm"),
	}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := l.inner.Generate(ctx, req)

	data := store.LLMRequestEventData{
		Provider:    l.name,
		Model:       l.inner.ModelID(),
		Purpose:     PurposeFrom(ctx),
		LatencyMs:   time.Since(start).Milliseconds(),
		Success:     err == nil,
		RequestBody: describeRequest(req),
	}
	if resp != nil {
		data.InputTokens = resp.Usage.InputTokens
		data.OutputTokens = resp.Usage.OutputTokens
		data.Model = resp.Model
		data.ResponseBody = string(resp.Content)
	}
	if err != nil {
		data.ErrorMessage = err.Error()
	}

	l.log.Debug("llm request",
		"model", data.Model,
		"purpose", data.Purpose,
		"latency_ms", data.LatencyMs,
		"success", data.Success,
	)
	if l.events != nil {
		if logErr := l.events.AppendLLMRequest(context.WithoutCancel(ctx), data); logErr != nil {
			l.log.Warn("record llm request", "error", logErr)
		}
	}
	return resp, err
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}

// describeRequest renders a request as readable text for the event log.
func describeRequest(req Request) string {
	var b strings.Builder
	if req.System != "" {
		fmt.Fprintf(&b, "[system]\n%s\n\n", req.System)
	}
	for _, m := range req.Messages {
		fmt.Fprintf(&b, "[%s]\n%s\n\n", m.Role, m.Content)
	}
	if req.Schema != nil {
		if def, err := json.Marshal(req.Schema.Definition); err == nil {
			fmt.Fprintf(&b, "[schema: %s]\n%s\n", req.Schema.Name, def)
		}
	}
	return b.String()
}
