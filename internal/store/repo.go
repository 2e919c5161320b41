package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested event does not exist.
var ErrNotFound = errors.New("not found")

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit   int       // max results (0 = unlimited)
	After   int64     // sequence > After
	Before  int64     // sequence < Before
	From    time.Time // timestamp >= From
	To      time.Time // timestamp <= To
	Purpose string    // exact purpose match (LLM events only)
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMRequestEvent is a persisted LLM request event.
type LLMRequestEvent struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	LLMRequestEventData
}

// LLMUsage aggregates LLM request events under one label.
type LLMUsage struct {
	Label        string
	Requests     int
	Failures     int
	InputTokens  int64
	OutputTokens int64
	AvgLatencyMs float64
}

// TelemetryDelivery records one attempt to upload a sealed session.
type TelemetryDelivery struct {
	SessionID    string
	Attempts     int
	Delivered    bool
	ErrorMessage string
}

// EventRepo provides append and query access to domain events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryLLMEvents returns LLM events ordered by descending sequence.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error)

	// GetLLMEvent returns a single LLM event by id, or ErrNotFound.
	GetLLMEvent(ctx context.Context, id int) (*LLMRequestEvent, error)

	// LLMUsageByPurpose aggregates LLM events grouped by purpose.
	LLMUsageByPurpose(ctx context.Context) ([]LLMUsage, error)

	// AppendTelemetryDelivery records the outcome of an observation upload.
	AppendTelemetryDelivery(ctx context.Context, d TelemetryDelivery) error

	// TelemetryDeliveries returns delivery records, newest first.
	TelemetryDeliveries(ctx context.Context, opts QueryOpts) ([]TelemetryDelivery, error)
}
