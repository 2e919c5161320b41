package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/abhisek/learnloop/internal/observer"
)

// Sink delivers one sealed observation somewhere outside the engine.
type Sink interface {
	Send(ctx context.Context, obs observer.SessionObservation) error
}

// ErrStatus indicates the telemetry endpoint answered with a non-2xx status.
type ErrStatus struct {
	StatusCode int
	Body       string
}

func (e *ErrStatus) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("telemetry endpoint returned %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("telemetry endpoint returned %d", e.StatusCode)
}

// Retryable reports whether resending could succeed.
func (e *ErrStatus) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests || e.StatusCode == http.StatusRequestTimeout
}

// Payload is the request body of the learner-observation endpoint.
type Payload struct {
	SessionID   string                      `json:"sessionId"`
	Observation observer.SessionObservation `json:"observation"`
}

// HTTPSink posts observations to {baseURL}/learner-observation.
type HTTPSink struct {
	url    string
	token  string
	client *http.Client
}

// HTTPOption configures an HTTPSink.
type HTTPOption func(*HTTPSink)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(s *HTTPSink) { s.client = c }
}

// WithBearerToken sends an Authorization header with every request.
func WithBearerToken(token string) HTTPOption {
	return func(s *HTTPSink) { s.token = token }
}

// NewHTTPSink creates a sink for the service at baseURL.
func NewHTTPSink(baseURL string, opts ...HTTPOption) *HTTPSink {
	s := &HTTPSink{
		url:    strings.TrimRight(baseURL, "/") + "/learner-observation",
		client: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *HTTPSink) Send(ctx context.Context, obs observer.SessionObservation) error {
	body, err := json.Marshal(Payload{SessionID: obs.SessionID, Observation: obs})
	if err != nil {
		return fmt.Errorf("marshal observation: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post observation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &ErrStatus{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, obs observer.SessionObservation) error

func (f SinkFunc) Send(ctx context.Context, obs observer.SessionObservation) error {
	return f(ctx, obs)
}
