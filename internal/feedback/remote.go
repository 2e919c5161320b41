package feedback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SourceRemote marks feedback returned by the reflective-feedback service.
const SourceRemote = "remote"

// ErrStatus indicates the feedback service answered with a non-2xx status.
type ErrStatus struct {
	StatusCode int
	Body       string
}

func (e *ErrStatus) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("feedback service returned %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("feedback service returned %d", e.StatusCode)
}

// RemoteClient calls POST {baseURL}/reflective-feedback.
type RemoteClient struct {
	url    string
	token  string
	client *http.Client
}

// RemoteOption configures a RemoteClient.
type RemoteOption func(*RemoteClient)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) RemoteOption {
	return func(r *RemoteClient) { r.client = c }
}

// WithBearerToken sends an Authorization header with every request.
func WithBearerToken(token string) RemoteOption {
	return func(r *RemoteClient) { r.token = token }
}

// NewRemoteClient creates a client for the service at baseURL.
func NewRemoteClient(baseURL string, opts ...RemoteOption) *RemoteClient {
	r := &RemoteClient{
		url:    strings.TrimRight(baseURL, "/") + "/reflective-feedback",
		client: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RemoteClient) Name() string { return SourceRemote }

func (r *RemoteClient) Generate(ctx context.Context, in Request) (Feedback, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return Feedback{}, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return Feedback{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return Feedback{}, fmt.Errorf("post reflective feedback: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Feedback{}, &ErrStatus{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	var fb Feedback
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&fb); err != nil {
		return Feedback{}, fmt.Errorf("decode reflective feedback: %w", err)
	}
	if !fb.complete() {
		return Feedback{}, fmt.Errorf("reflective feedback is missing fields")
	}
	fb.Source = SourceRemote
	return fb, nil
}
