package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/abhisek/learnloop/internal/backoff"
)

func fastRetry() backoff.Policy {
	return backoff.Policy{
		MaxAttempts: 3,
		InitialWait: time.Millisecond,
		MaxWait:     10 * time.Millisecond,
		Multiplier:  2.0,
	}
}

var (
	errDown    = &ErrProviderUnavailable{Err: errors.New("down")}
	okResponse = MockResponse{Content: json.RawMessage(`{"ok":true}`)}
)

func TestRetry(t *testing.T) {
	tests := []struct {
		name      string
		responses []MockResponse
		wantErr   bool
		wantCalls int
	}{
		{"first attempt", []MockResponse{okResponse}, false, 1},
		{"transient then success", []MockResponse{{Err: errDown}, okResponse}, false, 2},
		{"all attempts fail", []MockResponse{{Err: errDown}, {Err: errDown}, {Err: errDown}, okResponse}, true, 3},
		{"max tokens not retried", []MockResponse{{Err: &ErrMaxTokensExceeded{}}, okResponse}, true, 1},
		{
			"invalid response retried once",
			[]MockResponse{
				{Err: &ErrInvalidResponse{Err: errors.New("bad")}},
				{Err: &ErrInvalidResponse{Err: errors.New("bad")}},
				okResponse,
			},
			true, 2,
		},
		{
			"rate limit honours retry-after",
			[]MockResponse{{Err: &ErrRateLimit{RetryAfter: time.Millisecond, Err: errors.New("429")}}, okResponse},
			false, 2,
		},
	}
	for _, tt := range tests {
		mock := NewMockProvider(tt.responses...)
		_, err := WithRetry(mock, fastRetry()).Generate(context.Background(), Request{})
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: err = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
		if mock.CallCount() != tt.wantCalls {
			t.Errorf("%s: calls = %d, want %d", tt.name, mock.CallCount(), tt.wantCalls)
		}
	}
}

func TestRetryStopsOnCanceledContext(t *testing.T) {
	mock := NewMockProvider(MockResponse{Err: errDown}, okResponse)
	p := WithRetry(mock, backoff.Policy{MaxAttempts: 3, InitialWait: time.Hour, MaxWait: time.Hour, Multiplier: 2})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Generate(ctx, Request{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Generate() = %v, want context.Canceled", err)
	}
	if mock.CallCount() != 1 {
		t.Errorf("calls = %d, want 1", mock.CallCount())
	}
}

func TestRetryModelIDDelegates(t *testing.T) {
	if got := WithRetry(NewMockProvider(), fastRetry()).ModelID(); got != "mock" {
		t.Fatalf("ModelID() = %q, want mock", got)
	}
}
