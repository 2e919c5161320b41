package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/abhisek/learnloop/internal/backoff"
	"github.com/abhisek/learnloop/internal/observer"
	"github.com/abhisek/learnloop/internal/store"
)

func sealedObservation(id string) observer.SessionObservation {
	start := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Second)
	return observer.SessionObservation{
		SessionID:  id,
		StartTime:  start,
		EndTime:    &end,
		PuzzleType: "patterns",
		LevelID:    "3",
		World:      observer.WorldMath,
		Actions:    []observer.Action{},
		Attempts:   1,
		Success:    true,
	}
}

func noSleep(context.Context, time.Duration) error { return nil }

type memoryDeliveryLog struct {
	mu      sync.Mutex
	entries []store.TelemetryDelivery
}

func (l *memoryDeliveryLog) AppendTelemetryDelivery(_ context.Context, d store.TelemetryDelivery) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, d)
	return nil
}

func (l *memoryDeliveryLog) all() []store.TelemetryDelivery {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]store.TelemetryDelivery(nil), l.entries...)
}

func TestHTTPSinkPostsPayload(t *testing.T) {
	var got Payload
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/learner-observation" {
			t.Errorf("request = %s %s, want POST /learner-observation", r.Method, r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sink := NewHTTPSink(srv.URL+"/", WithBearerToken("tok"))
	if err := sink.Send(context.Background(), sealedObservation("s-1")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got.SessionID != "s-1" || got.Observation.PuzzleType != "patterns" {
		t.Errorf("payload = %+v, want session s-1 with its observation", got)
	}
	if auth != "Bearer tok" {
		t.Errorf("Authorization = %q, want bearer token", auth)
	}
}

func TestHTTPSinkStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewHTTPSink(srv.URL).Send(context.Background(), sealedObservation("s-1"))
	var st *ErrStatus
	if !errors.As(err, &st) {
		t.Fatalf("Send() = %v, want *ErrStatus", err)
	}
	if st.StatusCode != http.StatusBadRequest || st.Retryable() {
		t.Errorf("status error = %+v, want non-retryable 400", st)
	}
}

func TestDispatcherRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	sink := SinkFunc(func(context.Context, observer.SessionObservation) error {
		if calls.Add(1) < 3 {
			return &ErrStatus{StatusCode: http.StatusServiceUnavailable}
		}
		return nil
	})
	deliveries := &memoryDeliveryLog{}
	d := NewDispatcher(sink, Config{Retry: backoff.Policy{MaxAttempts: 5}}, WithSleep(noSleep), WithDeliveryLog(deliveries))

	d.Notify(sealedObservation("s-1"))
	d.Close()

	if calls.Load() != 3 {
		t.Errorf("sink calls = %d, want 3", calls.Load())
	}
	entries := deliveries.all()
	if len(entries) != 1 || !entries[0].Delivered || entries[0].Attempts != 3 {
		t.Errorf("deliveries = %+v, want one delivered after 3 attempts", entries)
	}
	if st := d.Stats(); st.Delivered != 1 || st.Failed != 0 {
		t.Errorf("Stats() = %+v", st)
	}
}

func TestDispatcherGivesUp(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCalls int32
	}{
		{"server errors exhaust attempts", &ErrStatus{StatusCode: 502}, 3},
		{"client errors are not retried", &ErrStatus{StatusCode: 422}, 1},
		{"network errors exhaust attempts", errors.New("connection refused"), 3},
	}
	for _, tt := range tests {
		var calls atomic.Int32
		sink := SinkFunc(func(context.Context, observer.SessionObservation) error {
			calls.Add(1)
			return tt.err
		})
		deliveries := &memoryDeliveryLog{}
		d := NewDispatcher(sink, Config{Retry: backoff.Policy{MaxAttempts: 3}}, WithSleep(noSleep), WithDeliveryLog(deliveries))
		d.Notify(sealedObservation("s-1"))
		d.Close()

		if calls.Load() != tt.wantCalls {
			t.Errorf("%s: sink calls = %d, want %d", tt.name, calls.Load(), tt.wantCalls)
		}
		entries := deliveries.all()
		if len(entries) != 1 || entries[0].Delivered || entries[0].ErrorMessage == "" {
			t.Errorf("%s: deliveries = %+v, want one failed entry with message", tt.name, entries)
		}
		if d.Stats().Failed != 1 {
			t.Errorf("%s: Failed = %d, want 1", tt.name, d.Stats().Failed)
		}
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	sink := SinkFunc(func(context.Context, observer.SessionObservation) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return nil
	})
	d := NewDispatcher(sink, Config{QueueSize: 2}, WithSleep(noSleep))

	d.Notify(sealedObservation("in-flight"))
	<-started
	d.Notify(sealedObservation("q-1"))
	d.Notify(sealedObservation("q-2"))
	d.Notify(sealedObservation("overflow"))

	if got := d.Stats().Dropped; got != 1 {
		t.Errorf("Dropped = %d, want 1", got)
	}
	close(release)
	d.Close()
	if got := d.Stats().Delivered; got != 3 {
		t.Errorf("Delivered = %d, want 3", got)
	}

	d.Notify(sealedObservation("late"))
	if got := d.Stats().Dropped; got != 2 {
		t.Errorf("Dropped after close = %d, want 2", got)
	}
}

func TestNotifyNeverBlocks(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	sink := SinkFunc(func(ctx context.Context, _ observer.SessionObservation) error {
		select {
		case <-block:
		case <-ctx.Done():
		}
		return nil
	})
	d := NewDispatcher(sink, Config{QueueSize: 1}, WithSleep(noSleep))
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		d.Shutdown(ctx)
	}()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			d.Notify(sealedObservation("s"))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked")
	}
}

func TestShutdownDeadlineAbandonsRetries(t *testing.T) {
	sink := SinkFunc(func(context.Context, observer.SessionObservation) error {
		return errors.New("down")
	})
	d := NewDispatcher(sink, Config{Retry: backoff.Policy{MaxAttempts: 10, InitialWait: time.Hour, MaxWait: time.Hour}})
	d.Notify(sealedObservation("s-1"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := d.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Shutdown() = %v, want deadline exceeded", err)
	}
	if d.Stats().Failed != 1 {
		t.Errorf("Failed = %d, want 1", d.Stats().Failed)
	}
}
