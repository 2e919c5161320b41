package store

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open("oracle", "x")
	assert.Error(t, err)
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
		{"journal_mode", "wal"},
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestSQLiteDSN(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"a.db", "a.db?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=synchronous(NORMAL)"},
		{"file:a.db?mode=rwc", "file:a.db?mode=rwc&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=synchronous(NORMAL)"},
		{"file:a.db?_pragma=busy_timeout(1)", "file:a.db?_pragma=busy_timeout(1)"},
	}
	for _, tt := range tests {
		if got := sqliteDSN(tt.in); got != tt.want {
			t.Errorf("sqliteDSN(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	s, err := Open(DriverSQLite, path)
	require.NoError(t, err)
	require.NoError(t, s.KV().Set(ctx, "k", json.RawMessage(`{"a":1}`)))
	require.NoError(t, s.Close())

	s, err = Open(DriverSQLite, path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.KV().Get(ctx, "k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(got))
}

func testKV(t *testing.T, kv KV) {
	ctx := context.Background()

	got, err := kv.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, kv.Set(ctx, "doc", json.RawMessage(`{"v":1}`)))
	require.NoError(t, kv.Set(ctx, "doc", json.RawMessage(`{"v":2}`)))
	got, err = kv.Get(ctx, "doc")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(got))

	// nil result leaves the document untouched
	require.NoError(t, kv.Update(ctx, "doc", func(cur json.RawMessage) (json.RawMessage, error) {
		return nil, nil
	}))
	got, _ = kv.Get(ctx, "doc")
	assert.JSONEq(t, `{"v":2}`, string(got))

	// fn errors abort the update
	boom := errors.New("boom")
	err = kv.Update(ctx, "doc", func(cur json.RawMessage) (json.RawMessage, error) {
		return json.RawMessage(`{"v":99}`), boom
	})
	assert.ErrorIs(t, err, boom)
	got, _ = kv.Get(ctx, "doc")
	assert.JSONEq(t, `{"v":2}`, string(got))

	require.NoError(t, kv.Delete(ctx, "doc"))
	require.NoError(t, kv.Delete(ctx, "doc"))
	got, err = kv.Get(ctx, "doc")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func testKVConcurrentUpdate(t *testing.T, kv KV) {
	ctx := context.Background()
	const workers = 8

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := kv.Update(ctx, "counter", func(cur json.RawMessage) (json.RawMessage, error) {
				n := 0
				if cur != nil {
					n, _ = strconv.Atoi(string(cur))
				}
				return json.RawMessage(strconv.Itoa(n + 1)), nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := kv.Get(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(workers), string(got))
}

func TestSQLKV(t *testing.T) {
	s := openTestStore(t)
	testKV(t, s.KV())
	testKVConcurrentUpdate(t, s.KV())
}

func TestMemoryKV(t *testing.T) {
	kv := NewMemoryKV()
	testKV(t, kv)
	testKVConcurrentUpdate(t, kv)
}

func TestMemoryKVCopiesValues(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()
	v := json.RawMessage(`{"a":1}`)
	require.NoError(t, kv.Set(ctx, "k", v))
	v[2] = 'b'

	got, _ := kv.Get(ctx, "k")
	assert.Equal(t, `{"a":1}`, string(got))
}

func TestKeys(t *testing.T) {
	k := Keys{Learner: "kid-1"}
	assert.Equal(t, "learner:kid-1:observations", k.Observations())
	assert.Equal(t, "learner:kid-1:progress", k.Progress())
	assert.Equal(t, "learner:kid-1:tempo", k.Tempo())
	assert.Len(t, k.All(), 3)
}

func TestSequenceCounterMonotonic(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	prev, err := s.seq.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), prev)
	for i := 0; i < 5; i++ {
		next, err := s.seq.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, prev+1, next)
		prev = next
	}
}

func TestLLMEvents(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	events := []LLMRequestEventData{
		{Provider: "anthropic", Model: "claude-haiku", Purpose: "reflective-feedback", InputTokens: 100, OutputTokens: 40, LatencyMs: 300, Success: true},
		{Provider: "anthropic", Model: "claude-haiku", Purpose: "reflective-feedback", InputTokens: 80, OutputTokens: 0, LatencyMs: 100, Success: false, ErrorMessage: "rate limited"},
		{Provider: "openai", Model: "gpt-4o-mini", Purpose: "other", InputTokens: 10, OutputTokens: 5, LatencyMs: 50, Success: true},
	}
	for _, e := range events {
		require.NoError(t, repo.AppendLLMRequest(ctx, e))
	}

	all, err := repo.QueryLLMEvents(ctx, QueryOpts{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "openai", all[0].Provider, "newest first")
	assert.Greater(t, all[0].Sequence, all[1].Sequence)

	feedbackOnly, err := repo.QueryLLMEvents(ctx, QueryOpts{Purpose: "reflective-feedback", Limit: 1})
	require.NoError(t, err)
	require.Len(t, feedbackOnly, 1)
	assert.False(t, feedbackOnly[0].Success)

	ev, err := repo.GetLLMEvent(ctx, all[2].ID)
	require.NoError(t, err)
	assert.Equal(t, 100, ev.InputTokens)

	_, err = repo.GetLLMEvent(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	usage, err := repo.LLMUsageByPurpose(ctx)
	require.NoError(t, err)
	require.Len(t, usage, 2)
	assert.Equal(t, "other", usage[0].Label)
	assert.Equal(t, "reflective-feedback", usage[1].Label)
	assert.Equal(t, 2, usage[1].Requests)
	assert.Equal(t, 1, usage[1].Failures)
	assert.Equal(t, int64(180), usage[1].InputTokens)
	assert.InDelta(t, 200.0, usage[1].AvgLatencyMs, 0.001)
}

func TestTelemetryDeliveries(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	require.NoError(t, repo.AppendTelemetryDelivery(ctx, TelemetryDelivery{SessionID: "a", Attempts: 1, Delivered: true}))
	require.NoError(t, repo.AppendTelemetryDelivery(ctx, TelemetryDelivery{SessionID: "b", Attempts: 3, ErrorMessage: "503"}))

	got, err := repo.TelemetryDeliveries(ctx, QueryOpts{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].SessionID)
	assert.False(t, got[0].Delivered)
	assert.Equal(t, "503", got[0].ErrorMessage)
	assert.True(t, got[1].Delivered)
}
