package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/abhisek/learnloop/internal/observer"
	"github.com/abhisek/learnloop/internal/store"
)

func newTestJournal(kv store.KV, opts ...JournalOption) *Journal {
	opts = append([]JournalOption{WithNow(func() time.Time { return t0 })}, opts...)
	return NewJournal(kv, store.Keys{Learner: "kid"}, NewAggregator(DefaultThresholds()), opts...)
}

func TestJournalEmpty(t *testing.T) {
	j := newTestJournal(store.NewMemoryKV())
	h, err := j.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if h.Profile != nil {
		t.Error("Profile should be nil before any session")
	}
	if h.Sessions == nil || len(h.Sessions) != 0 {
		t.Errorf("Sessions = %v, want empty slice", h.Sessions)
	}
}

func TestJournalRecordNewestFirst(t *testing.T) {
	j := newTestJournal(store.NewMemoryKV())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		s := session("p", time.Duration(i+1)*time.Second)
		s.SessionID = fmt.Sprintf("s%d", i)
		if err := j.Record(ctx, s); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	sessions, err := j.Sessions(ctx)
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(sessions) != 3 || sessions[0].SessionID != "s2" || sessions[2].SessionID != "s0" {
		t.Errorf("sessions not newest first: %v", ids(sessions))
	}

	p, err := j.Profile(ctx)
	if err != nil || p == nil {
		t.Fatalf("Profile = %v, %v", p, err)
	}
	if p.SessionCount != 3 {
		t.Errorf("SessionCount = %d, want 3", p.SessionCount)
	}
}

func TestJournalCap(t *testing.T) {
	j := newTestJournal(store.NewMemoryKV(), WithHistoryCap(5))
	ctx := context.Background()
	for i := 0; i < 8; i++ {
		s := session("p", time.Second)
		s.SessionID = fmt.Sprintf("s%d", i)
		if err := j.Record(ctx, s); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	h, _ := j.Load(ctx)
	if len(h.Sessions) != 5 {
		t.Fatalf("len(Sessions) = %d, want 5", len(h.Sessions))
	}
	if h.Sessions[0].SessionID != "s7" || h.Sessions[4].SessionID != "s3" {
		t.Errorf("kept %v, want s7..s3", ids(h.Sessions))
	}
	if h.Profile.SessionCount != 5 {
		t.Errorf("profile covers %d sessions, want 5", h.Profile.SessionCount)
	}
}

func TestJournalRejectsUnsealed(t *testing.T) {
	j := newTestJournal(store.NewMemoryKV())
	s := session("p", time.Second)
	s.EndTime = nil
	if err := j.Record(context.Background(), s); err == nil {
		t.Error("Record of an unsealed session should fail")
	}
}

func TestJournalCorruptDocument(t *testing.T) {
	kv := store.NewMemoryKV()
	ctx := context.Background()
	kv.Set(ctx, store.Keys{Learner: "kid"}.Observations(), json.RawMessage(`{"sessions": [oops`))

	j := newTestJournal(kv)
	h, err := j.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(h.Sessions) != 0 || h.Profile != nil {
		t.Errorf("corrupt document should read as empty, got %+v", h)
	}

	if err := j.Record(ctx, session("p", time.Second)); err != nil {
		t.Fatalf("Record over corrupt document: %v", err)
	}
	h, _ = j.Load(ctx)
	if len(h.Sessions) != 1 {
		t.Errorf("len(Sessions) = %d, want 1", len(h.Sessions))
	}
}

func TestJournalReset(t *testing.T) {
	j := newTestJournal(store.NewMemoryKV())
	ctx := context.Background()
	j.Record(ctx, session("p", time.Second))
	if err := j.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	p, _ := j.Profile(ctx)
	if p != nil {
		t.Error("Profile should be nil after reset")
	}
}

// Observer + journal end to end: the rapid-tap-then-pause session is not
// bucketed as pattern recognition.
func TestObserverFeedsJournal(t *testing.T) {
	j := newTestJournal(store.NewMemoryKV())
	clock := &stepClock{now: t0}
	o := observer.New(observer.DefaultConfig(), observer.WithClock(clock), observer.WithRecorder(j))
	ctx := context.Background()

	o.StartSession("patterns", "3", observer.WorldMath)
	for i := 0; i < 3; i++ {
		o.RecordAction(observer.ActionInput{Kind: observer.ActionTap})
		clock.now = clock.now.Add(200 * time.Millisecond)
	}
	clock.now = clock.now.Add(12 * time.Second)
	o.RecordAction(observer.ActionInput{Kind: observer.ActionTap})
	obs := o.EndSession(ctx, true)
	o.Close()

	if obs.EmotionalIndicators.SmoothProgress {
		t.Fatal("SmoothProgress = true, want false")
	}
	p, err := j.Profile(ctx)
	if err != nil || p == nil {
		t.Fatalf("Profile = %v, %v", p, err)
	}
	if p.ApproachCounts[ApproachPatternRecognition] != 0 {
		t.Errorf("session bucketed as pattern-recognition: %v", p.ApproachCounts)
	}
	if p.PreferredApproach == ApproachPatternRecognition {
		t.Error("PreferredApproach should not be pattern-recognition")
	}
}

// stepClock is a settable clock whose timers never fire.
type stepClock struct {
	now time.Time
}

type noopTimer struct{}

func (noopTimer) Stop() bool { return true }

func (c *stepClock) Now() time.Time { return c.now }

func (c *stepClock) AfterFunc(time.Duration, func()) observer.Timer { return noopTimer{} }

func ids(sessions []observer.SessionObservation) []string {
	out := make([]string, len(sessions))
	for i, s := range sessions {
		out[i] = s.SessionID
	}
	return out
}
