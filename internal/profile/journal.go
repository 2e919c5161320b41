package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/abhisek/learnloop/internal/logger"
	"github.com/abhisek/learnloop/internal/observer"
	"github.com/abhisek/learnloop/internal/store"
)

// DefaultHistoryCap is how many sealed sessions are retained per learner.
const DefaultHistoryCap = 100

// History is the persisted observations document: sessions newest first
// plus the profile derived from them.
type History struct {
	Sessions []observer.SessionObservation `json:"sessions"`
	Profile  *LearnerProfile               `json:"profile"`
}

// Journal keeps one learner's session history and profile in a KV store.
// It implements observer.Recorder.
type Journal struct {
	kv  store.KV
	key string
	agg *Aggregator
	cap int
	now func() time.Time
	log *logger.Logger
}

// JournalOption configures a Journal.
type JournalOption func(*Journal)

// WithHistoryCap overrides DefaultHistoryCap.
func WithHistoryCap(n int) JournalOption {
	return func(j *Journal) {
		if n > 0 {
			j.cap = n
		}
	}
}

// WithNow replaces the time source used for LastUpdated.
func WithNow(now func() time.Time) JournalOption {
	return func(j *Journal) { j.now = now }
}

// WithJournalLogger sets the logger.
func WithJournalLogger(l *logger.Logger) JournalOption {
	return func(j *Journal) { j.log = l }
}

// NewJournal creates a Journal for the learner identified by keys.
func NewJournal(kv store.KV, keys store.Keys, agg *Aggregator, opts ...JournalOption) *Journal {
	j := &Journal{
		kv:  kv,
		key: keys.Observations(),
		agg: agg,
		cap: DefaultHistoryCap,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	j.log = logger.OrNop(j.log).With("component", "journal")
	return j
}

// Record prepends a sealed session, trims the history and recomputes the profile
// in one atomic update.
func (j *Journal) Record(ctx context.Context, obs observer.SessionObservation) error {
	if !obs.Sealed() {
		return fmt.Errorf("session %s is not sealed", obs.SessionID)
	}
	return j.kv.Update(ctx, j.key, func(current json.RawMessage) (json.RawMessage, error) {
		h := j.decode(current)
		sessions := make([]observer.SessionObservation, 0, len(h.Sessions)+1)
		sessions = append(sessions, obs)
		sessions = append(sessions, h.Sessions...)
		if len(sessions) > j.cap {
			sessions = sessions[:j.cap]
		}
		h.Sessions = sessions
		h.Profile = j.agg.UpdateProfile(sessions, j.now())
		return json.Marshal(h)
	})
}

// Load returns the stored history. Missing or corrupt documents read as empty.
func (j *Journal) Load(ctx context.Context) (History, error) {
	raw, err := j.kv.Get(ctx, j.key)
	if err != nil {
		return History{Sessions: []observer.SessionObservation{}}, fmt.Errorf("load history: %w", err)
	}
	return j.decode(raw), nil
}

// Profile returns the stored profile, or nil before the first sealed session.
func (j *Journal) Profile(ctx context.Context) (*LearnerProfile, error) {
	h, err := j.Load(ctx)
	if err != nil {
		return nil, err
	}
	return h.Profile, nil
}

// Sessions returns the stored sessions, newest first.
func (j *Journal) Sessions(ctx context.Context) ([]observer.SessionObservation, error) {
	h, err := j.Load(ctx)
	return h.Sessions, err
}

// Reset deletes the history and profile.
func (j *Journal) Reset(ctx context.Context) error {
	return j.kv.Delete(ctx, j.key)
}

func (j *Journal) decode(raw json.RawMessage) History {
	h := History{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &h); err != nil {
			j.log.Warn("corrupt history document, starting empty", "key", j.key, "error", err)
			h = History{}
		}
	}
	if h.Sessions == nil {
		h.Sessions = []observer.SessionObservation{}
	}
	return h
}
