package tempo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/abhisek/learnloop/internal/store"
)

// Preference is the persisted starting multiplier for a learner.
type Preference struct {
	SpeedMultiplier float64   `json:"speedMultiplier"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Preferences stores a learner's tempo seed in a KV store.
type Preferences struct {
	kv  store.KV
	key string
	cfg Config
}

// NewPreferences creates a preference store for the learner identified by keys.
func NewPreferences(kv store.KV, keys store.Keys, cfg Config) *Preferences {
	return &Preferences{kv: kv, key: keys.Tempo(), cfg: cfg.withDefaults()}
}

// Load returns the stored seed multiplier, clamped to range. Missing or
// corrupt documents yield the default multiplier.
func (p *Preferences) Load(ctx context.Context) (float64, error) {
	raw, err := p.kv.Get(ctx, p.key)
	if err != nil {
		return DefaultMultiplier, fmt.Errorf("load tempo preference: %w", err)
	}
	var pref Preference
	if len(raw) == 0 || json.Unmarshal(raw, &pref) != nil {
		return DefaultMultiplier, nil
	}
	return p.cfg.Clamp(pref.SpeedMultiplier), nil
}

// Save stores m, clamped to range, and returns the stored value.
func (p *Preferences) Save(ctx context.Context, m float64) (float64, error) {
	m = p.cfg.Clamp(m)
	raw, err := json.Marshal(Preference{SpeedMultiplier: m, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return 0, err
	}
	if err := p.kv.Set(ctx, p.key, raw); err != nil {
		return 0, fmt.Errorf("save tempo preference: %w", err)
	}
	return m, nil
}
