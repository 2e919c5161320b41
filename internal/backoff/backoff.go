// Package backoff computes jittered exponential retry delays.
package backoff

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// Policy describes how often and how patiently an operation is retried.
type Policy struct {
	MaxAttempts int           `yaml:"max_attempts"`
	InitialWait time.Duration `yaml:"initial_wait"`
	MaxWait     time.Duration `yaml:"max_wait"`
	Multiplier  float64       `yaml:"multiplier"`
}

// WithDefaults fills unset fields from d.
func (p Policy) WithDefaults(d Policy) Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.InitialWait <= 0 {
		p.InitialWait = d.InitialWait
	}
	if p.MaxWait <= 0 {
		p.MaxWait = d.MaxWait
	}
	if p.Multiplier < 1 {
		p.Multiplier = d.Multiplier
	}
	return p
}

// Delay returns the wait before retrying after the given zero-based attempt,
// capped at MaxWait with ±20% jitter.
func (p Policy) Delay(attempt int) time.Duration {
	wait := float64(p.InitialWait) * math.Pow(p.Multiplier, float64(attempt))
	if wait > float64(p.MaxWait) {
		wait = float64(p.MaxWait)
	}
	wait += wait * 0.2 * (2*rand.Float64() - 1)
	if wait < 0 {
		wait = 0
	}
	return time.Duration(wait)
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
