// Package engine wires the observer, profile journal, tempo preferences,
// assessment and feedback services into one per-learner façade shared by
// the HTTP server and the terminal activity.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/abhisek/learnloop/internal/assessment"
	"github.com/abhisek/learnloop/internal/config"
	"github.com/abhisek/learnloop/internal/feedback"
	"github.com/abhisek/learnloop/internal/logger"
	"github.com/abhisek/learnloop/internal/observer"
	"github.com/abhisek/learnloop/internal/profile"
	"github.com/abhisek/learnloop/internal/store"
	"github.com/abhisek/learnloop/internal/tempo"
	"github.com/abhisek/learnloop/internal/tracing"
)

// ErrClosed is returned once the engine has been closed.
var ErrClosed = errors.New("engine closed")

// ErrInvalidLearner is returned for empty or oversized learner ids.
var ErrInvalidLearner = errors.New("invalid learner id")

const maxLearnerIDLen = 128

// Telemetry receives sealed sessions and is drained on Close.
// telemetry.Dispatcher implements it.
type Telemetry interface {
	observer.Notifier
	Shutdown(ctx context.Context) error
}

// Option configures an Engine.
type Option func(*Engine)

// WithTelemetry forwards sealed sessions to t.
func WithTelemetry(t Telemetry) Option {
	return func(e *Engine) { e.telemetry = t }
}

// WithFeedback sets the reflective feedback service.
func WithFeedback(s *feedback.Service) Option {
	return func(e *Engine) { e.feedback = s }
}

// WithClock sets the clock used by every learner's observer.
func WithClock(c observer.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithLogger sets the engine logger.
func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// Engine owns shared services and a registry of learners.
type Engine struct {
	cfg        config.Config
	kv         store.KV
	telemetry  Telemetry
	feedback   *feedback.Service
	assessment *assessment.Service
	aggregator *profile.Aggregator
	clock      observer.Clock
	tracer     trace.Tracer
	log        *logger.Logger

	mu       sync.Mutex
	learners map[string]*Learner
	closed   bool
}

// New creates an engine over kv.
func New(cfg config.Config, kv store.KV, opts ...Option) *Engine {
	e := &Engine{
		cfg:        cfg,
		kv:         kv,
		aggregator: profile.NewAggregator(cfg.ProfileThresholds()),
		clock:      observer.SystemClock(),
		tracer:     tracing.Tracer("github.com/abhisek/learnloop/internal/engine"),
		learners:   make(map[string]*Learner),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = logger.OrNop(e.log).With("component", "engine")
	if e.feedback == nil {
		e.feedback = feedback.NewService(feedback.WithLogger(e.log))
	}
	e.assessment = assessment.NewService(kv,
		assessment.WithThresholds(cfg.AssessmentThresholds()),
		assessment.WithBadgeRules(assessment.DefaultBadgeRules(cfg.BadgeThresholds())),
		assessment.WithLogger(e.log),
	)
	return e
}

// Config returns the engine configuration.
func (e *Engine) Config() config.Config {
	return e.cfg
}

// Assessment returns the shared assessment service.
func (e *Engine) Assessment() *assessment.Service {
	return e.assessment
}

// Feedback returns the shared feedback service.
func (e *Engine) Feedback() *feedback.Service {
	return e.feedback
}

// Learner returns the bundle for id, creating it on first use.
func (e *Engine) Learner(id string) (*Learner, error) {
	id = strings.TrimSpace(id)
	if id == "" || len(id) > maxLearnerIDLen {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLearner, id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}
	if l, ok := e.learners[id]; ok {
		return l, nil
	}
	l := e.newLearner(id)
	e.learners[id] = l
	return l, nil
}

// Learners returns the ids with a live bundle.
func (e *Engine) Learners() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, 0, len(e.learners))
	for id := range e.learners {
		ids = append(ids, id)
	}
	return ids
}

func (e *Engine) newLearner(id string) *Learner {
	keys := store.Keys{Learner: id}
	log := e.log.With("learner", id)

	journal := profile.NewJournal(e.kv, keys, e.aggregator,
		profile.WithHistoryCap(e.cfg.Profile.HistoryCap),
		profile.WithJournalLogger(log),
	)
	opts := []observer.Option{
		observer.WithClock(e.clock),
		observer.WithRecorder(journal),
		observer.WithLogger(log),
	}
	if e.telemetry != nil {
		opts = append(opts, observer.WithNotifier(e.telemetry))
	}

	return &Learner{
		ID:       id,
		Observer: observer.New(e.cfg.ObserverConfig(), opts...),
		Journal:  journal,
		Tempo:    tempo.NewPreferences(e.kv, keys, e.cfg.TempoConfig()),
		engine:   e,
		log:      log,
	}
}

// Close drops open sessions and drains telemetry within ctx.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	learners := e.learners
	e.learners = nil
	e.mu.Unlock()

	for _, l := range learners {
		l.Observer.Close()
	}
	if e.telemetry != nil {
		if err := e.telemetry.Shutdown(ctx); err != nil {
			return fmt.Errorf("drain telemetry: %w", err)
		}
	}
	return nil
}

// shutdownTimeout bounds Close when the caller has no deadline of its own.
const shutdownTimeout = 10 * time.Second

// CloseWithTimeout closes the engine, waiting at most the default drain time.
func (e *Engine) CloseWithTimeout() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Close(ctx)
}
