package telemetry

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/abhisek/learnloop/internal/backoff"
	"github.com/abhisek/learnloop/internal/logger"
	"github.com/abhisek/learnloop/internal/observer"
	"github.com/abhisek/learnloop/internal/store"
)

// Config tunes queueing and retry of observation uploads.
type Config struct {
	QueueSize   int            `yaml:"queue_size"`
	SendTimeout time.Duration  `yaml:"send_timeout"`
	Retry       backoff.Policy `yaml:"retry"`
}

// DefaultConfig returns the standard dispatcher settings.
func DefaultConfig() Config {
	return Config{
		QueueSize:   32,
		SendTimeout: 10 * time.Second,
		Retry: backoff.Policy{
			MaxAttempts: 4,
			InitialWait: 500 * time.Millisecond,
			MaxWait:     10 * time.Second,
			Multiplier:  2.0,
		},
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.QueueSize <= 0 {
		c.QueueSize = d.QueueSize
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = d.SendTimeout
	}
	c.Retry = c.Retry.WithDefaults(d.Retry)
	return c
}

// DeliveryLog records the outcome of every upload. store.EventRepo implements it.
type DeliveryLog interface {
	AppendTelemetryDelivery(ctx context.Context, d store.TelemetryDelivery) error
}

// Stats counts dispatcher outcomes since creation.
type Stats struct {
	Delivered int64 `json:"delivered"`
	Failed    int64 `json:"failed"`
	Dropped   int64 `json:"dropped"`
}

// Dispatcher uploads sealed observations in the background. It implements
// observer.Notifier: Notify never blocks and failures never reach the caller.
type Dispatcher struct {
	sink       Sink
	cfg        Config
	deliveries DeliveryLog
	log        *logger.Logger
	sleep      func(ctx context.Context, d time.Duration) error

	mu     sync.RWMutex
	closed bool
	queue  chan observer.SessionObservation
	done   chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	delivered atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithDeliveryLog records each upload outcome.
func WithDeliveryLog(l DeliveryLog) Option {
	return func(d *Dispatcher) { d.deliveries = l }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(d *Dispatcher) { d.log = l }
}

// WithSleep replaces the backoff wait.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(d *Dispatcher) { d.sleep = sleep }
}

// NewDispatcher starts a dispatcher delivering to sink.
func NewDispatcher(sink Sink, cfg Config, opts ...Option) *Dispatcher {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		sink:   sink,
		cfg:    cfg,
		sleep:  backoff.Sleep,
		queue:  make(chan observer.SessionObservation, cfg.QueueSize),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.log = logger.OrNop(d.log).With("component", "telemetry")
	go d.run()
	return d
}

// Notify queues obs for upload. When the queue is full or the dispatcher is
// closed the observation is dropped with a warning.
func (d *Dispatcher) Notify(obs observer.SessionObservation) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.dropped.Add(1)
		d.log.Warn("telemetry dispatcher closed, dropping observation", "session_id", obs.SessionID)
		return
	}
	select {
	case d.queue <- obs:
	default:
		d.dropped.Add(1)
		d.log.Warn("telemetry queue full, dropping observation", "session_id", obs.SessionID)
	}
}

// Stats returns the outcome counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Delivered: d.delivered.Load(),
		Failed:    d.failed.Load(),
		Dropped:   d.dropped.Load(),
	}
}

// Close stops accepting observations and waits for the queue to drain.
func (d *Dispatcher) Close() {
	_ = d.Shutdown(context.Background())
}

// Shutdown stops accepting observations and waits for the queue to drain
// until ctx is done, after which pending retries are abandoned.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-d.done
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for obs := range d.queue {
		d.deliver(obs)
	}
}

func (d *Dispatcher) deliver(obs observer.SessionObservation) {
	var (
		err      error
		attempts int
	)
	for attempt := range d.cfg.Retry.MaxAttempts {
		attempts = attempt + 1
		ctx, cancel := context.WithTimeout(d.ctx, d.cfg.SendTimeout)
		err = d.sink.Send(ctx, obs)
		cancel()
		if err == nil {
			break
		}
		if !retryable(err) || attempt == d.cfg.Retry.MaxAttempts-1 {
			break
		}
		d.log.Debug("telemetry upload failed, retrying", "session_id", obs.SessionID, "attempt", attempts, "error", err)
		if d.sleep(d.ctx, d.cfg.Retry.Delay(attempt)) != nil {
			break
		}
	}

	if err == nil {
		d.delivered.Add(1)
	} else {
		d.failed.Add(1)
		d.log.Warn("telemetry upload failed", "session_id", obs.SessionID, "attempts", attempts, "error", err)
	}
	d.record(obs.SessionID, attempts, err)
}

func (d *Dispatcher) record(sessionID string, attempts int, sendErr error) {
	if d.deliveries == nil {
		return
	}
	entry := store.TelemetryDelivery{
		SessionID: sessionID,
		Attempts:  attempts,
		Delivered: sendErr == nil,
	}
	if sendErr != nil {
		entry.ErrorMessage = sendErr.Error()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.deliveries.AppendTelemetryDelivery(ctx, entry); err != nil {
		d.log.Warn("record telemetry delivery", "session_id", sessionID, "error", err)
	}
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var st *ErrStatus
	if errors.As(err, &st) {
		return st.Retryable()
	}
	return true
}
