package feedback

import (
	"context"
	"time"

	"github.com/abhisek/learnloop/internal/logger"
)

// Service tries each generator in order and falls back to the static
// templates. Reflect always returns a complete card.
type Service struct {
	generators []Generator
	fallback   Fallback
	timeout    time.Duration
	log        *logger.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithGenerator appends a generator. Generators are tried in the order added.
func WithGenerator(g Generator) Option {
	return func(s *Service) {
		if g != nil {
			s.generators = append(s.generators, g)
		}
	}
}

// WithTimeout bounds each generator call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// WithLogger sets the service logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Service) { s.log = logger.OrNop(l) }
}

// NewService creates a feedback service. With no generators it only serves
// the static templates.
func NewService(opts ...Option) *Service {
	s := &Service{
		timeout: 15 * time.Second,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sources returns the generator names in the order they are tried.
func (s *Service) Sources() []string {
	names := make([]string, 0, len(s.generators)+1)
	for _, g := range s.generators {
		names = append(names, g.Name())
	}
	return append(names, s.fallback.Name())
}

// Reflect returns feedback for req. Generator failures are logged and never
// surface to the caller.
func (s *Service) Reflect(ctx context.Context, req Request) Feedback {
	if !req.Outcome.Valid() {
		req.Outcome = OutcomeStruggle
	}
	req.Language = normalizeLanguage(req.Language)

	for _, g := range s.generators {
		if ctx.Err() != nil {
			break
		}
		fb, err := s.try(ctx, g, req)
		if err == nil {
			return fb
		}
		s.log.Warn("feedback generator failed",
			"source", g.Name(),
			"puzzle_type", req.PuzzleType,
			"outcome", string(req.Outcome),
			"error", err.Error(),
		)
	}
	return s.fallback.For(req)
}

func (s *Service) try(ctx context.Context, g Generator, req Request) (Feedback, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return g.Generate(ctx, req)
}
