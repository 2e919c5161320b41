package engine

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/abhisek/learnloop/internal/assessment"
	"github.com/abhisek/learnloop/internal/feedback"
	"github.com/abhisek/learnloop/internal/logger"
	"github.com/abhisek/learnloop/internal/observer"
	"github.com/abhisek/learnloop/internal/profile"
	"github.com/abhisek/learnloop/internal/store"
	"github.com/abhisek/learnloop/internal/tempo"
)

// Learner bundles the per-learner components.
type Learner struct {
	ID       string
	Observer *observer.Observer
	Journal  *profile.Journal
	Tempo    *tempo.Preferences

	engine *Engine
	log    *logger.Logger
}

func (l *Learner) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("learner.id", l.ID))
	return l.engine.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// StartSession opens a puzzle session and returns its id.
func (l *Learner) StartSession(puzzleType, levelID string, world observer.World) string {
	return l.Observer.StartSession(puzzleType, levelID, world)
}

// RecordAction appends an action to the open session.
func (l *Learner) RecordAction(in observer.ActionInput) bool {
	return l.Observer.RecordAction(in)
}

// EndSession seals and persists the open session. It returns nil when no
// session is active.
func (l *Learner) EndSession(ctx context.Context, success bool) *observer.SessionObservation {
	ctx, span := l.startSpan(ctx, "session.end", attribute.Bool("session.success", success))
	defer span.End()

	obs := l.Observer.EndSession(ctx, success)
	if obs != nil {
		span.SetAttributes(
			attribute.String("session.id", obs.SessionID),
			attribute.Int("session.actions", len(obs.Actions)),
			attribute.Bool("session.smooth", obs.EmotionalIndicators.SmoothProgress),
		)
	}
	return obs
}

// Active returns the open session, if any.
func (l *Learner) Active() (observer.SessionObservation, bool) {
	return l.Observer.Active()
}

// Profile returns the stored learner profile.
func (l *Learner) Profile(ctx context.Context) (*profile.LearnerProfile, error) {
	return l.Journal.Profile(ctx)
}

// Sessions returns the stored history, newest first.
func (l *Learner) Sessions(ctx context.Context) ([]observer.SessionObservation, error) {
	return l.Journal.Sessions(ctx)
}

// Assess scores and stores one creative activity.
func (l *Learner) Assess(ctx context.Context, activityID string, perf assessment.PerformanceData, art assessment.ArtworkData, refl assessment.ReflectionData) (a assessment.ActivityAssessment, err error) {
	ctx, span := l.startSpan(ctx, "assessment.assess", attribute.String("activity.id", activityID))
	defer func() {
		if err == nil {
			span.SetAttributes(attribute.String("assessment.growth_level", string(a.GrowthLevel)))
		}
		endSpan(span, err)
	}()
	return l.engine.assessment.Assess(ctx, l.ID, activityID, perf, art, refl)
}

// Assessments returns the stored assessments.
func (l *Learner) Assessments(ctx context.Context) ([]assessment.ActivityAssessment, error) {
	return l.engine.assessment.Assessments(ctx, l.ID)
}

// SaveBonusPoints keeps the best bonus for an activity and reports whether
// the stored value changed.
func (l *Learner) SaveBonusPoints(ctx context.Context, activityID string, points int) (assessment.BonusPoints, bool, error) {
	return l.engine.assessment.SaveBonusPoints(ctx, l.ID, activityID, points)
}

// BonusPoints returns every stored bonus.
func (l *Learner) BonusPoints(ctx context.Context) ([]assessment.BonusPoints, error) {
	return l.engine.assessment.BonusPoints(ctx, l.ID)
}

// Badges evaluates the badge rules against the learner's assessments and
// session history and returns the newly unlocked badges.
func (l *Learner) Badges(ctx context.Context) (unlocked []assessment.Badge, err error) {
	ctx, span := l.startSpan(ctx, "assessment.badges")
	defer func() {
		span.SetAttributes(attribute.Int("badges.unlocked", len(unlocked)))
		endSpan(span, err)
	}()

	sessions, err := l.Journal.Sessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}
	unlocked, err = l.engine.assessment.EvaluateBadges(ctx, l.ID, sessions)
	if err != nil {
		return nil, err
	}
	return unlocked, nil
}

// EarnedBadges returns every badge earned so far.
func (l *Learner) EarnedBadges(ctx context.Context) ([]assessment.Badge, error) {
	return l.engine.assessment.Badges(ctx, l.ID)
}

// Reflect builds reflective feedback for a sealed session. It never fails;
// an unsealed session gets the generic struggle card.
func (l *Learner) Reflect(ctx context.Context, obs observer.SessionObservation, language string) feedback.Feedback {
	if language == "" {
		language = l.engine.cfg.Feedback.Language
	}
	req, err := feedback.RequestFromObservation(obs, language)
	if err != nil {
		l.log.Warn("reflect on unsealed session", "error", err.Error())
		req = feedback.Request{PuzzleType: obs.PuzzleType, Outcome: feedback.OutcomeStruggle, Language: language}
	}
	return l.engine.feedback.Reflect(ctx, req)
}

// TempoController builds a rhythm controller seeded from the stored
// preference. Hits are recorded as taps on the open session; every outcome
// is logged with the tempo state.
func (l *Learner) TempoController(ctx context.Context) *tempo.Controller {
	seed, err := l.Tempo.Load(ctx)
	if err != nil {
		l.log.Warn("tempo preference unavailable, using default", "error", err.Error())
	}
	cfg := l.engine.cfg
	return tempo.NewController(cfg.TempoConfig(), seed, cfg.BaseInterval(), tempoSink{obs: l.Observer, log: l.log.With("component", "tempo")})
}

// SaveTempo persists the multiplier as the seed of the next activity.
func (l *Learner) SaveTempo(ctx context.Context, multiplier float64) (float64, error) {
	return l.Tempo.Save(ctx, multiplier)
}

// Reset drops the open session and deletes every stored document.
func (l *Learner) Reset(ctx context.Context) error {
	l.Observer.Close()
	for _, key := range (store.Keys{Learner: l.ID}).All() {
		if err := l.engine.kv.Delete(ctx, key); err != nil {
			return fmt.Errorf("reset %s: %w", key, err)
		}
	}
	l.log.Info("learner reset")
	return nil
}

// tempoSink records hits as taps. A miss is an expired note, not a learner
// interaction, so it only reaches the log.
type tempoSink struct {
	obs *observer.Observer
	log *logger.Logger
}

func (s tempoSink) LogTempoAction(outcome tempo.Outcome, st tempo.State) {
	s.log.Debug("tempo outcome",
		"outcome", string(outcome),
		"multiplier", st.SpeedMultiplier,
		"consecutive_hits", st.ConsecutiveHits,
		"consecutive_misses", st.ConsecutiveMisses,
	)
	if outcome != tempo.OutcomeHit {
		return
	}
	s.obs.RecordAction(observer.ActionInput{
		Kind:    observer.ActionTap,
		Target:  "note-" + string(outcome),
		Correct: observer.Bool(true),
	})
}
