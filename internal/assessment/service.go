package assessment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/abhisek/learnloop/internal/logger"
	"github.com/abhisek/learnloop/internal/observer"
	"github.com/abhisek/learnloop/internal/store"
)

// Service scores activities and keeps each learner's progress document:
// assessments, bonus points and unlocked badges.
type Service struct {
	kv         store.KV
	thresholds Thresholds
	rules      []BadgeRule
	now        func() time.Time
	log        *logger.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithThresholds overrides the rubric thresholds.
func WithThresholds(t Thresholds) Option {
	return func(s *Service) { s.thresholds = t }
}

// WithBadgeRules replaces the badge catalog.
func WithBadgeRules(rules []BadgeRule) Option {
	return func(s *Service) { s.rules = rules }
}

// WithNow replaces the time source.
func WithNow(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Service) { s.log = l }
}

// NewService creates an assessment service persisting through kv.
func NewService(kv store.KV, opts ...Option) *Service {
	s := &Service{
		kv:         kv,
		thresholds: DefaultThresholds(),
		rules:      DefaultBadgeRules(DefaultBadgeThresholds()),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logger.OrNop(s.log).With("component", "assessment")
	return s
}

// Thresholds returns the rubric thresholds in use.
func (s *Service) Thresholds() Thresholds {
	return s.thresholds
}

// Assess scores an activity, derives its growth level and saves the result.
func (s *Service) Assess(ctx context.Context, studentID, activityID string, perf PerformanceData, art ArtworkData, refl ReflectionData) (ActivityAssessment, error) {
	scores := s.thresholds.Score(perf, art, refl)
	a := ActivityAssessment{
		StudentID:   studentID,
		ActivityID:  activityID,
		Performance: perf,
		Artwork:     art,
		Reflection:  refl,
		Scores:      scores,
		GrowthLevel: s.thresholds.GrowthLevel(scores),
		AssessedAt:  s.now().UTC(),
	}
	if err := s.SaveAssessment(ctx, a); err != nil {
		return a, err
	}
	return a, nil
}

// SaveAssessment stores a, replacing any earlier assessment of the same activity.
func (s *Service) SaveAssessment(ctx context.Context, a ActivityAssessment) error {
	if err := validateIDs(a.StudentID, a.ActivityID); err != nil {
		return err
	}
	if a.AssessedAt.IsZero() {
		a.AssessedAt = s.now().UTC()
	}
	err := s.update(ctx, a.StudentID, func(p *Progress) bool {
		for i := range p.Assessments {
			if p.Assessments[i].ActivityID == a.ActivityID {
				p.Assessments[i] = a
				return true
			}
		}
		p.Assessments = append(p.Assessments, a)
		return true
	})
	if err != nil {
		return fmt.Errorf("save assessment: %w", err)
	}
	return nil
}

// Assessments returns every stored assessment for the student.
func (s *Service) Assessments(ctx context.Context, studentID string) ([]ActivityAssessment, error) {
	p, err := s.Progress(ctx, studentID)
	return p.Assessments, err
}

// SaveBonusPoints records points for an activity when they beat the stored
// best. It returns the record now held and whether it changed.
func (s *Service) SaveBonusPoints(ctx context.Context, studentID, activityID string, points int) (BonusPoints, bool, error) {
	if err := validateIDs(studentID, activityID); err != nil {
		return BonusPoints{}, false, err
	}
	var (
		held    BonusPoints
		updated bool
	)
	err := s.update(ctx, studentID, func(p *Progress) bool {
		updated = false
		entry := BonusPoints{ActivityID: activityID, Points: points, EarnedAt: s.now().UTC()}
		for i := range p.BonusPoints {
			if p.BonusPoints[i].ActivityID != activityID {
				continue
			}
			if points <= p.BonusPoints[i].Points {
				held = p.BonusPoints[i]
				return false
			}
			p.BonusPoints[i] = entry
			held, updated = entry, true
			return true
		}
		p.BonusPoints = append(p.BonusPoints, entry)
		held, updated = entry, true
		return true
	})
	if err != nil {
		return BonusPoints{}, false, fmt.Errorf("save bonus points: %w", err)
	}
	return held, updated, nil
}

// BonusPoints returns the best score recorded per activity.
func (s *Service) BonusPoints(ctx context.Context, studentID string) ([]BonusPoints, error) {
	p, err := s.Progress(ctx, studentID)
	return p.BonusPoints, err
}

// EvaluateBadges checks every badge rule against the stored assessments and
// the given sessions, and returns only the badges unlocked by this call.
// The check and the award happen in one atomic update of the progress document.
func (s *Service) EvaluateBadges(ctx context.Context, studentID string, sessions []observer.SessionObservation) ([]Badge, error) {
	if strings.TrimSpace(studentID) == "" {
		return nil, fmt.Errorf("student id is required")
	}
	var unlocked []Badge
	err := s.update(ctx, studentID, func(p *Progress) bool {
		unlocked = unlocked[:0]
		ev := Evidence{Assessments: p.Assessments, Sessions: sessions}
		now := s.now().UTC()
		for _, rule := range s.rules {
			if p.hasBadge(rule.Type) || !rule.Earned(ev) {
				continue
			}
			b := Badge{Type: rule.Type, Reason: rule.Reason, EarnedAt: now}
			p.Badges = append(p.Badges, b)
			unlocked = append(unlocked, b)
		}
		return len(unlocked) > 0
	})
	if err != nil {
		return nil, fmt.Errorf("evaluate badges: %w", err)
	}
	for _, b := range unlocked {
		s.log.Info("badge unlocked", "learner", studentID, "badge", string(b.Type))
	}
	return unlocked, nil
}

// Badges returns the student's unlocked badges in award order.
func (s *Service) Badges(ctx context.Context, studentID string) ([]Badge, error) {
	p, err := s.Progress(ctx, studentID)
	return p.Badges, err
}

// Progress returns the whole progress document. Missing or corrupt documents
// read as empty.
func (s *Service) Progress(ctx context.Context, studentID string) (Progress, error) {
	key := store.Keys{Learner: studentID}.Progress()
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		p := Progress{}
		p.normalize()
		return p, fmt.Errorf("load progress: %w", err)
	}
	return s.decode(key, raw), nil
}

// Reset deletes the student's progress document.
func (s *Service) Reset(ctx context.Context, studentID string) error {
	return s.kv.Delete(ctx, store.Keys{Learner: studentID}.Progress())
}

// update applies fn to the decoded progress document inside one KV update.
// fn reports whether the document changed; unchanged documents are not written.
func (s *Service) update(ctx context.Context, studentID string, fn func(*Progress) bool) error {
	key := store.Keys{Learner: studentID}.Progress()
	return s.kv.Update(ctx, key, func(current json.RawMessage) (json.RawMessage, error) {
		p := s.decode(key, current)
		if !fn(&p) {
			return nil, nil
		}
		return json.Marshal(p)
	})
}

func (s *Service) decode(key string, raw json.RawMessage) Progress {
	var p Progress
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			s.log.Warn("corrupt progress document, starting empty", "key", key, "error", err)
			p = Progress{}
		}
	}
	p.normalize()
	return p
}

func validateIDs(studentID, activityID string) error {
	if strings.TrimSpace(studentID) == "" {
		return fmt.Errorf("student id is required")
	}
	if strings.TrimSpace(activityID) == "" {
		return fmt.Errorf("activity id is required")
	}
	return nil
}
