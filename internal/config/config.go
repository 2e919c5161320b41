// Package config loads learnloop settings: defaults, then an optional YAML
// file, then LEARNLOOP_* environment overrides. Every heuristic threshold
// lives here and is handed to component constructors.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/abhisek/learnloop/internal/assessment"
	"github.com/abhisek/learnloop/internal/llm"
	"github.com/abhisek/learnloop/internal/observer"
	"github.com/abhisek/learnloop/internal/profile"
	"github.com/abhisek/learnloop/internal/store"
	"github.com/abhisek/learnloop/internal/telemetry"
	"github.com/abhisek/learnloop/internal/tempo"
)

// KV backends.
const (
	BackendSQL    = "sql"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type Config struct {
	LogMode string `yaml:"log_mode"`

	Store      StoreConfig      `yaml:"store"`
	Server     ServerConfig     `yaml:"server"`
	Auth       AuthConfig       `yaml:"auth"`
	Observer   ObserverConfig   `yaml:"observer"`
	Profile    ProfileConfig    `yaml:"profile"`
	Tempo      TempoConfig      `yaml:"tempo"`
	Assessment AssessmentConfig `yaml:"assessment"`
	Badges     BadgeConfig      `yaml:"badges"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Feedback   FeedbackConfig   `yaml:"feedback"`
	LLM        llm.Config       `yaml:"llm"`
}

type StoreConfig struct {
	// Backend selects where learner documents live: sql, redis or memory.
	// The event log always uses the SQL database.
	Backend string      `yaml:"backend"`
	Driver  string      `yaml:"driver"`
	DSN     string      `yaml:"dsn"` // empty means DefaultDBPath for sqlite
	Redis   RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type ServerConfig struct {
	Addr              string        `yaml:"addr"`
	CORSOrigins       []string      `yaml:"cors_origins"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	MaxRequestBytes   int64         `yaml:"max_request_bytes"`
}

type AuthConfig struct {
	// Secret signs learner tokens. Empty disables token auth and the
	// learner comes from the X-Learner-ID header.
	Secret         string        `yaml:"secret"`
	TokenTTL       time.Duration `yaml:"token_ttl"`
	DefaultLearner string        `yaml:"default_learner"`
}

type ObserverConfig struct {
	PauseThreshold      time.Duration `yaml:"pause_threshold"`
	RapidTapWindow      int           `yaml:"rapid_tap_window"`
	RapidTapMinActions  int           `yaml:"rapid_tap_min_actions"`
	RapidTapMaxAverage  time.Duration `yaml:"rapid_tap_max_average"`
	ManyRetriesAttempts int           `yaml:"many_retries_attempts"`
}

type ProfileConfig struct {
	HistoryCap                int           `yaml:"history_cap"`
	ProblemSolvingSuccessRate float64       `yaml:"problem_solving_success_rate"`
	IndependenceHintRate      float64       `yaml:"independence_hint_rate"`
	AccuracyRetryTendency     float64       `yaml:"accuracy_retry_tendency"`
	QuickThinkingAverage      time.Duration `yaml:"quick_thinking_average"`
	TryBeforeHintsRate        float64       `yaml:"try_before_hints_rate"`
	CarefulReadingRetries     float64       `yaml:"careful_reading_retries"`
	PuzzleStrengthFirstTries  int           `yaml:"puzzle_strength_first_tries"`
}

type TempoConfig struct {
	HitsToSpeedUp    int     `yaml:"hits_to_speed_up"`
	MissesToSlowDown int     `yaml:"misses_to_slow_down"`
	MinMultiplier    float64 `yaml:"min_multiplier"`
	MaxMultiplier    float64 `yaml:"max_multiplier"`
	SpeedUpFactor    float64 `yaml:"speed_up_factor"`
	SlowDownFactor   float64 `yaml:"slow_down_factor"`
	BPM              float64 `yaml:"bpm"`
	BeatsPerMeasure  int     `yaml:"beats_per_measure"`
}

type AssessmentConfig struct {
	AccuracyExemplary  float64 `yaml:"accuracy_exemplary"`
	AccuracyProficient float64 `yaml:"accuracy_proficient"`
	AccuracyDeveloping float64 `yaml:"accuracy_developing"`
	ElementsExemplary  int     `yaml:"elements_exemplary"`
	ElementsProficient int     `yaml:"elements_proficient"`
	ElementsDeveloping int     `yaml:"elements_developing"`
	RichTextChars      int     `yaml:"rich_text_chars"`
	ShortTextChars     int     `yaml:"short_text_chars"`
	EmojiCount         int     `yaml:"emoji_count"`
	AdvancedMean       float64 `yaml:"advanced_mean"`
	ProficientMean     float64 `yaml:"proficient_mean"`
	DevelopingMean     float64 `yaml:"developing_mean"`
}

type BadgeConfig struct {
	RhythmMasterAccuracy      float64 `yaml:"rhythm_master_accuracy"`
	ArtExplorerElements       int     `yaml:"art_explorer_elements"`
	DeepThinkerChars          int     `yaml:"deep_thinker_chars"`
	IndependentSolverSessions int     `yaml:"independent_solver_sessions"`
}

type TelemetryConfig struct {
	// Endpoint is the base URL of the observation service. Empty disables
	// upload.
	Endpoint         string `yaml:"endpoint"`
	Token            string `yaml:"token"`
	telemetry.Config `yaml:",inline"`
}

type FeedbackConfig struct {
	// Endpoint is the base URL of the reflective-feedback service.
	Endpoint string        `yaml:"endpoint"`
	Token    string        `yaml:"token"`
	Timeout  time.Duration `yaml:"timeout"`
	Language string        `yaml:"language"`
}

// Default returns the built-in configuration.
func Default() Config {
	oc := observer.DefaultConfig()
	pt := profile.DefaultThresholds()
	tc := tempo.DefaultConfig()
	at := assessment.DefaultThresholds()
	bt := assessment.DefaultBadgeThresholds()

	return Config{
		LogMode: "production",
		Store: StoreConfig{
			Backend: BackendSQL,
			Driver:  store.DriverSQLite,
			Redis:   RedisConfig{Addr: "localhost:6379", Prefix: "learnloop:"},
		},
		Server: ServerConfig{
			Addr:              ":8080",
			CORSOrigins:       []string{"http://localhost:3000"},
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   15 * time.Second,
			MaxRequestBytes:   1 << 20,
		},
		Auth: AuthConfig{TokenTTL: 24 * time.Hour, DefaultLearner: "local"},
		Observer: ObserverConfig{
			PauseThreshold:      oc.PauseThreshold,
			RapidTapWindow:      oc.RapidTapWindow,
			RapidTapMinActions:  oc.RapidTapMinActions,
			RapidTapMaxAverage:  oc.RapidTapMaxAverage,
			ManyRetriesAttempts: oc.ManyRetriesAttempts,
		},
		Profile: ProfileConfig{
			HistoryCap:                profile.DefaultHistoryCap,
			ProblemSolvingSuccessRate: pt.ProblemSolvingSuccessRate,
			IndependenceHintRate:      pt.IndependenceHintRate,
			AccuracyRetryTendency:     pt.AccuracyRetryTendency,
			QuickThinkingAverage:      pt.QuickThinkingAverage,
			TryBeforeHintsRate:        pt.TryBeforeHintsRate,
			CarefulReadingRetries:     pt.CarefulReadingRetries,
			PuzzleStrengthFirstTries:  pt.PuzzleStrengthFirstTries,
		},
		Tempo: TempoConfig{
			HitsToSpeedUp:    tc.HitsToSpeedUp,
			MissesToSlowDown: tc.MissesToSlowDown,
			MinMultiplier:    tc.MinMultiplier,
			MaxMultiplier:    tc.MaxMultiplier,
			SpeedUpFactor:    tc.SpeedUpFactor,
			SlowDownFactor:   tc.SlowDownFactor,
			BPM:              90,
			BeatsPerMeasure:  4,
		},
		Assessment: AssessmentConfig{
			AccuracyExemplary:  at.Accuracy[0],
			AccuracyProficient: at.Accuracy[1],
			AccuracyDeveloping: at.Accuracy[2],
			ElementsExemplary:  at.Elements[0],
			ElementsProficient: at.Elements[1],
			ElementsDeveloping: at.Elements[2],
			RichTextChars:      at.RichTextChars,
			ShortTextChars:     at.ShortTextChars,
			EmojiCount:         at.EmojiCount,
			AdvancedMean:       at.AdvancedMean,
			ProficientMean:     at.ProficientMean,
			DevelopingMean:     at.DevelopingMean,
		},
		Badges: BadgeConfig{
			RhythmMasterAccuracy:      bt.RhythmMasterAccuracy,
			ArtExplorerElements:       bt.ArtExplorerElements,
			DeepThinkerChars:          bt.DeepThinkerChars,
			IndependentSolverSessions: bt.IndependentSolverSessions,
		},
		Telemetry: TelemetryConfig{Config: telemetry.DefaultConfig()},
		Feedback:  FeedbackConfig{Timeout: 15 * time.Second, Language: "en"},
		LLM:       llm.DefaultConfig(),
	}
}

// Load builds the configuration. path may be empty, in which case
// LEARNLOOP_CONFIG is consulted; with neither, only defaults and the
// environment apply.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = strings.TrimSpace(os.Getenv("LEARNLOOP_CONFIG"))
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decode(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg = cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decode overlays YAML onto cfg. Unknown keys are rejected so typos
// surface instead of silently keeping a default.
func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overlays LEARNLOOP_* environment variables.
func (c Config) ApplyEnv() Config {
	c.LogMode = envOr("LEARNLOOP_LOG_MODE", c.LogMode)

	c.Store.Backend = envOr("LEARNLOOP_KV_BACKEND", c.Store.Backend)
	c.Store.Driver = envOr("LEARNLOOP_DB_DRIVER", c.Store.Driver)
	c.Store.DSN = envOr("LEARNLOOP_DB_DSN", c.Store.DSN)
	c.Store.Redis.Addr = envOr("LEARNLOOP_REDIS_ADDR", c.Store.Redis.Addr)
	c.Store.Redis.Password = envOr("LEARNLOOP_REDIS_PASSWORD", c.Store.Redis.Password)

	c.Server.Addr = envOr("LEARNLOOP_HTTP_ADDR", c.Server.Addr)
	c.Server.CORSOrigins = csvOr("LEARNLOOP_CORS_ORIGINS", c.Server.CORSOrigins)

	c.Auth.Secret = envOr("LEARNLOOP_JWT_SECRET", c.Auth.Secret)
	c.Auth.TokenTTL = durationOr("LEARNLOOP_TOKEN_TTL", c.Auth.TokenTTL)

	c.Telemetry.Endpoint = envOr("LEARNLOOP_TELEMETRY_URL", c.Telemetry.Endpoint)
	c.Telemetry.Token = envOr("LEARNLOOP_TELEMETRY_TOKEN", c.Telemetry.Token)

	c.Feedback.Endpoint = envOr("LEARNLOOP_FEEDBACK_URL", c.Feedback.Endpoint)
	c.Feedback.Token = envOr("LEARNLOOP_FEEDBACK_TOKEN", c.Feedback.Token)
	c.Feedback.Language = envOr("LEARNLOOP_LANGUAGE", c.Feedback.Language)

	c.LLM = c.LLM.ApplyEnv()
	return c
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.LogMode {
	case "development", "production":
	default:
		return fmt.Errorf("log_mode must be development or production, got %q", c.LogMode)
	}
	switch c.Store.Backend {
	case BackendSQL, BackendMemory:
	case BackendRedis:
		if c.Store.Redis.Addr == "" {
			return errors.New("store.redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	switch strings.ToLower(c.Store.Driver) {
	case "", store.DriverSQLite, store.DriverPostgres, "pgx":
	default:
		return fmt.Errorf("unknown database driver %q", c.Store.Driver)
	}
	if c.Store.Driver == store.DriverPostgres && c.Store.DSN == "" {
		return errors.New("store.dsn is required for postgres")
	}
	if c.Auth.Secret != "" && len(c.Auth.Secret) < 16 {
		return errors.New("auth.secret must be at least 16 characters")
	}
	if c.Tempo.MinMultiplier > c.Tempo.MaxMultiplier {
		return fmt.Errorf("tempo.min_multiplier %.2f exceeds max_multiplier %.2f", c.Tempo.MinMultiplier, c.Tempo.MaxMultiplier)
	}
	if c.Tempo.SpeedUpFactor < 1 || c.Tempo.SlowDownFactor < 1 {
		return errors.New("tempo factors must be at least 1")
	}
	a := c.Assessment
	if a.AccuracyExemplary < a.AccuracyProficient || a.AccuracyProficient < a.AccuracyDeveloping {
		return errors.New("assessment accuracy bounds must be descending")
	}
	if a.ElementsExemplary < a.ElementsProficient || a.ElementsProficient < a.ElementsDeveloping {
		return errors.New("assessment element bounds must be descending")
	}
	if a.AdvancedMean < a.ProficientMean || a.ProficientMean < a.DevelopingMean {
		return errors.New("assessment growth means must be descending")
	}
	if a.RichTextChars < a.ShortTextChars {
		return errors.New("assessment rich_text_chars must be at least short_text_chars")
	}
	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	return nil
}

// ObserverConfig returns the session observer thresholds.
func (c Config) ObserverConfig() observer.Config {
	o := c.Observer
	return observer.Config{
		PauseThreshold:      o.PauseThreshold,
		RapidTapWindow:      o.RapidTapWindow,
		RapidTapMinActions:  o.RapidTapMinActions,
		RapidTapMaxAverage:  o.RapidTapMaxAverage,
		ManyRetriesAttempts: o.ManyRetriesAttempts,
	}
}

// ProfileThresholds returns the profile tagging thresholds.
func (c Config) ProfileThresholds() profile.Thresholds {
	p := c.Profile
	return profile.Thresholds{
		ProblemSolvingSuccessRate: p.ProblemSolvingSuccessRate,
		IndependenceHintRate:      p.IndependenceHintRate,
		AccuracyRetryTendency:     p.AccuracyRetryTendency,
		QuickThinkingAverage:      p.QuickThinkingAverage,
		TryBeforeHintsRate:        p.TryBeforeHintsRate,
		CarefulReadingRetries:     p.CarefulReadingRetries,
		PuzzleStrengthFirstTries:  p.PuzzleStrengthFirstTries,
	}
}

// TempoConfig returns the tempo controller settings.
func (c Config) TempoConfig() tempo.Config {
	t := c.Tempo
	return tempo.Config{
		HitsToSpeedUp:    t.HitsToSpeedUp,
		MissesToSlowDown: t.MissesToSlowDown,
		MinMultiplier:    t.MinMultiplier,
		MaxMultiplier:    t.MaxMultiplier,
		SpeedUpFactor:    t.SpeedUpFactor,
		SlowDownFactor:   t.SlowDownFactor,
	}
}

// BaseInterval returns the unscaled beat interval of the rhythm activity.
func (c Config) BaseInterval() time.Duration {
	return tempo.BaseInterval(c.Tempo.BPM, c.Tempo.BeatsPerMeasure)
}

// AssessmentThresholds returns the rubric boundaries.
func (c Config) AssessmentThresholds() assessment.Thresholds {
	a := c.Assessment
	return assessment.Thresholds{
		Accuracy:       [3]float64{a.AccuracyExemplary, a.AccuracyProficient, a.AccuracyDeveloping},
		Elements:       [3]int{a.ElementsExemplary, a.ElementsProficient, a.ElementsDeveloping},
		RichTextChars:  a.RichTextChars,
		ShortTextChars: a.ShortTextChars,
		EmojiCount:     a.EmojiCount,
		AdvancedMean:   a.AdvancedMean,
		ProficientMean: a.ProficientMean,
		DevelopingMean: a.DevelopingMean,
	}
}

// BadgeThresholds returns the badge unlock thresholds.
func (c Config) BadgeThresholds() assessment.BadgeThresholds {
	b := c.Badges
	return assessment.BadgeThresholds{
		RhythmMasterAccuracy:      b.RhythmMasterAccuracy,
		ArtExplorerElements:       b.ArtExplorerElements,
		DeepThinkerChars:          b.DeepThinkerChars,
		IndependentSolverSessions: b.IndependentSolverSessions,
	}
}

// RedisOptions returns the Redis KV connection options.
func (c Config) RedisOptions() store.RedisOptions {
	r := c.Store.Redis
	return store.RedisOptions{Addr: r.Addr, Password: r.Password, DB: r.DB, Prefix: r.Prefix}
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func csvOr(key string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func durationOr(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
