package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/learnloop/internal/config"
	"github.com/abhisek/learnloop/internal/engine"
	"github.com/abhisek/learnloop/internal/feedback"
	"github.com/abhisek/learnloop/internal/llm"
	"github.com/abhisek/learnloop/internal/logger"
	"github.com/abhisek/learnloop/internal/store"
	"github.com/abhisek/learnloop/internal/telemetry"
)

var rootCmd = &cobra.Command{
	Use:   "learnloop",
	Short: "Adaptive learning telemetry and tempo engine",
	Long: "learnloop observes learning sessions, builds learner profiles, adapts rhythm tempo\n" +
		"and scores activities with badges and reflective feedback.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return playCmd.RunE(cmd, args)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides LEARNLOOP_DB and store settings)")
	rootCmd.PersistentFlags().String("config", "", "Path to YAML config file (overrides LEARNLOOP_CONFIG)")
	rootCmd.PersistentFlags().StringP("learner", "l", "", "Learner id (defaults to auth.default_learner)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(badgesCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads --config and applies --db.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}

	if p, _ := cmd.Flags().GetString("db"); p != "" {
		if err := store.EnsureDir(p); err != nil {
			return config.Config{}, err
		}
		cfg.Store.Driver, cfg.Store.DSN = store.DriverSQLite, p
	}
	if cfg.Store.Driver == store.DriverSQLite && cfg.Store.DSN == "" {
		p, err := store.DefaultDBPath()
		if err != nil {
			return config.Config{}, fmt.Errorf("resolve database path: %w", err)
		}
		cfg.Store.DSN = p
	}
	return cfg, nil
}

// learnerID resolves --learner, falling back to the configured default.
func learnerID(cmd *cobra.Command, cfg config.Config) string {
	if id, _ := cmd.Flags().GetString("learner"); id != "" {
		return id
	}
	return cfg.Auth.DefaultLearner
}

// runtime is the wired dependency graph shared by the commands.
type runtime struct {
	cfg    config.Config
	log    *logger.Logger
	store  *store.Store
	engine *engine.Engine

	closers []func() error
}

// openRuntime wires config, store, KV backend, telemetry, feedback and the
// engine. quiet discards logs, for commands that own the terminal.
func openRuntime(cmd *cobra.Command, quiet bool) (*runtime, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	log := logger.Nop()
	if !quiet {
		if log, err = logger.New(cfg.LogMode, logger.Options{Redact: true}); err != nil {
			return nil, err
		}
	}

	st, err := store.Open(cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	rt := &runtime{cfg: cfg, log: log, store: st}

	var kv store.KV
	switch cfg.Store.Backend {
	case config.BackendRedis:
		r, err := store.NewRedisKV(ctx, cfg.RedisOptions())
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("open redis: %w", err)
		}
		rt.closers = append(rt.closers, r.Close)
		kv = r
	case config.BackendMemory:
		kv = store.NewMemoryKV()
	default:
		kv = st.KV()
	}

	opts := []engine.Option{
		engine.WithLogger(log),
		engine.WithFeedback(newFeedbackService(ctx, cfg, st, log)),
	}
	if cfg.Telemetry.Endpoint != "" {
		sink := telemetry.NewHTTPSink(cfg.Telemetry.Endpoint, telemetry.WithBearerToken(cfg.Telemetry.Token))
		opts = append(opts, engine.WithTelemetry(telemetry.NewDispatcher(sink, cfg.Telemetry.Config,
			telemetry.WithDeliveryLog(st.EventRepo()),
			telemetry.WithLogger(log),
		)))
	}
	rt.engine = engine.New(cfg, kv, opts...)
	return rt, nil
}

// newFeedbackService orders generators remote service first, then the
// configured model. The built-in cards always back both.
func newFeedbackService(ctx context.Context, cfg config.Config, st *store.Store, log *logger.Logger) *feedback.Service {
	opts := []feedback.Option{
		feedback.WithTimeout(cfg.Feedback.Timeout),
		feedback.WithLogger(log),
	}
	if cfg.Feedback.Endpoint != "" {
		opts = append(opts, feedback.WithGenerator(
			feedback.NewRemoteClient(cfg.Feedback.Endpoint, feedback.WithBearerToken(cfg.Feedback.Token))))
	}
	provider, err := llm.NewProvider(ctx, cfg.LLM, st.EventRepo(), log)
	switch {
	case err != nil:
		log.Warn("LLM provider not configured, model feedback unavailable", "error", err.Error())
	case provider != nil:
		opts = append(opts, feedback.WithGenerator(feedback.NewLLMGenerator(provider)))
	}
	return feedback.NewService(opts...)
}

// learner returns the engine learner selected by --learner.
func (rt *runtime) learner(cmd *cobra.Command) (*engine.Learner, error) {
	return rt.engine.Learner(learnerID(cmd, rt.cfg))
}

// Close drains telemetry and releases storage.
func (rt *runtime) Close() error {
	errs := []error{rt.engine.CloseWithTimeout()}
	for _, c := range rt.closers {
		errs = append(errs, c())
	}
	errs = append(errs, rt.store.Close())
	rt.log.Sync()
	return errors.Join(errs...)
}
