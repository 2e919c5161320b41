package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/abhisek/learnloop/internal/auth"
	"github.com/abhisek/learnloop/internal/server"
	"github.com/abhisek/learnloop/internal/tracing"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the learner HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		cmd.SetContext(ctx)

		rt, err := openRuntime(cmd, false)
		if err != nil {
			return err
		}
		defer rt.Close()

		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			rt.cfg.Server.Addr = addr
		}

		shutdownTracing, err := tracing.Init(ctx, tracing.ConfigFromEnv(version), rt.log)
		if err != nil {
			rt.log.Warn("tracing disabled", "error", err.Error())
		}

		authn := auth.New(rt.cfg.Auth.Secret, rt.cfg.Auth.DefaultLearner)
		if !authn.Enabled() {
			rt.log.Warn("no JWT secret configured, learners are taken from the X-Learner-ID header")
		}
		srv := server.New(rt.engine, authn, rt.cfg.Server, rt.log).HTTPServer()

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			rt.log.Info("listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), rt.cfg.Server.ShutdownTimeout)
			defer cancel()
			rt.log.Info("shutting down")
			err := srv.Shutdown(shutdownCtx)
			if terr := shutdownTracing(shutdownCtx); terr != nil {
				rt.log.Warn("tracing shutdown", "error", terr.Error())
			}
			return err
		})
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
}
