// Package server exposes the engine over a JSON HTTP API.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/abhisek/learnloop/internal/auth"
	"github.com/abhisek/learnloop/internal/config"
	"github.com/abhisek/learnloop/internal/engine"
	"github.com/abhisek/learnloop/internal/logger"
)

// Server routes HTTP requests to per-learner engine bundles.
type Server struct {
	engine *engine.Engine
	auth   *auth.Authenticator
	cfg    config.ServerConfig
	log    *logger.Logger
}

// New creates a server.
func New(e *engine.Engine, a *auth.Authenticator, cfg config.ServerConfig, log *logger.Logger) *Server {
	if cfg.MaxRequestBytes <= 0 {
		cfg.MaxRequestBytes = 1 << 20
	}
	return &Server{
		engine: e,
		auth:   a,
		cfg:    cfg,
		log:    logger.OrNop(log).With("component", "server"),
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, s.requestLog, middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", auth.HeaderLearnerID},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(v chi.Router) {
		v.Use(s.auth.Middleware)
		v.Use(middleware.Timeout(30 * time.Second))

		v.Post("/sessions", s.startSession)
		v.Get("/sessions", s.listSessions)
		v.Post("/sessions/actions", s.recordAction)
		v.Post("/sessions/end", s.endSession)
		v.Get("/sessions/active", s.activeSession)

		v.Get("/profile", s.getProfile)

		v.Post("/assessments", s.assess)
		v.Get("/assessments", s.listAssessments)
		v.Post("/bonus-points", s.saveBonusPoints)
		v.Get("/bonus-points", s.listBonusPoints)
		v.Post("/badges/evaluate", s.evaluateBadges)
		v.Get("/badges", s.listBadges)

		v.Get("/tempo/preference", s.getTempo)
		v.Put("/tempo/preference", s.putTempo)

		v.Post("/feedback", s.reflect)
	})
	return r
}

// HTTPServer wraps Handler with the configured timeouts.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
	}
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// learner resolves the engine bundle of the authenticated learner. It
// writes the error response itself and returns nil on failure.
func (s *Server) learner(w http.ResponseWriter, r *http.Request) *engine.Learner {
	id, ok := auth.LearnerFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return nil
	}
	l, err := s.engine.Learner(id)
	switch {
	case errors.Is(err, engine.ErrInvalidLearner):
		writeError(w, http.StatusBadRequest, err.Error())
		return nil
	case errors.Is(err, engine.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "shutting down")
		return nil
	case err != nil:
		s.internalError(w, r, err)
		return nil
	}
	return l
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.log.Error("request failed",
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()),
		"error", err.Error(),
	)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
