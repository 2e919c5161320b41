package server

import (
	"net/http"
	"strings"

	"github.com/abhisek/learnloop/internal/assessment"
	"github.com/abhisek/learnloop/internal/feedback"
	"github.com/abhisek/learnloop/internal/observer"
)

type startSessionRequest struct {
	PuzzleType string         `json:"puzzleType"`
	LevelID    string         `json:"levelId"`
	World      observer.World `json:"world"`
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	l := s.learner(w, r)
	if l == nil {
		return
	}
	var req startSessionRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.PuzzleType) == "" {
		writeError(w, http.StatusBadRequest, "puzzleType is required")
		return
	}
	switch req.World {
	case observer.WorldMath, observer.WorldHistory:
	default:
		writeError(w, http.StatusBadRequest, "world must be math or history")
		return
	}
	id := l.StartSession(req.PuzzleType, req.LevelID, req.World)
	writeJSON(w, http.StatusCreated, map[string]string{"sessionId": id})
}

func (s *Server) recordAction(w http.ResponseWriter, r *http.Request) {
	l := s.learner(w, r)
	if l == nil {
		return
	}
	var in observer.ActionInput
	if !s.decode(w, r, &in) {
		return
	}
	if !in.Kind.Valid() {
		writeError(w, http.StatusBadRequest, "unknown action kind")
		return
	}
	if !l.RecordAction(in) {
		writeError(w, http.StatusConflict, "no active session")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"recorded": true})
}

type endSessionRequest struct {
	Success  bool   `json:"success"`
	Feedback bool   `json:"feedback"`
	Language string `json:"language"`
}

type endSessionResponse struct {
	Session  *observer.SessionObservation `json:"session"`
	Feedback *feedback.Feedback           `json:"feedback,omitempty"`
}

func (s *Server) endSession(w http.ResponseWriter, r *http.Request) {
	l := s.learner(w, r)
	if l == nil {
		return
	}
	var req endSessionRequest
	if !s.decode(w, r, &req) {
		return
	}
	obs := l.EndSession(r.Context(), req.Success)
	if obs == nil {
		writeError(w, http.StatusConflict, "no active session")
		return
	}
	resp := endSessionResponse{Session: obs}
	if req.Feedback {
		fb := l.Reflect(r.Context(), *obs, req.Language)
		resp.Feedback = &fb
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) activeSession(w http.ResponseWriter, r *http.Request) {
	l := s.learner(w, r)
	if l == nil {
		return
	}
	obs, ok := l.Active()
	if !ok {
		writeError(w, http.StatusNotFound, "no active session")
		return
	}
	writeJSON(w, http.StatusOK, obs)
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	l := s.learner(w, r)
	if l == nil {
		return
	}
	sessions, err := l.Sessions(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if sessions == nil {
		sessions = []observer.SessionObservation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	l := s.learner(w, r)
	if l == nil {
		return
	}
	p, err := l.Profile(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type assessRequest struct {
	ActivityID  string                    `json:"activityId"`
	Performance assessment.PerformanceData `json:"performance"`
	Artwork     assessment.ArtworkData     `json:"artwork"`
	Reflection  assessment.ReflectionData  `json:"reflection"`
}

func (s *Server) assess(w http.ResponseWriter, r *http.Request) {
	l := s.learner(w, r)
	if l == nil {
		return
	}
	var req assessRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ActivityID) == "" {
		writeError(w, http.StatusBadRequest, "activityId is required")
		return
	}
	a, err := l.Assess(r.Context(), req.ActivityID, req.Performance, req.Artwork, req.Reflection)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) listAssessments(w http.ResponseWriter, r *http.Request) {
	l := s.learner(w, r)
	if l == nil {
		return
	}
	list, err := l.Assessments(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"assessments": list})
}

type bonusRequest struct {
	ActivityID string `json:"activityId"`
	Points     int    `json:"points"`
}

func (s *Server) saveBonusPoints(w http.ResponseWriter, r *http.Request) {
	l := s.learner(w, r)
	if l == nil {
		return
	}
	var req bonusRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ActivityID) == "" {
		writeError(w, http.StatusBadRequest, "activityId is required")
		return
	}
	if req.Points < 0 {
		writeError(w, http.StatusBadRequest, "points must not be negative")
		return
	}
	held, updated, err := l.SaveBonusPoints(r.Context(), req.ActivityID, req.Points)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bonusPoints": held, "updated": updated})
}

func (s *Server) listBonusPoints(w http.ResponseWriter, r *http.Request) {
	l := s.learner(w, r)
	if l == nil {
		return
	}
	list, err := l.BonusPoints(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bonusPoints": list})
}

// badgeView adds display fields for the UI.
type badgeView struct {
	assessment.Badge
	DisplayName string `json:"displayName"`
	Icon        string `json:"icon"`
}

func badgeViews(badges []assessment.Badge) []badgeView {
	out := make([]badgeView, 0, len(badges))
	for _, b := range badges {
		out = append(out, badgeView{Badge: b, DisplayName: b.Type.DisplayName(), Icon: b.Type.Icon()})
	}
	return out
}

func (s *Server) evaluateBadges(w http.ResponseWriter, r *http.Request) {
	l := s.learner(w, r)
	if l == nil {
		return
	}
	unlocked, err := l.Badges(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"unlocked": badgeViews(unlocked)})
}

func (s *Server) listBadges(w http.ResponseWriter, r *http.Request) {
	l := s.learner(w, r)
	if l == nil {
		return
	}
	earned, err := l.EarnedBadges(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"badges": badgeViews(earned)})
}

type tempoPreference struct {
	SpeedMultiplier float64 `json:"speedMultiplier"`
}

func (s *Server) getTempo(w http.ResponseWriter, r *http.Request) {
	l := s.learner(w, r)
	if l == nil {
		return
	}
	m, err := l.Tempo.Load(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tempoPreference{SpeedMultiplier: m})
}

func (s *Server) putTempo(w http.ResponseWriter, r *http.Request) {
	l := s.learner(w, r)
	if l == nil {
		return
	}
	var req tempoPreference
	if !s.decode(w, r, &req) {
		return
	}
	if req.SpeedMultiplier <= 0 {
		writeError(w, http.StatusBadRequest, "speedMultiplier must be positive")
		return
	}
	m, err := l.SaveTempo(r.Context(), req.SpeedMultiplier)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tempoPreference{SpeedMultiplier: m})
}

func (s *Server) reflect(w http.ResponseWriter, r *http.Request) {
	if s.learner(w, r) == nil {
		return
	}
	var req feedback.Request
	if !s.decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Feedback().Reflect(r.Context(), req))
}
