package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ClimateIQ/climateiq-mvp/engine/domain"
	"github.com/ClimateIQ/climateiq-mvp/engine/impact"
	"github.com/ClimateIQ/climateiq-mvp/engine/knowledge"
	"github.com/ClimateIQ/climateiq-mvp/engine/rag"
	"github.com/ClimateIQ/climateiq-mvp/pkg/climate"
	"github.com/ClimateIQ/climateiq-mvp/pkg/metrics"
)

type server struct {
	index   *knowledge.Index
	advisor *rag.Service
	ledger  *impact.Ledger
	weather *climate.Client
	logger  *slog.Logger
}

func newServer(index *knowledge.Index, advisor *rag.Service, ledger *impact.Ledger, weather *climate.Client, logger *slog.Logger) *server {
	return &server{
		index:   index,
		advisor: advisor,
		ledger:  ledger,
		weather: weather,
		logger:  logger,
	}
}

func (s *server) routes(reg *metrics.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/plan", s.handlePlan)
	mux.HandleFunc("POST /api/actions", s.handleTrackAction)
	mux.HandleFunc("GET /api/users/{id}/summary", s.handleSummary)
	mux.HandleFunc("GET /api/users/{id}/actions", s.handleHistory)
	mux.HandleFunc("GET /api/users/{id}/goals", s.handleListGoals)
	mux.HandleFunc("POST /api/users/{id}/goals", s.handleCreateGoal)
	mux.HandleFunc("PATCH /api/goals/{id}", s.handleUpdateGoal)
	mux.HandleFunc("GET /api/leaderboard", s.handleLeaderboard)
	mux.HandleFunc("POST /api/knowledge/documents", s.handleAddDocuments)
	mux.HandleFunc("GET /api/knowledge/stats", s.handleKnowledgeStats)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.Handle("GET /metrics", reg.Handler())
	return mux
}

// --- Response helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps domain errors to HTTP statuses. Internal detail stays in
// the logs, not the response body.
func (s *server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrEmptyDocument),
		errors.Is(err, domain.ErrNegativeQuantity),
		errors.Is(err, domain.ErrUnknownMetric):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrGoalNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrGoalTransition):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrIndexNotInitialized):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	default:
		s.logger.Error("request failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

// --- Handlers ---

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// PlanRequest is the JSON body for POST /api/plan.
type PlanRequest struct {
	Question string         `json:"question"`
	Profile  domain.Profile `json:"profile,omitzero"`
}

func (s *server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	advice, err := s.advisor.Ask(r.Context(), req.Question, req.Profile)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, advice)
}

// TrackRequest is the JSON body for POST /api/actions.
type TrackRequest struct {
	UserID string             `json:"user_id"`
	Action domain.ActionInput `json:"action"`
}

func (s *server) handleTrackAction(w http.ResponseWriter, r *http.Request) {
	var req TrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	result, err := s.ledger.TrackAction(r.Context(), req.UserID, req.Action)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// defaultSummaryDays is the summary window when no ?days= is given.
// days=0 requests the all-time view.
const defaultSummaryDays = 30

func summaryDays(r *http.Request) (int, error) {
	v := r.URL.Query().Get("days")
	if v == "" {
		return defaultSummaryDays, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, domain.NewValidationError("days", v, domain.ErrInvalidInput)
	}
	return n, nil
}

func (s *server) handleSummary(w http.ResponseWriter, r *http.Request) {
	days, err := summaryDays(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	sum, err := s.ledger.Summary(r.Context(), r.PathValue("id"), days)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *server) handleHistory(w http.ResponseWriter, r *http.Request) {
	recs, err := s.ledger.History(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"actions": recs})
}

func (s *server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	metric := domain.Metric(r.URL.Query().Get("metric"))
	if metric == "" {
		metric = domain.MetricCarbon
	}
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	entries, err := s.ledger.Leaderboard(r.Context(), metric, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"metric": metric, "entries": entries})
}

// GoalRequest is the JSON body for POST /api/users/{id}/goals.
type GoalRequest struct {
	Title    string        `json:"title"`
	Metric   domain.Metric `json:"metric"`
	Target   float64       `json:"target"`
	Deadline string        `json:"deadline,omitempty"` // RFC 3339
}

func (s *server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req GoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	goal := domain.Goal{
		UserID: r.PathValue("id"),
		Title:  req.Title,
		Metric: req.Metric,
		Target: req.Target,
	}
	if req.Deadline != "" {
		deadline, err := parseRFC3339(req.Deadline)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid deadline"})
			return
		}
		goal.Deadline = deadline
	}

	created, err := s.ledger.CreateGoal(r.Context(), goal)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.ledger.ListGoals(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	type goalView struct {
		domain.Goal
		Progress float64 `json:"progress_pct"`
	}
	views := make([]goalView, len(goals))
	for i, g := range goals {
		views[i] = goalView{Goal: g, Progress: g.Progress()}
	}
	writeJSON(w, http.StatusOK, map[string]any{"goals": views})
}

func parseRFC3339(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// GoalStatusRequest is the JSON body for PATCH /api/goals/{id}.
type GoalStatusRequest struct {
	Status domain.GoalStatus `json:"status"`
}

func (s *server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	var req GoalStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	updated, err := s.ledger.UpdateGoalStatus(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DocumentsRequest is the JSON body for POST /api/knowledge/documents.
type DocumentsRequest struct {
	Documents []domain.Document `json:"documents"`
}

func (s *server) handleAddDocuments(w http.ResponseWriter, r *http.Request) {
	var req DocumentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if len(req.Documents) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "documents is required"})
		return
	}

	added, err := s.index.AddDocuments(r.Context(), req.Documents)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"added": added})
}

func (s *server) handleKnowledgeStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.index.Stats(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleDashboard aggregates a user's summary, goals, index stats, and
// optional regional weather context into one response.
func (s *server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "user_id is required"})
		return
	}
	days, err := summaryDays(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	sum, err := s.ledger.Summary(r.Context(), userID, days)
	if err != nil {
		s.writeError(w, err)
		return
	}
	goals, err := s.ledger.ListGoals(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	stats, err := s.index.Stats(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := map[string]any{
		"summary":   sum,
		"goals":     goals,
		"knowledge": stats,
	}

	if loc := r.URL.Query().Get("location"); loc != "" {
		if regional, err := s.weather.Context(r.Context(), loc); err == nil {
			resp["regional"] = regional
		} else {
			s.logger.Warn("dashboard: regional context unavailable", "err", err, "location", loc)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
