// Package webapi exposes the operational HTTP surface: liveness, Prometheus
// metrics, and read-only interview status endpoints for dashboards.
package webapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"interviewer/pkg/logx"
	"interviewer/pkg/metrics"
	"interviewer/pkg/persistence"
)

// Server is the operational HTTP server. It only reads from the database;
// all interview mutation happens through the orchestrator facade.
type Server struct {
	db           *sql.DB
	metricsQuery *metrics.QueryService
	logger       *logx.Logger
}

// NewServer creates the operational HTTP server. db may be nil, in which
// case the interview endpoints report 503.
func NewServer(db *sql.DB) *Server {
	return &Server{
		db:     db,
		logger: logx.NewLogger("webapi"),
	}
}

// EnableMetricsQuery turns on the per-interview metrics endpoint, backed by
// a Prometheus server that scrapes this process.
func (s *Server) EnableMetricsQuery(prometheusURL string) error {
	svc, err := metrics.NewQueryService(prometheusURL)
	if err != nil {
		return err
	}
	s.metricsQuery = svc
	return nil
}

// RegisterRoutes attaches all handlers to the mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/interviews", s.handleListInterviews)
	mux.HandleFunc("/api/interviews/", s.handleGetInterview)
}

// StartServer starts the HTTP server and shuts it down when ctx is
// cancelled.
func (s *Server) StartServer(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("starting operational server on %s", addr)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server error: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		s.logger.Info("shutting down operational server")
		// parent context is already cancelled, so shutdown gets its own
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("shutdown error: %v", err)
		}
	}()

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// InterviewSummary is the list-endpoint view of one interview.
type InterviewSummary struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Status    string    `json:"status"`
	TurnCount int       `json:"turn_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Server) handleListInterviews(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.db == nil {
		http.Error(w, "no database configured", http.StatusServiceUnavailable)
		return
	}

	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil {
		http.Error(w, "user_id query parameter is required", http.StatusBadRequest)
		return
	}

	interviews, err := persistence.ListInterviewsByUser(s.db, userID)
	if err != nil {
		s.logger.Error("failed to list interviews: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	summaries := make([]InterviewSummary, 0, len(interviews))
	for _, iv := range interviews {
		summaries = append(summaries, InterviewSummary{
			ID:        iv.ID,
			UserID:    iv.UserID,
			Status:    iv.Status,
			TurnCount: iv.TurnCount,
			CreatedAt: iv.CreatedAt,
			UpdatedAt: iv.UpdatedAt,
		})
	}
	s.writeJSON(w, summaries)
}

// InterviewDetail is the detail-endpoint view: the durable record plus
// checkpoint lineage.
type InterviewDetail struct {
	InterviewSummary
	JobDescription string                          `json:"job_description,omitempty"`
	HasFeedback    bool                            `json:"has_feedback"`
	Checkpoints    []*persistence.CheckpointRecord `json:"checkpoints"`
}

func (s *Server) handleGetInterview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.db == nil {
		http.Error(w, "no database configured", http.StatusServiceUnavailable)
		return
	}

	idText := strings.TrimPrefix(r.URL.Path, "/api/interviews/")
	wantMetrics := false
	if rest, ok := strings.CutSuffix(idText, "/metrics"); ok {
		idText = rest
		wantMetrics = true
	}
	id, err := strconv.ParseInt(idText, 10, 64)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid interview id %q", idText), http.StatusBadRequest)
		return
	}
	if wantMetrics {
		s.handleInterviewMetrics(w, r, id)
		return
	}

	iv, err := persistence.GetInterview(s.db, id)
	if errors.Is(err, persistence.ErrInterviewNotFound) {
		http.Error(w, "interview not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("failed to load interview %d: %v", id, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	checkpoints, err := persistence.ListCheckpoints(s.db, id)
	if err != nil {
		s.logger.Error("failed to list checkpoints for interview %d: %v", id, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if checkpoints == nil {
		checkpoints = []*persistence.CheckpointRecord{}
	}

	s.writeJSON(w, InterviewDetail{
		InterviewSummary: InterviewSummary{
			ID:        iv.ID,
			UserID:    iv.UserID,
			Status:    iv.Status,
			TurnCount: iv.TurnCount,
			CreatedAt: iv.CreatedAt,
			UpdatedAt: iv.UpdatedAt,
		},
		JobDescription: iv.JobDescription,
		HasFeedback:    iv.FeedbackJSON != nil,
		Checkpoints:    checkpoints,
	})
}

// handleInterviewMetrics returns the interview's aggregated LLM usage from
// Prometheus. 503 when no Prometheus backend is configured.
func (s *Server) handleInterviewMetrics(w http.ResponseWriter, r *http.Request, id int64) {
	if s.metricsQuery == nil {
		http.Error(w, "no metrics backend configured", http.StatusServiceUnavailable)
		return
	}

	usage, err := s.metricsQuery.GetInterviewMetrics(r.Context(), strconv.FormatInt(id, 10))
	if err != nil {
		s.logger.Error("metrics query failed for interview %d: %v", id, err)
		http.Error(w, "metrics backend unavailable", http.StatusBadGateway)
		return
	}
	s.writeJSON(w, usage)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response: %v", err)
	}
}
