package server

import (
	"encoding/json"
	"net/http"
	"time"

	"lifelog/pulse-agent/internal/models"
	"lifelog/pulse-agent/internal/repository"
	"lifelog/pulse-agent/internal/service"
	"lifelog/pulse-agent/internal/stats"
	"lifelog/pulse-agent/internal/syncer"

	"go.uber.org/zap"
)

// IngestRequest is one activity posted by the browser extension. The
// payload is passed through to the sync queue untouched.
type IngestRequest struct {
	Type      models.ActivityType `json:"type"`
	Timestamp time.Time           `json:"timestamp"`
	Payload   json.RawMessage     `json:"payload,omitempty"`
}

// StatusSource provides the collector status for the status endpoint.
type StatusSource interface {
	Status() service.Status
}

// AgentServer is the loopback HTTP surface of the agent: activity ingest
// for the browser extension, the daily stats read model, and status.
type AgentServer struct {
	engine      *syncer.Engine
	collector   StatusSource
	repo        *repository.ActivityLogRepository
	categorizer stats.Categorizer
	logger      *zap.Logger
}

// NewAgentServer creates the agent's HTTP handler.
func NewAgentServer(
	engine *syncer.Engine,
	collector StatusSource,
	repo *repository.ActivityLogRepository,
	categorizer stats.Categorizer,
	logger *zap.Logger,
) *AgentServer {
	return &AgentServer{
		engine:      engine,
		collector:   collector,
		repo:        repo,
		categorizer: categorizer,
		logger:      logger,
	}
}

// ServeHTTP implements http.Handler.
func (s *AgentServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// The browser extension posts from an extension origin.
	s.setCORSHeaders(w)

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	switch r.URL.Path {
	case "/api/v1/activities":
		if r.Method == http.MethodPost {
			s.handleIngest(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case "/api/v1/stats/daily":
		if r.Method == http.MethodGet {
			s.handleDailyStats(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case "/api/v1/status":
		if r.Method == http.MethodGet {
			s.handleStatus(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case "/api/v1/health":
		if r.Method == http.MethodGet {
			s.handleHealth(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	default:
		http.NotFound(w, r)
	}
}

func (s *AgentServer) setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// browserActivityTypes lists what the extension is allowed to submit.
var browserActivityTypes = map[models.ActivityType]bool{
	models.ActivityPageVisit: true,
	models.ActivitySearch:    true,
	models.ActivityThought:   true,
}

// handleIngest accepts one activity from the extension and appends it to
// the durable sync queue.
func (s *AgentServer) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.Warn("Failed to decode ingest request", zap.Error(err))
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if !browserActivityTypes[req.Type] {
		s.logger.Warn("Rejected ingest with unsupported type",
			zap.String("type", string(req.Type)),
		)
		http.Error(w, "Unsupported activity type", http.StatusBadRequest)
		return
	}

	ts := req.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	activity := models.Activity{
		Type:      req.Type,
		Source:    models.SourceBrowser,
		Timestamp: ts,
		Payload:   req.Payload,
	}
	if err := s.engine.Enqueue(activity); err != nil {
		s.logger.Error("Failed to enqueue ingested activity", zap.Error(err))
		http.Error(w, "Failed to store activity", http.StatusInternalServerError)
		return
	}

	s.logger.Debug("Browser activity ingested",
		zap.String("type", string(req.Type)),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "queued",
	})
}

// handleDailyStats serves the aggregated read model for one calendar
// date. Defaults to today.
func (s *AgentServer) handleDailyStats(w http.ResponseWriter, r *http.Request) {
	date := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			http.Error(w, "Invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		date = parsed
	}

	sessions, err := s.repo.SessionsForDay(date)
	if err != nil {
		s.logger.Error("Failed to load sessions", zap.Error(err))
		http.Error(w, "Failed to load statistics", http.StatusInternalServerError)
		return
	}
	idles, err := s.repo.IdlePeriodsForDay(date)
	if err != nil {
		s.logger.Error("Failed to load idle periods", zap.Error(err))
		http.Error(w, "Failed to load statistics", http.StatusInternalServerError)
		return
	}
	inputs, err := s.repo.InputWindowsForDay(date)
	if err != nil {
		s.logger.Error("Failed to load input windows", zap.Error(err))
		http.Error(w, "Failed to load statistics", http.StatusInternalServerError)
		return
	}

	report := stats.ComputeDaily(date, sessions, idles, inputs, s.categorizer)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(report)
}

func (s *AgentServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(s.collector.Status())
}

func (s *AgentServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	})
}
