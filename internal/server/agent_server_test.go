package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lifelog/pulse-agent/internal/auth"
	"lifelog/pulse-agent/internal/category"
	"lifelog/pulse-agent/internal/client"
	"lifelog/pulse-agent/internal/config"
	"lifelog/pulse-agent/internal/database"
	"lifelog/pulse-agent/internal/models"
	"lifelog/pulse-agent/internal/queue"
	"lifelog/pulse-agent/internal/repository"
	"lifelog/pulse-agent/internal/service"
	"lifelog/pulse-agent/internal/syncer"

	"go.uber.org/zap"
)

type stubStatus struct {
	status service.Status
}

func (s *stubStatus) Status() service.Status {
	return s.status
}

type serverFixture struct {
	server *AgentServer
	queue  *queue.ActivityQueue
	repo   *repository.ActivityLogRepository
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()

	db, err := database.New(":memory:", zap.NewNop())
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(`INSERT INTO device_info (id, device_id) VALUES (1, 'test-device')`); err != nil {
		t.Fatalf("insert device row: %v", err)
	}

	tokens, err := auth.NewStore(db.DB, "access", "refresh", zap.NewNop())
	if err != nil {
		t.Fatalf("token store: %v", err)
	}

	q := queue.NewActivityQueue(db.DB, zap.NewNop())
	apiClient := client.NewAPIClient("http://localhost:0", time.Second, zap.NewNop())
	engine := syncer.NewEngine(q, apiClient, tokens, "test-device", 100, time.Minute, zap.NewNop())
	repo := repository.NewActivityLogRepository(db.DB)

	categorizer := category.New([]config.CategoryRule{
		{Name: "Development", Apps: []string{"code"}, ProductivityScore: 1.0},
	})

	return &serverFixture{
		server: NewAgentServer(engine, &stubStatus{status: service.Status{Paused: false}}, repo, categorizer, zap.NewNop()),
		queue:  q,
		repo:   repo,
	}
}

func TestIngestQueuesBrowserActivity(t *testing.T) {
	fixture := newServerFixture(t)

	body := `{"type":"page_visit","timestamp":"2026-08-25T10:00:00Z","payload":{"url":"https://example.com","title":"Example"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/activities", strings.NewReader(body))
	rec := httptest.NewRecorder()

	fixture.server.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusAccepted)
	}

	pending, err := fixture.queue.PendingCount()
	if err != nil {
		t.Fatalf("pending count: %v", err)
	}
	if pending != 1 {
		t.Fatalf("pending = %d, want 1", pending)
	}

	activities, _, err := fixture.queue.SnapshotPending(10)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if activities[0].Source != models.SourceBrowser {
		t.Fatalf("source = %s, want browser", activities[0].Source)
	}
	if activities[0].Type != models.ActivityPageVisit {
		t.Fatalf("type = %s, want page_visit", activities[0].Type)
	}
}

func TestIngestRejectsUnsupportedType(t *testing.T) {
	fixture := newServerFixture(t)

	body := `{"type":"window_focus","payload":{}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/activities", strings.NewReader(body))
	rec := httptest.NewRecorder()

	fixture.server.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	pending, _ := fixture.queue.PendingCount()
	if pending != 0 {
		t.Fatalf("pending = %d, want 0", pending)
	}
}

func TestDailyStatsReportsLoggedSessions(t *testing.T) {
	fixture := newServerFixture(t)

	day := time.Date(2026, 8, 24, 0, 0, 0, 0, time.Local)
	session := models.SessionData{
		Application:     "Code.exe",
		Title:           "main.go",
		StartTime:       day.Add(9 * time.Hour),
		EndTime:         day.Add(10 * time.Hour),
		DurationSeconds: 3600,
		Input:           models.InputStats{Keystrokes: 1200},
	}
	if err := fixture.repo.AppendSession(session); err != nil {
		t.Fatalf("append session: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats/daily?date=2026-08-24", nil)
	rec := httptest.NewRecorder()

	fixture.server.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var report models.AggregatedStats
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.TotalActiveSeconds != 3600 {
		t.Fatalf("active seconds = %f, want 3600", report.TotalActiveSeconds)
	}
	if len(report.AppBreakdown) != 1 || report.AppBreakdown[0].Application != "Code.exe" {
		t.Fatalf("unexpected app breakdown: %+v", report.AppBreakdown)
	}
	if report.ProductivityScore != 1.0 {
		t.Fatalf("productivity = %f, want 1.0", report.ProductivityScore)
	}
}

func TestDailyStatsRejectsBadDate(t *testing.T) {
	fixture := newServerFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats/daily?date=yesterday", nil)
	rec := httptest.NewRecorder()

	fixture.server.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestStatusAndHealthEndpoints(t *testing.T) {
	fixture := newServerFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	rec := httptest.NewRecorder()
	fixture.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status endpoint = %d, want %d", rec.Code, http.StatusOK)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec = httptest.NewRecorder()
	fixture.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("health endpoint = %d, want %d", rec.Code, http.StatusOK)
	}
}
