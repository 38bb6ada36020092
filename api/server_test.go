package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/zombar/auditwatch"
	"github.com/zombar/auditwatch/models"
	"github.com/zombar/auditwatch/scheduler"
	"github.com/zombar/auditwatch/store"
)

type stubRunner struct{}

func (stubRunner) RunCycle(ctx context.Context) error { return nil }

type stubNotifier struct {
	lastText string
}

func (n *stubNotifier) Send(ctx context.Context, recipient, text string) (string, error) {
	n.lastText = text
	return "MSG-1", nil
}

func newTestServer(t *testing.T, notifier *stubNotifier) (*Server, store.Store) {
	t.Helper()

	st, err := store.NewFileStore(store.FileConfig{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	scraper := auditwatch.New(auditwatch.DefaultConfig(), nil)

	var engine *auditwatch.Engine
	if notifier != nil {
		engine = auditwatch.NewEngine(scraper, st, notifier, "RECIP123", logger)
	} else {
		engine = auditwatch.NewEngine(scraper, st, nil, "", logger)
	}

	sched, err := scheduler.New(stubRunner{}, scheduler.DefaultSchedule, logger)
	if err != nil {
		t.Fatalf("scheduler.New failed: %v", err)
	}

	return NewServer(DefaultConfig(), engine, sched), st
}

func seedReports(t *testing.T, st store.Store) {
	t.Helper()
	buckets := models.NewBuckets()
	buckets[models.LangFR] = []models.Report{{
		ID:       "fr_25099",
		Title:    "Audit de la gestion des risques informatiques.",
		Number:   "25099",
		URL:      "https://www.efk.admin.ch/fr/audit/2024/25099-audit-risques/",
		Language: models.LangFR,
	}}
	if err := st.Save(context.Background(), store.BucketNew, buckets); err != nil {
		t.Fatalf("seeding failed: %v", err)
	}
}

func TestHandleHealth(t *testing.T) {
	s, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("status field = %v", body["status"])
	}
}

func TestHandleReports(t *testing.T) {
	s, st := newTestServer(t, nil)
	seedReports(t, st)

	req := httptest.NewRequest(http.MethodGet, "/api/reports", nil)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Reports models.Buckets `json:"reports"`
		Total   int            `json:"total"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body.Total != 1 {
		t.Errorf("total = %d, want 1", body.Total)
	}
	if len(body.Reports[models.LangFR]) != 1 {
		t.Errorf("french reports = %d, want 1", len(body.Reports[models.LangFR]))
	}
}

func TestHandleReportsLanguageFilter(t *testing.T) {
	s, st := newTestServer(t, nil)
	seedReports(t, st)

	req := httptest.NewRequest(http.MethodGet, "/api/reports?lang=fr", nil)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Reports []models.Report `json:"reports"`
		Total   int             `json:"total"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body.Total != 1 || len(body.Reports) != 1 {
		t.Errorf("total = %d, reports = %d", body.Total, len(body.Reports))
	}

	req = httptest.NewRequest(http.MethodGet, "/api/reports?lang=xx", nil)
	rec = httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown language: status = %d, want 400", rec.Code)
	}
}

func TestHandleReportsRejectsPost(t *testing.T) {
	s, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/reports", nil)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestHandleRunScraper(t *testing.T) {
	s, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/run-scraper", nil)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["status"] != "started" {
		t.Errorf("status field = %q", body["status"])
	}
}

func TestHandleArchiveNewReports(t *testing.T) {
	s, st := newTestServer(t, nil)
	seedReports(t, st)

	req := httptest.NewRequest(http.MethodPost, "/archive-new-reports", nil)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Moved int `json:"moved"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body.Moved != 1 {
		t.Errorf("moved = %d, want 1", body.Moved)
	}

	archived, err := st.Load(context.Background(), store.BucketArchived)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if archived.Total() != 1 {
		t.Errorf("archived total = %d, want 1", archived.Total())
	}
	newBucket, err := st.Load(context.Background(), store.BucketNew)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if newBucket.Total() != 0 {
		t.Errorf("new total = %d, want 0", newBucket.Total())
	}
}

func TestHandleSchedulerStatus(t *testing.T) {
	s, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/scheduler-status", nil)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Scheduler scheduler.Status `json:"scheduler"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body.Scheduler.Schedule != scheduler.DefaultSchedule {
		t.Errorf("schedule = %q", body.Scheduler.Schedule)
	}
}

func TestHandleSendCustomMessage(t *testing.T) {
	notifier := &stubNotifier{}
	s, _ := newTestServer(t, notifier)

	req := httptest.NewRequest(http.MethodPost, "/send-custom-message",
		strings.NewReader(`{"text":"Message du tableau de bord"}`))
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if notifier.lastText != "Message du tableau de bord" {
		t.Errorf("notifier received %q", notifier.lastText)
	}
}

func TestHandleSendCustomMessageRequiresText(t *testing.T) {
	s, _ := newTestServer(t, &stubNotifier{})

	req := httptest.NewRequest(http.MethodPost, "/send-custom-message", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleSendTestWithoutNotifier(t *testing.T) {
	s, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/send-test", nil)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500 when no notifier is configured", rec.Code)
	}
}

func TestCORSMiddleware(t *testing.T) {
	s, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/reports", nil)
	rec := httptest.NewRecorder()
	s.middleware(s.mux).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("OPTIONS status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("CORS header missing")
	}
}
