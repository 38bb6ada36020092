package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zombar/auditwatch"
	"github.com/zombar/auditwatch/models"
	"github.com/zombar/auditwatch/scheduler"
)

// Server represents the dashboard API server
type Server struct {
	engine      *auditwatch.Engine
	scheduler   *scheduler.Scheduler
	addr        string
	server      *http.Server
	mux         *http.ServeMux
	corsEnabled bool
}

// Config contains server configuration
type Config struct {
	Addr        string
	CORSEnabled bool
}

// DefaultConfig returns default server configuration
func DefaultConfig() Config {
	return Config{
		Addr:        ":8080",
		CORSEnabled: true,
	}
}

// NewServer creates a new API server
func NewServer(config Config, engine *auditwatch.Engine, sched *scheduler.Scheduler) *Server {
	s := &Server{
		engine:      engine,
		scheduler:   sched,
		addr:        config.Addr,
		mux:         http.NewServeMux(),
		corsEnabled: config.CORSEnabled,
	}

	s.registerRoutes()

	s.server = &http.Server{
		Addr:         config.Addr,
		Handler:      s.middleware(s.mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// registerRoutes sets up all API routes
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/reports", s.handleReports)
	s.mux.HandleFunc("/api/archived-reports", s.handleArchivedReports)
	s.mux.HandleFunc("/run-scraper", s.handleRunScraper)
	s.mux.HandleFunc("/clean-archives", s.handleCleanArchives)
	s.mux.HandleFunc("/archive-new-reports", s.handleArchiveNewReports)
	s.mux.HandleFunc("/scheduler-status", s.handleSchedulerStatus)
	s.mux.HandleFunc("/send-custom-message", s.handleSendCustomMessage)
	s.mux.HandleFunc("/send-test", s.handleSendTest)
	s.mux.Handle("/metrics", promhttp.Handler())
}

// Start starts the API server
func (s *Server) Start() error {
	log.Printf("Starting API server on %s", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down API server...")
	return s.server.Shutdown(ctx)
}

// middleware applies common middleware to all routes
func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.corsEnabled {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
		}

		// Logging (skip health checks and metrics scrapes to reduce noise)
		start := time.Now()
		quiet := r.URL.Path == "/health" || r.URL.Path == "/metrics"
		if !quiet {
			log.Printf("%s %s", r.Method, r.URL.Path)
		}

		next.ServeHTTP(w, r)

		if !quiet {
			log.Printf("%s %s - completed in %v", r.Method, r.URL.Path, time.Since(start))
		}
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"time":   time.Now(),
	})
}

// handleReports returns the new-reports bucket, optionally filtered to one
// language via ?lang=fr|de|it
func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	buckets, err := s.engine.NewReports(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load reports")
		return
	}

	respondBuckets(w, r, buckets)
}

// handleArchivedReports returns the archived-reports bucket
func (s *Server) handleArchivedReports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	buckets, err := s.engine.ArchivedReports(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load archived reports")
		return
	}

	respondBuckets(w, r, buckets)
}

func respondBuckets(w http.ResponseWriter, r *http.Request, buckets models.Buckets) {
	if langParam := r.URL.Query().Get("lang"); langParam != "" {
		lang := models.Language(langParam)
		if !lang.Valid() {
			respondError(w, http.StatusBadRequest, "unknown language")
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"reports": buckets[lang],
			"total":   len(buckets[lang]),
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"reports": buckets,
		"total":   buckets.Total(),
	})
}

// handleRunScraper triggers a scrape cycle. The cycle runs in the
// background; the response only acknowledges the trigger.
func (s *Server) handleRunScraper(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if !s.scheduler.TriggerNow() {
		respondJSON(w, http.StatusConflict, map[string]string{
			"status":  "busy",
			"message": "a scrape cycle is already running",
		})
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{
		"status":  "started",
		"message": "scrape cycle started",
	})
}

// handleCleanArchives sweeps junk entries out of the stored buckets
func (s *Server) handleCleanArchives(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	removed, err := s.engine.CleanArchives(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to clean archives")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"removed": removed,
	})
}

// handleArchiveNewReports moves the new bucket into the archive
func (s *Server) handleArchiveNewReports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	moved, err := s.engine.ArchiveNewReports(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to archive reports")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"moved":  moved,
	})
}

// handleSchedulerStatus reports the cron schedule and recent run state
func (s *Server) handleSchedulerStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"scheduler":  s.scheduler.Status(),
		"last_cycle": s.engine.LastStats(),
	})
}

// MessageRequest represents a custom message request
type MessageRequest struct {
	Text string `json:"text"`
}

// handleSendCustomMessage sends an arbitrary message to the configured
// recipient
func (s *Server) handleSendCustomMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		respondError(w, http.StatusBadRequest, "text is required")
		return
	}

	msgID, err := s.engine.SendMessage(r.Context(), req.Text)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to send message")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status":     "sent",
		"message_id": msgID,
	})
}

// handleSendTest sends a fixed test message
func (s *Server) handleSendTest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	msgID, err := s.engine.SendMessage(r.Context(), "Message de test : la surveillance des rapports d'audit fonctionne.")
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to send test message")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status":     "sent",
		"message_id": msgID,
	})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
