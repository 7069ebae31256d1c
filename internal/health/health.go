package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/market-reporter/internal/pipeline"
	"github.com/selivandex/market-reporter/pkg/logger"
)

const checkTimeout = 2 * time.Second

// Checker is a dependency that can report its health (database, redis)
type Checker interface {
	Health(ctx context.Context) error
}

// PipelineStatus exposes the report pipeline progress
type PipelineStatus interface {
	State() pipeline.State
	LastResult() *pipeline.RunResult
}

// Schedule exposes the next planned run
type Schedule interface {
	NextRun() time.Time
}

// Server provides health check HTTP endpoints for K8s
type Server struct {
	server    *http.Server
	checks    map[string]Checker
	pipeline  PipelineStatus
	schedule  Schedule
	ready     bool
	readyMu   sync.RWMutex
	startTime time.Time
}

// HealthStatus represents system health
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ReadinessStatus represents system readiness
type ReadinessStatus struct {
	Ready     bool              `json:"ready"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// RunStatus is the /status payload
type RunStatus struct {
	State     pipeline.State      `json:"state"`
	NextRun   string              `json:"next_run,omitempty"`
	LastRun   *pipeline.RunResult `json:"last_run,omitempty"`
	LastError string              `json:"last_error,omitempty"`
	Timestamp string              `json:"timestamp"`
}

// NewServer creates new health check server. schedule may be nil.
func NewServer(port string, checks map[string]Checker, status PipelineStatus, schedule Schedule) *Server {
	mux := http.NewServeMux()

	s := &Server{
		server: &http.Server{
			Addr:         ":" + port,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		checks:    checks,
		pipeline:  status,
		schedule:  schedule,
		ready:     false,
		startTime: time.Now(),
	}

	mux.HandleFunc("/health", s.handleHealth)    // Liveness probe
	mux.HandleFunc("/ready", s.handleReadiness)  // Readiness probe
	mux.HandleFunc("/healthz", s.handleHealth)   // Alias
	mux.HandleFunc("/readyz", s.handleReadiness) // Alias
	mux.HandleFunc("/status", s.handleStatus)

	return s
}

// Handler returns the HTTP handler (used by tests)
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the health check server
func (s *Server) Start() error {
	logger.Info("health check server starting",
		zap.String("addr", s.server.Addr),
	)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	logger.Info("stopping health check server...")
	return s.server.Shutdown(ctx)
}

// SetReady marks the service as ready
func (s *Server) SetReady(ready bool) {
	s.readyMu.Lock()
	defer s.readyMu.Unlock()
	s.ready = ready

	if ready {
		logger.Info("✅ service marked as READY")
	} else {
		logger.Warn("⚠️ service marked as NOT READY")
	}
}

func (s *Server) runChecks(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string]string, len(names))
	healthy := true
	for _, name := range names {
		if err := s.checks[name].Health(ctx); err != nil {
			results[name] = "unhealthy: " + err.Error()
			healthy = false
		} else {
			results[name] = "healthy"
		}
	}
	return results, healthy
}

// handleHealth handles liveness probe - /health
// Returns 200 if process is alive (even if dependencies are down)
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
	}

	if r.URL.Query().Get("verbose") == "true" {
		status.Checks, _ = s.runChecks(r.Context())
	}

	writeJSON(w, http.StatusOK, status)
}

// handleReadiness handles readiness probe - /ready
// Returns 200 only if startup finished and dependencies are healthy
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	s.readyMu.RLock()
	ready := s.ready
	s.readyMu.RUnlock()

	checks, allHealthy := s.runChecks(r.Context())
	isReady := ready && allHealthy

	code := http.StatusOK
	if !isReady {
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, ReadinessStatus{
		Ready:     isReady,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	})
}

// handleStatus reports the current pipeline step and the last run outcome
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := RunStatus{
		State:     pipeline.StateIdle,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if s.pipeline != nil {
		status.State = s.pipeline.State()
		status.LastRun = s.pipeline.LastResult()
		status.LastError = status.LastRun.ErrorText()
	}
	if s.schedule != nil {
		if next := s.schedule.NextRun(); !next.IsZero() {
			status.NextRun = next.Format(time.RFC3339)
		}
	}

	writeJSON(w, http.StatusOK, status)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("failed to write health response", zap.Error(err))
	}
}
