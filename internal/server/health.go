// Package server provides the worker's HTTP surface: health probes, the
// Prometheus scrape endpoint and graceful shutdown.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"
)

// HealthStatus represents the health state of a component.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusDegraded  HealthStatus = "degraded"
)

// HealthCheck represents a single health check.
type HealthCheck struct {
	Name    string            `json:"name"`
	Status  HealthStatus      `json:"status"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// HealthResponse is the response from health endpoints.
type HealthResponse struct {
	Status    HealthStatus  `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Version   string        `json:"version,omitempty"`
	Checks    []HealthCheck `json:"checks,omitempty"`
}

// HealthChecker is a function that performs a health check.
type HealthChecker func(ctx context.Context) HealthCheck

// HealthServer provides HTTP health check endpoints.
type HealthServer struct {
	mu           sync.RWMutex
	checks       map[string]HealthChecker
	mounts       map[string]http.Handler
	version      string
	checkTimeout time.Duration
	ready        bool
	live         bool
	logger       *slog.Logger
	shutdownOnce sync.Once
	shutdownChan chan struct{}
}

// HealthConfig configures the health server.
type HealthConfig struct {
	Version string
	// CheckTimeout bounds a full /healthz run (default: 5s).
	CheckTimeout time.Duration
	Logger       *slog.Logger
}

// NewHealthServer creates a new health server.
func NewHealthServer(config *HealthConfig) *HealthServer {
	if config == nil {
		config = &HealthConfig{}
	}
	timeout := config.CheckTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &HealthServer{
		checks:       make(map[string]HealthChecker),
		mounts:       make(map[string]http.Handler),
		version:      config.Version,
		checkTimeout: timeout,
		live:         true,
		logger:       logger.With("component", "health"),
		shutdownChan: make(chan struct{}),
	}
}

// RegisterCheck adds a health check.
func (s *HealthServer) RegisterCheck(name string, checker HealthChecker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = checker
}

// Mount serves an extra handler next to the probes, e.g. /metrics.
func (s *HealthServer) Mount(pattern string, h http.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mounts[pattern] = h
}

// SetReady marks the server as ready to accept traffic.
func (s *HealthServer) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

// SetLive marks the server as live (or not).
func (s *HealthServer) SetLive(live bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live = live
}

// Handler returns an http.Handler for the health endpoints and mounts.
func (s *HealthServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/livez", s.handleLive)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	mux.HandleFunc("/live", s.handleLive)

	s.mu.RLock()
	for pattern, h := range s.mounts {
		mux.Handle(pattern, h)
	}
	s.mu.RUnlock()
	return mux
}

// ListenAndServe serves until Shutdown is called. It returns nil after a
// clean shutdown.
func (s *HealthServer) ListenAndServe(addr string) error {
	if addr == "" {
		addr = ":9090"
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      s.checkTimeout + 5*time.Second,
	}

	go func() {
		<-s.shutdownChan
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			s.logger.Warn("health server shutdown", "error", err)
		}
	}()

	s.logger.Info("health server listening", "addr", addr)
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the health server. It is safe to call twice.
func (s *HealthServer) Shutdown() {
	s.shutdownOnce.Do(func() { close(s.shutdownChan) })
}

// handleHealth runs every registered check.
func (s *HealthServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.checkTimeout)
	defer cancel()

	s.mu.RLock()
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	checks := make(map[string]HealthChecker, len(s.checks))
	for k, v := range s.checks {
		checks[k] = v
	}
	version := s.version
	s.mu.RUnlock()
	sort.Strings(names)

	response := HealthResponse{
		Status:    HealthStatusHealthy,
		Timestamp: time.Now().UTC(),
		Version:   version,
		Checks:    make([]HealthCheck, 0, len(checks)),
	}

	for _, name := range names {
		check := checks[name](ctx)
		check.Name = name
		response.Checks = append(response.Checks, check)

		if check.Status == HealthStatusUnhealthy {
			response.Status = HealthStatusUnhealthy
		} else if check.Status == HealthStatusDegraded && response.Status == HealthStatusHealthy {
			response.Status = HealthStatusDegraded
		}
	}

	statusCode := http.StatusOK
	if response.Status == HealthStatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
		s.logger.Warn("health check failed", "checks", len(response.Checks))
	}

	s.writeJSON(w, statusCode, response)
}

func (s *HealthServer) handleReady(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	ready := s.ready
	s.mu.RUnlock()
	s.writeProbe(w, ready)
}

func (s *HealthServer) handleLive(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	live := s.live
	s.mu.RUnlock()
	s.writeProbe(w, live)
}

func (s *HealthServer) writeProbe(w http.ResponseWriter, ok bool) {
	response := HealthResponse{
		Status:    HealthStatusHealthy,
		Timestamp: time.Now().UTC(),
	}
	if !ok {
		response.Status = HealthStatusUnhealthy
		s.writeJSON(w, http.StatusServiceUnavailable, response)
		return
	}
	s.writeJSON(w, http.StatusOK, response)
}

func (s *HealthServer) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Debug("writing health response", "error", err)
	}
}

// connectivityChecker reports unhealthy when checkFn fails.
func connectivityChecker(component string, checkFn func(ctx context.Context) error, details map[string]string) HealthChecker {
	return func(ctx context.Context) HealthCheck {
		if err := checkFn(ctx); err != nil {
			return HealthCheck{
				Status:  HealthStatusUnhealthy,
				Message: component + " connection failed: " + err.Error(),
				Details: details,
			}
		}
		return HealthCheck{
			Status:  HealthStatusHealthy,
			Message: component + " connection OK",
			Details: details,
		}
	}
}

// Neo4jHealthChecker checks the graph database behind the relationship
// source, typically with DriverWithContext.VerifyConnectivity.
func Neo4jHealthChecker(uri string, verifyFn func(ctx context.Context) error) HealthChecker {
	return connectivityChecker("Neo4j", verifyFn, map[string]string{"uri": uri})
}

// TemporalHealthChecker creates a health check for Temporal connectivity.
func TemporalHealthChecker(checkFn func(ctx context.Context) error) HealthChecker {
	return connectivityChecker("Temporal", checkFn, nil)
}

// RunTracker remembers the outcome of the most recent graph run so that the
// health endpoint can surface failing imports.
type RunTracker struct {
	mu      sync.Mutex
	lastErr error
	lastRun time.Time
	runs    int64
}

// Observe records one finished run.
func (t *RunTracker) Observe(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastErr = err
	t.lastRun = time.Now().UTC()
	t.runs++
}

// Check is a HealthChecker. A failed last run degrades the service without
// taking it out of rotation.
func (t *RunTracker) Check(_ context.Context) HealthCheck {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.runs == 0 {
		return HealthCheck{Status: HealthStatusHealthy, Message: "no runs yet"}
	}
	details := map[string]string{"last_run": t.lastRun.Format(time.RFC3339)}
	if t.lastErr != nil {
		return HealthCheck{
			Status:  HealthStatusDegraded,
			Message: "last run failed: " + t.lastErr.Error(),
			Details: details,
		}
	}
	return HealthCheck{Status: HealthStatusHealthy, Message: "last run succeeded", Details: details}
}
