package server

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"
	"time"
)

// Hook priorities. Lower runs first.
const (
	PriorityHTTP     = 10
	PriorityWorker   = 20
	PriorityTracing  = 80
	PriorityDatabase = 90
	PriorityAudit    = 95
)

// ShutdownHandler manages graceful shutdown of services.
type ShutdownHandler struct {
	mu           sync.Mutex
	hooks        []ShutdownHook
	timeout      time.Duration
	signals      []os.Signal
	logger       *slog.Logger
	shutdownCh   chan struct{}
	doneCh       chan struct{}
	started      bool
	shutdownOnce sync.Once
	doneOnce     sync.Once
	errs         []error
}

// ShutdownHook is a function called during shutdown.
type ShutdownHook struct {
	Name     string
	Priority int
	Fn       func(ctx context.Context) error
}

// ShutdownConfig configures the shutdown handler.
type ShutdownConfig struct {
	// Timeout for graceful shutdown (default: 30s)
	Timeout time.Duration
	// Signals to listen for (default: SIGTERM, SIGINT)
	Signals []os.Signal
	Logger  *slog.Logger
}

// DefaultShutdownConfig returns default configuration.
func DefaultShutdownConfig() *ShutdownConfig {
	return &ShutdownConfig{
		Timeout: 30 * time.Second,
		Signals: []os.Signal{syscall.SIGTERM, syscall.SIGINT},
	}
}

// NewShutdownHandler creates a new shutdown handler.
func NewShutdownHandler(config *ShutdownConfig) *ShutdownHandler {
	def := DefaultShutdownConfig()
	if config == nil {
		config = def
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = def.Timeout
	}
	signals := config.Signals
	if len(signals) == 0 {
		signals = def.Signals
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &ShutdownHandler{
		timeout:    timeout,
		signals:    signals,
		logger:     logger.With("component", "shutdown"),
		shutdownCh: make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Register adds a prepared hook.
func (s *ShutdownHandler) Register(hook ShutdownHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, hook)
	slices.SortStableFunc(s.hooks, func(a, b ShutdownHook) int {
		return a.Priority - b.Priority
	})
}

// RegisterHook adds a shutdown hook.
func (s *ShutdownHandler) RegisterHook(name string, priority int, fn func(ctx context.Context) error) {
	s.Register(ShutdownHook{Name: name, Priority: priority, Fn: fn})
}

// Start begins listening for shutdown signals.
func (s *ShutdownHandler) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, s.signals...)

	go func() {
		select {
		case sig := <-sigCh:
			signal.Stop(sigCh)
			s.logger.Info("received signal", "signal", sig.String())
			s.shutdownOnce.Do(func() { close(s.shutdownCh) })
		case <-s.shutdownCh:
			signal.Stop(sigCh)
		}
		s.shutdown()
	}()
}

// Shutdown triggers a manual shutdown. It does nothing before Start.
func (s *ShutdownHandler) Shutdown() {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return
	}
	s.shutdownOnce.Do(func() { close(s.shutdownCh) })
}

// Wait blocks until shutdown is complete.
func (s *ShutdownHandler) Wait() {
	<-s.doneCh
}

// WaitWithTimeout blocks until shutdown is complete or timeout.
func (s *ShutdownHandler) WaitWithTimeout(timeout time.Duration) bool {
	select {
	case <-s.doneCh:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Done returns a channel that closes when shutdown is complete.
func (s *ShutdownHandler) Done() <-chan struct{} {
	return s.doneCh
}

// ShutdownCh returns a channel that closes when shutdown starts.
func (s *ShutdownHandler) ShutdownCh() <-chan struct{} {
	return s.shutdownCh
}

// Errors returns the hook failures of a completed shutdown.
func (s *ShutdownHandler) Errors() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.errs)
}

func (s *ShutdownHandler) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	s.mu.Lock()
	hooks := slices.Clone(s.hooks)
	s.mu.Unlock()

	// A failing hook never blocks the ones after it.
	var errs []error
	for _, hook := range hooks {
		start := time.Now()
		if err := hook.Fn(ctx); err != nil {
			s.logger.Error("shutdown hook failed", "hook", hook.Name, "error", err)
			errs = append(errs, err)
			continue
		}
		s.logger.Debug("shutdown hook done", "hook", hook.Name, "duration", time.Since(start))
	}

	s.mu.Lock()
	s.errs = errs
	s.mu.Unlock()

	s.doneOnce.Do(func() {
		close(s.doneCh)
	})
}

// HTTPServerShutdownHook creates a hook for HTTP server shutdown.
func HTTPServerShutdownHook(name string, shutdownFn func(ctx context.Context) error) ShutdownHook {
	return ShutdownHook{Name: name, Priority: PriorityHTTP, Fn: shutdownFn}
}

// TemporalWorkerShutdownHook stops the worker so that running imports finish
// before the graph database goes away.
func TemporalWorkerShutdownHook(stopFn func()) ShutdownHook {
	return ShutdownHook{
		Name:     "temporal-worker",
		Priority: PriorityWorker,
		Fn: func(context.Context) error {
			stopFn()
			return nil
		},
	}
}

// Neo4jShutdownHook closes the relationship source's driver.
func Neo4jShutdownHook(closeFn func(ctx context.Context) error) ShutdownHook {
	return ShutdownHook{Name: "neo4j", Priority: PriorityDatabase, Fn: closeFn}
}

// AuditLoggerShutdownHook creates a hook for audit logger shutdown.
func AuditLoggerShutdownHook(closeFn func() error) ShutdownHook {
	return ShutdownHook{
		Name:     "audit-logger",
		Priority: PriorityAudit,
		Fn: func(context.Context) error {
			return closeFn()
		},
	}
}

// TracingShutdownHook flushes and stops the tracer provider.
func TracingShutdownHook(shutdownFn func(ctx context.Context) error) ShutdownHook {
	return ShutdownHook{Name: "tracing", Priority: PriorityTracing, Fn: shutdownFn}
}

// GracefulServer combines health checks with shutdown handling.
type GracefulServer struct {
	Health   *HealthServer
	Shutdown *ShutdownHandler

	serveErr chan error
}

// NewGracefulServer creates a server with health checks and graceful shutdown.
func NewGracefulServer(healthConfig *HealthConfig, shutdownConfig *ShutdownConfig) *GracefulServer {
	health := NewHealthServer(healthConfig)
	shutdown := NewShutdownHandler(shutdownConfig)

	shutdown.RegisterHook("health-server", 5, func(context.Context) error {
		health.Shutdown()
		return nil
	})

	go func() {
		<-shutdown.ShutdownCh()
		health.SetReady(false)
	}()

	return &GracefulServer{
		Health:   health,
		Shutdown: shutdown,
		serveErr: make(chan error, 1),
	}
}

// Start starts the health server and shutdown handler. Listener failures are
// reported by ServeErr.
func (g *GracefulServer) Start(addr string) {
	g.Shutdown.Start()

	go func() {
		if err := g.Health.ListenAndServe(addr); err != nil {
			g.serveErr <- err
		}
	}()

	g.Health.SetReady(true)
}

// ServeErr yields an error when the HTTP listener fails.
func (g *GracefulServer) ServeErr() <-chan error {
	return g.serveErr
}

// Wait waits for shutdown to complete.
func (g *GracefulServer) Wait() {
	g.Shutdown.Wait()
}

// RegisterHook adds a shutdown hook.
func (g *GracefulServer) RegisterHook(name string, priority int, fn func(ctx context.Context) error) {
	g.Shutdown.RegisterHook(name, priority, fn)
}

// Register adds a prepared shutdown hook.
func (g *GracefulServer) Register(hook ShutdownHook) {
	g.Shutdown.Register(hook)
}
