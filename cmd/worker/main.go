package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	temporalclient "go.temporal.io/sdk/client"
	temporallog "go.temporal.io/sdk/log"

	"github.com/efebarandurmaz/forge/internal/config"
	"github.com/efebarandurmaz/forge/internal/graph/neo4j"
	"github.com/efebarandurmaz/forge/internal/observability"
	"github.com/efebarandurmaz/forge/internal/server"
	temporalmod "github.com/efebarandurmaz/forge/internal/temporal"
)

var version = "dev"

func main() {
	var configPath string
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	if err := run(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := observability.NewLogger(observability.LogConfig{Level: cfg.Log.Level, Format: cfg.Log.Format})
	slog.SetDefault(logger)

	ctx := context.Background()
	gs := server.NewGracefulServer(
		&server.HealthConfig{Version: version, Logger: logger},
		&server.ShutdownConfig{Timeout: 30 * time.Second, Logger: logger},
	)

	tp, err := observability.InitTracing(ctx, cfg.TracingOptions(version))
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	gs.Register(server.TracingShutdownHook(tp.Shutdown))

	if err := observability.InitGlobalAuditLogger(&observability.AuditConfig{
		Enabled:    cfg.Log.AuditPath != "",
		OutputPath: cfg.Log.AuditPath,
	}); err != nil {
		return fmt.Errorf("audit: %w", err)
	}
	audit := observability.Audit()
	gs.Register(server.AuditLoggerShutdownHook(audit.Close))

	src, err := neo4j.NewSource(ctx, cfg.Neo4j.URI, cfg.Neo4j.Username, cfg.Neo4j.Password, cfg.Neo4jOptions())
	if err != nil {
		return fmt.Errorf("neo4j: %w", err)
	}
	gs.Register(server.Neo4jShutdownHook(src.Close))
	gs.Health.RegisterCheck("neo4j", server.Neo4jHealthChecker(cfg.Neo4j.URI, src.Driver().VerifyConnectivity))

	var runs server.RunTracker
	gs.Health.RegisterCheck("runs", runs.Check)

	m := observability.Metrics()
	gs.Health.Mount("/metrics", m.Handler())

	temporalmod.SetDependencies(&temporalmod.Dependencies{
		Source:        src,
		Logger:        logger,
		Metrics:       m,
		Audit:         audit,
		OnRunFinished: runs.Observe,
	})

	c, err := temporalclient.Dial(temporalclient.Options{
		HostPort:  cfg.Temporal.Host,
		Namespace: cfg.Temporal.Namespace,
		Logger:    temporallog.NewStructuredLogger(logger),
	})
	if err != nil {
		return fmt.Errorf("temporal client: %w", err)
	}
	gs.RegisterHook("temporal-client", server.PriorityDatabase-1, func(context.Context) error {
		c.Close()
		return nil
	})
	gs.Health.RegisterCheck("temporal", server.TemporalHealthChecker(func(ctx context.Context) error {
		_, err := c.CheckHealth(ctx, &temporalclient.CheckHealthRequest{})
		return err
	}))

	w, err := temporalmod.StartWorker(c, cfg.Temporal.TaskQueue, cfg.Temporal.MaxConcurrentActivities)
	if err != nil {
		return fmt.Errorf("worker: %w", err)
	}
	gs.Register(server.TemporalWorkerShutdownHook(w.Stop))

	gs.Start(cfg.Metrics.Addr)
	logger.Info("worker started",
		slog.String("task_queue", cfg.Temporal.TaskQueue),
		slog.String("metrics_addr", cfg.Metrics.Addr),
	)

	select {
	case <-gs.Shutdown.Done():
	case err := <-gs.ServeErr():
		logger.Error("health server failed", slog.String("error", err.Error()))
		gs.Shutdown.Shutdown()
		gs.Wait()
	}
	logger.Info("worker stopped")
	return nil
}
