package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/efebarandurmaz/forge/internal/algo/unionfind"
	"github.com/efebarandurmaz/forge/internal/config"
	"github.com/efebarandurmaz/forge/internal/dss"
	"github.com/efebarandurmaz/forge/internal/graph"
	"github.com/efebarandurmaz/forge/internal/graph/memory"
	"github.com/efebarandurmaz/forge/internal/graph/neo4j"
	"github.com/efebarandurmaz/forge/internal/loader"
	"github.com/efebarandurmaz/forge/internal/metrics"
	"github.com/efebarandurmaz/forge/internal/observability"
)

type runOptions struct {
	configPath     string
	edgesPath      string
	direction      string
	weightProperty string
	defaultWeight  float64
	variant        string
	concurrency    int
	batchSize      int64
	jsonReport     bool
	logLevel       string

	strategy  string
	threshold float64
	top       int
	stream    bool
}

// apply copies explicitly set flags over the loaded configuration.
func (o *runOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("direction") {
		cfg.Load.Direction = o.direction
	}
	if flags.Changed("weight-property") {
		cfg.Load.WeightProperty = o.weightProperty
	}
	if flags.Changed("default-weight") {
		cfg.Load.DefaultWeight = o.defaultWeight
	}
	if flags.Changed("variant") {
		cfg.Load.Variant = o.variant
	}
	if flags.Changed("concurrency") {
		cfg.Load.Concurrency = o.concurrency
		cfg.UnionFind.Concurrency = o.concurrency
	}
	if flags.Changed("batch-size") {
		cfg.Load.BatchSize = o.batchSize
		cfg.UnionFind.BatchSize = o.batchSize
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	if flags.Lookup("strategy") != nil && flags.Changed("strategy") {
		cfg.UnionFind.Strategy = o.strategy
	}
	if flags.Lookup("threshold") != nil && flags.Changed("threshold") {
		cfg.UnionFind.Threshold = o.threshold
		cfg.UnionFind.UseThreshold = true
	}
}

// session holds what every command needs before it touches the graph.
type session struct {
	cfg        *config.Config
	logger     *slog.Logger
	audit      *observability.AuditLogger
	source     graph.Source
	sourceName string
	runID      string
	closers    []func(context.Context) error
}

func open(ctx context.Context, cmd *cobra.Command, o *runOptions) (*session, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	o.apply(cmd, cfg)

	s := &session{cfg: cfg}
	s.logger = observability.NewLogger(observability.LogConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	})
	slog.SetDefault(s.logger)

	tp, err := observability.InitTracing(ctx, cfg.TracingOptions(version))
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}
	s.closers = append(s.closers, tp.Shutdown)

	s.audit, err = observability.NewAuditLogger(&observability.AuditConfig{
		Enabled:    cfg.Log.AuditPath != "",
		OutputPath: cfg.Log.AuditPath,
	})
	if err != nil {
		s.close(ctx)
		return nil, err
	}
	s.closers = append(s.closers, func(context.Context) error { return s.audit.Close() })

	if err := s.openSource(ctx, o.edgesPath); err != nil {
		s.close(ctx)
		return nil, err
	}
	return s, nil
}

func (s *session) openSource(ctx context.Context, edgesPath string) error {
	if edgesPath != "" {
		f, err := os.Open(edgesPath)
		if err != nil {
			return fmt.Errorf("opening edge list: %w", err)
		}
		defer f.Close()
		src, err := memory.ReadCSV(f)
		if err != nil {
			return fmt.Errorf("reading %s: %w", edgesPath, err)
		}
		s.source, s.sourceName = src, edgesPath
		return nil
	}

	n := s.cfg.Neo4j
	src, err := neo4j.NewSource(ctx, n.URI, n.Username, n.Password, s.cfg.Neo4jOptions())
	if err != nil {
		return err
	}
	s.source, s.sourceName = src, n.URI
	s.closers = append(s.closers, src.Close)
	return nil
}

// close releases resources in reverse order of acquisition.
func (s *session) close(ctx context.Context) {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil && s.logger != nil {
		s.logger.Warn("closing resources", "error", err)
	}
}

func (s *session) load(ctx context.Context, report *metrics.RunMetrics) (graph.Graph, error) {
	lc, err := s.cfg.Loader()
	if err != nil {
		return nil, err
	}
	lc.RunID = uuid.NewString()
	s.runID = lc.RunID

	s.audit.LogImportStart(ctx, lc.RunID, lc.Direction.String(), string(lc.Variant))
	g, stats, err := loader.New(s.source, lc, s.logger).Load(ctx)
	if err != nil {
		s.audit.LogImportError(ctx, lc.RunID, err)
		return nil, err
	}
	s.audit.LogImportComplete(ctx, lc.RunID, stats.Duration, stats.Nodes, stats.Relationships, stats.Skipped)
	report.CollectImport(stats)
	return g, nil
}

func runLoad(cmd *cobra.Command, o *runOptions) error {
	ctx := cmd.Context()
	s, err := open(ctx, cmd, o)
	if err != nil {
		return err
	}
	defer s.close(context.WithoutCancel(ctx))

	report := metrics.New(s.sourceName)
	if _, err := s.load(ctx, report); err != nil {
		return err
	}
	report.Finish(nil)
	return writeReport(cmd.OutOrStdout(), report, o.jsonReport)
}

func runComponents(cmd *cobra.Command, o *runOptions) error {
	ctx := cmd.Context()
	s, err := open(ctx, cmd, o)
	if err != nil {
		return err
	}
	defer s.close(context.WithoutCancel(ctx))

	uc, err := s.cfg.UnionFindRun()
	if err != nil {
		return err
	}

	report := metrics.New(s.sourceName)
	g, err := s.load(ctx, report)
	if err != nil {
		return err
	}

	start := time.Now()
	res, err := unionfind.Run(ctx, g, uc, s.logger)
	elapsed := time.Since(start)
	var setCount int64
	if res != nil {
		setCount = res.SetCount()
	}
	s.audit.LogUnionFind(ctx, s.runID, string(uc.Strategy), elapsed, setCount, err)
	if err != nil {
		return err
	}

	if o.stream {
		return streamRecords(cmd.OutOrStdout(), res.ResultStream(g))
	}
	report.CollectUnionFind(string(uc.Strategy), elapsed, res, g, o.top)
	report.Finish(nil)
	return writeReport(cmd.OutOrStdout(), report, o.jsonReport)
}

func streamRecords(w io.Writer, records iter.Seq[dss.Record]) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("writing record: %w", err)
		}
	}
	return bw.Flush()
}

func writeReport(w io.Writer, report *metrics.RunMetrics, asJSON bool) error {
	if !asJSON {
		report.PrintSummary(w)
		return nil
	}
	data, err := report.JSON()
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
