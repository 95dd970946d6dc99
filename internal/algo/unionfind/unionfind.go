// Package unionfind computes the weakly connected components of a compacted
// graph with a disjoint-set struct.
package unionfind

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/efebarandurmaz/forge/internal/dss"
	"github.com/efebarandurmaz/forge/internal/graph"
	"github.com/efebarandurmaz/forge/internal/observability"
)

// Strategy selects how the disjoint-set struct is driven.
type Strategy string

const (
	// Sequential walks all nodes on one goroutine into a ranked struct.
	Sequential Strategy = "sequential"
	// Parallel walks node batches concurrently into a lock-free struct.
	Parallel Strategy = "parallel"
	// Pipelined walks node batches concurrently and feeds the pairs through
	// one channel into a ranked struct.
	Pipelined Strategy = "pipelined"
)

// ParseStrategy parses a strategy name. The empty string means parallel.
func ParseStrategy(s string) (Strategy, error) {
	switch v := Strategy(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return Parallel, nil
	case Sequential, Parallel, Pipelined:
		return v, nil
	}
	return "", fmt.Errorf("unknown union-find strategy %q", s)
}

const defaultBatchSize = 10_000

// Config controls a union-find run.
type Config struct {
	Strategy    Strategy
	Concurrency int
	BatchSize   int64
	// Threshold drops relationships whose weight is not strictly greater.
	// It only applies when UseThreshold is set.
	Threshold    float64
	UseThreshold bool
}

// DefaultConfig returns a parallel run without threshold.
func DefaultConfig() Config {
	return Config{
		Strategy:    Parallel,
		Concurrency: runtime.GOMAXPROCS(0),
		BatchSize:   defaultBatchSize,
	}
}

func (c Config) accepts(weight float64) bool {
	return !c.UseThreshold || weight > c.Threshold
}

// Run unions the endpoints of every relationship of g, traversed in the
// direction g was loaded with.
func Run(ctx context.Context, g graph.Graph, cfg Config, logger *slog.Logger) (*dss.Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	strategy, err := ParseStrategy(string(cfg.Strategy))
	if err != nil {
		return nil, err
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = runtime.GOMAXPROCS(0)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}

	n := g.NodeCount()
	ctx, span := observability.StartUnionFindSpan(ctx, string(strategy), n)
	defer span.End()
	start := time.Now()

	var s dss.Struct
	switch strategy {
	case Sequential:
		s, err = runSequential(ctx, g, cfg)
	case Parallel:
		s, err = runParallel(ctx, g, cfg)
	case Pipelined:
		s, err = runPipelined(ctx, g, cfg)
	}
	if err != nil {
		observability.RecordError(span, err)
		return nil, fmt.Errorf("union-find (%s): %w", strategy, err)
	}

	res := dss.NewResult(s)
	elapsed := time.Since(start)
	observability.RecordUnionFindResult(span, res.SetCount(), elapsed)
	logger.Info("union-find complete",
		slog.String("strategy", string(strategy)),
		slog.Int64("nodes", n),
		slog.Int64("sets", res.SetCount()),
		slog.Duration("duration", elapsed),
	)
	return res, nil
}

func runSequential(ctx context.Context, g graph.Graph, cfg Config) (dss.Struct, error) {
	s := dss.NewRanked(g.NodeCount())
	dir := g.LoadedDirection()
	var err error
	g.ForEachNode(func(node int64) bool {
		if node&1023 == 0 {
			if err = ctx.Err(); err != nil {
				return false
			}
		}
		g.ForEachRelationship(node, dir, func(src, tgt int64, w float64) bool {
			if cfg.accepts(w) {
				s.Union(src, tgt)
			}
			return true
		})
		return true
	})
	return s, err
}

// forEachBatch runs fn over contiguous node batches with bounded concurrency.
func forEachBatch(ctx context.Context, n int64, cfg Config, fn func(ctx context.Context, lo, hi int64) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency)
	for lo := int64(0); lo < n; lo += cfg.BatchSize {
		hi := min(lo+cfg.BatchSize, n)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, lo, hi)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func runParallel(ctx context.Context, g graph.Graph, cfg Config) (dss.Struct, error) {
	n := g.NodeCount()
	s := dss.NewConcurrent(n)
	dir := g.LoadedDirection()
	err := forEachBatch(ctx, n, cfg, func(ctx context.Context, lo, hi int64) error {
		for node := lo; node < hi; node++ {
			g.ForEachRelationship(node, dir, func(src, tgt int64, w float64) bool {
				if cfg.accepts(w) {
					s.Union(src, tgt)
				}
				return true
			})
		}
		return ctx.Err()
	})
	return s, err
}

func runPipelined(ctx context.Context, g graph.Graph, cfg Config) (dss.Struct, error) {
	n := g.NodeCount()
	s := dss.NewRanked(n)
	dir := g.LoadedDirection()
	pairs := make(chan [][2]int64, cfg.Concurrency)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for chunk := range pairs {
			for _, p := range chunk {
				s.Union(p[0], p[1])
			}
		}
	}()

	err := forEachBatch(ctx, n, cfg, func(ctx context.Context, lo, hi int64) error {
		var chunk [][2]int64
		for node := lo; node < hi; node++ {
			g.ForEachRelationship(node, dir, func(src, tgt int64, w float64) bool {
				if cfg.accepts(w) && src != tgt {
					chunk = append(chunk, [2]int64{src, tgt})
				}
				return true
			})
		}
		select {
		case pairs <- chunk:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	close(pairs)
	<-done
	return s, err
}
