// Package loader imports a graph.Source into a compacted in-memory graph.
//
// An import runs in four phases. Nodes are enumerated once to build the id
// map. The internal id range is then cut into contiguous batches and each
// batch scans the relationships of its own nodes into adjacency rows it owns
// exclusively. Weight registers are resolved per batch, again without
// sharing, and finally copied into the per-entry weight slots before the
// selected graph variant is assembled.
package loader

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/efebarandurmaz/forge/internal/adjacency"
	"github.com/efebarandurmaz/forge/internal/graph"
	"github.com/efebarandurmaz/forge/internal/heavy"
	"github.com/efebarandurmaz/forge/internal/huge"
	"github.com/efebarandurmaz/forge/internal/idmap"
	"github.com/efebarandurmaz/forge/internal/observability"
	"github.com/efebarandurmaz/forge/internal/weights"
)

// Stats describes a finished import.
type Stats struct {
	RunID         string          `json:"run_id"`
	Nodes         int64           `json:"nodes"`
	Relationships int64           `json:"relationships"`
	Skipped       int64           `json:"skipped"`
	Variant       Variant         `json:"variant"`
	Direction     graph.Direction `json:"direction"`
	Batches       int             `json:"batches"`

	NodesDuration   time.Duration `json:"nodes_duration"`
	ScanDuration    time.Duration `json:"scan_duration"`
	ResolveDuration time.Duration `json:"resolve_duration"`
	BuildDuration   time.Duration `json:"build_duration"`
	Duration        time.Duration `json:"duration"`
}

// Loader imports one source. A Loader may be reused; every Load is independent.
type Loader struct {
	src    graph.Source
	cfg    Config
	logger *slog.Logger
}

// New creates a loader. A nil logger uses slog.Default().
func New(src graph.Source, cfg Config, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{src: src, cfg: cfg, logger: logger.With(slog.String("component", "loader"))}
}

// side is the adjacency of one direction under construction.
type side struct {
	targets *adjacency.Lists
	weights *weights.Slots
}

func newSide(n int64) *side {
	return &side{targets: adjacency.NewLists(n), weights: weights.NewSlots(n)}
}

// run holds the state of one Load call.
type run struct {
	cfg     Config
	src     graph.Source
	ids     *idmap.IDMap
	out     *side
	in      *side
	pairs   *weights.Pairs
	skipped atomic.Int64
}

// Load imports the source. On error no graph is returned.
func (l *Loader) Load(ctx context.Context) (graph.Graph, Stats, error) {
	start := time.Now()
	stats := Stats{RunID: l.cfg.RunID}
	if stats.RunID == "" {
		stats.RunID = uuid.NewString()
	}

	cfg, err := l.cfg.normalize()
	if err != nil {
		return nil, stats, err
	}
	stats.Direction = cfg.Direction

	ctx, span := observability.StartImportSpan(ctx, stats.RunID, cfg.Direction.String(), string(cfg.Variant))
	defer span.End()

	log := l.logger.With(slog.String("run_id", stats.RunID))
	log.Info("import started",
		slog.String("direction", cfg.Direction.String()),
		slog.String("variant", string(cfg.Variant)),
		slog.String("weight_property", cfg.WeightProperty),
		slog.Int("concurrency", cfg.Concurrency),
		slog.Int64("batch_size", cfg.BatchSize),
	)

	g, err := l.load(ctx, cfg, &stats, log)
	stats.Duration = time.Since(start)
	if err != nil {
		observability.RecordError(span, err)
		log.Error("import failed", slog.String("error", err.Error()))
		return nil, stats, err
	}

	observability.RecordImportResult(span, string(stats.Variant), stats.Nodes, stats.Relationships, stats.Skipped, stats.Duration)
	log.Info("import complete",
		slog.String("variant", string(stats.Variant)),
		slog.Int64("nodes", stats.Nodes),
		slog.Int64("relationships", stats.Relationships),
		slog.Int64("skipped", stats.Skipped),
		slog.Duration("duration", stats.Duration),
	)
	return g, stats, nil
}

func (l *Loader) load(ctx context.Context, cfg Config, stats *Stats, log *slog.Logger) (graph.Graph, error) {
	phase := time.Now()
	pctx, span := observability.StartPhaseSpan(ctx, "nodes", 1)
	ids, err := idmap.FromSource(pctx, l.src, cfg.capacity())
	observability.RecordError(span, err)
	span.End()
	if err != nil {
		return nil, err
	}
	n := ids.NodeCount()
	stats.Nodes = n
	stats.NodesDuration = time.Since(phase)

	variant := cfg.Variant
	if variant == VariantAuto {
		variant = VariantHeavy
		if n > heavy.Capacity {
			variant = VariantHuge
		}
	}
	stats.Variant = variant
	log.Debug("id map built", slog.Int64("nodes", n), slog.String("variant", string(variant)))

	r := &run{
		cfg:   cfg,
		src:   l.src,
		ids:   ids,
		pairs: weights.NewPairs(n, cfg.BatchSize, cfg.Direction == graph.Both, cfg.DefaultWeight),
	}
	if cfg.Direction.HasOutgoing() {
		r.out = newSide(n)
	}
	if cfg.Direction.HasIncoming() {
		r.in = newSide(n)
	}

	batches := batchCount(n, cfg.BatchSize)
	stats.Batches = batches

	phase = time.Now()
	if err := r.forEachBatch(ctx, "scan", batches, r.scan); err != nil {
		return nil, err
	}
	stats.ScanDuration = time.Since(phase)
	stats.Skipped = r.skipped.Load()

	// Registers of a batch are only final once every batch is resolved, so the
	// slots are filled in a separate pass.
	phase = time.Now()
	if err := r.forEachBatch(ctx, "resolve", batches, r.resolve); err != nil {
		return nil, err
	}
	if err := r.forEachBatch(ctx, "fill", batches, r.fill); err != nil {
		return nil, err
	}
	stats.ResolveDuration = time.Since(phase)

	phase = time.Now()
	_, span = observability.StartPhaseSpan(ctx, "build", 1)
	g := r.build(variant)
	span.End()
	stats.BuildDuration = time.Since(phase)
	stats.Relationships = g.RelationshipCount()
	return g, nil
}

func batchCount(n, size int64) int {
	return int((n + size - 1) / size)
}

// forEachBatch runs fn for every batch with at most cfg.Concurrency batches in
// flight. The first error cancels the remaining batches.
func (r *run) forEachBatch(ctx context.Context, phase string, batches int, fn func(ctx context.Context, lo, hi int64) error) error {
	ctx, span := observability.StartPhaseSpan(ctx, phase, batches)
	defer span.End()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)
	n := r.ids.NodeCount()
	for b := 0; b < batches; b++ {
		lo := int64(b) * r.cfg.BatchSize
		hi := min(lo+r.cfg.BatchSize, n)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, lo, hi)
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	observability.RecordError(span, err)
	return err
}

// scan reads the relationships of nodes [lo, hi) from the source. Every row
// it appends to belongs to the batch.
func (r *run) scan(ctx context.Context, lo, hi int64) error {
	ext := r.ids.ExternalRange(nil, lo, hi)
	if r.out != nil {
		err := r.src.ForEachRelationship(ctx, ext, graph.Outgoing, func(rel graph.Relationship) error {
			return r.add(r.out, rel, rel.Source, rel.Target, lo, hi)
		})
		if err != nil {
			return fmt.Errorf("scanning outgoing relationships of nodes [%d, %d): %w", lo, hi, err)
		}
	}
	if r.in != nil {
		err := r.src.ForEachRelationship(ctx, ext, graph.Incoming, func(rel graph.Relationship) error {
			return r.add(r.in, rel, rel.Target, rel.Source, lo, hi)
		})
		if err != nil {
			return fmt.Errorf("scanning incoming relationships of nodes [%d, %d): %w", lo, hi, err)
		}
	}
	return nil
}

func (r *run) add(s *side, rel graph.Relationship, anchor, other, lo, hi int64) error {
	node, err := r.ids.ToInternal(anchor)
	if err != nil || node < lo || node >= hi {
		return fmt.Errorf("source returned relationship %d->%d for node %d outside the requested batch", rel.Source, rel.Target, anchor)
	}
	target, err := r.ids.ToInternal(other)
	if err != nil {
		r.skipped.Add(1)
		return nil
	}
	w, err := r.weight(rel)
	if err != nil {
		return fmt.Errorf("relationship %d->%d: %w", rel.Source, rel.Target, err)
	}
	s.targets.Append(node, target)
	s.weights.Append(node, w)
	return nil
}

func (r *run) weight(rel graph.Relationship) (float64, error) {
	if r.cfg.WeightProperty == "" || rel.Properties == nil {
		return r.cfg.DefaultWeight, nil
	}
	w, ok, err := rel.Properties.Float(r.cfg.WeightProperty)
	if err != nil {
		return 0, err
	}
	if !ok {
		return r.cfg.DefaultWeight, nil
	}
	return w, nil
}

// resolve replays the entries of nodes [lo, hi) in emission order: node by
// node, outgoing row before incoming row. A node only writes the registers it
// owns. For a symmetric register {x, y} with x < y, node y emits a matching
// entry after every entry of node x, so x's writes are always overwritten and
// can be skipped.
func (r *run) resolve(ctx context.Context, lo, hi int64) error {
	symmetric := r.pairs.Symmetric()
	for node := lo; node < hi; node++ {
		if node&1023 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		for _, s := range []*side{r.out, r.in} {
			if s == nil {
				continue
			}
			ws := s.weights.Row(node)
			for i, t := range s.targets.Row(node) {
				if symmetric && t > node {
					continue
				}
				r.pairs.Set(node, t, ws[i])
			}
		}
	}
	return nil
}

// fill copies the resolved registers into the weight slots so traversal and
// WeightOf agree on every entry.
func (r *run) fill(ctx context.Context, lo, hi int64) error {
	for node := lo; node < hi; node++ {
		if node&1023 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		for _, s := range []*side{r.out, r.in} {
			if s == nil {
				continue
			}
			for i, t := range s.targets.Row(node) {
				s.weights.Set(node, i, r.pairs.Get(node, t))
			}
		}
	}
	return nil
}

func (r *run) build(variant Variant) graph.Graph {
	if variant == VariantHuge {
		var out, in *adjacency.Lists
		var outW, inW *weights.Slots
		if r.out != nil {
			out, outW = r.out.targets, r.out.weights
		}
		if r.in != nil {
			in, inW = r.in.targets, r.in.weights
		}
		return huge.New(r.ids, r.cfg.Direction, out, outW, in, inW, r.pairs)
	}
	var out, in heavy.Side
	if r.out != nil {
		out = heavy.Side{Targets: r.out.targets, Weights: r.out.weights}
	}
	if r.in != nil {
		in = heavy.Side{Targets: r.in.targets, Weights: r.in.weights}
	}
	return heavy.New(r.ids, r.cfg.Direction, out, in, r.pairs)
}
