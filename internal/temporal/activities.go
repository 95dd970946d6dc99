package temporal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/efebarandurmaz/forge/internal/algo/unionfind"
	"github.com/efebarandurmaz/forge/internal/graph"
	"github.com/efebarandurmaz/forge/internal/loader"
	"github.com/efebarandurmaz/forge/internal/observability"
)

// Dependencies holds shared resources injected into activities.
type Dependencies struct {
	Source  graph.Source
	Logger  *slog.Logger
	Metrics *observability.ForgeMetrics
	Audit   *observability.AuditLogger
	// OnRunFinished observes the outcome of every activity run, e.g. for a
	// health check.
	OnRunFinished func(error)
}

var deps *Dependencies

// SetDependencies injects shared resources (called during worker setup).
func SetDependencies(d *Dependencies) {
	deps = d
}

func (d *Dependencies) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

func (d *Dependencies) metrics() *observability.ForgeMetrics {
	if d.Metrics != nil {
		return d.Metrics
	}
	return observability.Metrics()
}

func (d *Dependencies) audit() *observability.AuditLogger {
	if d.Audit != nil {
		return d.Audit
	}
	return observability.Audit()
}

func (in ComponentsInput) configs() (loader.Config, unionfind.Config, error) {
	lc := loader.DefaultConfig()
	if in.Direction != "" {
		dir, err := graph.ParseDirection(in.Direction)
		if err != nil {
			return lc, unionfind.Config{}, err
		}
		lc.Direction = dir
	}
	variant, err := loader.ParseVariant(in.Variant)
	if err != nil {
		return lc, unionfind.Config{}, err
	}
	lc.Variant = variant
	lc.WeightProperty = in.WeightProperty
	lc.DefaultWeight = in.DefaultWeight
	lc.MaxNodes = in.MaxNodes
	if in.Concurrency > 0 {
		lc.Concurrency = in.Concurrency
	}
	if in.BatchSize > 0 {
		lc.BatchSize = in.BatchSize
	}

	uc := unionfind.DefaultConfig()
	strategy, err := unionfind.ParseStrategy(in.Strategy)
	if err != nil {
		return lc, uc, err
	}
	uc.Strategy = strategy
	uc.Threshold = in.Threshold
	uc.UseThreshold = in.UseThreshold
	if in.Concurrency > 0 {
		uc.Concurrency = in.Concurrency
	}
	if in.BatchSize > 0 {
		uc.BatchSize = in.BatchSize
	}
	return lc, uc, nil
}

// applicationError maps domain failures onto typed application errors so that
// the workflow retry policy can tell them apart. Other errors stay retryable.
func applicationError(err error) error {
	switch {
	case errors.Is(err, graph.ErrInvalidProperty):
		return temporal.NewApplicationErrorWithCause(err.Error(), ErrTypeInvalidProperty, err)
	case errors.Is(err, graph.ErrCapacityExceeded):
		return temporal.NewApplicationErrorWithCause(err.Error(), ErrTypeCapacityExceeded, err)
	}
	return err
}

// ComputeComponentsActivity loads the graph from the injected source and runs
// union-find over it.
func ComputeComponentsActivity(ctx context.Context, input ComponentsInput) (*ComponentsOutput, error) {
	d := deps
	if d == nil || d.Source == nil {
		return nil, temporal.NewNonRetryableApplicationError("activity dependencies are not configured", "ConfigurationError", nil)
	}

	info := activity.GetInfo(ctx)
	workflowID := info.WorkflowExecution.ID
	runID := uuid.NewString()
	log := d.logger().With(
		slog.String("workflow_id", workflowID),
		slog.String("run_id", runID),
		slog.Int("attempt", int(info.Attempt)),
	)

	lc, uc, err := input.configs()
	if err != nil {
		return nil, temporal.NewApplicationErrorWithCause(err.Error(), ErrTypeInvalidInput, err)
	}
	lc.RunID = runID

	m, a := d.metrics(), d.audit()
	defer m.TrackWorker()()

	top := input.Top
	if top <= 0 {
		top = defaultTop
	}

	start := time.Now()
	a.LogWorkflowStart(ctx, workflowID, lc.Direction.String())
	out, err := compute(ctx, d, lc, uc, top, log)
	a.LogWorkflowEnd(ctx, workflowID, err == nil, time.Since(start), out.SetCount)
	if d.OnRunFinished != nil {
		d.OnRunFinished(err)
	}
	if err != nil {
		return nil, applicationError(err)
	}
	return out, nil
}

// compute always returns a non-nil output so that callers can report partial
// progress.
func compute(ctx context.Context, d *Dependencies, lc loader.Config, uc unionfind.Config, top int, log *slog.Logger) (*ComponentsOutput, error) {
	m, a := d.metrics(), d.audit()
	out := &ComponentsOutput{RunID: lc.RunID, Direction: lc.Direction.String()}

	a.LogImportStart(ctx, lc.RunID, lc.Direction.String(), string(lc.Variant))
	g, stats, err := loader.New(d.Source, lc, log).Load(ctx)
	m.RecordImport(string(stats.Variant), lc.Direction.String(), stats.Duration, stats.Nodes, stats.Relationships, stats.Skipped, err)
	if err != nil {
		a.LogImportError(ctx, lc.RunID, err)
		return out, fmt.Errorf("import: %w", err)
	}
	a.LogImportComplete(ctx, lc.RunID, stats.Duration, stats.Nodes, stats.Relationships, stats.Skipped)
	out.Variant = string(stats.Variant)
	out.Nodes = stats.Nodes
	out.Relationships = stats.Relationships
	out.Skipped = stats.Skipped
	out.ImportDuration = stats.Duration

	ufStart := time.Now()
	res, err := unionfind.Run(ctx, g, uc, log)
	out.UnionFindDuration = time.Since(ufStart)
	var setCount int64
	if res != nil {
		setCount = res.SetCount()
	}
	m.RecordUnionFind(string(uc.Strategy), out.UnionFindDuration, setCount, err)
	a.LogUnionFind(ctx, lc.RunID, string(uc.Strategy), out.UnionFindDuration, setCount, err)
	if err != nil {
		return out, err
	}

	out.SetCount = setCount
	for _, s := range res.Largest(top) {
		out.Largest = append(out.Largest, ComponentSet{Representative: g.ToExternal(s.SetID), Size: s.Size})
	}
	return out, nil
}
