package temporal

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// Application error types that the retry policy refuses to retry: a bad
// weight property or an oversized graph fails the same way on every attempt.
const (
	ErrTypeInvalidProperty  = "InvalidPropertyError"
	ErrTypeCapacityExceeded = "CapacityExceededError"
	ErrTypeInvalidInput     = "InvalidInputError"
)

const (
	defaultActivityTimeout = 30 * time.Minute
	defaultMaxAttempts     = 3
	defaultTop             = 10
)

// ComponentsInput holds the workflow parameters. Enum fields use their
// textual form so that histories stay readable.
type ComponentsInput struct {
	Direction      string
	WeightProperty string
	DefaultWeight  float64
	Concurrency    int
	BatchSize      int64
	Variant        string
	MaxNodes       int64

	Strategy     string
	Threshold    float64
	UseThreshold bool

	// Top is the number of largest sets to report (default 10).
	Top int
	// Timeout overrides the activity start-to-close timeout.
	Timeout time.Duration
}

// ComponentSet is one connected set, named by an external node id.
type ComponentSet struct {
	Representative int64
	Size           int64
}

// ComponentsOutput holds the workflow result.
type ComponentsOutput struct {
	RunID             string
	Variant           string
	Direction         string
	Nodes             int64
	Relationships     int64
	Skipped           int64
	SetCount          int64
	Largest           []ComponentSet
	ImportDuration    time.Duration
	UnionFindDuration time.Duration
}

// ComponentsWorkflow imports the configured graph and computes its connected
// sets in a single activity.
func ComponentsWorkflow(ctx workflow.Context, input ComponentsInput) (*ComponentsOutput, error) {
	timeout := input.Timeout
	if timeout <= 0 {
		timeout = defaultActivityTimeout
	}
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        time.Second,
			BackoffCoefficient:     2.0,
			MaximumAttempts:        defaultMaxAttempts,
			NonRetryableErrorTypes: []string{ErrTypeInvalidProperty, ErrTypeCapacityExceeded, ErrTypeInvalidInput},
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	logger := workflow.GetLogger(ctx)
	logger.Info("components workflow started", "direction", input.Direction, "strategy", input.Strategy)

	var out ComponentsOutput
	if err := workflow.ExecuteActivity(ctx, ComputeComponentsActivity, input).Get(ctx, &out); err != nil {
		return nil, fmt.Errorf("compute components: %w", err)
	}

	logger.Info("components workflow complete", "run_id", out.RunID, "sets", out.SetCount)
	return &out, nil
}
