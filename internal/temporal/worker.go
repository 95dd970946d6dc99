package temporal

import (
	"fmt"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

// StartWorker creates and starts a Temporal worker. Imports are memory
// heavy, so maxActivities bounds how many run at once (0 keeps the SDK
// default).
func StartWorker(c client.Client, taskQueue string, maxActivities int) (worker.Worker, error) {
	maxActivities = max(maxActivities, 0)
	w := worker.New(c, taskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize: maxActivities,
	})

	w.RegisterWorkflow(ComponentsWorkflow)
	w.RegisterActivity(ComputeComponentsActivity)

	if err := w.Start(); err != nil {
		return nil, fmt.Errorf("starting worker: %w", err)
	}
	return w, nil
}
