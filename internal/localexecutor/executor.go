// Package localexecutor provides a concrete, in-process implementation of the
// executor.Executor interface backed by a fixed pool of worker goroutines.
package localexecutor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/specialistvlad/stagegrid/internal/ctxlog"
	"github.com/specialistvlad/stagegrid/internal/executor"
	"github.com/specialistvlad/stagegrid/internal/graph"
	"github.com/specialistvlad/stagegrid/internal/node"
	"github.com/specialistvlad/stagegrid/internal/nodestore"
	"github.com/specialistvlad/stagegrid/internal/scheduler"
)

// DefaultWorkers is used when a non-positive worker count is given.
const DefaultWorkers = 4

// Executor implements the executor.Executor interface for local execution.
type Executor struct {
	scheduler  scheduler.Scheduler
	graph      graph.Graph
	runner     executor.StageRunner
	numWorkers int
}

var _ executor.Executor = (*Executor)(nil)

// New creates a new local executor.
func New(
	sch scheduler.Scheduler,
	g graph.Graph,
	runner executor.StageRunner,
	numWorkers int,
) *Executor {
	if numWorkers <= 0 {
		numWorkers = DefaultWorkers
	}
	return &Executor{
		scheduler:  sch,
		graph:      g,
		runner:     runner,
		numWorkers: numWorkers,
	}
}

// Execute runs every stage of the graph and returns an error if any stage
// fails. The first failure cancels the rest of the run; stages that depend on
// a failed stage are skipped and never invoked.
func (e *Executor) Execute(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ready := e.scheduler.ReadyNodes(runCtx)

	logger.Debug("Starting worker pool.", "workers", e.numWorkers)
	var wg sync.WaitGroup
	for i := range e.numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.worker(runCtx, ready, cancel, i)
		}()
	}
	wg.Wait()
	logger.Debug("All workers finished.")

	// Whatever is still pending was never reached.
	for _, n := range e.graph.AllNodes(ctx) {
		if status, _ := e.graph.NodeStatus(ctx, n.ID); status == node.StatusPending {
			if err := e.graph.MarkSkipped(ctx, n.ID, executor.ErrNotStarted); err == nil {
				logger.Warn("⏭️ Stage skipped", "stage", n.ID, "reason", executor.ErrNotStarted)
			}
		}
	}

	return e.result(ctx)
}

// result inspects the final state of the graph and wraps the root-cause
// failure. Skipped and interrupted stages are symptoms, not causes.
func (e *Executor) result(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	snapshot := e.graph.Snapshot(ctx)

	var failedNodes []string
	var rootCause nodestore.Record
	interrupted := false
	for _, n := range e.graph.AllNodes(ctx) {
		rec := snapshot[n.ID]
		if rec.Status != node.StatusFailed {
			continue
		}
		logger.Debug("Stage failed execution.", "stage", n.ID, "error", rec.Err)
		if rec.Err == nil || errors.Is(rec.Err, context.Canceled) {
			interrupted = true
			continue
		}
		failedNodes = append(failedNodes, n.ID)
		if rootCause.Err == nil || rec.FinishedAt.Before(rootCause.FinishedAt) {
			rootCause = rec
		}
	}

	if rootCause.Err != nil {
		return fmt.Errorf("execution failed for %s: %w", strings.Join(failedNodes, ", "), rootCause.Err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("execution interrupted: %w", err)
	}
	if interrupted {
		return fmt.Errorf("execution interrupted: %w", context.Canceled)
	}
	return nil
}
