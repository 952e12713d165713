package localexecutor

import (
	"context"
	"fmt"
	"time"

	"github.com/specialistvlad/stagegrid/internal/ctxlog"
	"github.com/specialistvlad/stagegrid/internal/executor"
	"github.com/specialistvlad/stagegrid/internal/node"
)

// worker is the core processing loop for a single concurrent worker.
func (e *Executor) worker(ctx context.Context, ready <-chan *node.Node, cancel context.CancelFunc, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for n := range ready {
		workerLogger := logger.With("workerID", workerID, "stage", n.ID)

		if ctx.Err() != nil {
			if err := e.graph.MarkSkipped(ctx, n.ID, executor.ErrNotStarted); err == nil {
				workerLogger.Warn("⏭️ Stage skipped", "reason", executor.ErrNotStarted)
			}
			continue
		}

		if err := e.graph.MarkRunning(ctx, n.ID); err != nil {
			workerLogger.Error("Failed to start stage.", "error", err)
			continue
		}

		workerLogger.Info("▶️ Starting stage")
		start := time.Now()
		err := e.runner.RunStage(ctx, n.Stage)
		elapsed := time.Since(start)

		if err != nil {
			workerLogger.Error("❌ Stage failed", "error", err, "duration", elapsed)
			// Cancel before recording: the failure wakes the scheduler, and no
			// worker may start a stage it releases.
			cancel()
			if merr := e.graph.MarkFailed(ctx, n.ID, err); merr != nil {
				workerLogger.Error("Failed to record stage failure.", "error", merr)
			}
			e.skipDependents(ctx, n)
			continue
		}

		if merr := e.graph.MarkCompleted(ctx, n.ID); merr != nil {
			workerLogger.Error("Failed to record stage completion.", "error", merr)
			continue
		}
		workerLogger.Info("✅ Stage completed", "duration", elapsed)
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}

// skipDependents recursively marks all downstream stages as skipped.
func (e *Executor) skipDependents(ctx context.Context, failed *node.Node) {
	logger := ctxlog.FromContext(ctx)

	dependents, err := e.graph.DependentsOf(ctx, failed.ID)
	if err != nil {
		logger.Error("Failed to get dependents while skipping stages.", "stage", failed.ID, "error", err)
		return
	}

	for _, dependent := range dependents {
		reason := fmt.Errorf("%w of %q", executor.ErrUpstreamFailed, failed.ID)
		if err := e.graph.MarkSkipped(ctx, dependent.ID, reason); err != nil {
			// Already skipped through another path.
			continue
		}
		logger.Warn("⏭️ Skipping dependent stage due to upstream failure.", "stage", dependent.ID, "dependency", failed.ID)
		e.skipDependents(ctx, dependent)
	}
}
