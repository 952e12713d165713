// Package executor defines the interface for the DAG execution engine.
package executor

import (
	"context"
	"errors"

	"github.com/specialistvlad/stagegrid/internal/config"
)

// ErrUpstreamFailed is the reason recorded for stages skipped because a
// dependency failed.
var ErrUpstreamFailed = errors.New("skipped due to upstream failure")

// ErrNotStarted is the reason recorded for stages that never started because
// the run was cancelled.
var ErrNotStarted = errors.New("not started, run was cancelled")

// Executor is responsible for orchestrating the end-to-end execution of a DAG.
// It manages concurrency, interacts with the scheduler, and dispatches stages.
type Executor interface {
	Execute(ctx context.Context) error
}

// StageRunner performs the actual work of one stage.
type StageRunner interface {
	RunStage(ctx context.Context, stage *config.Stage) error
}

// StageRunnerFunc adapts a function to the StageRunner interface.
type StageRunnerFunc func(ctx context.Context, stage *config.Stage) error

// RunStage implements StageRunner.
func (f StageRunnerFunc) RunStage(ctx context.Context, stage *config.Stage) error {
	return f(ctx, stage)
}
