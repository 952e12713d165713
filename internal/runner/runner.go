package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/specialistvlad/stagegrid/internal/artifact"
	"github.com/specialistvlad/stagegrid/internal/collect"
	"github.com/specialistvlad/stagegrid/internal/config"
	"github.com/specialistvlad/stagegrid/internal/ctxlog"
	"github.com/specialistvlad/stagegrid/internal/workspace"
)

// Runner executes stages of one run.
type Runner struct {
	run         *workspace.Run
	artifacts   artifact.Store
	pipelineEnv map[string]string
	environ     func() []string
}

// New creates a runner for the given run directory and artifact store.
func New(run *workspace.Run, artifacts artifact.Store, pipelineEnv map[string]string) *Runner {
	return &Runner{
		run:         run,
		artifacts:   artifacts,
		pipelineEnv: pipelineEnv,
		environ:     os.Environ,
	}
}

// RunStage executes every shard of the stage and publishes its artifacts
// once all shards succeeded.
func (r *Runner) RunStage(ctx context.Context, s *config.Stage) error {
	ctx = ctxlog.With(ctx, "stage", s.Name)
	logger := ctxlog.FromContext(ctx)

	stageCtx := ctx
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		stageCtx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	total := max(s.Parallelism, 1)
	logger.Debug("Starting shards.", "shards", total)

	g, shardCtx := errgroup.WithContext(stageCtx)
	for i := range total {
		g.Go(func() error {
			if err := r.runShard(shardCtx, s, i, total); err != nil {
				if total > 1 {
					return fmt.Errorf("shard %d: %w", i, err)
				}
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(stageCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("stage %q timed out after %s: %w", s.Name, s.Timeout, err)
		}
		return err
	}

	return r.publish(ctx, s)
}

func (r *Runner) runShard(ctx context.Context, s *config.Stage, shard, total int) error {
	ctx = ctxlog.With(ctx, "shard", shard)
	logger := ctxlog.FromContext(ctx)

	dir, err := r.run.PrepareShard(ctx, s.Name, shard, s.Checkout)
	if err != nil {
		return err
	}

	for _, rs := range s.Restore {
		dest := filepath.Join(dir, rs.Path)
		if err := r.artifacts.Get(ctx, rs.Name, dest); err != nil {
			return fmt.Errorf("failed to restore artifact %q: %w", rs.Name, err)
		}
		logger.Info("📥 Artifact restored", "artifact", rs.Name, "path", rs.Path)
	}

	stepErr := r.runSteps(ctx, s, shard, total, dir)

	// Collect runs even after a failure or cancellation so that partial
	// results still reach their fixed paths.
	if err := collect.Run(context.WithoutCancel(ctx), s.Collect, dir, shard, total); err != nil {
		logger.Warn("Collecting results failed.", "error", err)
	}
	return stepErr
}

func (r *Runner) runSteps(ctx context.Context, s *config.Stage, shard, total int, dir string) error {
	logger := ctxlog.FromContext(ctx)
	for _, step := range s.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		stepCtx := ctxlog.With(ctx, "step", step.Name)
		env := r.Environment(s, step, shard, total, dir)

		start := time.Now()
		err := runCommand(stepCtx, s.Shell, step, dir, env)
		elapsed := time.Since(start)
		switch {
		case err == nil:
			logger.Info("✅ Step finished", "step", step.Name, "duration", elapsed)
		case step.ContinueOnError && ctx.Err() == nil:
			logger.Warn("⚠️ Step failed, continuing", "step", step.Name, "error", err, "duration", elapsed)
		default:
			logger.Error("❌ Step failed", "step", step.Name, "error", err, "duration", elapsed)
			return err
		}
	}
	return nil
}

func (r *Runner) publish(ctx context.Context, s *config.Stage) error {
	if len(s.Publish) == 0 {
		return nil
	}
	logger := ctxlog.FromContext(ctx)
	dir := r.run.ShardDir(s.Name, 0)
	for _, p := range s.Publish {
		info, err := r.artifacts.Put(ctx, p.Name, filepath.Join(dir, p.Path))
		if err != nil {
			return fmt.Errorf("failed to publish artifact %q: %w", p.Name, err)
		}
		logger.Info("📤 Artifact published", "artifact", p.Name, "files", info.Files, "bytes", info.Size)
	}
	return nil
}
