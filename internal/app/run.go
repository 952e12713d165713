package app

import (
	"context"
	"fmt"
	"time"

	"github.com/specialistvlad/stagegrid/internal/config"
	"github.com/specialistvlad/stagegrid/internal/ctxlog"
	"github.com/specialistvlad/stagegrid/internal/dag"
	"github.com/specialistvlad/stagegrid/internal/localsession"
	"github.com/specialistvlad/stagegrid/internal/report"
)

// Run loads the pipeline and executes it. Errors caused by the pipeline
// definition wrap ErrConfiguration; everything else is an execution failure.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.ctx = ctx
	logger := a.logger
	logger.Debug("App.Run method started.")

	p, topo, err := a.plan(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	order, err := topo.Order()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	if a.config.PrintDOT {
		return topo.WriteDOT(a.outW)
	}
	if a.config.DryRun {
		return a.printPlan(topo, order)
	}
	if topo.Len() == 0 {
		logger.Warn("No stages found in pipeline, execution not required.")
		return nil
	}

	a.healthCheckServer()
	defer a.closeHealthCheckServer()

	return a.execute(ctx, p, topo, order)
}

// plan loads, validates and builds the stage graph, narrowed to the
// selected stages when any were requested.
func (a *App) plan(ctx context.Context) (*config.Pipeline, *dag.Graph, error) {
	logger := ctxlog.FromContext(ctx)

	loader, err := selectLoader(ctx, a.config.PipelinePath)
	if err != nil {
		return nil, nil, err
	}
	p, err := loader.Load(ctx, a.config.Variables, a.config.PipelinePath)
	if err != nil {
		return nil, nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}
	logger.Info("Pipeline loaded.", "pipeline", p.Name, "stages", len(p.Stages))

	topo, err := dag.Build(ctx, p)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build dependency graph: %w", err)
	}
	if len(a.config.Stages) > 0 {
		topo, err = topo.Select(a.config.Stages...)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to select stages: %w", err)
		}
		logger.Debug("Stage selection applied.", "selected", a.config.Stages, "stages", topo.Len())
	}
	return p, topo, nil
}

func (a *App) printPlan(topo *dag.Graph, order []string) error {
	for i, name := range order {
		s, _ := topo.Stage(name)
		deps, err := topo.Dependencies(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.outW, "%d. %s (shards: %d, steps: %d)", i+1, name, s.Parallelism, len(s.Steps))
		if len(deps) > 0 {
			fmt.Fprintf(a.outW, " after %v", deps)
		}
		fmt.Fprintln(a.outW)
	}
	return nil
}

func (a *App) execute(ctx context.Context, p *config.Pipeline, topo *dag.Graph, order []string) error {
	startedAt := time.Now()

	factory := &localsession.SessionFactory{
		Workdir:     a.config.Workdir,
		Source:      a.config.SourcePath,
		Workers:     a.config.WorkerCount,
		KeepWorkdir: a.config.KeepWorkdir,
	}
	sess, err := factory.NewSession(ctx, p, topo)
	if err != nil {
		return err
	}
	ctx = withRun(ctx, sess.ID(), p.Name)
	logger := ctxlog.FromContext(ctx)
	defer func() {
		if err := sess.Close(ctx); err != nil {
			logger.Warn("Failed to clean up run directory.", "error", err)
		}
	}()
	a.setRun(sess.ID(), sess.Graph())

	exec, err := sess.GetExecutor()
	if err != nil {
		return err
	}

	logger.Info("🚀 Starting pipeline", "order", order, "workers", a.config.WorkerCount)
	runErr := exec.Execute(ctx)
	logger.Info("🏁 Pipeline finished", "success", runErr == nil, "duration", time.Since(startedAt))

	rep := report.New(ctx, sess.ID(), p.Name, order, sess.Graph(), startedAt, runErr)
	if err := rep.WriteTable(a.outW); err != nil {
		logger.Warn("Failed to print summary.", "error", err)
	}
	if a.config.ReportPath != "" {
		if err := rep.WriteFile(a.config.ReportPath); err != nil {
			logger.Error("Failed to write report.", "path", a.config.ReportPath, "error", err)
		} else {
			logger.Info("Report written.", "path", a.config.ReportPath)
		}
	}
	return runErr
}
