// Package localsession provides a concrete implementation of the session.Session
// and session.SessionFactory interfaces for local, in-process execution.
package localsession

import (
	"context"

	"github.com/specialistvlad/stagegrid/internal/artifact"
	"github.com/specialistvlad/stagegrid/internal/config"
	"github.com/specialistvlad/stagegrid/internal/ctxlog"
	"github.com/specialistvlad/stagegrid/internal/dag"
	"github.com/specialistvlad/stagegrid/internal/executor"
	"github.com/specialistvlad/stagegrid/internal/graph"
	"github.com/specialistvlad/stagegrid/internal/inmemorystore"
	"github.com/specialistvlad/stagegrid/internal/localexecutor"
	"github.com/specialistvlad/stagegrid/internal/runner"
	"github.com/specialistvlad/stagegrid/internal/scheduler"
	"github.com/specialistvlad/stagegrid/internal/session"
	"github.com/specialistvlad/stagegrid/internal/workspace"
)

// SessionFactory implements session.SessionFactory for local runs.
type SessionFactory struct {
	Workdir     string
	Source      string
	Workers     int
	KeepWorkdir bool
}

var _ session.SessionFactory = (*SessionFactory)(nil)

// NewSession allocates the run directory and wires the components of a run.
func (f *SessionFactory) NewSession(
	ctx context.Context,
	p *config.Pipeline,
	topology *dag.Graph,
) (session.Session, error) {
	logger := ctxlog.FromContext(ctx)

	run, err := workspace.NewRun(ctx, f.Workdir, f.Source)
	if err != nil {
		return nil, err
	}
	store, err := artifact.NewLocalStore(run.ArtifactDir())
	if err != nil {
		_ = run.Cleanup(ctx)
		return nil, err
	}

	g := graph.New(ctx, topology, inmemorystore.New())
	exec := localexecutor.New(
		scheduler.New(g),
		g,
		runner.New(run, store, p.Env),
		f.Workers,
	)
	logger.Debug("Local session created.", "run_id", run.ID, "dir", run.Dir)

	return &Session{
		run:      run,
		graph:    g,
		executor: exec,
		keep:     f.KeepWorkdir,
	}, nil
}

// Session implements session.Session for local runs.
type Session struct {
	run      *workspace.Run
	graph    graph.Graph
	executor executor.Executor
	keep     bool
}

var _ session.Session = (*Session)(nil)

// ID implements session.Session.
func (s *Session) ID() string { return s.run.ID }

// Graph implements session.Session.
func (s *Session) Graph() graph.Graph { return s.graph }

// Dir returns the run directory.
func (s *Session) Dir() string { return s.run.Dir }

// GetExecutor returns the executor that was created and wired up by the factory.
func (s *Session) GetExecutor() (executor.Executor, error) {
	return s.executor, nil
}

// Close removes the run directory unless the session was asked to keep it.
func (s *Session) Close(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	if s.keep {
		logger.Info("Run directory kept.", "dir", s.run.Dir)
		return nil
	}
	return s.run.Cleanup(ctx)
}
