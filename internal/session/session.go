// Package session defines the core interfaces for creating and managing an
// execution session. It abstracts away the details of where stages run.
package session

import (
	"context"

	"github.com/specialistvlad/stagegrid/internal/config"
	"github.com/specialistvlad/stagegrid/internal/dag"
	"github.com/specialistvlad/stagegrid/internal/executor"
	"github.com/specialistvlad/stagegrid/internal/graph"
)

// SessionFactory creates an execution Session for one pipeline run.
type SessionFactory interface {
	NewSession(
		ctx context.Context,
		p *config.Pipeline,
		topology *dag.Graph,
	) (Session, error)
}

// Session represents a single execution run and manages its lifecycle.
type Session interface {
	// ID identifies the run.
	ID() string
	// Graph exposes the live execution state of the run.
	Graph() graph.Graph
	GetExecutor() (executor.Executor, error)
	// Close releases any resources held by the session. It accepts a context
	// to allow for graceful cleanup operations.
	Close(ctx context.Context) error
}
