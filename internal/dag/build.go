package dag

import (
	"context"
	"fmt"

	"github.com/specialistvlad/stagegrid/internal/config"
	"github.com/specialistvlad/stagegrid/internal/ctxlog"
)

// Build constructs a complete, validated dependency graph from a pipeline.
func Build(ctx context.Context, p *config.Pipeline) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: Starting graph construction.")
	g := New()

	// First pass: create all stage vertices.
	for _, s := range p.Stages {
		if err := g.AddStage(s); err != nil {
			return nil, err
		}
	}
	logger.Debug("Build: Node creation complete.", "node_count", g.Len())

	// Second pass: link dependencies.
	for _, s := range p.Stages {
		if err := linkExplicit(ctx, g, s); err != nil {
			return nil, err
		}
		if err := linkImplicit(ctx, g, p, s); err != nil {
			return nil, err
		}
	}
	logger.Debug("Build: Node linking complete.")

	return g, nil
}

// linkExplicit resolves dependencies from `depends_on`.
func linkExplicit(ctx context.Context, g *Graph, s *config.Stage) error {
	logger := ctxlog.FromContext(ctx)
	for _, dep := range s.DependsOn {
		logger.Debug("Linking explicit dependency.", "from", dep, "to", s.Name)
		if err := g.AddDependency(dep, s.Name); err != nil {
			return fmt.Errorf("error validating dependency graph: %w", err)
		}
	}
	return nil
}

// linkImplicit adds an edge from the publisher of every restored artifact.
func linkImplicit(ctx context.Context, g *Graph, p *config.Pipeline, s *config.Stage) error {
	logger := ctxlog.FromContext(ctx)
	for _, r := range s.Restore {
		publisher := p.Publisher(r.Name)
		if publisher == nil {
			return fmt.Errorf("stage %q restores artifact %q which no stage publishes", s.Name, r.Name)
		}
		logger.Debug("Linking implicit artifact dependency.", "from", publisher.Name, "to", s.Name, "artifact", r.Name)
		if err := g.AddDependency(publisher.Name, s.Name); err != nil {
			return fmt.Errorf("error validating dependency graph: %w", err)
		}
	}
	return nil
}
