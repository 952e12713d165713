package dag

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/dominikbraun/graph"
	"github.com/dominikbraun/graph/draw"
	"github.com/specialistvlad/stagegrid/internal/config"
)

var (
	// ErrCycle is returned when an edge would close a dependency cycle.
	ErrCycle = errors.New("cycle detected")
	// ErrUnknownStage is returned when an edge or lookup names a stage that
	// does not exist.
	ErrUnknownStage = errors.New("unknown stage")
)

// Graph is an acyclic, directed graph of stages keyed by stage name.
type Graph struct {
	g graph.Graph[string, *config.Stage]
}

func stageHash(s *config.Stage) string { return s.Name }

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		g: graph.New(stageHash, graph.Directed(), graph.PreventCycles()),
	}
}

// AddStage adds a stage vertex. Adding a second stage with the same name is
// an error.
func (g *Graph) AddStage(s *config.Stage) error {
	if err := g.g.AddVertex(s); err != nil {
		if errors.Is(err, graph.ErrVertexAlreadyExists) {
			return fmt.Errorf("duplicate stage %q", s.Name)
		}
		return fmt.Errorf("failed to add stage %q: %w", s.Name, err)
	}
	return nil
}

// AddDependency records that `dependent` may only start after `dependency`
// completed. Adding an edge that already exists is a no-op.
func (g *Graph) AddDependency(dependency, dependent string) error {
	if dependency == dependent {
		return fmt.Errorf("%w: stage %q depends on itself", ErrCycle, dependent)
	}
	if _, ok := g.Stage(dependency); !ok {
		return fmt.Errorf("%w: stage %q depends on non-existent stage %q", ErrUnknownStage, dependent, dependency)
	}
	if _, ok := g.Stage(dependent); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStage, dependent)
	}

	err := g.g.AddEdge(dependency, dependent)
	switch {
	case err == nil, errors.Is(err, graph.ErrEdgeAlreadyExists):
		return nil
	case errors.Is(err, graph.ErrEdgeCreatesCycle):
		return fmt.Errorf("%w: %s -> %s", ErrCycle, dependency, dependent)
	default:
		return fmt.Errorf("failed to link %s -> %s: %w", dependency, dependent, err)
	}
}

// Stage returns the stage with the given name.
func (g *Graph) Stage(name string) (*config.Stage, bool) {
	s, err := g.g.Vertex(name)
	if err != nil {
		return nil, false
	}
	return s, true
}

// Names returns every stage name in lexical order.
func (g *Graph) Names() []string {
	adj, err := g.g.AdjacencyMap()
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(adj))
	for name := range adj {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of stages.
func (g *Graph) Len() int {
	n, err := g.g.Order()
	if err != nil {
		return 0
	}
	return n
}

// Dependencies returns the names of the stages `name` directly depends on,
// sorted.
func (g *Graph) Dependencies(name string) ([]string, error) {
	pred, err := g.g.PredecessorMap()
	if err != nil {
		return nil, err
	}
	edges, ok := pred[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStage, name)
	}
	return sortedKeys(edges), nil
}

// Dependents returns the names of the stages that directly depend on
// `name`, sorted.
func (g *Graph) Dependents(name string) ([]string, error) {
	adj, err := g.g.AdjacencyMap()
	if err != nil {
		return nil, err
	}
	edges, ok := adj[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStage, name)
	}
	return sortedKeys(edges), nil
}

// Order returns a topological order of all stages. Among stages that are
// ready at the same time the lexically smaller name comes first, so the
// order is identical on every run.
func (g *Graph) Order() ([]string, error) {
	return graph.StableTopologicalSort(g.g, func(a, b string) bool { return a < b })
}

// Select returns a new graph holding the named stages and everything they
// transitively depend on.
func (g *Graph) Select(names ...string) (*Graph, error) {
	keep := make(map[string]struct{})
	var visit func(name string) error
	visit = func(name string) error {
		if _, seen := keep[name]; seen {
			return nil
		}
		if _, ok := g.Stage(name); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownStage, name)
		}
		keep[name] = struct{}{}
		deps, err := g.Dependencies(name)
		if err != nil {
			return err
		}
		for _, dep := range deps {
			if err := visit(dep); err != nil {
				return err
			}
		}
		return nil
	}
	for _, name := range names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}

	sub := New()
	for _, name := range g.Names() {
		if _, ok := keep[name]; !ok {
			continue
		}
		s, _ := g.Stage(name)
		if err := sub.AddStage(s); err != nil {
			return nil, err
		}
	}
	for _, name := range sub.Names() {
		deps, err := g.Dependencies(name)
		if err != nil {
			return nil, err
		}
		for _, dep := range deps {
			if err := sub.AddDependency(dep, name); err != nil {
				return nil, err
			}
		}
	}
	return sub, nil
}

// WriteDOT renders the graph in Graphviz DOT format.
func (g *Graph) WriteDOT(w io.Writer) error {
	return draw.DOT(g.g, w)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
