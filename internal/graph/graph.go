package graph

import (
	"context"
	"fmt"

	"github.com/specialistvlad/stagegrid/internal/ctxlog"
	"github.com/specialistvlad/stagegrid/internal/dag"
	"github.com/specialistvlad/stagegrid/internal/node"
	"github.com/specialistvlad/stagegrid/internal/nodestore"
)

// Manager provides a thread-safe interface to the execution graph by
// composing the stage topology with a node store.
type Manager struct {
	topology *dag.Graph
	store    nodestore.Store
	nodes    map[string]*node.Node
	order    []string
	changes  chan struct{}
}

var _ Graph = (*Manager)(nil)

// New creates a graph manager and initializes every stage to Pending.
func New(ctx context.Context, topology *dag.Graph, store nodestore.Store) *Manager {
	names := topology.Names()
	nodes := make(map[string]*node.Node, len(names))
	for _, name := range names {
		s, _ := topology.Stage(name)
		nodes[name] = node.New(s)
	}
	store.Init(ctx, names)

	return &Manager{
		topology: topology,
		store:    store,
		nodes:    nodes,
		order:    names,
		changes:  make(chan struct{}, 1),
	}
}

// Node implements Graph.
func (m *Manager) Node(_ context.Context, id string) (*node.Node, bool) {
	n, ok := m.nodes[id]
	return n, ok
}

// DependenciesOf implements Graph.
func (m *Manager) DependenciesOf(_ context.Context, id string) ([]*node.Node, error) {
	ids, err := m.topology.Dependencies(id)
	if err != nil {
		return nil, err
	}
	return m.lookup(ids), nil
}

// DependentsOf implements Graph.
func (m *Manager) DependentsOf(_ context.Context, id string) ([]*node.Node, error) {
	ids, err := m.topology.Dependents(id)
	if err != nil {
		return nil, err
	}
	return m.lookup(ids), nil
}

// AllNodes implements Graph.
func (m *Manager) AllNodes(_ context.Context) []*node.Node {
	return m.lookup(m.order)
}

// NodeStatus implements Graph.
func (m *Manager) NodeStatus(ctx context.Context, id string) (node.Status, bool) {
	rec, ok := m.store.Get(ctx, id)
	if !ok {
		return node.StatusPending, false
	}
	return rec.Status, true
}

// Snapshot implements Graph.
func (m *Manager) Snapshot(ctx context.Context) map[string]nodestore.Record {
	return m.store.Snapshot(ctx)
}

// MarkRunning implements Graph.
func (m *Manager) MarkRunning(ctx context.Context, id string) error {
	return m.transition(ctx, id, node.StatusRunning, nil)
}

// MarkCompleted implements Graph.
func (m *Manager) MarkCompleted(ctx context.Context, id string) error {
	return m.transition(ctx, id, node.StatusCompleted, nil)
}

// MarkFailed implements Graph.
func (m *Manager) MarkFailed(ctx context.Context, id string, nodeErr error) error {
	return m.transition(ctx, id, node.StatusFailed, nodeErr)
}

// MarkSkipped implements Graph.
func (m *Manager) MarkSkipped(ctx context.Context, id string, reason error) error {
	return m.transition(ctx, id, node.StatusSkipped, reason)
}

// Changes implements Graph.
func (m *Manager) Changes() <-chan struct{} {
	return m.changes
}

func (m *Manager) transition(ctx context.Context, id string, to node.Status, err error) error {
	if terr := m.store.Transition(ctx, id, to, err); terr != nil {
		return fmt.Errorf("failed to mark %q %s: %w", id, to, terr)
	}
	m.notify(ctx)
	return nil
}

// notify performs a non-blocking send; a pending notification already
// covers this change.
func (m *Manager) notify(ctx context.Context) {
	select {
	case m.changes <- struct{}{}:
	default:
		ctxlog.FromContext(ctx).Debug("Graph change notification coalesced.")
	}
}

func (m *Manager) lookup(ids []string) []*node.Node {
	out := make([]*node.Node, 0, len(ids))
	for _, id := range ids {
		if n, ok := m.nodes[id]; ok {
			out = append(out, n)
		}
	}
	return out
}
