package scheduler

import (
	"context"

	"github.com/specialistvlad/stagegrid/internal/ctxlog"
	"github.com/specialistvlad/stagegrid/internal/graph"
	"github.com/specialistvlad/stagegrid/internal/node"
)

// DefaultScheduler is the reference implementation of the Scheduler interface.
// It is driven by the graph's change notifications instead of polling.
type DefaultScheduler struct {
	graph graph.Graph
}

var _ Scheduler = (*DefaultScheduler)(nil)

// New creates a new default scheduler for the given graph.
func New(g graph.Graph) *DefaultScheduler {
	return &DefaultScheduler{graph: g}
}

// ReadyNodes implements Scheduler.
func (s *DefaultScheduler) ReadyNodes(ctx context.Context) <-chan *node.Node {
	out := make(chan *node.Node)
	go s.loop(ctx, out)
	return out
}

func (s *DefaultScheduler) loop(ctx context.Context, out chan<- *node.Node) {
	logger := ctxlog.FromContext(ctx)
	defer close(out)

	emitted := make(map[string]bool)
	for {
		ready, inFlight, pending := s.scan(ctx, emitted)
		for _, n := range ready {
			select {
			case out <- n:
				emitted[n.ID] = true
				inFlight++
				logger.Debug("Node is ready.", "stage", n.ID)
			case <-ctx.Done():
				logger.Debug("Scheduler stopped.", "reason", ctx.Err())
				return
			}
		}

		if inFlight == 0 {
			if pending > 0 {
				logger.Debug("Scheduler finished with unreachable stages.", "pending", pending)
			} else {
				logger.Debug("Scheduler finished, graph is terminal.")
			}
			return
		}

		select {
		case <-s.graph.Changes():
		case <-ctx.Done():
			logger.Debug("Scheduler stopped.", "reason", ctx.Err())
			return
		}
	}
}

// scan returns the nodes ready to be emitted, the number of emitted nodes that
// are not terminal yet, and the number of never-emitted Pending nodes that
// remain blocked.
func (s *DefaultScheduler) scan(ctx context.Context, emitted map[string]bool) (ready []*node.Node, inFlight, blocked int) {
	for _, n := range s.graph.AllNodes(ctx) {
		status, _ := s.graph.NodeStatus(ctx, n.ID)
		if emitted[n.ID] {
			if !status.IsTerminal() {
				inFlight++
			}
			continue
		}
		if status != node.StatusPending {
			continue
		}
		if s.dependenciesCompleted(ctx, n) {
			ready = append(ready, n)
		} else {
			blocked++
		}
	}
	return ready, inFlight, blocked
}

func (s *DefaultScheduler) dependenciesCompleted(ctx context.Context, n *node.Node) bool {
	deps, err := s.graph.DependenciesOf(ctx, n.ID)
	if err != nil {
		ctxlog.FromContext(ctx).Error("Failed to get dependencies.", "stage", n.ID, "error", err)
		return false
	}
	for _, dep := range deps {
		if status, _ := s.graph.NodeStatus(ctx, dep.ID); status != node.StatusCompleted {
			return false
		}
	}
	return true
}
