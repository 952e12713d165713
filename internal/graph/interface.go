package graph

import (
	"context"

	"github.com/specialistvlad/stagegrid/internal/node"
	"github.com/specialistvlad/stagegrid/internal/nodestore"
)

// Graph is a unified interface for interacting with the execution DAG,
// combining static topology queries with dynamic state updates.
//
// Implementations MUST be thread-safe: several workers execute nodes in
// parallel and simultaneously query and update the graph.
type Graph interface {
	// Node retrieves a node by its ID.
	Node(ctx context.Context, id string) (*node.Node, bool)

	// DependenciesOf returns the nodes the given node directly depends on,
	// sorted by ID.
	DependenciesOf(ctx context.Context, id string) ([]*node.Node, error)

	// DependentsOf returns the nodes that directly depend on the given node,
	// sorted by ID.
	DependentsOf(ctx context.Context, id string) ([]*node.Node, error)

	// AllNodes returns every node sorted by ID.
	AllNodes(ctx context.Context) []*node.Node

	// NodeStatus retrieves the current status of a node.
	NodeStatus(ctx context.Context, id string) (node.Status, bool)

	// Snapshot returns the state record of every node.
	Snapshot(ctx context.Context) map[string]nodestore.Record

	// MarkRunning transitions a node Pending → Running. It fails if the node
	// is not Pending, which guarantees a node is executed at most once.
	MarkRunning(ctx context.Context, id string) error

	// MarkCompleted transitions a node Running → Completed.
	MarkCompleted(ctx context.Context, id string) error

	// MarkFailed transitions a node Running → Failed and records the error.
	MarkFailed(ctx context.Context, id string, nodeErr error) error

	// MarkSkipped transitions a node Pending → Skipped with the reason.
	MarkSkipped(ctx context.Context, id string, reason error) error

	// Changes returns a channel that receives a value after state changes.
	// Notifications are coalesced: one receive may cover several changes.
	Changes() <-chan struct{}
}
