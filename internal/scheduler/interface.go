package scheduler

import (
	"context"

	"github.com/specialistvlad/stagegrid/internal/node"
)

// Scheduler analyzes the dependency graph and node execution state to determine
// which nodes are ready for execution.
//
// The executor consumes the ReadyNodes() channel in a loop:
//
//	for n := range sched.ReadyNodes(ctx) {
//	    workers <- n
//	}
type Scheduler interface {
	// ReadyNodes returns a channel that streams nodes as they become ready.
	//
	// A node is "ready" when its status is Pending and all of its dependencies
	// have status Completed. Each node is emitted at most once.
	//
	// The channel is closed by the scheduler when no node is Pending or
	// Running, when the remaining Pending nodes can never become ready, or
	// when ctx is cancelled.
	ReadyNodes(ctx context.Context) <-chan *node.Node
}
