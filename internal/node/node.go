// Package node defines the vertex type shared by the graph, scheduler and
// executor, together with the execution status a vertex moves through.
package node

import (
	"fmt"

	"github.com/specialistvlad/stagegrid/internal/config"
)

// Node is a single vertex in the execution graph: one stage of the pipeline.
type Node struct {
	// ID is the stage name; it is unique within a pipeline.
	ID string
	// Stage is the configuration the runner executes.
	Stage *config.Stage
}

// New creates a node for the given stage.
func New(stage *config.Stage) *Node {
	return &Node{ID: stage.Name, Stage: stage}
}

// Status represents the execution state of a node.
type Status int

const (
	// StatusPending indicates the node is waiting for its dependencies.
	StatusPending Status = iota
	// StatusRunning indicates a worker is executing the node.
	StatusRunning
	// StatusCompleted indicates the node finished successfully.
	StatusCompleted
	// StatusFailed indicates the node's execution failed.
	StatusFailed
	// StatusSkipped indicates the node never ran because an upstream node
	// failed or the run was cancelled.
	StatusSkipped
)

var statusNames = map[Status]string{
	StatusPending:   "pending",
	StatusRunning:   "running",
	StatusCompleted: "completed",
	StatusFailed:    "failed",
	StatusSkipped:   "skipped",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// MarshalText renders the status by name in JSON reports.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// IsTerminal reports whether no further transition can leave s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusSkipped
}

// CanTransition reports whether a node may move from one status to another.
//
//	Pending → Running → Completed | Failed
//	Pending → Skipped
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusRunning || to == StatusSkipped
	case StatusRunning:
		return to == StatusCompleted || to == StatusFailed
	default:
		return false
	}
}
