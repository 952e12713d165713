// Package nodestore defines the interface for storing and retrieving the
// mutable execution state of stages during a run.
//
// The store isolates mutable state (status, error, timings) from the
// immutable topology held by the dag package. It is created once per run,
// initialized with every stage in Pending status, mutated by the executor
// and queried by the scheduler, and discarded when the run ends.
//
// Stages follow this lifecycle:
//
//	Pending → Running → Completed OR Failed
//	Pending → Skipped
package nodestore

import (
	"context"
	"errors"
	"time"

	"github.com/specialistvlad/stagegrid/internal/node"
)

var (
	// ErrUnknownNode is returned for IDs the store was not initialized with.
	ErrUnknownNode = errors.New("unknown node")
	// ErrInvalidTransition is returned when a status change violates the
	// lifecycle.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Record is the execution state of one stage.
type Record struct {
	Status     node.Status
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration is the wall time the stage spent running, zero if it never ran.
func (r Record) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Store manages the mutable execution state of stages.
//
// Implementations MUST be safe for concurrent use: several workers update
// different stages while the scheduler reads all of them.
type Store interface {
	// Init registers every id in Pending status, discarding previous state.
	Init(ctx context.Context, ids []string)

	// Transition moves id to the given status, recording err for Failed and
	// Skipped. Start and finish times are stamped automatically.
	Transition(ctx context.Context, id string, to node.Status, err error) error

	// Get returns the record for id.
	Get(ctx context.Context, id string) (Record, bool)

	// Snapshot returns a copy of every record, keyed by id.
	Snapshot(ctx context.Context) map[string]Record
}
