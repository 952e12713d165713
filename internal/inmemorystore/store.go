// Package inmemorystore provides an ephemeral, thread-safe, in-memory
// implementation of the nodestore.Store interface.
//
// A single mutex guards the record map. Every transition is a
// read-check-write on one record, and the key space is small (one entry per
// stage), so a plain lock keeps the check and the write atomic without
// measurable contention.
package inmemorystore

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/specialistvlad/stagegrid/internal/ctxlog"
	"github.com/specialistvlad/stagegrid/internal/node"
	"github.com/specialistvlad/stagegrid/internal/nodestore"
)

// Store is an in-memory implementation of nodestore.Store.
type Store struct {
	mu      sync.RWMutex
	records map[string]nodestore.Record
	now     func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		records: make(map[string]nodestore.Record),
		now:     time.Now,
	}
}

var _ nodestore.Store = (*Store)(nil)

// Init implements nodestore.Store.
func (s *Store) Init(ctx context.Context, ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]nodestore.Record, len(ids))
	for _, id := range ids {
		s.records[id] = nodestore.Record{Status: node.StatusPending}
	}
	ctxlog.FromContext(ctx).Debug("Node store initialized.", "count", len(ids))
}

// Transition implements nodestore.Store.
func (s *Store) Transition(ctx context.Context, id string, to node.Status, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("%w: %q", nodestore.ErrUnknownNode, id)
	}
	if !node.CanTransition(rec.Status, to) {
		return fmt.Errorf("%w: %q %s -> %s", nodestore.ErrInvalidTransition, id, rec.Status, to)
	}

	now := s.now()
	switch to {
	case node.StatusRunning:
		rec.StartedAt = now
	case node.StatusCompleted, node.StatusFailed, node.StatusSkipped:
		rec.FinishedAt = now
		rec.Err = err
	}
	rec.Status = to
	s.records[id] = rec

	ctxlog.FromContext(ctx).Debug("Node status changed.", "nodeID", id, "status", to.String())
	return nil
}

// Get implements nodestore.Store.
func (s *Store) Get(_ context.Context, id string) (nodestore.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	return rec, ok
}

// Snapshot implements nodestore.Store.
func (s *Store) Snapshot(_ context.Context) map[string]nodestore.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.records)
}
