// Package graph provides a unified facade for the execution graph of one
// run, combining the static topology (dag.Graph) with the mutable state
// (nodestore.Store).
//
// The scheduler and executor interact with this single interface instead of
// coordinating two stores. Every state change is also broadcast on the
// Changes channel so the scheduler can re-evaluate which stages are ready
// without polling.
//
// Lifecycle:
//
//  1. Created by the session with the topology and node store injected.
//  2. Queried during execution (scheduler finds ready nodes, executor
//     updates state).
//  3. Read once more for the final report, then discarded.
package graph
