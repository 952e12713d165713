// Package scheduler provides the decision-making engine for the execution graph.
// Its primary role is to analyze the state of a graph and determine which stages
// are ready to be executed, providing them to the Executor.
//
// # How It Works
//
// The scheduler follows a continuous cycle:
//  1. Query the graph for all nodes and their current status.
//  2. Find Pending nodes whose dependencies are all Completed.
//  3. Emit those nodes via the ReadyNodes() channel in name order.
//  4. Wait for the executor to mark nodes Running/Completed/Failed/Skipped.
//  5. Repeat until no node is Pending or Running.
//
// The scheduler never changes node state itself; it only reads the graph and
// reacts to its change notifications.
package scheduler
