// Package dag holds the static topology of a pipeline run: which stages exist
// and which stages must finish before another may start. It is built once
// from a config.Pipeline and is read-only afterwards, so it can be shared by
// the scheduler and every worker without further locking.
//
// Edges point from a dependency to its dependent (build -> test). They come
// from two sources:
//
//   - explicit `depends_on` lists;
//   - implicit artifact edges: a stage that restores an artifact depends on
//     the stage that publishes it.
//
// Cycles are rejected at insertion time.
package dag
