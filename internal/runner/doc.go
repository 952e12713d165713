// Package runner executes a single stage: it prepares one workspace per
// shard, restores upstream artifacts, runs the stage's shell steps, collects
// result files and finally publishes the stage's own artifacts.
//
// Shards of a stage run concurrently. The first shard to fail cancels its
// siblings; a stage is successful only when every shard is. Steps marked
// continue_on_error never change the outcome of their shard.
//
// Every step sees the same environment layout:
//
//	process env < pipeline env < stage env < step env < STAGEGRID_* variables
//
// where later layers override earlier ones and the STAGEGRID_* variables
// (RUN_ID, STAGE, SHARD_INDEX, SHARD_TOTAL, WORKSPACE) always win.
package runner
