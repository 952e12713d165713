// Package workspace manages the on-disk layout of a run: the run directory,
// per-shard working copies of the source tree and the artifact root.
//
//	<workdir>/.stagegrid/runs/<run-id>/
//	    artifacts/<name>.tar.gz
//	    stages/<stage>/shard-<i>/
package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/specialistvlad/stagegrid/internal/ctxlog"
)

// StateDir is the directory under the workdir that holds all run state.
const StateDir = ".stagegrid"

// Run is the directory tree owned by one pipeline run.
type Run struct {
	ID     string
	Dir    string
	Source string
}

// NewRun allocates a fresh run directory under workdir. The source tree is
// the directory later copied into shard workspaces.
func NewRun(ctx context.Context, workdir, source string) (*Run, error) {
	id := uuid.NewString()
	absSource, err := filepath.Abs(source)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve source %s: %w", source, err)
	}
	dir, err := filepath.Abs(filepath.Join(workdir, StateDir, "runs", id))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve run directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}
	ctxlog.FromContext(ctx).Debug("Run directory created.", "run_id", id, "dir", dir)
	return &Run{ID: id, Dir: dir, Source: absSource}, nil
}

// ArtifactDir is the root of the run's artifact store.
func (r *Run) ArtifactDir() string {
	return filepath.Join(r.Dir, "artifacts")
}

// ShardDir returns the workspace path for one shard of a stage.
func (r *Run) ShardDir(stage string, shard int) string {
	return filepath.Join(r.Dir, "stages", stage, fmt.Sprintf("shard-%d", shard))
}

// PrepareShard creates a clean shard workspace, copying the source tree into
// it when checkout is true. Version-control metadata and the state directory
// are never copied.
func (r *Run) PrepareShard(ctx context.Context, stage string, shard int, checkout bool) (string, error) {
	dir := r.ShardDir(stage, shard)
	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("failed to reset workspace %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create workspace %s: %w", dir, err)
	}
	if !checkout {
		return dir, nil
	}

	skip := map[string]bool{
		filepath.Join(r.Source, ".git"):   true,
		filepath.Join(r.Source, StateDir): true,
		r.Dir:                             true,
	}
	if err := CopyTree(ctx, r.Source, dir, func(path string) bool { return skip[path] }); err != nil {
		return "", fmt.Errorf("failed to check out source into %s: %w", dir, err)
	}
	return dir, nil
}

// Cleanup removes the run directory and everything it holds.
func (r *Run) Cleanup(ctx context.Context) error {
	ctxlog.FromContext(ctx).Debug("Removing run directory.", "dir", r.Dir)
	if err := os.RemoveAll(r.Dir); err != nil {
		return fmt.Errorf("failed to remove run directory: %w", err)
	}
	return nil
}
