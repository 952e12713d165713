// Package collect copies files produced inside a shard workspace to fixed
// paths on the host, where external collectors (test-result parsers, artifact
// archivers) expect to find them.
package collect

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/specialistvlad/stagegrid/internal/config"
	"github.com/specialistvlad/stagegrid/internal/ctxlog"
	"github.com/specialistvlad/stagegrid/internal/workspace"
)

// Destination returns where a collect entry lands for one shard. Stages with
// more than one shard get a shard-<i> sub-directory so shards never overwrite
// each other; a collected file keeps its own name inside it.
func Destination(c *config.Collect, shard, total int) string {
	if total <= 1 {
		return c.To
	}
	return filepath.Join(c.To, fmt.Sprintf("shard-%d", shard))
}

// Run copies every collect entry of a shard. It attempts all entries and
// returns the joined errors of those that failed.
func Run(ctx context.Context, entries []*config.Collect, workspaceDir string, shard, total int) error {
	logger := ctxlog.FromContext(ctx)
	var errs []error
	for _, c := range entries {
		src := filepath.Join(workspaceDir, c.From)
		dst := Destination(c, shard, total)
		if total > 1 {
			if err := os.MkdirAll(dst, 0o755); err != nil {
				errs = append(errs, fmt.Errorf("collect %q: %w", c.Name, err))
				continue
			}
		}
		if err := Copy(ctx, src, dst); err != nil {
			errs = append(errs, fmt.Errorf("collect %q: %w", c.Name, err))
			continue
		}
		logger.Info("📦 Collected", "collect", c.Name, "from", c.From, "to", dst)
	}
	return errors.Join(errs...)
}

// Copy copies src to dst. A file lands at dst (or inside dst when dst is an
// existing directory); a directory is merged into dst.
func Copy(ctx context.Context, src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if info.IsDir() {
		if err := os.MkdirAll(dst, 0o755); err != nil {
			return err
		}
		return workspace.CopyTree(ctx, src, dst, nil)
	}

	if st, err := os.Stat(dst); err == nil && st.IsDir() {
		dst = filepath.Join(dst, filepath.Base(src))
	}
	return workspace.CopyFile(src, dst, info.Mode().Perm())
}
