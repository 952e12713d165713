package workspace

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNewRun_Layout(t *testing.T) {
	ctx := context.Background()
	workdir := t.TempDir()

	run, err := NewRun(ctx, workdir, workdir)
	require.NoError(t, err)
	_, err = uuid.Parse(run.ID)
	require.NoError(t, err, "run id should be a uuid")

	assert.DirExists(t, run.Dir)
	assert.Equal(t, filepath.Join(run.Dir, "artifacts"), run.ArtifactDir())
	assert.Equal(t, filepath.Join(run.Dir, "stages", "test", "shard-3"), run.ShardDir("test", 3))

	other, err := NewRun(ctx, workdir, workdir)
	require.NoError(t, err)
	assert.NotEqual(t, run.ID, other.ID)

	require.NoError(t, run.Cleanup(ctx))
	assert.NoDirExists(t, run.Dir)
	assert.DirExists(t, other.Dir)
}

func TestPrepareShard_CopiesSource(t *testing.T) {
	ctx := context.Background()
	// The state directory lives inside the source tree, as it does when the
	// workdir is the checkout itself.
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "setup.py"), "setup()")
	writeFile(t, filepath.Join(src, "pkg", "mod.py"), "x = 1")
	writeFile(t, filepath.Join(src, ".git", "HEAD"), "ref: main")

	run, err := NewRun(ctx, src, src)
	require.NoError(t, err)

	dir, err := run.PrepareShard(ctx, "build", 0, true)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "setup.py"))
	assert.FileExists(t, filepath.Join(dir, "pkg", "mod.py"))
	assert.NoDirExists(t, filepath.Join(dir, ".git"))
	assert.NoDirExists(t, filepath.Join(dir, StateDir))

	// A second preparation starts from a clean tree.
	writeFile(t, filepath.Join(dir, "leftover"), "x")
	dir, err = run.PrepareShard(ctx, "build", 0, true)
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "leftover"))
}

func TestPrepareShard_NoCheckout(t *testing.T) {
	ctx := context.Background()
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "setup.py"), "setup()")

	run, err := NewRun(ctx, t.TempDir(), src)
	require.NoError(t, err)
	dir, err := run.PrepareShard(ctx, "report", 1, false)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCopyTree_Skip(t *testing.T) {
	ctx := context.Background()
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "keep", "a.txt"), "a")
	writeFile(t, filepath.Join(src, "drop", "b.txt"), "b")
	writeFile(t, filepath.Join(src, "c.txt"), "c")
	require.NoError(t, os.Symlink("c.txt", filepath.Join(src, "link")))

	dst := filepath.Join(t.TempDir(), "out")
	skip := func(path string) bool { return path == filepath.Join(src, "drop") }
	require.NoError(t, CopyTree(ctx, src, dst, skip))

	assert.FileExists(t, filepath.Join(dst, "keep", "a.txt"))
	assert.FileExists(t, filepath.Join(dst, "c.txt"))
	assert.NoDirExists(t, filepath.Join(dst, "drop"))
	link, err := os.Readlink(filepath.Join(dst, "link"))
	require.NoError(t, err)
	assert.Equal(t, "c.txt", link)
}

func TestCopyTree_OverwritesPreviousCopy(t *testing.T) {
	ctx := context.Background()
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a.txt"), "one")
	require.NoError(t, os.Chmod(filepath.Join(src, "a.txt"), 0o444))
	require.NoError(t, os.Symlink("a.txt", filepath.Join(src, "link")))

	dst := t.TempDir()
	require.NoError(t, CopyTree(ctx, src, dst, nil))

	require.NoError(t, os.Chmod(filepath.Join(src, "a.txt"), 0o644))
	writeFile(t, filepath.Join(src, "a.txt"), "two")
	require.NoError(t, os.Remove(filepath.Join(src, "link")))
	require.NoError(t, os.Symlink("missing.txt", filepath.Join(src, "link")))
	require.NoError(t, CopyTree(ctx, src, dst, nil))

	got, err := os.ReadFile(filepath.Join(dst, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))
	link, err := os.Readlink(filepath.Join(dst, "link"))
	require.NoError(t, err)
	assert.Equal(t, "missing.txt", link)
}

func TestCopyFile_RefusesToReplaceDirectory(t *testing.T) {
	src := filepath.Join(t.TempDir(), "a.txt")
	writeFile(t, src, "a")
	dst := t.TempDir()

	err := CopyFile(src, dst, 0o644)
	require.ErrorIs(t, err, ErrDirectoryInTheWay)
}
