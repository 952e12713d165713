package collect

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/stagegrid/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func read(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestDestination(t *testing.T) {
	c := &config.Collect{Name: "junit", From: "results.xml", To: "/out/test-results"}
	assert.Equal(t, "/out/test-results", Destination(c, 0, 1))
	assert.Equal(t, filepath.Join("/out/test-results", "shard-2"), Destination(c, 2, 4))
}

func TestRun_FilesAndDirectories(t *testing.T) {
	ctx := context.Background()
	ws := t.TempDir()
	out := t.TempDir()
	writeFile(t, filepath.Join(ws, "nosetests.xml"), "<testsuite/>")
	writeFile(t, filepath.Join(ws, "dist", "pkg.tar.bz2"), "pkg")

	entries := []*config.Collect{
		{Name: "results", From: "nosetests.xml", To: filepath.Join(out, "results", "nosetests.xml")},
		{Name: "dist", From: "dist", To: filepath.Join(out, "artifacts")},
	}
	require.NoError(t, Run(ctx, entries, ws, 0, 1))

	assert.Equal(t, "<testsuite/>", read(t, filepath.Join(out, "results", "nosetests.xml")))
	assert.Equal(t, "pkg", read(t, filepath.Join(out, "artifacts", "pkg.tar.bz2")))
}

func TestRun_ShardsDoNotCollide(t *testing.T) {
	ctx := context.Background()
	out := filepath.Join(t.TempDir(), "nosetests.xml")
	entries := []*config.Collect{{Name: "results", From: "nosetests.xml", To: out}}

	// Run twice: the layout must not depend on what an earlier run left behind.
	for run := 0; run < 2; run++ {
		for shard := 0; shard < 2; shard++ {
			ws := t.TempDir()
			writeFile(t, filepath.Join(ws, "nosetests.xml"), string(rune('a'+shard)))
			require.NoError(t, Run(ctx, entries, ws, shard, 2))
		}

		assert.Equal(t, "a", read(t, filepath.Join(out, "shard-0", "nosetests.xml")))
		assert.Equal(t, "b", read(t, filepath.Join(out, "shard-1", "nosetests.xml")))
	}
}

func TestRun_SameDirectoryTwice(t *testing.T) {
	ctx := context.Background()
	ws := t.TempDir()
	out := filepath.Join(t.TempDir(), "artifacts")
	writeFile(t, filepath.Join(ws, "dist", "pkg.tar.bz2"), "v1")
	writeFile(t, filepath.Join(ws, "dist", "VERSION"), "1")
	require.NoError(t, os.Chmod(filepath.Join(ws, "dist", "VERSION"), 0o444))
	require.NoError(t, os.Symlink("pkg.tar.bz2", filepath.Join(ws, "dist", "latest")))

	entries := []*config.Collect{{Name: "dist", From: "dist", To: out}}
	require.NoError(t, Run(ctx, entries, ws, 0, 1))

	writeFile(t, filepath.Join(ws, "dist", "pkg.tar.bz2"), "v2")
	require.NoError(t, Run(ctx, entries, ws, 0, 1))

	assert.Equal(t, "v2", read(t, filepath.Join(out, "pkg.tar.bz2")))
	assert.Equal(t, "1", read(t, filepath.Join(out, "VERSION")))
	link, err := os.Readlink(filepath.Join(out, "latest"))
	require.NoError(t, err)
	assert.Equal(t, "pkg.tar.bz2", link)
	assert.Equal(t, "v2", read(t, filepath.Join(out, "latest")))
}

func TestRun_ContinuesPastErrors(t *testing.T) {
	ctx := context.Background()
	ws := t.TempDir()
	out := t.TempDir()
	writeFile(t, filepath.Join(ws, "present.txt"), "ok")

	entries := []*config.Collect{
		{Name: "missing", From: "missing.txt", To: filepath.Join(out, "missing.txt")},
		{Name: "present", From: "present.txt", To: filepath.Join(out, "present.txt")},
	}
	err := Run(ctx, entries, ws, 0, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `collect "missing"`)
	assert.Equal(t, "ok", read(t, filepath.Join(out, "present.txt")))
}

func TestCopy_FileIntoExistingDirectory(t *testing.T) {
	ctx := context.Background()
	src := filepath.Join(t.TempDir(), "coverage.xml")
	writeFile(t, src, "cov")
	dst := t.TempDir()

	require.NoError(t, Copy(ctx, src, dst))
	assert.Equal(t, "cov", read(t, filepath.Join(dst, "coverage.xml")))
}
