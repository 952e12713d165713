package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/stagegrid/internal/app"
	"github.com/specialistvlad/stagegrid/internal/cli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePipeline(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRun_ConfigError(t *testing.T) {
	t.Parallel()

	path := writePipeline(t, `
		stage "build" {
			step "x" {
		// Missing closing brace here
	`)
	err := run(context.Background(), &bytes.Buffer{}, []string{"-workdir", t.TempDir(), path})

	require.Error(t, err)
	assert.ErrorIs(t, err, app.ErrConfiguration)
	assert.Contains(t, err.Error(), "failed to parse")
	assert.Equal(t, cli.ExitUsage, exitCode(err))
}

func TestRun_PipelineFailure(t *testing.T) {
	t.Parallel()

	path := writePipeline(t, `
stage "build" {
  checkout = false
  step "compile" {
    run = "exit 1"
  }
}
`)
	out := &bytes.Buffer{}
	err := run(context.Background(), out, []string{"-workdir", t.TempDir(), path})

	require.Error(t, err)
	assert.Equal(t, cli.ExitFailure, exitCode(err))
	assert.Contains(t, out.String(), "failed")
}

func TestRun_Success(t *testing.T) {
	t.Parallel()

	path := writePipeline(t, `
stage "build" {
  checkout = false
  step "compile" {
    run = "echo built"
  }
}
`)
	out := &bytes.Buffer{}
	err := run(context.Background(), out, []string{"-workdir", t.TempDir(), "-log-format", "json", path})

	require.NoError(t, err)
	assert.Equal(t, cli.ExitOK, exitCode(err))
	assert.Contains(t, out.String(), `"msg":"built"`)
}

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	err := run(context.Background(), out, []string{"-h"})

	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	err := run(context.Background(), &bytes.Buffer{}, []string{"--this-is-not-a-valid-flag"})

	require.Error(t, err, "run() should return an error when argument parsing fails")
	require.Contains(t, err.Error(), "flag provided but not defined: -this-is-not-a-valid-flag")
	assert.Equal(t, cli.ExitUsage, exitCode(err))
}

func TestExitCode_Interrupted(t *testing.T) {
	assert.Equal(t, cli.ExitFailure, exitCode(errors.New("execution interrupted: context canceled")))
}
