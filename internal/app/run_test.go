package app

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/specialistvlad/stagegrid/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ciPipeline = `
pipeline "ci" {
  env = {
    CI = "true"
  }
}

variable "out" {}

variable "build_cmd" {
  default = "mkdir -p build_output && cp setup.py build_output/pkg.tar.bz2"
}

stage "build" {
  step "configure" {
    run = "test -f setup.py"
  }
  step "package" {
    run = var.build_cmd
  }
  publish "pkg" {
    path = "build_output"
  }
}

stage "test" {
  depends_on  = ["build"]
  parallelism = 4
  env = {
    PYTHONHASHSEED  = "0"
    OMP_NUM_THREADS = "1"
    PYEMMA_NJOBS    = "1"
  }
  restore "pkg" {
    path = "build_output"
  }
  step "test" {
    run = "test -s build_output/pkg.tar.bz2 && echo \"$STAGEGRID_SHARD_INDEX/$STAGEGRID_SHARD_TOTAL $PYTHONHASHSEED $OMP_NUM_THREADS $PYEMMA_NJOBS $CI\" > result.txt"
  }
  step "coverage" {
    run               = "echo uploading; exit 7"
    continue_on_error = true
  }
  collect "results" {
    from = "result.txt"
    to   = "${var.out}/results"
  }
}
`

type e2e struct {
	src     string
	workdir string
	out     string
}

func newE2E(t *testing.T, pipeline string) e2e {
	t.Helper()
	src := testutil.WriteFiles(t, map[string]string{
		"setup.py":    "from setuptools import setup\nsetup()\n",
		".git/HEAD":   "ref: refs/heads/main\n",
		"ci/main.hcl": pipeline,
		"pkg/mod.py":  "x = 1\n",
	})
	return e2e{src: src, workdir: t.TempDir(), out: t.TempDir()}
}

func (e e2e) config() Config {
	return Config{
		PipelinePath: filepath.Join(e.src, "ci"),
		Workdir:      e.workdir,
		SourcePath:   e.src,
		Variables:    map[string]string{"out": e.out},
		WorkerCount:  2,
	}
}

func TestRun_BuildThenTest(t *testing.T) {
	e := newE2E(t, ciPipeline)
	cfg := e.config()
	cfg.ReportPath = filepath.Join(e.out, "report.json")
	a, logs := setupAppTest(t, cfg)

	require.NoError(t, a.Run(context.Background()))

	for i := 0; i < 4; i++ {
		got, err := os.ReadFile(filepath.Join(e.out, "results", "shard-"+string(rune('0'+i)), "result.txt"))
		require.NoError(t, err)
		assert.Equal(t, string(rune('0'+i))+"/4 0 1 1 true\n", string(got))
	}

	out := logs.String()
	assert.Contains(t, out, "🚀 Starting pipeline")
	assert.Contains(t, out, "Step failed, continuing")
	assert.Contains(t, out, "uploading")
	assert.Regexp(t, `build\s+completed`, out)
	assert.Regexp(t, `test\s+completed`, out)

	raw, err := os.ReadFile(cfg.ReportPath)
	require.NoError(t, err)
	var rep struct {
		Success bool `json:"success"`
		Stages  []struct {
			Name   string `json:"name"`
			Status string `json:"status"`
		} `json:"stages"`
	}
	require.NoError(t, json.Unmarshal(raw, &rep))
	assert.True(t, rep.Success)
	require.Len(t, rep.Stages, 2)
	assert.Equal(t, "build", rep.Stages[0].Name)
	assert.Equal(t, "test", rep.Stages[1].Name)

	runs, err := os.ReadDir(filepath.Join(e.workdir, ".stagegrid", "runs"))
	require.NoError(t, err)
	assert.Empty(t, runs, "run directory should be removed")
}

func TestRun_FailedBuildSkipsTest(t *testing.T) {
	e := newE2E(t, ciPipeline)
	cfg := e.config()
	cfg.Variables["build_cmd"] = "echo compiling; exit 1"
	cfg.KeepWorkdir = true
	a, logs := setupAppTest(t, cfg)

	err := a.Run(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrConfiguration)
	assert.Contains(t, err.Error(), "execution failed for build")

	assert.NoDirExists(t, filepath.Join(e.out, "results"), "test must never run")
	out := logs.String()
	assert.Regexp(t, `test\s+skipped`, out)
	assert.NotContains(t, out, "shard=3")

	runs, err := os.ReadDir(filepath.Join(e.workdir, ".stagegrid", "runs"))
	require.NoError(t, err)
	assert.Len(t, runs, 1, "run directory should be kept")
}

func TestRun_StageSelection(t *testing.T) {
	e := newE2E(t, ciPipeline)
	cfg := e.config()
	cfg.Stages = []string{"build"}
	a, logs := setupAppTest(t, cfg)

	require.NoError(t, a.Run(context.Background()))
	assert.NoDirExists(t, filepath.Join(e.out, "results"))
	assert.Regexp(t, `build\s+completed`, logs.String())
	assert.NotRegexp(t, `test\s+(completed|skipped)`, logs.String())
}

func TestRun_DryRunAndDOT(t *testing.T) {
	e := newE2E(t, ciPipeline)

	cfg := e.config()
	cfg.DryRun = true
	a, logs := setupAppTest(t, cfg)
	require.NoError(t, a.Run(context.Background()))
	out := logs.String()
	assert.Contains(t, out, "1. build (shards: 1, steps: 2)")
	assert.Contains(t, out, "2. test (shards: 4, steps: 2) after [build]")

	cfg = e.config()
	cfg.PrintDOT = true
	a, logs = setupAppTest(t, cfg)
	require.NoError(t, a.Run(context.Background()))
	assert.Contains(t, logs.String(), "digraph")

	_, err := os.Stat(filepath.Join(e.workdir, ".stagegrid"))
	assert.True(t, os.IsNotExist(err), "planning must not create run state")
}

func TestRun_ConfigurationErrors(t *testing.T) {
	testCases := []struct {
		name     string
		pipeline string
		vars     map[string]string
		stages   []string
		contains string
	}{
		{
			name:     "syntax error",
			pipeline: `stage "build" {`,
			contains: "failed to parse HCL file",
		},
		{
			name:     "missing required variable",
			pipeline: ciPipeline,
			vars:     map[string]string{},
			contains: "No value for required variable",
		},
		{
			name: "cycle",
			pipeline: `
stage "a" {
  depends_on = ["b"]
  step "x" { run = "true" }
}
stage "b" {
  depends_on = ["a"]
  step "x" { run = "true" }
}`,
			contains: "cycle",
		},
		{
			name: "unknown dependency",
			pipeline: `
stage "a" {
  depends_on = ["ghost"]
  step "x" { run = "true" }
}`,
			contains: "ghost",
		},
		{
			name:     "unknown selected stage",
			pipeline: ciPipeline,
			stages:   []string{"deploy"},
			contains: "deploy",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e := newE2E(t, tc.pipeline)
			cfg := e.config()
			if tc.vars != nil {
				cfg.Variables = tc.vars
			}
			cfg.Stages = tc.stages
			a, _ := setupAppTest(t, cfg)

			err := a.Run(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfiguration)
			assert.Contains(t, err.Error(), tc.contains)
		})
	}
}

func TestRun_YAMLPipeline(t *testing.T) {
	src := testutil.WriteFiles(t, map[string]string{"setup.py": "setup()\n"})
	out := t.TempDir()
	pipeline := `
name: yaml-ci
variables:
  out: ""
stages:
  - name: build
    steps:
      - name: package
        run: mkdir -p dist && cp setup.py dist/
    publish:
      - name: dist
        path: dist
  - name: test
    parallelism: 2
    checkout: false
    restore:
      - name: dist
        path: dist
    steps:
      - name: check
        run: test -f dist/setup.py && echo "$STAGEGRID_STAGE" > stage.txt
    collect:
      - name: stage
        from: stage.txt
        to: ${var.out}/stage
`
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(pipeline), 0o644))

	a, _ := setupAppTest(t, Config{
		PipelinePath: path,
		Workdir:      t.TempDir(),
		SourcePath:   src,
		Variables:    map[string]string{"out": out},
	})
	require.NoError(t, a.Run(context.Background()))

	for _, shard := range []string{"shard-0", "shard-1"} {
		got, err := os.ReadFile(filepath.Join(out, "stage", shard, "stage.txt"))
		require.NoError(t, err)
		assert.Equal(t, "test", strings.TrimSpace(string(got)))
	}
}
