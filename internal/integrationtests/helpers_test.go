package integrationtests

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/stagegrid/internal/app"
	"github.com/specialistvlad/stagegrid/internal/testutil"
	"github.com/stretchr/testify/require"
)

// scenario is one pipeline run against a throwaway source tree.
type scenario struct {
	t    *testing.T
	src  string
	out  string
	logs *testutil.SafeBuffer
	cfg  app.Config
}

// newScenario writes the pipeline as main.hcl and prepares a config whose
// `out` variable points at a scratch directory shared by all stages.
func newScenario(t *testing.T, pipelineHCL string) *scenario {
	t.Helper()
	src := testutil.WriteFiles(t, map[string]string{
		"setup.py": "setup()\n",
	})
	pipelineDir := testutil.WriteFiles(t, map[string]string{"main.hcl": pipelineHCL})
	out := t.TempDir()
	return &scenario{
		t:    t,
		src:  src,
		out:  out,
		logs: &testutil.SafeBuffer{},
		cfg: app.Config{
			PipelinePath: filepath.Join(pipelineDir, "main.hcl"),
			Workdir:      t.TempDir(),
			SourcePath:   src,
			Variables:    map[string]string{"out": out},
			WorkerCount:  4,
			LogLevel:     "debug",
		},
	}
}

func (s *scenario) run() error {
	s.t.Helper()
	s.logs.DumpOnCleanup(s.t)
	cfg, err := app.NewConfig(s.cfg)
	require.NoError(s.t, err)
	return app.NewApp(s.logs, cfg).Run(context.Background())
}

func (s *scenario) exists(name string) bool {
	_, err := os.Stat(filepath.Join(s.out, name))
	return err == nil
}

func (s *scenario) read(name string) string {
	s.t.Helper()
	b, err := os.ReadFile(filepath.Join(s.out, name))
	require.NoError(s.t, err)
	return string(b)
}
