package localsession

import (
	"context"
	"testing"

	"github.com/specialistvlad/stagegrid/internal/config"
	"github.com/specialistvlad/stagegrid/internal/dag"
	"github.com/specialistvlad/stagegrid/internal/node"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pipeline(t *testing.T) (*config.Pipeline, *dag.Graph) {
	t.Helper()
	p := config.NewPipeline()
	p.Env["GREETING"] = "hello"
	s := config.NewStage("build")
	s.Checkout = false
	s.Steps = []*config.Step{{Name: "greet", Run: `test "$GREETING" = hello`}}
	p.Stages = []*config.Stage{s}
	topo, err := dag.Build(context.Background(), p)
	require.NoError(t, err)
	return p, topo
}

func TestSession_RunAndClose(t *testing.T) {
	ctx := context.Background()
	p, topo := pipeline(t)
	f := &SessionFactory{Workdir: t.TempDir(), Source: t.TempDir(), Workers: 1}

	sess, err := f.NewSession(ctx, p, topo)
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID())
	local := sess.(*Session)
	assert.DirExists(t, local.Dir())

	exec, err := sess.GetExecutor()
	require.NoError(t, err)
	require.NoError(t, exec.Execute(ctx))

	status, ok := sess.Graph().NodeStatus(ctx, "build")
	require.True(t, ok)
	assert.Equal(t, node.StatusCompleted, status)

	require.NoError(t, sess.Close(ctx))
	assert.NoDirExists(t, local.Dir())
}

func TestSession_KeepWorkdir(t *testing.T) {
	ctx := context.Background()
	p, topo := pipeline(t)
	f := &SessionFactory{Workdir: t.TempDir(), Source: t.TempDir(), Workers: 1, KeepWorkdir: true}

	sess, err := f.NewSession(ctx, p, topo)
	require.NoError(t, err)
	require.NoError(t, sess.Close(ctx))
	assert.DirExists(t, sess.(*Session).Dir())
}
