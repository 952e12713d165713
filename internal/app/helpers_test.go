package app

import (
	"testing"

	"github.com/specialistvlad/stagegrid/internal/testutil"
	"github.com/stretchr/testify/require"
)

// setupAppTest creates an app writing debug logs into a captured buffer.
func setupAppTest(t *testing.T, cfg Config) (*App, *testutil.SafeBuffer) {
	t.Helper()
	cfg.LogLevel = "debug"
	full, err := NewConfig(cfg)
	require.NoError(t, err)

	logBuffer := &testutil.SafeBuffer{}
	logBuffer.DumpOnCleanup(t)
	return NewApp(logBuffer, full), logBuffer
}
