package integrationtests

import (
	"errors"
	"testing"

	"github.com/specialistvlad/stagegrid/internal/app"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test for: step fail triggers fast fail
func TestErrorHandling_FailingStep_TriggersFailFast(t *testing.T) {
	// --- Arrange ---
	s := newScenario(t, `
variable "out" {}

stage "failer" {
  checkout = false
  step "boom" { run = "exit 4" }
}
stage "spy" {
  checkout   = false
  depends_on = ["failer"]
  step "mark" { run = "touch ${var.out}/spy" }
}
`)

	// --- Act ---
	runErr := s.run()

	// --- Assert ---
	require.Error(t, runErr)
	assert.False(t, errors.Is(runErr, app.ErrConfiguration))
	assert.Contains(t, runErr.Error(), "execution failed for failer")
	assert.Contains(t, runErr.Error(), "exited with code 4")
	assert.False(t, s.exists("spy"), "a stage dependent on the failing stage was executed")
}

// Test for: a failure cancels unrelated running stages
func TestErrorHandling_Failure_CancelsRunningSiblings(t *testing.T) {
	// --- Arrange ---
	s := newScenario(t, `
variable "out" {}

stage "slow" {
  checkout = false
  step "wait" { run = "touch ${var.out}/slow-started; exec sleep 30" }
}
stage "fast-fail" {
  checkout = false
  step "boom" { run = "while [ ! -f ${var.out}/slow-started ]; do sleep 0.05; done; exit 1" }
}
`)
	s.cfg.WorkerCount = 2

	// --- Act ---
	runErr := s.run()

	// --- Assert ---
	require.Error(t, runErr)
	assert.Contains(t, runErr.Error(), "execution failed for fast-fail")
	assert.NotContains(t, runErr.Error(), "slow")
}

// Test for: step timeout fails run
func TestErrorHandling_StepTimeout_FailsRun(t *testing.T) {
	// --- Arrange ---
	s := newScenario(t, `
variable "out" {}

stage "hang" {
  checkout = false
  step "sleep" {
    run     = "exec sleep 30"
    timeout = "200ms"
  }
}
`)

	// --- Act ---
	runErr := s.run()

	// --- Assert ---
	require.Error(t, runErr)
	assert.Contains(t, runErr.Error(), `step "sleep" timed out after 200ms`)
}

// Test for: a failing step marked continue_on_error does not change the outcome
func TestErrorHandling_ContinueOnError_IsIndependent(t *testing.T) {
	// --- Arrange ---
	s := newScenario(t, `
variable "out" {}

stage "test" {
  checkout = false
  step "suite" { run = "touch ${var.out}/suite" }
  step "upload-coverage" {
    run               = "exit 22"
    continue_on_error = true
  }
}
stage "after" {
  checkout   = false
  depends_on = ["test"]
  step "mark" { run = "touch ${var.out}/after" }
}
`)

	// --- Act & Assert ---
	require.NoError(t, s.run())
	assert.True(t, s.exists("suite"))
	assert.True(t, s.exists("after"))
	assert.Contains(t, s.logs.String(), "Step failed, continuing")
}

// Test for: invalid definitions are rejected before anything runs
func TestErrorHandling_InvalidPipeline_IsConfigurationError(t *testing.T) {
	testCases := map[string]string{
		"duplicate artifact": `
stage "a" {
  step "x" { run = "true" }
  publish "pkg" { path = "." }
}
stage "b" {
  step "x" { run = "true" }
  publish "pkg" { path = "." }
}`,
		"restore without publisher": `
stage "a" {
  step "x" { run = "true" }
  restore "pkg" { path = "." }
}`,
		"stage without steps": `
stage "a" {}`,
	}

	for name, pipeline := range testCases {
		t.Run(name, func(t *testing.T) {
			s := newScenario(t, pipeline)
			err := s.run()
			require.Error(t, err)
			assert.ErrorIs(t, err, app.ErrConfiguration)
		})
	}
}
