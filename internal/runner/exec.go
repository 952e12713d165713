package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"slices"
	"time"

	"github.com/specialistvlad/stagegrid/internal/config"
	"github.com/specialistvlad/stagegrid/internal/ctxlog"
)

// waitDelay bounds how long a finished step may keep its output pipes open
// through background children.
const waitDelay = 5 * time.Second

// runCommand runs one step through the stage shell inside dir.
func runCommand(ctx context.Context, shell []string, step *config.Step, dir string, env []string) error {
	logger := ctxlog.FromContext(ctx)

	runCtx := ctx
	if step.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, step.Timeout)
		defer cancel()
	}

	args := append(slices.Clone(shell), step.Run)
	cmd := exec.CommandContext(runCtx, args[0], args[1:]...)
	cmd.Dir = dir
	cmd.Env = env
	cmd.WaitDelay = waitDelay

	stdout := newLineWriter(logger, slog.LevelInfo, "stdout")
	stderr := newLineWriter(logger, slog.LevelWarn, "stderr")
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	logger.Info("▶️ Running step")
	logger.Debug("Step command.", "args", args, "dir", dir)
	err := cmd.Run()
	stdout.Flush()
	stderr.Flush()
	if err == nil {
		return nil
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("step %q timed out after %s", step.Name, step.Timeout)
	}
	if ctx.Err() != nil {
		return fmt.Errorf("step %q interrupted: %w", step.Name, ctx.Err())
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &StepError{Step: step.Name, ExitCode: exitErr.ExitCode(), Err: err}
	}
	return fmt.Errorf("step %q could not run: %w", step.Name, err)
}

// StepError reports a step that ran and exited unsuccessfully.
type StepError struct {
	Step     string
	ExitCode int
	Err      error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %q exited with code %d", e.Step, e.ExitCode)
}

func (e *StepError) Unwrap() error { return e.Err }
