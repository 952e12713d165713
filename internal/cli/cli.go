package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/specialistvlad/stagegrid/internal/app"
)

// Exit codes of the stagegrid binary.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("stagegrid", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
stagegrid - A single-host pipeline runner for staged, sharded CI workloads.

Usage:
  stagegrid [options] [PIPELINE_PATH]

Arguments:
  PIPELINE_PATH
    Path to a .hcl file, a directory containing .hcl files, or a .yaml/.yml file.

Options:
`)
		flagSet.PrintDefaults()
	}

	vars := keyValueFlag{}
	var stages listFlag

	pipelineFlag := flagSet.String("pipeline", "", "Path to the pipeline file or directory.")
	pFlag := flagSet.String("p", "", "Path to the pipeline file or directory (shorthand).")
	workdirFlag := flagSet.String("workdir", ".", "Directory holding run state (.stagegrid/).")
	sourceFlag := flagSet.String("source", "", "Source tree copied into stage workspaces. Defaults to -workdir.")
	workersFlag := flagSet.Int("workers", 4, "Number of stages that may run concurrently.")
	flagSet.Var(vars, "var", "Set a pipeline variable as name=value. Repeatable.")
	flagSet.Var(&stages, "stage", "Run only this stage and its upstream stages. Repeatable.")
	dryRunFlag := flagSet.Bool("dry-run", false, "Print the execution order and exit.")
	dotFlag := flagSet.Bool("dot", false, "Print the stage graph in DOT format and exit.")
	reportFlag := flagSet.String("report", "", "Write a JSON run report to this file.")
	keepFlag := flagSet.Bool("keep-workdir", false, "Keep the run directory after the run.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: ExitUsage, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *pipelineFlag != "" {
		path = *pipelineFlag
	} else if *pFlag != "" {
		path = *pFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Pipeline path determined.", "path", path)

	if path == "" {
		slog.Debug("No pipeline path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}
	if flagSet.NArg() > 1 {
		return nil, false, &ExitError{Code: ExitUsage, Message: fmt.Sprintf("unexpected arguments: %s", strings.Join(flagSet.Args()[1:], " "))}
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: ExitUsage, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: ExitUsage, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	if *workersFlag < 1 {
		return nil, false, &ExitError{Code: ExitUsage, Message: "invalid workers: must be at least 1"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		PipelinePath:    path,
		Workdir:         *workdirFlag,
		SourcePath:      *sourceFlag,
		Variables:       vars,
		Stages:          stages,
		DryRun:          *dryRunFlag,
		PrintDOT:        *dotFlag,
		ReportPath:      *reportFlag,
		KeepWorkdir:     *keepFlag,
		HealthcheckPort: *healthPortFlag,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		WorkerCount:     *workersFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: ExitUsage, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
