package app

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/specialistvlad/stagegrid/internal/ctxlog"
)

// logLevels maps -log-level values to slog levels. Unknown values fall back
// to info.
var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// newLogger creates the application logger described by cfg. It does not set
// the global logger, so every App gets an isolated instance.
func newLogger(cfg *Config, outW io.Writer) *slog.Logger {
	level, ok := logLevels[cfg.LogLevel]
	if !ok {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level, ReplaceAttr: roundDurations}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(outW, opts)
	} else {
		handler = slog.NewTextHandler(outW, opts)
	}
	return slog.New(handler)
}

// roundDurations trims stage and step timings to milliseconds.
func roundDurations(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindDuration {
		a.Value = slog.DurationValue(a.Value.Duration().Round(time.Millisecond))
	}
	return a
}

// withRun scopes the context logger to one pipeline run. Every record logged
// below it carries the run id and pipeline name.
func withRun(ctx context.Context, runID, pipeline string) context.Context {
	return ctxlog.With(ctx, "run_id", runID, "pipeline", pipeline)
}
