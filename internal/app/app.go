package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/specialistvlad/stagegrid/internal/ctxlog"
	"github.com/specialistvlad/stagegrid/internal/graph"
)

// ErrConfiguration marks failures caused by the pipeline definition or the
// command line rather than by executing the pipeline.
var ErrConfiguration = errors.New("configuration error")

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW       io.Writer
	logger     *slog.Logger
	config     *Config
	ctx        context.Context
	httpServer *http.Server

	// mu guards the live run state served by the status endpoint.
	mu    sync.RWMutex
	runID string
	graph graph.Graph
}

// NewApp is the constructor for the main application. It returns an App
// with its own isolated logger writing to outW.
func NewApp(outW io.Writer, cfg *Config) *App {
	logger := newLogger(cfg, outW)
	logger.Debug("Logger configured successfully.")
	return &App{
		outW:   outW,
		logger: logger,
		config: cfg,
		ctx:    ctxlog.WithLogger(context.Background(), logger),
	}
}

func (a *App) setRun(runID string, g graph.Graph) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runID = runID
	a.graph = g
}

func (a *App) currentRun() (string, graph.Graph) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.runID, a.graph
}
