// Package report renders the outcome of a run: a human-readable table for the
// terminal and a machine-readable JSON document for external tooling.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/specialistvlad/stagegrid/internal/graph"
	"github.com/specialistvlad/stagegrid/internal/node"
)

// Report is the outcome of one pipeline run.
type Report struct {
	RunID     string        `json:"run_id"`
	Pipeline  string        `json:"pipeline"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	Stages    []StageResult `json:"stages"`
}

// StageResult is the outcome of one stage.
type StageResult struct {
	Name     string        `json:"name"`
	Status   node.Status   `json:"status"`
	Duration time.Duration `json:"duration_ns"`
	Error    string        `json:"error,omitempty"`
}

// New builds a report from the final state of the graph. Stages are listed in
// the given execution order.
func New(ctx context.Context, runID, pipeline string, order []string, g graph.Graph, startedAt time.Time, runErr error) *Report {
	snapshot := g.Snapshot(ctx)
	r := &Report{
		RunID:     runID,
		Pipeline:  pipeline,
		Success:   runErr == nil,
		StartedAt: startedAt,
		Duration:  time.Since(startedAt),
	}
	if runErr != nil {
		r.Error = runErr.Error()
	}
	for _, id := range order {
		rec, ok := snapshot[id]
		if !ok {
			continue
		}
		sr := StageResult{Name: id, Status: rec.Status, Duration: rec.Duration()}
		if rec.Err != nil {
			sr.Error = rec.Err.Error()
		}
		r.Stages = append(r.Stages, sr)
	}
	return r
}

// WriteTable prints a summary table.
func (r *Report) WriteTable(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STAGE\tSTATUS\tDURATION\tERROR")
	for _, s := range r.Stages {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Name, s.Status, s.Duration.Round(time.Millisecond), s.Error)
	}
	result := "succeeded"
	if !r.Success {
		result = "failed"
	}
	fmt.Fprintf(tw, "\npipeline %s %s in %s (run %s)\n", r.Pipeline, result, r.Duration.Round(time.Millisecond), r.RunID)
	return tw.Flush()
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteFile writes the JSON report to path, creating parent directories.
func (r *Report) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	if err := r.WriteJSON(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	return f.Close()
}
