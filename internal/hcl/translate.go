package hcl

import (
	"fmt"
	"slices"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/specialistvlad/stagegrid/internal/config"
)

// translateStage decodes a `stage` block and converts it into the
// format-agnostic model.
func translateStage(block *hcl.Block, evalCtx *hcl.EvalContext, path string) (*config.Stage, hcl.Diagnostics) {
	raw := hclStage{
		Parallelism: config.DefaultParallelism,
		Checkout:    true,
		Shell:       slices.Clone(config.DefaultShell),
		Timeout:     config.DefaultStageTimeout.String(),
	}
	diags := gohcl.DecodeBody(block.Body, evalCtx, &raw)
	if diags.HasErrors() {
		return nil, diags
	}

	stage := config.NewStage(block.Labels[0])
	stage.Source = path
	stage.DependsOn = raw.DependsOn
	stage.Parallelism = raw.Parallelism
	stage.Checkout = raw.Checkout
	stage.Shell = raw.Shell
	for k, v := range raw.Env {
		stage.Env[k] = v
	}

	timeout, d := parseDuration(raw.Timeout, "timeout", block)
	diags = append(diags, d...)
	stage.Timeout = timeout

	for _, s := range raw.Steps {
		step := &config.Step{
			Name:            s.Name,
			Run:             s.Run,
			Env:             s.Env,
			ContinueOnError: s.ContinueOnError,
		}
		if s.Timeout != "" {
			step.Timeout, d = parseDuration(s.Timeout, fmt.Sprintf("step %q timeout", s.Name), block)
			diags = append(diags, d...)
		}
		stage.Steps = append(stage.Steps, step)
	}
	for _, p := range raw.Publish {
		stage.Publish = append(stage.Publish, &config.Publish{Name: p.Name, Path: p.Path})
	}
	for _, r := range raw.Restore {
		stage.Restore = append(stage.Restore, &config.Restore{Name: r.Name, Path: r.Path})
	}
	for _, c := range raw.Collect {
		stage.Collect = append(stage.Collect, &config.Collect{Name: c.Name, From: c.From, To: c.To})
	}

	return stage, diags
}

func parseDuration(value, what string, block *hcl.Block) (time.Duration, hcl.Diagnostics) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid duration",
			Detail:   fmt.Sprintf("The %s of stage %q is not a valid duration: %s.", what, block.Labels[0], err),
			Subject:  block.DefRange.Ptr(),
		}}
	}
	return d, nil
}
