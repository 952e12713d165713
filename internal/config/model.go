// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the Pipeline, Stage and Step structures that every
// configuration format is translated into.
//
// A Stage is the node in the execution graph. It owns an ordered list of Steps
// (shell commands), runs them in one or more shards, and exchanges Artifacts
// with other stages through Publish and Restore entries. A Restore of an
// artifact published by another stage is an implicit dependency edge, in the
// same way that `depends_on` is an explicit one.
package config

import (
	"slices"
	"time"
)

const (
	// DefaultParallelism is the shard count of a stage that does not set one.
	DefaultParallelism = 1
	// DefaultStageTimeout bounds a stage that does not set its own timeout.
	DefaultStageTimeout = time.Hour
)

// DefaultShell is the command prefix used to run a step.
var DefaultShell = []string{"sh", "-c"}

// Pipeline is the root of the model, aggregated from one or more files.
type Pipeline struct {
	Name      string
	Env       map[string]string
	Variables map[string]string
	Stages    []*Stage
}

// NewPipeline returns an empty, initialized Pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{
		Env:       map[string]string{},
		Variables: map[string]string{},
	}
}

// Stage returns the stage with the given name, or nil.
func (p *Pipeline) Stage(name string) *Stage {
	for _, s := range p.Stages {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// Publisher returns the stage that publishes the named artifact, or nil.
func (p *Pipeline) Publisher(artifact string) *Stage {
	for _, s := range p.Stages {
		for _, pub := range s.Publish {
			if pub.Name == artifact {
				return s
			}
		}
	}
	return nil
}

// Stage is the format-agnostic representation of a `stage` block.
type Stage struct {
	Name        string
	DependsOn   []string
	Parallelism int
	Checkout    bool
	Shell       []string
	Env         map[string]string
	Timeout     time.Duration

	Steps   []*Step
	Publish []*Publish
	Restore []*Restore
	Collect []*Collect

	// Source is the file the stage was declared in, used in error messages.
	Source string
}

// NewStage returns a stage with every default applied.
func NewStage(name string) *Stage {
	return &Stage{
		Name:        name,
		Parallelism: DefaultParallelism,
		Checkout:    true,
		Shell:       slices.Clone(DefaultShell),
		Env:         map[string]string{},
		Timeout:     DefaultStageTimeout,
	}
}

// Step is a single shell command executed inside a stage workspace.
type Step struct {
	Name string
	Run  string
	Env  map[string]string
	// ContinueOnError makes a failing step non-fatal: the failure is logged and
	// the stage outcome is decided by the remaining steps only.
	ContinueOnError bool
	// Timeout bounds a single execution of the step. Zero means the stage
	// timeout is the only bound.
	Timeout time.Duration
}

// Publish archives a workspace directory as a named artifact once the stage
// has succeeded.
type Publish struct {
	Name string
	Path string
}

// Restore extracts a named artifact into a workspace directory before the
// stage's steps run.
type Restore struct {
	Name string
	Path string
}

// Collect copies result files out of the workspace into a fixed location for
// external collectors.
type Collect struct {
	Name string
	From string
	To   string
}
