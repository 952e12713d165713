package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrInvalidPipeline is wrapped by every error returned from Validate.
var ErrInvalidPipeline = errors.New("invalid pipeline")

// Validate performs static checks on the shape of the pipeline. All problems
// are reported together so a user can fix them in one pass.
func (p *Pipeline) Validate() error {
	var problems []error
	report := func(format string, args ...any) {
		problems = append(problems, fmt.Errorf(format, args...))
	}

	if len(p.Stages) == 0 {
		report("pipeline declares no stages")
	}

	stages := make(map[string]*Stage, len(p.Stages))
	artifacts := make(map[string]string)
	for _, s := range p.Stages {
		if s.Name == "" {
			report("stage in %s has an empty name", s.Source)
			continue
		}
		if _, dup := stages[s.Name]; dup {
			report("stage %q is declared more than once", s.Name)
			continue
		}
		stages[s.Name] = s

		for _, pub := range s.Publish {
			if owner, dup := artifacts[pub.Name]; dup {
				report("artifact %q is published by both %q and %q", pub.Name, owner, s.Name)
				continue
			}
			artifacts[pub.Name] = s.Name
		}
	}

	for _, s := range p.Stages {
		if s.Name == "" {
			continue
		}
		problems = append(problems, s.validate(stages, artifacts)...)
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidPipeline, errors.Join(problems...))
	}
	return nil
}

func (s *Stage) validate(stages map[string]*Stage, artifacts map[string]string) []error {
	var problems []error
	report := func(format string, args ...any) {
		problems = append(problems, fmt.Errorf("stage %q: "+format, append([]any{s.Name}, args...)...))
	}

	if !validArtifactName(s.Name) {
		report("stage names must not contain path separators or \"..\"")
	}
	if s.Parallelism < 1 {
		report("parallelism must be at least 1, got %d", s.Parallelism)
	}
	if s.Timeout <= 0 {
		report("timeout must be positive, got %s", s.Timeout)
	}
	if len(s.Shell) == 0 {
		report("shell must not be empty")
	}
	if len(s.Steps) == 0 {
		report("declares no steps")
	}

	steps := make(map[string]struct{}, len(s.Steps))
	for _, step := range s.Steps {
		if _, dup := steps[step.Name]; dup {
			report("step %q is declared more than once", step.Name)
		}
		steps[step.Name] = struct{}{}
		if step.Run == "" {
			report("step %q has an empty run command", step.Name)
		}
		if step.Timeout < 0 {
			report("step %q has a negative timeout", step.Name)
		}
	}

	for _, dep := range s.DependsOn {
		if dep == s.Name {
			report("cannot depend on itself")
			continue
		}
		if _, ok := stages[dep]; !ok {
			report("depends on unknown stage %q", dep)
		}
	}

	for _, pub := range s.Publish {
		if !validArtifactName(pub.Name) {
			report("publish %q: artifact names must not contain path separators or \"..\"", pub.Name)
		}
		switch {
		case pub.Path == "":
			report("publish %q has an empty path", pub.Name)
		case !filepath.IsLocal(pub.Path):
			report("publish %q: path %q must stay inside the workspace", pub.Name, pub.Path)
		}
	}
	for _, res := range s.Restore {
		if res.Path != "" && !filepath.IsLocal(res.Path) {
			report("restore %q: path %q must stay inside the workspace", res.Name, res.Path)
		}
		owner, ok := artifacts[res.Name]
		switch {
		case !ok:
			report("restores artifact %q which no stage publishes", res.Name)
		case owner == s.Name:
			report("restores artifact %q which it publishes itself", res.Name)
		}
	}
	for _, c := range s.Collect {
		switch {
		case c.From == "" || c.To == "":
			report("collect %q needs both from and to", c.Name)
		case !filepath.IsLocal(c.From):
			report("collect %q: from %q must stay inside the workspace", c.Name, c.From)
		}
	}

	return problems
}

// validArtifactName reports whether name can be used as a single path
// element, as artifact archives and stage workspaces are named after it.
func validArtifactName(name string) bool {
	return name != "" && name != "." && !strings.Contains(name, "..") && !strings.ContainsAny(name, `/\`)
}
