// Package yamlconfig provides a YAML implementation of the config.Loader
// interface for teams that keep their pipelines next to other YAML CI files.
// It supports the same model as the HCL loader; `${var.NAME}` and
// `${env.NAME}` references inside string values are expanded at load time.
package yamlconfig

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/specialistvlad/stagegrid/internal/config"
	"github.com/specialistvlad/stagegrid/internal/ctxlog"
	"github.com/specialistvlad/stagegrid/internal/fsutil"
	"gopkg.in/yaml.v3"
)

// Extensions lists the file extensions handled by this loader.
var Extensions = []string{".yaml", ".yml"}

type yamlFile struct {
	Name      string            `yaml:"name"`
	Env       map[string]string `yaml:"env"`
	Variables map[string]string `yaml:"variables"`
	Stages    []yamlStage       `yaml:"stages"`
}

type yamlStage struct {
	Name        string            `yaml:"name"`
	DependsOn   []string          `yaml:"depends_on"`
	Parallelism *int              `yaml:"parallelism"`
	Checkout    *bool             `yaml:"checkout"`
	Shell       []string          `yaml:"shell"`
	Env         map[string]string `yaml:"env"`
	Timeout     string            `yaml:"timeout"`
	Steps       []yamlStep        `yaml:"steps"`
	Publish     []yamlArtifact    `yaml:"publish"`
	Restore     []yamlArtifact    `yaml:"restore"`
	Collect     []yamlCollect     `yaml:"collect"`
}

type yamlStep struct {
	Name            string            `yaml:"name"`
	Run             string            `yaml:"run"`
	Env             map[string]string `yaml:"env"`
	ContinueOnError bool              `yaml:"continue_on_error"`
	Timeout         string            `yaml:"timeout"`
}

type yamlArtifact struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

type yamlCollect struct {
	Name string `yaml:"name"`
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Loader is the YAML implementation of config.Loader.
type Loader struct {
	environ func() []string
}

// NewLoader creates a new YAML pipeline loader.
func NewLoader() *Loader {
	return &Loader{environ: os.Environ}
}

var _ config.Loader = (*Loader)(nil)

// Load reads every YAML file under paths and merges them into one pipeline.
// Variables declared in files are overridden by vars.
func (l *Loader) Load(ctx context.Context, vars map[string]string, paths ...string) (*config.Pipeline, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("YAML loader started.", "path_count", len(paths))

	var files []string
	for _, path := range paths {
		found, err := fsutil.FindFilesByExtension(path, Extensions...)
		if err != nil {
			return nil, fmt.Errorf("failed to find pipeline files in %s: %w", path, err)
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no YAML files found in %s", strings.Join(paths, ", "))
	}

	decoded := make([]*yamlFile, 0, len(files))
	for _, file := range files {
		f, err := decodeFile(file)
		if err != nil {
			return nil, err
		}
		decoded = append(decoded, f)
	}

	pipeline := config.NewPipeline()
	for _, f := range decoded {
		for k, v := range f.Variables {
			pipeline.Variables[k] = v
		}
	}
	for k, v := range vars {
		pipeline.Variables[k] = v
	}

	exp := &expander{vars: pipeline.Variables, env: environMap(l.environ())}
	for i, f := range decoded {
		if f.Name != "" {
			if pipeline.Name != "" {
				return nil, fmt.Errorf("pipeline name is set in more than one file (%q and %q in %s)", pipeline.Name, f.Name, files[i])
			}
			pipeline.Name = f.Name
		}
		for k, v := range f.Env {
			pipeline.Env[k] = exp.expand(v)
		}
		for _, s := range f.Stages {
			stage, err := translateStage(s, exp, files[i])
			if err != nil {
				return nil, fmt.Errorf("error parsing stage %q in file %s: %w", s.Name, files[i], err)
			}
			pipeline.Stages = append(pipeline.Stages, stage)
		}
	}
	if err := exp.err(); err != nil {
		return nil, err
	}

	if pipeline.Name == "" {
		base := filepath.Base(filepath.Clean(paths[0]))
		pipeline.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	logger.Debug("YAML loading complete.", "pipeline", pipeline.Name, "stages", len(pipeline.Stages))
	return pipeline, nil
}

func decodeFile(path string) (*yamlFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read YAML file %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f yamlFile
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode YAML file %s: %w", path, err)
	}
	return &f, nil
}

func translateStage(s yamlStage, exp *expander, path string) (*config.Stage, error) {
	stage := config.NewStage(s.Name)
	stage.Source = path
	stage.DependsOn = s.DependsOn
	if s.Parallelism != nil {
		stage.Parallelism = *s.Parallelism
	}
	if s.Checkout != nil {
		stage.Checkout = *s.Checkout
	}
	if s.Shell != nil {
		stage.Shell = exp.expandAll(s.Shell)
	}
	for k, v := range s.Env {
		stage.Env[k] = exp.expand(v)
	}
	if s.Timeout != "" {
		d, err := time.ParseDuration(s.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout: %w", err)
		}
		stage.Timeout = d
	}

	for _, st := range s.Steps {
		step := &config.Step{
			Name:            st.Name,
			Run:             exp.expand(st.Run),
			ContinueOnError: st.ContinueOnError,
		}
		if st.Env != nil {
			step.Env = make(map[string]string, len(st.Env))
			for k, v := range st.Env {
				step.Env[k] = exp.expand(v)
			}
		}
		if st.Timeout != "" {
			d, err := time.ParseDuration(st.Timeout)
			if err != nil {
				return nil, fmt.Errorf("invalid timeout for step %q: %w", st.Name, err)
			}
			step.Timeout = d
		}
		stage.Steps = append(stage.Steps, step)
	}
	for _, p := range s.Publish {
		stage.Publish = append(stage.Publish, &config.Publish{Name: p.Name, Path: exp.expand(p.Path)})
	}
	for _, r := range s.Restore {
		stage.Restore = append(stage.Restore, &config.Restore{Name: r.Name, Path: exp.expand(r.Path)})
	}
	for _, c := range s.Collect {
		stage.Collect = append(stage.Collect, &config.Collect{Name: c.Name, From: exp.expand(c.From), To: exp.expand(c.To)})
	}
	return stage, nil
}

// referencePattern matches ${var.NAME} and ${env.NAME}. Any other dollar
// syntax is left alone for the shell.
var referencePattern = regexp.MustCompile(`\$\{(var|env)\.([A-Za-z_][A-Za-z0-9_]*)\}`)

// expander resolves variable and environment references. Unknown references
// are collected and reported once loading is done.
type expander struct {
	vars    map[string]string
	env     map[string]string
	unknown map[string]struct{}
}

func (e *expander) expand(s string) string {
	return referencePattern.ReplaceAllStringFunc(s, func(ref string) string {
		m := referencePattern.FindStringSubmatch(ref)
		scope, name := m[1], m[2]
		source := e.vars
		if scope == "env" {
			source = e.env
		}
		if v, ok := source[name]; ok {
			return v
		}
		if e.unknown == nil {
			e.unknown = make(map[string]struct{})
		}
		e.unknown[scope+"."+name] = struct{}{}
		return ""
	})
}

func (e *expander) expandAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = e.expand(s)
	}
	return out
}

func (e *expander) err() error {
	if len(e.unknown) == 0 {
		return nil
	}
	keys := make([]string, 0, len(e.unknown))
	for k := range e.unknown {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Errorf("unresolved references: %s", strings.Join(keys, ", "))
}

func environMap(environ []string) map[string]string {
	out := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			out[k] = v
		}
	}
	return out
}
