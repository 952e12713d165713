package hcl

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/stagegrid/internal/config"
	"github.com/specialistvlad/stagegrid/internal/ctxlog"
	"github.com/specialistvlad/stagegrid/internal/fsutil"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	environ func() []string
}

// NewLoader creates a new HCL pipeline loader.
func NewLoader() *Loader {
	return &Loader{environ: processEnviron}
}

var _ config.Loader = (*Loader)(nil)

// parsedFile keeps the top-level content of one file between the variable
// pass and the stage pass.
type parsedFile struct {
	path    string
	content *hcl.BodyContent
}

// Load discovers, parses and translates every .hcl file under paths. Files
// are processed in two passes: the first collects `variable` blocks from all
// files, the second decodes `pipeline` and `stage` blocks with the resolved
// variables in scope.
func (l *Loader) Load(ctx context.Context, vars map[string]string, paths ...string) (*config.Pipeline, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := findFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl files found in %s", strings.Join(paths, ", "))
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	parser := hclparse.NewParser()
	parsed := make([]parsedFile, 0, len(files))
	declared := make(map[string]*declaredVariable)

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}
		content, diags := hclFile.Body.Content(rootSchema)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		for _, block := range content.Blocks.OfType("variable") {
			name := block.Labels[0]
			if prev, dup := declared[name]; dup {
				return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, hcl.Diagnostics{{
					Severity: hcl.DiagError,
					Summary:  "Duplicate variable declaration",
					Detail:   fmt.Sprintf("Variable %q was already declared at %s.", name, prev.Range),
					Subject:  block.DefRange.Ptr(),
				}})
			}
			var raw hclVariable
			if diags := gohcl.DecodeBody(block.Body, nil, &raw); diags.HasErrors() {
				return nil, fmt.Errorf("failed to decode variable %q in %s: %w", name, file, diags)
			}
			declared[name] = &declaredVariable{Default: raw.Default, Range: block.DefRange}
		}

		parsed = append(parsed, parsedFile{path: file, content: content})
	}

	resolved, diags := resolveVariables(declared, vars)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to resolve variables: %w", diags)
	}
	logger.Debug("Variables resolved.", "count", len(resolved))

	evalCtx := newEvalContext(resolved, l.environ())
	pipeline := config.NewPipeline()
	pipeline.Variables = resolved

	var pipelineBlock *hcl.Block
	for _, pf := range parsed {
		for _, block := range pf.content.Blocks {
			switch block.Type {
			case "pipeline":
				if pipelineBlock != nil {
					return nil, fmt.Errorf("failed to decode HCL file %s: %w", pf.path, hcl.Diagnostics{{
						Severity: hcl.DiagError,
						Summary:  "Duplicate pipeline block",
						Detail:   fmt.Sprintf("Only one pipeline block is allowed; another one is declared at %s.", pipelineBlock.DefRange),
						Subject:  block.DefRange.Ptr(),
					}})
				}
				pipelineBlock = block
				var raw hclPipeline
				if diags := gohcl.DecodeBody(block.Body, evalCtx, &raw); diags.HasErrors() {
					return nil, fmt.Errorf("failed to decode pipeline block in %s: %w", pf.path, diags)
				}
				pipeline.Name = block.Labels[0]
				for k, v := range raw.Env {
					pipeline.Env[k] = v
				}
			case "stage":
				stage, diags := translateStage(block, evalCtx, pf.path)
				if diags.HasErrors() {
					return nil, fmt.Errorf("error parsing stage in file %s: %w", pf.path, diags)
				}
				pipeline.Stages = append(pipeline.Stages, stage)
			}
		}
	}

	if pipeline.Name == "" {
		pipeline.Name = defaultName(paths[0])
	}

	logger.Debug("HCL loading complete.", "pipeline", pipeline.Name, "stages", len(pipeline.Stages))
	return pipeline, nil
}

func findFiles(paths []string) ([]string, error) {
	var all []string
	seen := make(map[string]struct{})
	for _, path := range paths {
		files, err := fsutil.FindFilesByExtension(path, ".hcl")
		if err != nil {
			return nil, fmt.Errorf("failed to find pipeline files in %s: %w", path, err)
		}
		for _, f := range files {
			if _, ok := seen[f]; ok {
				continue
			}
			seen[f] = struct{}{}
			all = append(all, f)
		}
	}
	return all, nil
}

// defaultName derives a pipeline name from its path when no pipeline block
// names it.
func defaultName(path string) string {
	base := filepath.Base(filepath.Clean(path))
	return strings.TrimSuffix(base, filepath.Ext(base))
}
