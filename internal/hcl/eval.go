package hcl

import (
	"os"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// functions is the set of functions callable from pipeline expressions.
var functions = map[string]function.Function{
	"coalesce":  stdlib.CoalesceFunc,
	"concat":    stdlib.ConcatFunc,
	"format":    stdlib.FormatFunc,
	"join":      stdlib.JoinFunc,
	"lower":     stdlib.LowerFunc,
	"trimspace": stdlib.TrimSpaceFunc,
	"upper":     stdlib.UpperFunc,
}

// newEvalContext builds the context stage bodies are decoded with. It exposes
// `var.<name>` for resolved variables and `env.<NAME>` for the process
// environment.
func newEvalContext(vars map[string]string, environ []string) *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"var": stringObject(vars),
			"env": stringObject(environMap(environ)),
		},
		Functions: functions,
	}
}

// stringObject converts a string map into a cty object, which unlike a map
// reports unknown keys as attribute errors with a source range.
func stringObject(m map[string]string) cty.Value {
	if len(m) == 0 {
		return cty.EmptyObjectVal
	}
	attrs := make(map[string]cty.Value, len(m))
	for k, v := range m {
		attrs[k] = cty.StringVal(v)
	}
	return cty.ObjectVal(attrs)
}

func environMap(environ []string) map[string]string {
	out := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if ok && k != "" {
			out[k] = v
		}
	}
	return out
}

// processEnviron is swapped in tests.
var processEnviron = os.Environ

// resolveVariables merges declared defaults with overrides. A declared
// variable without a default and without an override is an error.
func resolveVariables(declared map[string]*declaredVariable, overrides map[string]string) (map[string]string, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	resolved := make(map[string]string, len(declared)+len(overrides))

	names := make([]string, 0, len(declared))
	for name := range declared {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		decl := declared[name]
		if v, ok := overrides[name]; ok {
			resolved[name] = v
			continue
		}
		if decl.Default == nil {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "No value for required variable",
				Detail:   "The variable \"" + name + "\" has no default; set it with -var " + name + "=VALUE.",
				Subject:  decl.Range.Ptr(),
			})
			continue
		}
		resolved[name] = *decl.Default
	}

	for name, v := range overrides {
		if _, ok := resolved[name]; !ok {
			resolved[name] = v
		}
	}
	return resolved, diags
}

type declaredVariable struct {
	Default *string
	Range   hcl.Range
}
