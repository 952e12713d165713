package config

import "context"

// Loader is the interface for a format-specific pipeline loader.
type Loader interface {
	// Load reads pipeline definitions from the given paths, evaluates any
	// variable references using vars as overrides for declared defaults, and
	// returns the merged, defaulted model. Validation is left to the caller.
	Load(ctx context.Context, vars map[string]string, paths ...string) (*Pipeline, error)
}
