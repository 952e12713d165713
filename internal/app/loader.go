package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/specialistvlad/stagegrid/internal/config"
	"github.com/specialistvlad/stagegrid/internal/ctxlog"
	"github.com/specialistvlad/stagegrid/internal/fsutil"
	"github.com/specialistvlad/stagegrid/internal/hcl"
	"github.com/specialistvlad/stagegrid/internal/yamlconfig"
)

// selectLoader picks the configuration format for path. A file is chosen by
// its extension; a directory is HCL unless it only holds YAML files.
func selectLoader(ctx context.Context, path string) (config.Loader, error) {
	logger := ctxlog.FromContext(ctx)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot access pipeline path: %w", err)
	}

	if !info.IsDir() {
		ext := strings.ToLower(filepath.Ext(path))
		switch {
		case ext == ".hcl":
			logger.Debug("Using HCL loader.", "path", path)
			return hcl.NewLoader(), nil
		case slices.Contains(yamlconfig.Extensions, ext):
			logger.Debug("Using YAML loader.", "path", path)
			return yamlconfig.NewLoader(), nil
		default:
			return nil, fmt.Errorf("unsupported pipeline file %s: expected .hcl, .yaml or .yml", path)
		}
	}

	hclFiles, err := fsutil.FindFilesByExtension(path, ".hcl")
	if err != nil {
		return nil, err
	}
	if len(hclFiles) == 0 {
		yamlFiles, err := fsutil.FindFilesByExtension(path, yamlconfig.Extensions...)
		if err != nil {
			return nil, err
		}
		if len(yamlFiles) > 0 {
			logger.Debug("Using YAML loader for directory.", "path", path, "files", len(yamlFiles))
			return yamlconfig.NewLoader(), nil
		}
	}
	logger.Debug("Using HCL loader for directory.", "path", path, "files", len(hclFiles))
	return hcl.NewLoader(), nil
}
