package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	loamflow "github.com/synzen/prompt-anything-sub000/pkg/adapters/loam"
	"github.com/synzen/prompt-anything-sub000/pkg/flow"
)

// LoadDefinition reads a flow from a YAML file or from a loam step
// directory. The result is parsed but not validated, so callers that only
// inspect a flow can still load a broken one.
func LoadDefinition(ctx context.Context, path string) (*flow.Definition, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if info.IsDir() {
		loader, err := loamflow.Open(path)
		if err != nil {
			return nil, err
		}
		return loader.Load(ctx, definitionName(path))
	}

	def, err := flow.Load(path)
	if err != nil {
		return nil, err
	}
	if def.Name == "" {
		def.Name = definitionName(path)
	}
	return def, nil
}

// definitionName derives a flow name from its path: the base name without
// extension, resolved so "." names the actual directory.
func definitionName(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	base := filepath.Base(abs)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
