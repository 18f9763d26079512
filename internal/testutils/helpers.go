// Package testutils holds small helpers shared by tests across the module.
package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/loam"
	"github.com/aretw0/loam/pkg/core"
	"github.com/stretchr/testify/require"
)

// SetupTestRepo creates a temporary directory and initializes a loam
// repository in it. It returns the absolute path to the directory and the
// repository, failing the test on error.
func SetupTestRepo(t *testing.T, opts ...loam.Option) (string, core.Repository) {
	t.Helper()

	tmpDir := t.TempDir()

	// Loam prefers absolute paths. t.TempDir usually returns one already.
	absPath, err := filepath.Abs(tmpDir)
	require.NoError(t, err, "failed to resolve temp dir")

	repo, err := loam.Init(absPath, opts...)
	require.NoError(t, err, "failed to init loam repo")

	return absPath, repo
}

// WriteStepFile drops a raw step document into dir so a loam repository
// rooted there picks it up on the next list.
func WriteStepFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

// WriteFlowFile writes a flow definition to a temp file and returns its path.
func WriteFlowFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}
