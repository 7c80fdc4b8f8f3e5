package builtin

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Cyclone1070/agentcore/internal/tool"
	"github.com/stretchr/testify/require"
)

// newTestWorkspace creates a workspace populated with files (path -> content).
func newTestWorkspace(t *testing.T, files map[string]string) *Workspace {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	w, err := NewWorkspace(root, Limits{})
	require.NoError(t, err)
	return w
}

func run(t *testing.T, tl tool.Tool, input map[string]any) (string, error) {
	t.Helper()
	return tl.Execute(context.Background(), input)
}

func readBack(t *testing.T, w *Workspace, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(w.Root(), filepath.FromSlash(name)))
	require.NoError(t, err)
	return string(data)
}
