package builtin

import (
	"testing"
	"time"

	"github.com/Cyclone1070/agentcore/internal/permission"
	"github.com/Cyclone1070/agentcore/internal/sandbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkspace_ToolsHaveDefaultLevels(t *testing.T) {
	w := newTestWorkspace(t, nil)
	levels := permission.DefaultLevels()

	names := make(map[string]bool)
	for _, tl := range w.Tools() {
		decl := tl.Declaration()
		assert.False(t, names[decl.Name], "duplicate tool %s", decl.Name)
		names[decl.Name] = true
		_, ok := levels[decl.Name]
		assert.True(t, ok, "tool %s has no default permission level", decl.Name)
		assert.NotEmpty(t, decl.Description)
	}
	assert.Len(t, names, len(levels))
}

func TestNewWorkspace_InvalidRoot(t *testing.T) {
	_, err := NewWorkspace("/definitely/not/here", Limits{})
	assert.ErrorIs(t, err, sandbox.ErrInvalidRoot)
}

func TestWithDefaults(t *testing.T) {
	got := withDefaults(Limits{MaxFileSize: 1, ShellTimeout: time.Second})

	def := DefaultLimits()
	assert.Equal(t, int64(1), got.MaxFileSize)
	assert.Equal(t, time.Second, got.ShellTimeout)
	assert.Equal(t, def.MaxListEntries, got.MaxListEntries)
	assert.Equal(t, def.MaxShellOutput, got.MaxShellOutput)
}

func TestWorkspace_ResolveEmptyPathIsRoot(t *testing.T) {
	w := newTestWorkspace(t, nil)

	abs, rel, err := w.resolve("")
	require.NoError(t, err)
	assert.Equal(t, w.Root(), abs)
	assert.Equal(t, ".", rel)
}
