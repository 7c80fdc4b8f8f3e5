package builtin

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Cyclone1070/agentcore/internal/sandbox"
	"github.com/Cyclone1070/agentcore/internal/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func projectFiles() map[string]string {
	return map[string]string{
		".gitignore":    "build/\n*.log\n",
		"src/main.go":   "package main\n\nfunc Main() {}\n",
		"src/util/x.go": "package util\n",
		"build/out":     "artifact",
		"app.log":       "main error\n",
		".env":          "TOKEN=secret",
		".git/HEAD":     "ref: refs/heads/main\n",
	}
}

func TestListDirectory(t *testing.T) {
	w := newTestWorkspace(t, projectFiles())

	tests := []struct {
		name  string
		input map[string]any
		want  string
	}{
		{
			name:  "root children",
			input: map[string]any{},
			want:  "src/\n.gitignore\n",
		},
		{
			name:  "unlimited depth",
			input: map[string]any{"path": ".", "max_depth": -1},
			want:  "src/\nsrc/util/\n.gitignore\nsrc/main.go\nsrc/util/x.go\n",
		},
		{
			name:  "include ignored keeps sensitive and git hidden",
			input: map[string]any{"include_ignored": true},
			want:  "build/\nsrc/\n.gitignore\napp.log\n",
		},
		{
			name:  "subdirectory",
			input: map[string]any{"path": "src"},
			want:  "src/util/\nsrc/main.go\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := run(t, w.ListDirectory(), tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestListDirectory_Errors(t *testing.T) {
	w := newTestWorkspace(t, projectFiles())

	_, err := run(t, w.ListDirectory(), map[string]any{"path": "src/main.go"})
	assert.ErrorIs(t, err, ErrNotDirectory)

	_, err = run(t, w.ListDirectory(), map[string]any{"path": "missing"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = run(t, w.ListDirectory(), map[string]any{"path": "../"})
	assert.ErrorIs(t, err, sandbox.ErrOutsideRoot)
}

func TestListDirectory_Empty(t *testing.T) {
	w := newTestWorkspace(t, nil)
	require.NoError(t, os.Mkdir(filepath.Join(w.Root(), "empty"), 0o755))

	got, err := run(t, w.ListDirectory(), map[string]any{"path": "empty"})
	require.NoError(t, err)
	assert.Equal(t, "empty is empty", got)

	got, err = run(t, w.ListDirectory(), map[string]any{"path": "empty/.."})
	require.NoError(t, err)
	assert.Equal(t, "empty/\n", got)
}

func TestListDirectory_Capped(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), nil, 0o644))
	}
	w, err := NewWorkspace(root, Limits{MaxListEntries: 2})
	require.NoError(t, err)

	got, err := run(t, w.ListDirectory(), map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n[listing capped at 2 entries; narrow the path or depth]\n", got)
}

func TestListDirectory_SymlinkNotFollowed(t *testing.T) {
	w := newTestWorkspace(t, map[string]string{"real/file.txt": "x"})
	require.NoError(t, os.Symlink(filepath.Join(w.Root(), "real"), filepath.Join(w.Root(), "alias")))

	got, err := run(t, w.ListDirectory(), map[string]any{"max_depth": -1})
	require.NoError(t, err)
	assert.Equal(t, "real/\nalias@\nreal/file.txt\n", got)
}

func TestFindFile(t *testing.T) {
	w := newTestWorkspace(t, projectFiles())

	tests := []struct {
		name  string
		input map[string]any
		want  string
	}{
		{name: "by name", input: map[string]any{"pattern": "*.go"}, want: "src/main.go\nsrc/util/x.go\n"},
		{name: "by relative path", input: map[string]any{"pattern": "util/*.go", "path": "src"}, want: "src/util/x.go\n"},
		{name: "depth limited", input: map[string]any{"pattern": "*.go", "max_depth": 2}, want: "src/main.go\n"},
		{name: "ignored hidden", input: map[string]any{"pattern": "*.log"}, want: "no files matching \"*.log\""},
		{name: "ignored included", input: map[string]any{"pattern": "*.log", "include_ignored": true}, want: "app.log\n"},
		{name: "sensitive never shown", input: map[string]any{"pattern": ".env", "include_ignored": true}, want: "no files matching \".env\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := run(t, w.FindFile(), tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindFile_InvalidPattern(t *testing.T) {
	w := newTestWorkspace(t, nil)

	_, err := run(t, w.FindFile(), map[string]any{"pattern": "["})
	assert.ErrorIs(t, err, tool.ErrInvalidArguments)

	_, err = run(t, w.FindFile(), map[string]any{})
	assert.ErrorIs(t, err, tool.ErrInvalidArguments)
}
