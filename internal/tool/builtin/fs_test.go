package builtin

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsBinary(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		want    bool
	}{
		{name: "empty", content: nil, want: false},
		{name: "text", content: []byte("hello\nworld"), want: false},
		{name: "nul byte", content: []byte("he\x00llo"), want: true},
		{name: "utf-16 le bom", content: []byte{0xFF, 0xFE, 'h', 0x00}, want: false},
		{name: "utf-16 be bom", content: []byte{0xFE, 0xFF, 0x00, 'h'}, want: false},
		{name: "nul beyond sample", content: append(repeatByte('a', binarySampleSize), 0), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isBinary(tt.content))
		})
	}
}

func repeatByte(b byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}

func TestReadRange(t *testing.T) {
	p := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(p, []byte("0123456789"), 0o644))

	got, err := readRange(p, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(got))

	got, err = readRange(p, 3, 4)
	require.NoError(t, err)
	assert.Equal(t, "3456", string(got))

	got, err = readRange(p, 20, 4)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "f")

	require.NoError(t, writeFileAtomic(p, []byte("one"), 0o600))
	require.NoError(t, writeFileAtomic(p, []byte("two"), 0o600))

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	info, err := os.Stat(p)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestIgnoreMatcher(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("# comment\n*.log\n!keep.log\nvendor/\n\n"), 0o644))
	m, err := NewIgnoreMatcher(root)
	require.NoError(t, err)

	tests := []struct {
		rel   string
		isDir bool
		want  bool
	}{
		{rel: "app.log", want: true},
		{rel: "nested/debug.log", want: true},
		{rel: "keep.log", want: false},
		{rel: "vendor", isDir: true, want: true},
		{rel: "main.go", want: false},
		{rel: ".", isDir: true, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			assert.Equal(t, tt.want, m.ShouldIgnore(tt.rel, tt.isDir))
		})
	}
}

func TestIgnoreMatcher_NoGitignore(t *testing.T) {
	m, err := NewIgnoreMatcher(t.TempDir())
	require.NoError(t, err)
	assert.False(t, m.ShouldIgnore("anything.log", false))
}
