package builtin

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Cyclone1070/agentcore/internal/sandbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunShell(t *testing.T) {
	w := newTestWorkspace(t, map[string]string{"sub/file.txt": "x"})

	tests := []struct {
		name  string
		input map[string]any
		want  string
	}{
		{
			name:  "stdout",
			input: map[string]any{"command": "echo hello"},
			want:  "exit_code: 0\nstdout:\nhello\n",
		},
		{
			name:  "non-zero exit is a result",
			input: map[string]any{"command": "echo oops >&2; exit 3"},
			want:  "exit_code: 3\nstderr:\noops\n",
		},
		{
			name:  "working dir",
			input: map[string]any{"command": "ls", "working_dir": "sub"},
			want:  "exit_code: 0\nstdout:\nfile.txt\n",
		},
		{
			name:  "no output",
			input: map[string]any{"command": "true"},
			want:  "exit_code: 0\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := run(t, w.RunShell(), tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRunShell_Blocked(t *testing.T) {
	w := newTestWorkspace(t, nil)

	_, err := run(t, w.RunShell(), map[string]any{"command": "mkfs.ext4 /dev/sda1"})
	assert.ErrorIs(t, err, sandbox.ErrBlockedCommand)
}

func TestRunShell_WorkingDirOutsideRoot(t *testing.T) {
	w := newTestWorkspace(t, nil)

	_, err := run(t, w.RunShell(), map[string]any{"command": "ls", "working_dir": "../"})
	assert.ErrorIs(t, err, sandbox.ErrOutsideRoot)
}

func TestRunShell_Timeout(t *testing.T) {
	w := newTestWorkspace(t, nil)

	_, err := run(t, w.RunShell(), map[string]any{"command": "echo started; sleep 10", "timeout_seconds": 1})
	require.ErrorIs(t, err, ErrTimeout)
	assert.Contains(t, err.Error(), "started")
}

func TestRunShell_OutputTruncated(t *testing.T) {
	root := t.TempDir()
	w, err := NewWorkspace(root, Limits{MaxShellOutput: 10})
	require.NoError(t, err)

	got, err := run(t, w.RunShell(), map[string]any{"command": "printf '" + strings.Repeat("a", 50) + "'"})
	require.NoError(t, err)
	assert.Equal(t, "exit_code: 0\nstdout:\naaaaaaaaaa\n[output truncated]\n", got)
}

func TestRunShell_WritesInsideRoot(t *testing.T) {
	w := newTestWorkspace(t, nil)

	_, err := run(t, w.RunShell(), map[string]any{"command": "echo hi > made.txt"})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(w.Root(), "made.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hi\n", string(data))
}

func TestCollector(t *testing.T) {
	tests := []struct {
		name          string
		max           int
		writes        []string
		want          string
		wantTruncated bool
	}{
		{name: "fits", max: 10, writes: []string{"abc", "def"}, want: "abcdef"},
		{name: "split across writes", max: 4, writes: []string{"abc", "def"}, want: "abcd", wantTruncated: true},
		{name: "binary", max: 10, writes: []string{"a\x00b"}, want: "[binary output]", wantTruncated: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCollector(tt.max)
			for _, s := range tt.writes {
				n, err := c.Write([]byte(s))
				require.NoError(t, err)
				assert.Equal(t, len(s), n)
			}
			assert.Equal(t, tt.want, c.String())
			assert.Equal(t, tt.wantTruncated, c.Truncated())
		})
	}
}
