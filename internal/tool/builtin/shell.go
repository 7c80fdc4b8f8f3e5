package builtin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/Cyclone1070/agentcore/internal/permission"
	"github.com/Cyclone1070/agentcore/internal/sandbox"
	"github.com/Cyclone1070/agentcore/internal/tool"
)

// shellWaitDelay is how long a timed-out command's pipes may stay open.
const shellWaitDelay = 2 * time.Second

// RunShellRequest runs one command line through sh.
type RunShellRequest struct {
	Command        string `json:"command"`
	WorkingDir     string `json:"working_dir,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
}

func (r *RunShellRequest) Validate() error {
	if strings.TrimSpace(r.Command) == "" {
		return errors.New("command is required")
	}
	if r.TimeoutSeconds < 0 {
		return errors.New("timeout_seconds must not be negative")
	}
	return nil
}

// RunShell returns the run_shell tool.
func (w *Workspace) RunShell() tool.Tool {
	return tool.NewAdapter(tool.Declaration{
		Name:        permission.ShellTool,
		Description: "Run a shell command in the workspace with sh -c. Returns the exit code, stdout and stderr. Output is truncated when large.",
		Parameters: &tool.Schema{
			Type: tool.TypeObject,
			Properties: map[string]*tool.Schema{
				"command":         {Type: tool.TypeString, Description: "Command line to run"},
				"working_dir":     {Type: tool.TypeString, Description: "Directory relative to the workspace root (default '.')"},
				"timeout_seconds": {Type: tool.TypeInteger, Description: "Kill the command after this many seconds"},
			},
			Required: []string{"command"},
		},
	}, w.runShell)
}

func (w *Workspace) runShell(ctx context.Context, req RunShellRequest) (string, error) {
	if err := sandbox.CheckCommand(req.Command); err != nil {
		return "", err
	}
	dir, rel, err := w.resolve(req.WorkingDir)
	if err != nil {
		return "", err
	}
	if err := checkDir(dir, rel); err != nil {
		return "", err
	}

	timeout := w.limits.ShellTimeout
	if req.TimeoutSeconds > 0 {
		timeout = min(time.Duration(req.TimeoutSeconds)*time.Second, w.limits.ShellTimeout)
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stdout := newCollector(w.limits.MaxShellOutput)
	stderr := newCollector(w.limits.MaxShellOutput)

	cmd := exec.CommandContext(runCtx, "sh", "-c", req.Command)
	cmd.Dir = dir
	cmd.Env = os.Environ()
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = shellWaitDelay

	runErr := cmd.Run()
	out := formatShellResult(exitCode(runErr), stdout, stderr)

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return "", fmt.Errorf("%w after %s\n%s", ErrTimeout, timeout, out)
	}
	var exitErr *exec.ExitError
	if runErr != nil && !errors.As(runErr, &exitErr) {
		return "", fmt.Errorf("failed to run command: %w", runErr)
	}
	// A non-zero exit is a result, not a tool failure.
	return out, nil
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func formatShellResult(code int, stdout, stderr *collector) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "exit_code: %d\n", code)
	if s := stdout.String(); s != "" {
		sb.WriteString("stdout:\n")
		sb.WriteString(s)
		if !strings.HasSuffix(s, "\n") {
			sb.WriteByte('\n')
		}
	}
	if s := stderr.String(); s != "" {
		sb.WriteString("stderr:\n")
		sb.WriteString(s)
		if !strings.HasSuffix(s, "\n") {
			sb.WriteByte('\n')
		}
	}
	if stdout.Truncated() || stderr.Truncated() {
		sb.WriteString("[output truncated]\n")
	}
	return sb.String()
}

// collector keeps the first maxBytes of a stream and drops binary output.
type collector struct {
	buf       bytes.Buffer
	maxBytes  int
	truncated bool
	binary    bool
	checked   int
}

func newCollector(maxBytes int) *collector {
	return &collector{maxBytes: maxBytes}
}

func (c *collector) Write(p []byte) (int, error) {
	if c.binary {
		return len(p), nil
	}
	if c.checked < binarySampleSize {
		sample := p[:min(len(p), binarySampleSize-c.checked)]
		if isBinary(sample) {
			c.binary = true
			c.truncated = true
			return len(p), nil
		}
		c.checked += len(sample)
	}

	room := c.maxBytes - c.buf.Len()
	if room <= 0 {
		c.truncated = true
		return len(p), nil
	}
	chunk := p
	if len(chunk) > room {
		chunk = chunk[:room]
		c.truncated = true
	}
	c.buf.Write(chunk)
	return len(p), nil
}

func (c *collector) String() string {
	if c.binary {
		return "[binary output]"
	}
	return c.buf.String()
}

func (c *collector) Truncated() bool {
	return c.truncated
}
