// Package builtin provides the reference tools the agent ships with. Every
// path they touch is validated by the sandbox against the workspace root.
package builtin

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/Cyclone1070/agentcore/internal/sandbox"
	"github.com/Cyclone1070/agentcore/internal/tool"
)

// Limits bound what the builtin tools read and return.
type Limits struct {
	MaxFileSize      int64
	MaxListEntries   int
	MaxSearchResults int
	MaxLineLength    int
	ShellTimeout     time.Duration
	MaxShellOutput   int
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		MaxFileSize:      5 * 1024 * 1024,
		MaxListEntries:   1000,
		MaxSearchResults: 200,
		MaxLineLength:    500,
		ShellTimeout:     2 * time.Minute,
		MaxShellOutput:   64 * 1024,
	}
}

// Workspace binds the builtin tools to one project root.
type Workspace struct {
	root      string
	limits    Limits
	ignore    *IgnoreMatcher
	checksums *checksumStore
	todos     *TodoStore
}

// NewWorkspace canonicalises root and loads its .gitignore. Zero limits fall
// back to DefaultLimits.
func NewWorkspace(root string, limits Limits) (*Workspace, error) {
	canon, err := sandbox.CanonicalRoot(root)
	if err != nil {
		return nil, err
	}
	ignore, err := NewIgnoreMatcher(canon)
	if err != nil {
		return nil, err
	}
	return &Workspace{
		root:      canon,
		limits:    withDefaults(limits),
		ignore:    ignore,
		checksums: newChecksumStore(),
		todos:     NewTodoStore(),
	}, nil
}

func withDefaults(l Limits) Limits {
	def := DefaultLimits()
	if l.MaxFileSize <= 0 {
		l.MaxFileSize = def.MaxFileSize
	}
	if l.MaxListEntries <= 0 {
		l.MaxListEntries = def.MaxListEntries
	}
	if l.MaxSearchResults <= 0 {
		l.MaxSearchResults = def.MaxSearchResults
	}
	if l.MaxLineLength <= 0 {
		l.MaxLineLength = def.MaxLineLength
	}
	if l.ShellTimeout <= 0 {
		l.ShellTimeout = def.ShellTimeout
	}
	if l.MaxShellOutput <= 0 {
		l.MaxShellOutput = def.MaxShellOutput
	}
	return l
}

// Root returns the canonical workspace root.
func (w *Workspace) Root() string {
	return w.root
}

// Todos returns the session's todo list.
func (w *Workspace) Todos() *TodoStore {
	return w.todos
}

// Tools returns every builtin tool bound to w.
func (w *Workspace) Tools() []tool.Tool {
	return []tool.Tool{
		w.ReadFile(),
		w.WriteFile(),
		w.EditFile(),
		w.ListDirectory(),
		w.FindFile(),
		w.SearchContent(),
		w.ReadTodos(),
		w.WriteTodos(),
		w.RunShell(),
	}
}

// resolve validates path and returns it absolute and root-relative. An empty
// path means the root.
func (w *Workspace) resolve(path string) (abs, rel string, err error) {
	if path == "" {
		path = "."
	}
	abs, err = sandbox.ValidatePath(path, w.root)
	if err != nil {
		return "", "", err
	}
	return abs, w.rel(abs), nil
}

func (w *Workspace) rel(abs string) string {
	rel, err := filepath.Rel(w.root, abs)
	if err != nil {
		return abs
	}
	return filepath.ToSlash(rel)
}

// hidden reports whether a listing or search should leave rel out.
func (w *Workspace) hidden(rel string, isDir, includeIgnored bool) bool {
	if filepath.Base(rel) == ".git" && isDir {
		return true
	}
	if sandbox.IsSensitive(rel) {
		return true
	}
	return !includeIgnored && w.ignore.ShouldIgnore(rel, isDir)
}

func requireField(name, value string) error {
	if value == "" {
		return fmt.Errorf("%s is required", name)
	}
	return nil
}
