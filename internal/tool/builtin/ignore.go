package builtin

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// IgnoreMatcher applies the root .gitignore using go-git's matcher.
type IgnoreMatcher struct {
	matcher gitignore.Matcher
}

// NewIgnoreMatcher loads root/.gitignore. A missing file yields a matcher
// that ignores nothing.
func NewIgnoreMatcher(root string) (*IgnoreMatcher, error) {
	path := filepath.Join(root, ".gitignore")
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &IgnoreMatcher{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read .gitignore at %s: %w", path, err)
	}

	var patterns []gitignore.Pattern
	for _, line := range strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n") {
		line = strings.TrimRight(line, " \t")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	return &IgnoreMatcher{matcher: gitignore.NewMatcher(patterns)}, nil
}

// ShouldIgnore reports whether the root-relative path is ignored.
func (m *IgnoreMatcher) ShouldIgnore(rel string, isDir bool) bool {
	if m == nil || m.matcher == nil {
		return false
	}
	var segments []string
	for _, s := range strings.Split(filepath.ToSlash(rel), "/") {
		if s != "" && s != "." {
			segments = append(segments, s)
		}
	}
	if len(segments) == 0 {
		return false
	}
	return m.matcher.Match(segments, isDir)
}
