package builtin

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Cyclone1070/agentcore/internal/tool"
)

// ListDirectoryRequest lists a directory, optionally recursing.
type ListDirectoryRequest struct {
	Path           string `json:"path"`
	MaxDepth       int    `json:"max_depth,omitempty"`
	IncludeIgnored bool   `json:"include_ignored,omitempty"`
}

// ListDirectory returns the list_directory tool.
func (w *Workspace) ListDirectory() tool.Tool {
	return tool.NewAdapter(tool.Declaration{
		Name:        "list_directory",
		Description: "List a directory in the workspace. Directories end with '/'. Entries matched by .gitignore are hidden unless include_ignored is set.",
		Parameters: &tool.Schema{
			Type: tool.TypeObject,
			Properties: map[string]*tool.Schema{
				"path":            {Type: tool.TypeString, Description: "Directory relative to the workspace root (default '.')"},
				"max_depth":       {Type: tool.TypeInteger, Description: "Levels to recurse below the directory; 0 lists only its children, -1 is unlimited"},
				"include_ignored": {Type: tool.TypeBoolean, Description: "Include gitignored entries"},
			},
		},
	}, w.listDirectory)
}

type dirEntry struct {
	rel   string
	isDir bool
	link  bool
}

func (w *Workspace) listDirectory(ctx context.Context, req ListDirectoryRequest) (string, error) {
	abs, rel, err := w.resolve(req.Path)
	if err != nil {
		return "", err
	}
	if err := checkDir(abs, rel); err != nil {
		return "", err
	}

	var entries []dirEntry
	capped := false
	var walk func(dir string, depth int) error
	walk = func(dir string, depth int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		children, err := os.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("failed to list %s: %w", w.rel(dir), err)
		}
		for _, c := range children {
			if len(entries) >= w.limits.MaxListEntries {
				capped = true
				return nil
			}
			childAbs := filepath.Join(dir, c.Name())
			childRel := w.rel(childAbs)
			link := c.Type()&fs.ModeSymlink != 0
			if w.hidden(childRel, c.IsDir(), req.IncludeIgnored) {
				continue
			}
			entries = append(entries, dirEntry{rel: childRel, isDir: c.IsDir(), link: link})
			// Links are listed but never followed.
			if c.IsDir() && !link && (req.MaxDepth < 0 || depth < req.MaxDepth) {
				if err := walk(childAbs, depth+1); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := walk(abs, 0); err != nil {
		return "", err
	}

	if len(entries) == 0 {
		return fmt.Sprintf("%s is empty", displayDir(rel)), nil
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].isDir != entries[j].isDir {
			return entries[i].isDir
		}
		return entries[i].rel < entries[j].rel
	})

	var sb strings.Builder
	for _, e := range entries {
		sb.WriteString(e.rel)
		switch {
		case e.link:
			sb.WriteString("@")
		case e.isDir:
			sb.WriteString("/")
		}
		sb.WriteByte('\n')
	}
	if capped {
		fmt.Fprintf(&sb, "[listing capped at %d entries; narrow the path or depth]\n", w.limits.MaxListEntries)
	}
	return sb.String(), nil
}

func checkDir(abs, rel string) error {
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, displayDir(rel))
		}
		return fmt.Errorf("failed to stat %s: %w", displayDir(rel), err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDirectory, rel)
	}
	return nil
}

func displayDir(rel string) string {
	if rel == "." {
		return "the workspace root"
	}
	return rel
}

// FindFileRequest finds files whose name matches a glob.
type FindFileRequest struct {
	Pattern        string `json:"pattern"`
	Path           string `json:"path,omitempty"`
	MaxDepth       int    `json:"max_depth,omitempty"`
	IncludeIgnored bool   `json:"include_ignored,omitempty"`
}

func (r *FindFileRequest) Validate() error {
	if err := requireField("pattern", r.Pattern); err != nil {
		return err
	}
	if _, err := path.Match(r.Pattern, ""); err != nil {
		return fmt.Errorf("invalid pattern %q: %w", r.Pattern, err)
	}
	return nil
}

// FindFile returns the find_file tool.
func (w *Workspace) FindFile() tool.Tool {
	return tool.NewAdapter(tool.Declaration{
		Name:        "find_file",
		Description: "Find files by glob pattern. Patterns without '/' match file names; patterns with '/' match the path relative to the search directory.",
		Parameters: &tool.Schema{
			Type: tool.TypeObject,
			Properties: map[string]*tool.Schema{
				"pattern":         {Type: tool.TypeString, Description: "Glob such as '*.go' or 'cmd/*/main.go'"},
				"path":            {Type: tool.TypeString, Description: "Directory to search (default '.')"},
				"max_depth":       {Type: tool.TypeInteger, Description: "Maximum directory depth; 0 is unlimited"},
				"include_ignored": {Type: tool.TypeBoolean, Description: "Include gitignored files"},
			},
			Required: []string{"pattern"},
		},
	}, w.findFile)
}

func (w *Workspace) findFile(ctx context.Context, req FindFileRequest) (string, error) {
	abs, rel, err := w.resolve(req.Path)
	if err != nil {
		return "", err
	}
	if err := checkDir(abs, rel); err != nil {
		return "", err
	}

	byPath := strings.Contains(req.Pattern, "/")
	var matches []string
	capped := false
	err = filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if p == abs {
			return nil
		}
		relToRoot := w.rel(p)
		if w.hidden(relToRoot, d.IsDir(), req.IncludeIgnored) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		relToSearch, _ := filepath.Rel(abs, p)
		relToSearch = filepath.ToSlash(relToSearch)
		if d.IsDir() {
			if req.MaxDepth > 0 && strings.Count(relToSearch, "/")+1 >= req.MaxDepth {
				return filepath.SkipDir
			}
			return nil
		}

		subject := d.Name()
		if byPath {
			subject = relToSearch
		}
		if ok, _ := path.Match(req.Pattern, subject); ok {
			if len(matches) >= w.limits.MaxSearchResults {
				capped = true
				return filepath.SkipAll
			}
			matches = append(matches, relToRoot)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	if len(matches) == 0 {
		return fmt.Sprintf("no files matching %q", req.Pattern), nil
	}
	sort.Strings(matches)
	out := strings.Join(matches, "\n") + "\n"
	if capped {
		out += fmt.Sprintf("[results capped at %d files]\n", w.limits.MaxSearchResults)
	}
	return out, nil
}
