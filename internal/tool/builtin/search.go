package builtin

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Cyclone1070/agentcore/internal/tool"
)

// SearchContentRequest searches file contents with a regular expression.
type SearchContentRequest struct {
	Query          string `json:"query"`
	Path           string `json:"path,omitempty"`
	CaseSensitive  bool   `json:"case_sensitive,omitempty"`
	IncludeIgnored bool   `json:"include_ignored,omitempty"`
}

func (r *SearchContentRequest) Validate() error {
	return requireField("query", r.Query)
}

// SearchContent returns the search_content tool.
func (w *Workspace) SearchContent() tool.Tool {
	return tool.NewAdapter(tool.Declaration{
		Name:        "search_content",
		Description: "Search text files for a regular expression. Results are 'path:line: text', one per match.",
		Parameters: &tool.Schema{
			Type: tool.TypeObject,
			Properties: map[string]*tool.Schema{
				"query":           {Type: tool.TypeString, Description: "Regular expression (RE2 syntax)"},
				"path":            {Type: tool.TypeString, Description: "Directory or file to search (default '.')"},
				"case_sensitive":  {Type: tool.TypeBoolean, Description: "Match case exactly (default false)"},
				"include_ignored": {Type: tool.TypeBoolean, Description: "Search gitignored files too"},
			},
			Required: []string{"query"},
		},
	}, w.searchContent)
}

func (w *Workspace) searchContent(ctx context.Context, req SearchContentRequest) (string, error) {
	expr := req.Query
	if !req.CaseSensitive {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return "", fmt.Errorf("%w: invalid query: %v", tool.ErrInvalidArguments, err)
	}

	abs, _, err := w.resolve(req.Path)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(abs); err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, req.Path)
	}

	var sb strings.Builder
	found := 0
	capped := false
	err = filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		rel := w.rel(p)
		if p != abs && w.hidden(rel, d.IsDir(), req.IncludeIgnored) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		n, hitCap := w.searchFile(p, rel, re, &sb, w.limits.MaxSearchResults-found)
		found += n
		if hitCap {
			capped = true
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	if found == 0 {
		return fmt.Sprintf("no matches for %q", req.Query), nil
	}
	if capped {
		fmt.Fprintf(&sb, "[results capped at %d matches; narrow the query or path]\n", w.limits.MaxSearchResults)
	}
	return sb.String(), nil
}

// searchFile appends up to budget matches from one file and reports how many
// it wrote and whether the budget ran out. Binary and oversized files are skipped.
func (w *Workspace) searchFile(abs, rel string, re *regexp.Regexp, sb *strings.Builder, budget int) (int, bool) {
	info, err := os.Stat(abs)
	if err != nil || info.Size() > w.limits.MaxFileSize {
		return 0, false
	}
	data, err := os.ReadFile(abs)
	if err != nil || isBinary(data) {
		return 0, false
	}

	n := 0
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), int(w.limits.MaxFileSize)+1)
	for line := 1; scanner.Scan(); line++ {
		text := scanner.Text()
		if !re.MatchString(text) {
			continue
		}
		if n >= budget {
			return n, true
		}
		text = strings.TrimSpace(text)
		if len(text) > w.limits.MaxLineLength {
			text = text[:w.limits.MaxLineLength] + "...[truncated]"
		}
		fmt.Fprintf(sb, "%s:%d: %s\n", rel, line, text)
		n++
	}
	return n, false
}
