package builtin

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Cyclone1070/agentcore/internal/tool"
	"github.com/pmezard/go-difflib/difflib"
)

// ReadFileRequest reads a whole file or a byte range of it.
type ReadFileRequest struct {
	Path   string `json:"path"`
	Offset int64  `json:"offset,omitempty"`
	Limit  int64  `json:"limit,omitempty"`
}

func (r *ReadFileRequest) Validate() error {
	if err := requireField("path", r.Path); err != nil {
		return err
	}
	if r.Offset < 0 || r.Limit < 0 {
		return errors.New("offset and limit must not be negative")
	}
	return nil
}

// ReadFile returns the read_file tool.
func (w *Workspace) ReadFile() tool.Tool {
	return tool.NewAdapter(tool.Declaration{
		Name:        "read_file",
		Description: "Read a text file in the workspace. Use offset and limit (bytes) to read part of a large file.",
		Parameters: &tool.Schema{
			Type: tool.TypeObject,
			Properties: map[string]*tool.Schema{
				"path":   {Type: tool.TypeString, Description: "Path relative to the workspace root"},
				"offset": {Type: tool.TypeInteger, Description: "Byte offset to start reading from"},
				"limit":  {Type: tool.TypeInteger, Description: "Maximum number of bytes to read"},
			},
			Required: []string{"path"},
		},
	}, w.readFile)
}

func (w *Workspace) readFile(_ context.Context, req ReadFileRequest) (string, error) {
	abs, rel, err := w.resolve(req.Path)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, rel)
		}
		return "", fmt.Errorf("failed to stat %s: %w", rel, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrIsDirectory, rel)
	}
	partial := req.Offset > 0 || req.Limit > 0
	if !partial && info.Size() > w.limits.MaxFileSize {
		return "", fmt.Errorf("%w: %s is %d bytes (limit %d); read it in ranges with offset and limit", ErrTooLarge, rel, info.Size(), w.limits.MaxFileSize)
	}

	limit := req.Limit
	if limit == 0 || limit > w.limits.MaxFileSize {
		limit = w.limits.MaxFileSize
	}
	data, err := readRange(abs, req.Offset, limit)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", rel, err)
	}
	if isBinary(data) {
		return "", fmt.Errorf("%w: %s", ErrBinary, rel)
	}

	if req.Offset == 0 && int64(len(data)) == info.Size() {
		w.checksums.update(abs, data)
	}
	return string(data), nil
}

// WriteFileRequest creates or replaces a file.
type WriteFileRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

func (r *WriteFileRequest) Validate() error {
	return requireField("path", r.Path)
}

// WriteFileResponse reports a completed write.
type WriteFileResponse struct {
	Path         string `json:"path"`
	BytesWritten int    `json:"bytes_written"`
	Created      bool   `json:"created"`
}

// WriteFile returns the write_file tool.
func (w *Workspace) WriteFile() tool.Tool {
	return tool.NewAdapter(tool.Declaration{
		Name:        "write_file",
		Description: "Create a file, or replace an existing file's entire content. Parent directories are created as needed.",
		Parameters: &tool.Schema{
			Type: tool.TypeObject,
			Properties: map[string]*tool.Schema{
				"path":    {Type: tool.TypeString, Description: "Path relative to the workspace root"},
				"content": {Type: tool.TypeString, Description: "Full file content"},
			},
			Required: []string{"path", "content"},
		},
	}, w.writeFile)
}

func (w *Workspace) writeFile(_ context.Context, req WriteFileRequest) (*WriteFileResponse, error) {
	abs, rel, err := w.resolve(req.Path)
	if err != nil {
		return nil, err
	}

	data := []byte(req.Content)
	if isBinary(data) {
		return nil, fmt.Errorf("%w: refusing to write %s", ErrBinary, rel)
	}
	if int64(len(data)) > w.limits.MaxFileSize {
		return nil, fmt.Errorf("%w: %s would be %d bytes (limit %d)", ErrTooLarge, rel, len(data), w.limits.MaxFileSize)
	}

	perm := os.FileMode(0o644)
	created := true
	info, err := os.Stat(abs)
	switch {
	case err == nil:
		if info.IsDir() {
			return nil, fmt.Errorf("%w: %s", ErrIsDirectory, rel)
		}
		perm = info.Mode().Perm()
		created = false
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("failed to stat %s: %w", rel, err)
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create parent directories for %s: %w", rel, err)
	}
	if err := writeFileAtomic(abs, data, perm); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", rel, err)
	}
	w.checksums.update(abs, data)

	return &WriteFileResponse{Path: rel, BytesWritten: len(data), Created: created}, nil
}

// EditOperation replaces Before with After. An empty Before appends.
type EditOperation struct {
	Before               string `json:"before"`
	After                string `json:"after"`
	ExpectedReplacements int    `json:"expected_replacements,omitempty"`
}

// EditFileRequest applies operations in order to an existing file.
type EditFileRequest struct {
	Path       string          `json:"path"`
	Operations []EditOperation `json:"operations"`
}

func (r *EditFileRequest) Validate() error {
	if err := requireField("path", r.Path); err != nil {
		return err
	}
	if len(r.Operations) == 0 {
		return errors.New("at least one operation is required")
	}
	for i := range r.Operations {
		if r.Operations[i].ExpectedReplacements < 0 {
			return fmt.Errorf("operation %d: expected_replacements must not be negative", i)
		}
		if r.Operations[i].ExpectedReplacements == 0 {
			r.Operations[i].ExpectedReplacements = 1
		}
	}
	return nil
}

// EditFileResponse carries a unified diff of the change.
type EditFileResponse struct {
	Path         string `json:"path"`
	Diff         string `json:"diff"`
	AddedLines   int    `json:"added_lines"`
	RemovedLines int    `json:"removed_lines"`
}

// EditFile returns the edit_file tool.
func (w *Workspace) EditFile() tool.Tool {
	return tool.NewAdapter(tool.Declaration{
		Name:        "edit_file",
		Description: "Edit an existing file by replacing exact text. Operations are applied in order; an empty 'before' appends 'after' to the end of the file.",
		Parameters: &tool.Schema{
			Type: tool.TypeObject,
			Properties: map[string]*tool.Schema{
				"path": {Type: tool.TypeString, Description: "Path relative to the workspace root"},
				"operations": {
					Type:        tool.TypeArray,
					Description: "Edit operations",
					Items: &tool.Schema{
						Type: tool.TypeObject,
						Properties: map[string]*tool.Schema{
							"before":                {Type: tool.TypeString, Description: "Exact text to find"},
							"after":                 {Type: tool.TypeString, Description: "Replacement text"},
							"expected_replacements": {Type: tool.TypeInteger, Description: "Number of occurrences to replace (default 1)"},
						},
						Required: []string{"before", "after"},
					},
				},
			},
			Required: []string{"path", "operations"},
		},
	}, w.editFile)
}

func (w *Workspace) editFile(_ context.Context, req EditFileRequest) (*EditFileResponse, error) {
	abs, rel, err := w.resolve(req.Path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, rel)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", rel, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrIsDirectory, rel)
	}
	if info.Size() > w.limits.MaxFileSize {
		return nil, fmt.Errorf("%w: %s", ErrTooLarge, rel)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", rel, err)
	}
	if prior, ok := w.checksums.get(abs); ok && prior != checksum(data) {
		return nil, fmt.Errorf("%w: %s; read it again before editing", ErrEditConflict, rel)
	}

	raw := string(data)
	crlf := strings.Contains(raw, "\r\n")
	original := strings.ReplaceAll(raw, "\r\n", "\n")

	content := original
	for _, op := range req.Operations {
		before := strings.ReplaceAll(op.Before, "\r\n", "\n")
		after := strings.ReplaceAll(op.After, "\r\n", "\n")

		if before == "" {
			if op.ExpectedReplacements > 1 {
				return nil, fmt.Errorf("%w: append has 1 target, got %d", ErrCountMismatch, op.ExpectedReplacements)
			}
			content += after
			continue
		}

		count := strings.Count(content, before)
		if count == 0 {
			return nil, fmt.Errorf("%w: %q in %s", ErrSnippetMissing, op.Before, rel)
		}
		if count != op.ExpectedReplacements {
			return nil, fmt.Errorf("%w in %s: expected %d, found %d", ErrCountMismatch, rel, op.ExpectedReplacements, count)
		}
		content = strings.Replace(content, before, after, count)
	}

	final := content
	if crlf {
		final = strings.ReplaceAll(content, "\n", "\r\n")
	}
	out := []byte(final)
	if int64(len(out)) > w.limits.MaxFileSize {
		return nil, fmt.Errorf("%w: %s after edit (size %d, limit %d)", ErrTooLarge, rel, len(out), w.limits.MaxFileSize)
	}

	if err := writeFileAtomic(abs, out, info.Mode().Perm()); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", rel, err)
	}
	w.checksums.update(abs, out)

	diff, added, removed := unifiedDiff(rel, original, content)
	return &EditFileResponse{Path: rel, Diff: diff, AddedLines: added, RemovedLines: removed}, nil
}

func unifiedDiff(name, before, after string) (diff string, added, removed int) {
	diff, _ = difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: "a/" + name,
		ToFile:   "b/" + name,
		Context:  3,
	})
	for _, line := range strings.Split(diff, "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		case strings.HasPrefix(line, "+"):
			added++
		case strings.HasPrefix(line, "-"):
			removed++
		}
	}
	return diff, added, removed
}
