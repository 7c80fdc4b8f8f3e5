package builtin

import "errors"

var (
	ErrNotFound       = errors.New("file does not exist")
	ErrIsDirectory    = errors.New("path is a directory")
	ErrNotDirectory   = errors.New("path is not a directory")
	ErrTooLarge       = errors.New("file too large")
	ErrBinary         = errors.New("binary content")
	ErrSnippetMissing = errors.New("snippet not found")
	ErrCountMismatch  = errors.New("replacement count mismatch")
	ErrEditConflict   = errors.New("file changed since it was last read")
	ErrTimeout        = errors.New("command timed out")
)
