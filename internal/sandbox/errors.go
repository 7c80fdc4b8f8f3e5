package sandbox

import (
	"errors"
	"fmt"
)

var (
	ErrOutsideRoot    = errors.New("path escapes project root")
	ErrSensitivePath  = errors.New("path matches a sensitive file")
	ErrPathTooDeep    = errors.New("path is too deep")
	ErrSymlink        = errors.New("path is a symbolic link")
	ErrInvalidRoot    = errors.New("project root is not an accessible directory")
	ErrBlockedCommand = errors.New("command is blocked")
)

// SecurityError is returned for any path or command rejected by the sandbox.
// It is always fatal to the call that triggered it.
type SecurityError struct {
	Path    string
	Command string
	Reason  string
	Err     error
}

func (e *SecurityError) Error() string {
	target := e.Path
	if target == "" {
		target = e.Command
	}
	if e.Reason != "" {
		return fmt.Sprintf("security: %s: %s (%s)", e.Err, target, e.Reason)
	}
	return fmt.Sprintf("security: %s: %s", e.Err, target)
}

func (e *SecurityError) Unwrap() error {
	return e.Err
}
