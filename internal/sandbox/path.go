package sandbox

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// MaxPathDepth bounds the number of segments below the project root.
const MaxPathDepth = 50

// deniedNames are matched case-insensitively against the root-relative path,
// either exactly or as a path suffix.
var deniedNames = []string{
	".env",
	".env.local",
	".env.development",
	".env.production",
	".npmrc",
	".pypirc",
	".netrc",
	".git-credentials",
	".bashrc",
	".bash_profile",
	".zshrc",
	".profile",
	"id_rsa",
	"id_dsa",
	"id_ecdsa",
	"id_ed25519",
	".ssh/authorized_keys",
	".ssh/config",
	".aws/credentials",
	".docker/config.json",
	".kube/config",
	"credentials.json",
	".pgpass",
	".htpasswd",
}

// CanonicalRoot makes root absolute, resolves its symlinks and checks that it
// is a directory.
func CanonicalRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", rootError(root, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", rootError(abs, err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", rootError(resolved, err)
	}
	if !info.IsDir() {
		return "", rootError(resolved, errors.New("not a directory"))
	}
	return resolved, nil
}

func rootError(root string, cause error) error {
	return &SecurityError{Path: root, Reason: cause.Error(), Err: ErrInvalidRoot}
}

// ValidatePath resolves requested against projectRoot and returns the
// absolute, symlink-free path. A target that does not exist yet is accepted.
func ValidatePath(requested, projectRoot string) (string, error) {
	root, err := CanonicalRoot(projectRoot)
	if err != nil {
		return "", err
	}

	var abs string
	if filepath.IsAbs(requested) {
		abs = filepath.Clean(requested)
	} else {
		abs = filepath.Clean(filepath.Join(root, requested))
	}
	if !within(abs, root) {
		return "", &SecurityError{Path: requested, Err: ErrOutsideRoot}
	}

	// Directories along the way may themselves be links pointing elsewhere.
	resolved, err := resolveExisting(abs)
	if err != nil {
		return "", &SecurityError{Path: requested, Reason: err.Error(), Err: ErrOutsideRoot}
	}
	if !within(resolved, root) {
		return "", &SecurityError{Path: requested, Reason: "resolves to " + resolved, Err: ErrOutsideRoot}
	}

	rel, err := filepath.Rel(root, resolved)
	if err != nil {
		return "", &SecurityError{Path: requested, Err: ErrOutsideRoot}
	}
	rel = filepath.ToSlash(rel)
	if rel != "." && strings.Count(rel, "/")+1 > MaxPathDepth {
		return "", &SecurityError{Path: requested, Reason: fmt.Sprintf("more than %d segments", MaxPathDepth), Err: ErrPathTooDeep}
	}
	if name, ok := sensitive(rel); ok {
		return "", &SecurityError{Path: requested, Reason: name, Err: ErrSensitivePath}
	}

	info, err := os.Lstat(abs)
	switch {
	case err == nil:
		if info.Mode()&fs.ModeSymlink != 0 {
			return "", &SecurityError{Path: requested, Err: ErrSymlink}
		}
	case !errors.Is(err, fs.ErrNotExist):
		return "", &SecurityError{Path: requested, Reason: err.Error(), Err: ErrOutsideRoot}
	}

	return resolved, nil
}

func within(path, root string) bool {
	return path == root || strings.HasPrefix(path, root+string(filepath.Separator))
}

// resolveExisting evaluates symlinks on the deepest existing ancestor of path
// and re-attaches the missing tail.
func resolveExisting(path string) (string, error) {
	existing := path
	var tail []string
	for {
		_, err := os.Lstat(existing)
		if err == nil {
			break
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			break
		}
		tail = append(tail, filepath.Base(existing))
		existing = parent
	}

	// The leaf itself is rejected separately if it is a link.
	dir, leaf := existing, ""
	if len(tail) == 0 {
		dir, leaf = filepath.Dir(existing), filepath.Base(existing)
	}
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return "", err
	}
	if leaf != "" {
		resolved = filepath.Join(resolved, leaf)
	}
	for i := len(tail) - 1; i >= 0; i-- {
		resolved = filepath.Join(resolved, tail[i])
	}
	return resolved, nil
}

// IsSensitive reports whether a root-relative, slash-separated path names a
// file on the deny-list.
func IsSensitive(rel string) bool {
	_, ok := sensitive(rel)
	return ok
}

func sensitive(rel string) (string, bool) {
	lower := strings.ToLower(rel)
	for _, name := range deniedNames {
		if lower == name || strings.HasSuffix(lower, "/"+name) {
			return name, true
		}
	}
	return "", false
}
