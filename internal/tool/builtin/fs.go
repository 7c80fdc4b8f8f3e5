package builtin

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// binarySampleSize matches git's heuristic.
const binarySampleSize = 8000

// isBinary looks for NUL bytes in the first binarySampleSize bytes. UTF-16
// and UTF-32 byte order marks are treated as text.
func isBinary(content []byte) bool {
	if len(content) >= 2 && ((content[0] == 0xFF && content[1] == 0xFE) || (content[0] == 0xFE && content[1] == 0xFF)) {
		return false
	}
	if len(content) >= 4 && content[0] == 0x00 && content[1] == 0x00 && content[2] == 0xFE && content[3] == 0xFF {
		return false
	}
	for i := range min(len(content), binarySampleSize) {
		if content[i] == 0 {
			return true
		}
	}
	return false
}

// readRange reads limit bytes from offset. A zero limit reads to the end.
func readRange(path string, offset, limit int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if offset > 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			return nil, err
		}
	}
	var r io.Reader = f
	if limit > 0 {
		r = io.LimitReader(f, limit)
	}
	return io.ReadAll(r)
}

// writeFileAtomic writes through a temp file in the same directory and
// renames it over path, so a crash never leaves a half-written file.
func writeFileAtomic(path string, content []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	done := false
	defer func() {
		if !done {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("failed to set file permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	done = true
	return nil
}

// checksumStore remembers the content hash of files as last read or written.
type checksumStore struct {
	mu   sync.Mutex
	sums map[string]string
}

func newChecksumStore() *checksumStore {
	return &checksumStore{sums: make(map[string]string)}
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (s *checksumStore) get(path string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum, ok := s.sums[path]
	return sum, ok
}

func (s *checksumStore) update(path string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sums[path] = checksum(data)
}
