package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PartialSuffix marks files that are still being written. Walkers ignore them.
const PartialSuffix = ".partial"

// IsPartial reports whether name is an in-flight temp file.
func IsPartial(name string) bool {
	return strings.HasSuffix(name, PartialSuffix)
}

// CreatePartial opens a hidden temp file in the same directory as path so
// the final rename stays on one filesystem.
func CreatePartial(path string) (*os.File, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*"+PartialSuffix)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	return f, nil
}

// Commit flushes f to disk, closes it and renames it to path.
// On failure the temp file is removed.
func Commit(f *os.File, path string, perm os.FileMode) error {
	tmp := f.Name()
	if err := f.Chmod(perm); err != nil {
		Discard(f)
		return fmt.Errorf("failed to chmod %s: %w", tmp, err)
	}
	if err := f.Sync(); err != nil {
		Discard(f)
		return fmt.Errorf("failed to sync %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to rename %s to %s: %w", tmp, path, err)
	}
	return nil
}

// Discard closes and removes an uncommitted temp file.
func Discard(f *os.File) {
	_ = f.Close()
	_ = os.Remove(f.Name())
}
