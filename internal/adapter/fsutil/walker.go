package fsutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Walker lists the regular files under a directory.
type Walker struct {
	recursive bool
	onSkip    func(path string, err error)
}

// NewWalker creates a Walker. With recursive false only the top level is
// listed.
func NewWalker(recursive bool) *Walker {
	return &Walker{recursive: recursive}
}

// WithSkipHandler returns a copy of w that reports entries below the root
// that could not be read. They are skipped either way.
func (w *Walker) WithSkipHandler(fn func(path string, err error)) *Walker {
	cp := *w
	cp.onSkip = fn
	return &cp
}

// List returns regular files under dir in lexical order. Directories,
// symlinks, sockets and in-flight .partial files are skipped. An existing
// empty directory yields an empty slice. A missing or unreadable dir is an
// error; the caller decides whether that is fatal.
func (w *Walker) List(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	if !w.recursive {
		return w.listFlat(dir)
	}

	files := []string{}
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			w.skip(path, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if d.Type().IsRegular() && !IsPartial(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory %s: %w", dir, err)
	}
	return files, nil
}

func (w *Walker) listFlat(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	files := []string{}
	for _, entry := range entries {
		if entry.Type().IsRegular() && !IsPartial(entry.Name()) {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	return files, nil
}

func (w *Walker) skip(path string, err error) {
	if w.onSkip != nil {
		w.onSkip(path, err)
	}
}

// IsNotExist reports whether err came from a missing path.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
