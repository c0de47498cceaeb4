package lock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/V4T54L/logvault/internal/domain"
)

// FileName is the lock file created inside the guarded directory.
const FileName = ".logvault.lock"

// RunLock keeps two processes from running the same job on one directory.
type RunLock struct {
	fl *flock.Flock
}

// New returns a lock for dir. Nothing is touched until TryAcquire.
func New(dir string) *RunLock {
	return &RunLock{fl: flock.New(filepath.Join(dir, FileName))}
}

// TryAcquire takes the lock without blocking. It returns
// domain.ErrRunInProgress if another process holds it.
func (l *RunLock) TryAcquire() error {
	if err := os.MkdirAll(filepath.Dir(l.fl.Path()), 0755); err != nil {
		return fmt.Errorf("creating lock directory: %w", err)
	}
	locked, err := l.fl.TryLock()
	if err != nil {
		return fmt.Errorf("acquiring lock %s: %w", l.fl.Path(), err)
	}
	if !locked {
		return fmt.Errorf("%w (lock %s held by another process)", domain.ErrRunInProgress, l.fl.Path())
	}
	return nil
}

// Release drops the lock. Safe to call when not held.
func (l *RunLock) Release() error {
	return l.fl.Unlock()
}
