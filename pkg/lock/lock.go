// Package lock guards an output tree against two indexing runs writing it at
// the same time, across processes.
package lock

import (
	"fmt"
	"os"
	"path/filepath"

	apperrors "github.com/Adithya-Monish-Kumar-K/docindex/pkg/errors"
	"github.com/gofrs/flock"
)

// FileName is the name of the lock file created in the locked directory.
const FileName = ".docindex.lock"

// FileLock is an exclusive advisory lock on <dir>/.docindex.lock.
type FileLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

func New(dir string) *FileLock {
	path := filepath.Join(dir, FileName)
	return &FileLock{
		path:  path,
		flock: flock.New(path),
	}
}

// Acquire takes the lock without blocking. It fails with ErrLocked when
// another process holds it.
func (l *FileLock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("creating lock directory: %w", err)
	}
	acquired, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("acquiring lock %s: %w", l.path, err)
	}
	if !acquired {
		return apperrors.Newf(apperrors.ErrLocked, apperrors.ExitLocked,
			"%s is held by another run", l.path)
	}
	l.locked = true
	return nil
}

// Release is safe to call on a lock that is not held.
func (l *FileLock) Release() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("releasing lock %s: %w", l.path, err)
	}
	return nil
}

func (l *FileLock) Path() string {
	return l.path
}

func (l *FileLock) Locked() bool {
	return l.locked
}
