package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"
)

// FileLock is a cross-process exclusive lock backed by a lock file. It is also safe for
// concurrent use within one process.
type FileLock struct {
	mu     sync.Mutex
	path   string
	flock  *flock.Flock
	locked atomic.Bool
}

// NewFileLock creates a lock on dir/name. The file is created on first use.
func NewFileLock(dir, name string) *FileLock {
	lockPath := filepath.Join(dir, name)
	return &FileLock{
		path:  lockPath,
		flock: flock.New(lockPath),
	}
}

// Path returns the lock file path.
func (l *FileLock) Path() string { return l.path }

// Lock acquires the lock, blocking until it is available.
func (l *FileLock) Lock() error {
	l.mu.Lock()
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		l.mu.Unlock()
		return fmt.Errorf("failed to create lock directory: %w", err)
	}
	if err := l.flock.Lock(); err != nil {
		l.mu.Unlock()
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	l.locked.Store(true)
	return nil
}

// TryLock attempts to acquire the lock without blocking.
func (l *FileLock) TryLock() (bool, error) {
	if !l.mu.TryLock() {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		l.mu.Unlock()
		return false, fmt.Errorf("failed to create lock directory: %w", err)
	}
	acquired, err := l.flock.TryLock()
	if err != nil || !acquired {
		l.mu.Unlock()
		if err != nil {
			return false, fmt.Errorf("failed to acquire lock: %w", err)
		}
		return false, nil
	}
	l.locked.Store(true)
	return true, nil
}

// Unlock releases the lock. Unlocking an unlocked FileLock is a no-op, and concurrent
// Unlock calls release it exactly once.
func (l *FileLock) Unlock() error {
	if !l.locked.CompareAndSwap(true, false) {
		return nil
	}
	err := l.flock.Unlock()
	l.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}
