// Package lock serializes stackgen runs that write the same output tree.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// ErrLocked indicates another process holds the lock.
var ErrLocked = errors.New("lock is held by another process")

// Lock is an flock(2) based lock file.
type Lock struct {
	operation string
	path      string
	file      *os.File
}

// New creates a lock for operation under stateDir/locks.
func New(stateDir, operation string) *Lock {
	return &Lock{
		operation: operation,
		path:      filepath.Join(stateDir, "locks", operation+".lock"),
	}
}

// Path returns the lock file path.
func (l *Lock) Path() string { return l.path }

// Acquire takes the lock without blocking. It wraps ErrLocked when another
// process already holds it.
func (l *Lock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		l.file = nil
		if errors.Is(err, unix.EWOULDBLOCK) {
			return fmt.Errorf("another %s run is in progress: %w", l.operation, ErrLocked)
		}
		return fmt.Errorf("acquire lock: %w", err)
	}

	// PID for whoever finds a stale lock file.
	_ = f.Truncate(0)
	_, _ = f.Seek(0, 0)
	fmt.Fprintf(f, "%d\n", os.Getpid())

	l.file = f
	return nil
}

// Release unlocks and removes the lock file. Releasing an unheld lock is a
// no-op.
func (l *Lock) Release() error {
	if l.file == nil {
		return nil
	}

	if err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN); err != nil {
		l.file.Close()
		l.file = nil
		return fmt.Errorf("release lock: %w", err)
	}

	l.file.Close()
	os.Remove(l.path)
	l.file = nil

	return nil
}

// WithLock runs fn while holding the operation lock.
func WithLock(stateDir, operation string, fn func() error) error {
	l := New(stateDir, operation)
	if err := l.Acquire(); err != nil {
		return err
	}
	defer l.Release()

	return fn()
}
