// Package fslock provides advisory file locking used to serialize
// concurrent rebuilds of the same combined index file.
package fslock

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"
)

// DefaultTimeout is used by Acquire when no explicit timeout is given.
const DefaultTimeout = 5 * time.Second

// Errors returned by Acquire.
var (
	ErrTimeout = errors.New("fslock: timed out acquiring lock")
	ErrOpen    = errors.New("fslock: failed to open lock file")
)

const lockFilePerm = 0o644

// Lock represents an exclusive advisory lock on a `<path>.lock` file
// sitting alongside the file being protected, so the protected file
// itself is never truncated or otherwise disturbed by lock bookkeeping.
type Lock struct {
	path string
	file *os.File
}

// AcquireWithTimeout tries to take an exclusive, non-blocking flock on
// path + ".lock", retrying until timeout elapses.
func AcquireWithTimeout(path string, timeout time.Duration) (*Lock, error) {
	lockPath := path + ".lock"

	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, lockFilePerm)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}

	deadline := time.Now().Add(timeout)

	const retryInterval = 10 * time.Millisecond

	for {
		err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
		if err == nil {
			return &Lock{path: lockPath, file: file}, nil
		}

		if time.Now().After(deadline) {
			_ = file.Close()

			return nil, fmt.Errorf("%w: %s", ErrTimeout, path)
		}

		time.Sleep(retryInterval)
	}
}

// Acquire takes the lock using DefaultTimeout.
func Acquire(path string) (*Lock, error) {
	return AcquireWithTimeout(path, DefaultTimeout)
}

// Release unlocks and closes the underlying lock file. Safe to call on
// a nil *Lock.
func (l *Lock) Release() {
	if l == nil || l.file == nil {
		return
	}

	_ = syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	_ = l.file.Close()
}

// WithLock acquires path's lock, runs fn, and releases the lock
// regardless of fn's outcome.
func WithLock(path string, fn func() error) error {
	lock, err := Acquire(path)
	if err != nil {
		return err
	}

	defer lock.Release()

	return fn()
}
