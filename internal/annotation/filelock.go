package annotation

import (
	"fmt"
	"os"
	"time"
)

const lockPollInterval = 100 * time.Millisecond

// FileLock is an advisory cross-process mutex backed by a sentinel file.
// Presence of the file means the lock is held. The sentinel is created
// with O_EXCL so only one process can win a race to acquire it.
type FileLock struct {
	path     string
	timeout  time.Duration
	acquired bool
}

// NewFileLock creates a lock on the given sentinel path.
func NewFileLock(path string, timeout time.Duration) *FileLock {
	return &FileLock{path: path, timeout: timeout}
}

// Acquire spins until the sentinel can be exclusively created or the
// timeout elapses, in which case it returns ErrLockTimeout.
func (l *FileLock) Acquire() error {
	deadline := time.Now().Add(l.timeout)

	for {
		f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			f.Close()
			l.acquired = true
			return nil
		}
		if !os.IsExist(err) {
			// Unexpected filesystem error; retry until the deadline.
			if time.Now().After(deadline) {
				return fmt.Errorf("%w: %v", ErrLockTimeout, err)
			}
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w after %s (%s)", ErrLockTimeout, l.timeout, l.path)
		}
		time.Sleep(lockPollInterval)
	}
}

// Release removes the sentinel. Safe to call when the lock is not held.
func (l *FileLock) Release() {
	if !l.acquired {
		return
	}
	_ = os.Remove(l.path)
	l.acquired = false
}

// WithLock runs fn while holding the lock, releasing on every exit path.
func (l *FileLock) WithLock(fn func() error) error {
	if err := l.Acquire(); err != nil {
		return err
	}
	defer l.Release()
	return fn()
}
