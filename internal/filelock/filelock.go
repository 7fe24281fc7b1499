// Package filelock provides advisory whole-file locks on a sibling lock
// file with a bounded wait. Writers take an exclusive lock; readers take a
// shared one so they never observe a half-written line.
package filelock

import (
	"fmt"
	"os"
	"time"

	"github.com/mesh-intelligence/waymark/pkg/types"
)

// Mode selects shared or exclusive locking.
type Mode int

const (
	Shared Mode = iota
	Exclusive
)

func (m Mode) String() string {
	if m == Exclusive {
		return "exclusive"
	}
	return "shared"
}

// pollInterval is the sleep between non-blocking lock attempts.
const pollInterval = 10 * time.Millisecond

// Lock is a held lock. Release it exactly once; further calls are no-ops.
type Lock struct {
	file *os.File
	path string
	mode Mode
}

// Acquire opens (creating if needed) the lock file at path and polls for
// the lock until timeout elapses. On timeout it returns an error wrapping
// types.ErrLockTimeout. A timeout <= 0 makes a single attempt.
func Acquire(path string, mode Mode, timeout time.Duration) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file %s: %w", path, err)
	}

	deadline := time.Now().Add(timeout)
	for {
		ok, err := tryLock(f, path, mode)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("acquiring %s lock on %s: %w", mode, path, err)
		}
		if ok {
			return &Lock{file: f, path: path, mode: mode}, nil
		}
		if !time.Now().Before(deadline) {
			f.Close()
			return nil, fmt.Errorf("%w: %s lock on %s not granted within %s", types.ErrLockTimeout, mode, path, timeout)
		}
		time.Sleep(pollInterval)
	}
}

// Mode reports how the lock is held.
func (l *Lock) Mode() Mode { return l.mode }

// Release drops the lock and closes the file.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	unlockErr := unlock(l.file, l.path)
	closeErr := l.file.Close()
	l.file = nil
	if unlockErr != nil {
		return unlockErr
	}
	return closeErr
}
