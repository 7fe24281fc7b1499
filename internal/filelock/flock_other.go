//go:build !unix

package filelock

import (
	"errors"
	"os"
)

// Without flock(2) both modes fall back to an exclusive marker file created
// with O_EXCL next to the lock file. A crashed holder leaves the marker
// behind; remove it by hand.

func markerPath(path string) string { return path + ".held" }

func tryLock(_ *os.File, path string, _ Mode) (bool, error) {
	m, err := os.OpenFile(markerPath(path), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return false, nil
		}
		return false, err
	}
	return true, m.Close()
}

func unlock(_ *os.File, path string) error {
	return os.Remove(markerPath(path))
}
