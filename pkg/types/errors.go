package types

import (
	"errors"
	"fmt"
	"log/slog"
)

// Identifier generation errors.
var (
	// ErrClock means the system clock could not produce a usable timestamp.
	// Fatal: no record can be created without one.
	ErrClock = errors.New("clock unavailable for identifier generation")

	// ErrRefExhausted means every retry produced a reference that collides
	// with an existing record of the same kind.
	ErrRefExhausted = errors.New("could not allocate a unique reference")
)

// Index errors.
var (
	// ErrLockTimeout means another writer held the index lock past the
	// bounded wait. Retryable.
	ErrLockTimeout = errors.New("index lock timeout")

	// ErrIndexWrite is wrapped by every IndexWriteError. Not retried.
	ErrIndexWrite = errors.New("index write failed")

	ErrDuplicateID   = errors.New("identifier already exists in index")
	ErrSlugTaken     = errors.New("slug already used for kind")
	ErrInvalidRecord = errors.New("invalid identifier record")
	ErrNotFound      = errors.New("record not found")
	ErrAmbiguousRef  = errors.New("reference matches more than one record")
)

// Entity and input errors.
var (
	ErrInvalidKind  = errors.New("invalid kind")
	ErrInvalidTitle = errors.New("title must not be empty")
)

// Artifact errors.
var (
	ErrNoFrontMatter  = errors.New("artifact has no front matter")
	ErrArtifactExists = errors.New("artifact file already exists")
)

// Config validation errors.
var (
	ErrDataDirEmpty       = errors.New("data dir must not be empty")
	ErrSlugMaxLenInvalid  = errors.New("slug max length must be at least 8")
	ErrLockTimeoutInvalid = errors.New("lock timeout must be positive")
	ErrLockRetriesInvalid = errors.New("lock retries must not be negative")
)

// IndexWriteError reports a storage-level failure while writing the index
// or a sibling log. It unwraps to both ErrIndexWrite and the OS error.
type IndexWriteError struct {
	Op   string // operation that failed, e.g. "append", "sync", "rename"
	Path string
	Err  error
}

func (e *IndexWriteError) Error() string {
	return fmt.Sprintf("index write: %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap exposes the sentinel and the underlying cause to errors.Is.
func (e *IndexWriteError) Unwrap() []error {
	return []error{ErrIndexWrite, e.Err}
}

// CorruptLine describes a malformed index line that was skipped on read.
// It is logged, never returned.
type CorruptLine struct {
	Path   string
	Line   int
	Offset int64
	Err    error
}

func (c CorruptLine) String() string {
	return fmt.Sprintf("%s:%d (offset %d): %v", c.Path, c.Line, c.Offset, c.Err)
}

// LogValue renders the line as a structured group.
func (c CorruptLine) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("path", c.Path),
		slog.Int("line", c.Line),
		slog.Int64("offset", c.Offset),
		slog.String("error", fmt.Sprint(c.Err)),
	)
}

// IsRetryable reports whether err is worth retrying after a backoff.
// Only lock timeouts qualify.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLockTimeout)
}
