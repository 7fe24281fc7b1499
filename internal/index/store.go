// Package index is the append-only identifier index: one JSON record per
// line in <data_dir>/index.jsonl, coordinated across processes by flock(2)
// on the sibling index.lock.
//
// Writers hold the exclusive lock for the whole read-check-append cycle, so
// slug dedupe and human ID allocation done inside Create are race-free
// between processes. Readers take the shared lock while scanning. Lookups
// are served from an in-memory cache that is populated lazily, kept for
// the life of the Store, and caught up from the last known file offset on
// every locked operation.
package index

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mesh-intelligence/waymark/internal/filelock"
	"github.com/mesh-intelligence/waymark/pkg/types"
)

var errTornLine = errors.New("incomplete trailing line")

// Store is a handle on one index file. It is safe for concurrent use.
type Store struct {
	path     string
	lockPath string
	timeout  time.Duration
	logger   *slog.Logger

	mu     sync.RWMutex
	loaded bool
	cache  *cache
	offset int64       // bytes of the file consumed into the cache
	lineNo int         // complete lines consumed
	info   os.FileInfo // identity of the file the offset refers to
}

// Open returns a Store for cfg.DataDir, creating the directory if needed.
// Nothing is read until the first lookup or write. A nil logger uses
// slog.Default().
func Open(cfg types.Config, logger *slog.Logger) (*Store, error) {
	cfg = cfg.WithDefaults()
	if cfg.DataDir == "" {
		return nil, types.ErrDataDirEmpty
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir %s: %w", cfg.DataDir, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		path:     filepath.Join(cfg.DataDir, types.IndexFileName),
		lockPath: filepath.Join(cfg.DataDir, types.LockFileName),
		timeout:  cfg.LockTimeout,
		logger:   logger,
		cache:    newCache(),
	}, nil
}

// Path returns the index file location.
func (s *Store) Path() string { return s.path }

// read runs fn against a loaded cache under the read lock.
func (s *Store) read(fn func(c *cache)) error {
	s.mu.RLock()
	if s.loaded {
		defer s.mu.RUnlock()
		fn(s.cache)
		return nil
	}
	s.mu.RUnlock()

	if err := s.withLock(filelock.Shared, func() error { return nil }); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.cache)
	return nil
}

// withLock acquires the file lock in mode, takes the cache mutex, catches
// the cache up with the file, and then runs fn.
func (s *Store) withLock(mode filelock.Mode, fn func() error) error {
	lock, err := filelock.Acquire(s.lockPath, mode, s.timeout)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			s.logger.Warn("releasing index lock", "path", s.lockPath, "error", err)
		}
	}()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.syncLocked(); err != nil {
		return err
	}
	return fn()
}

func (s *Store) resetLocked() {
	s.cache = newCache()
	s.offset = 0
	s.lineNo = 0
	s.info = nil
	s.loaded = false
}

// syncLocked reads whatever the file holds past the consumed offset. A file
// that was replaced (rebuild, link update) or truncated is re-read from the
// start. A trailing line without a newline is reported and left unconsumed
// so that the next append, which terminates it, makes it a complete line.
func (s *Store) syncLocked() error {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		if s.info != nil {
			s.resetLocked()
		}
		s.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening index %s: %w", s.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat index %s: %w", s.path, err)
	}
	if s.info != nil && (!os.SameFile(s.info, info) || info.Size() < s.offset) {
		s.resetLocked()
	}
	if _, err := f.Seek(s.offset, io.SeekStart); err != nil {
		return fmt.Errorf("seeking index %s: %w", s.path, err)
	}

	r := bufio.NewReader(f)
	for {
		line, err := r.ReadBytes('\n')
		if n := len(line); n > 0 && line[n-1] == '\n' {
			s.lineNo++
			s.consume(line[:n-1])
			s.offset += int64(n)
		} else if n > 0 {
			s.corrupt(s.lineNo+1, errTornLine)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("reading index %s: %w", s.path, err)
		}
	}

	s.info = info
	s.loaded = true
	return nil
}

func (s *Store) consume(line []byte) {
	if len(bytes.TrimSpace(line)) == 0 {
		return
	}
	var rec types.IdentifierRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		s.corrupt(s.lineNo, err)
		return
	}
	if err := rec.Validate(); err != nil {
		s.corrupt(s.lineNo, err)
		return
	}
	s.cache.add(rec)
}

func (s *Store) corrupt(line int, err error) {
	s.logger.Warn("skipping malformed index line", "corrupt", types.CorruptLine{
		Path:   s.path,
		Line:   line,
		Offset: s.offset,
		Err:    err,
	})
}
