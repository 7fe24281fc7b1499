// Package audit keeps an append-only trail of what the tracker did:
// artifacts created, statuses changed, indexes rebuilt. Entries live in
// <data_dir>/audit.jsonl, one JSON object per line, and are appended under
// an exclusive flock on audit.lock.
package audit

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/waymark/internal/filelock"
	"github.com/mesh-intelligence/waymark/pkg/types"
)

// Event names.
const (
	EventCreated = "created"
	EventStatus  = "status"
	EventLinked  = "linked"
	EventRebuilt = "rebuilt"
)

// Entry is one audit line.
type Entry struct {
	EventID string         `json:"event_id"`
	Event   string         `json:"event"`
	Time    time.Time      `json:"ts"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Log appends to and reads from one audit file.
type Log struct {
	path     string
	lockPath string
	timeout  time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// Open returns a Log under cfg.DataDir. A nil logger uses slog.Default().
func Open(cfg types.Config, logger *slog.Logger) (*Log, error) {
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
	return &Log{
		path:     filepath.Join(cfg.DataDir, types.AuditFileName),
		lockPath: filepath.Join(cfg.DataDir, types.AuditLockName),
		timeout:  cfg.LockTimeout,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Path returns the audit file location.
func (l *Log) Path() string { return l.path }

// Record appends an entry for event with the given payload and returns it.
func (l *Log) Record(event string, payload map[string]any) (Entry, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Entry{}, fmt.Errorf("generating event id: %w", err)
	}
	e := Entry{
		EventID: id.String(),
		Event:   event,
		Time:    l.now().UTC(),
		Payload: payload,
	}
	line, err := json.Marshal(e)
	if err != nil {
		return Entry{}, fmt.Errorf("encoding audit entry: %w", err)
	}
	line = append(line, '\n')

	lock, err := filelock.Acquire(l.lockPath, filelock.Exclusive, l.timeout)
	if err != nil {
		return Entry{}, err
	}
	defer lock.Release()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return Entry{}, &types.IndexWriteError{Op: "open", Path: l.path, Err: err}
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return Entry{}, &types.IndexWriteError{Op: "append", Path: l.path, Err: err}
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return Entry{}, &types.IndexWriteError{Op: "sync", Path: l.path, Err: err}
	}
	if err := f.Close(); err != nil {
		return Entry{}, &types.IndexWriteError{Op: "close", Path: l.path, Err: err}
	}
	return e, nil
}

// Tail returns the last n entries in file order; n <= 0 returns all.
// Malformed lines are logged and skipped.
func (l *Log) Tail(n int) ([]Entry, error) {
	lock, err := filelock.Acquire(l.lockPath, filelock.Shared, l.timeout)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	var entries []Entry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(raw, &e); err != nil {
			l.logger.Warn("skipping malformed audit line", "path", l.path, "line", lineNo, "error", err)
			continue
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading audit log: %w", err)
	}

	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return entries, nil
}

// RecordPayload builds the payload stored for an identifier record.
func RecordPayload(rec types.IdentifierRecord) map[string]any {
	p := map[string]any{
		"id":    rec.ID,
		"kind":  string(rec.Kind),
		"ref":   rec.Ref(),
		"slug":  rec.Slug,
		"title": rec.Title,
		"path":  rec.Path,
	}
	if rec.HumanID != "" {
		p["human_id"] = rec.HumanID
	}
	if rec.ParentID != "" {
		p["parent_id"] = rec.ParentID
	}
	if rec.Owner != "" {
		p["owner"] = rec.Owner
	}
	return p
}
