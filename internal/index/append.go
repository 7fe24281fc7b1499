package index

import (
	"fmt"

	"github.com/mesh-intelligence/waymark/internal/filelock"
	"github.com/mesh-intelligence/waymark/pkg/types"
)

// Append validates rec and durably appends it. It fails with
// ErrDuplicateID when the id is present, ErrSlugTaken when the slug is
// used for the same kind, ErrLockTimeout when the lock is not granted
// within the configured wait, and an *IndexWriteError on storage failure.
// The cache reflects rec when Append returns nil.
func (s *Store) Append(rec types.IdentifierRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	_, err := s.Create(func(View) (types.IdentifierRecord, error) { return rec, nil })
	return err
}

// Create builds a record from the current index state and appends it in
// one exclusive critical section. build sees every record appended by any
// process before the lock was granted.
func (s *Store) Create(build func(View) (types.IdentifierRecord, error)) (types.IdentifierRecord, error) {
	var rec types.IdentifierRecord
	err := s.withLock(filelock.Exclusive, func() error {
		var err error
		rec, err = build(s.cache)
		if err != nil {
			return err
		}
		if err := rec.Validate(); err != nil {
			return err
		}
		if _, ok := s.cache.FindByID(rec.ID); ok {
			return fmt.Errorf("%w: %s", types.ErrDuplicateID, rec.ID)
		}
		if s.cache.SlugTaken(rec.Kind, rec.Slug) {
			return fmt.Errorf("%w: %s %q", types.ErrSlugTaken, rec.Kind, rec.Slug)
		}

		line, err := encodeRecord(rec)
		if err != nil {
			return fmt.Errorf("encoding record %s: %w", rec.ID, err)
		}
		if err := appendLine(s.path, line); err != nil {
			return err
		}

		// Read back our own line (and repair the offset past any torn
		// line we just terminated).
		if err := s.syncLocked(); err != nil {
			s.logger.Warn("refreshing index cache after append", "path", s.path, "error", err)
			s.resetLocked()
		}
		return nil
	})
	if err != nil {
		return types.IdentifierRecord{}, err
	}
	s.logger.Debug("appended index record", "id", rec.ID, "kind", rec.Kind, "slug", rec.Slug)
	return rec, nil
}
