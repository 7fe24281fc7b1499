package index

import (
	"github.com/mesh-intelligence/waymark/internal/filelock"
	"github.com/mesh-intelligence/waymark/pkg/types"
)

// FindByID returns the record with the given identifier.
func (s *Store) FindByID(id string) (types.IdentifierRecord, bool, error) {
	var (
		rec types.IdentifierRecord
		ok  bool
	)
	err := s.read(func(c *cache) { rec, ok = c.FindByID(id) })
	return rec, ok, err
}

// FindBySlug returns records with slug for kind; an empty kind searches all
// kinds. A well-formed index yields at most one record per kind.
func (s *Store) FindBySlug(slug string, kind types.Kind) ([]types.IdentifierRecord, error) {
	var out []types.IdentifierRecord
	err := s.read(func(c *cache) { out = c.findBySlug(slug, kind) })
	return out, err
}

// FindByPattern returns records whose id, human id, slug or title matches
// pattern, case-insensitively, in index order.
func (s *Store) FindByPattern(pattern string) ([]types.IdentifierRecord, error) {
	var out []types.IdentifierRecord
	err := s.read(func(c *cache) { out = c.findByPattern(pattern) })
	return out, err
}

// Resolve returns the records a user-supplied reference denotes. An empty
// result means nothing matched.
func (s *Store) Resolve(ref string) ([]types.IdentifierRecord, error) {
	var out []types.IdentifierRecord
	err := s.read(func(c *cache) { out = c.Resolve(ref) })
	return out, err
}

// All returns every record in index order.
func (s *Store) All() ([]types.IdentifierRecord, error) {
	var out []types.IdentifierRecord
	err := s.read(func(c *cache) { out = c.Records() })
	return out, err
}

// Reload discards the cache and re-reads the index under the shared lock,
// picking up records appended by other processes.
func (s *Store) Reload() error {
	s.mu.Lock()
	s.resetLocked()
	s.mu.Unlock()
	return s.withLock(filelock.Shared, func() error { return nil })
}
