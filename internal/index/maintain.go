package index

import (
	"fmt"
	"sort"

	"github.com/mesh-intelligence/waymark/internal/filelock"
	"github.com/mesh-intelligence/waymark/pkg/types"
)

// Source supplies the records a rebuild writes, typically by scanning
// artifact front matter.
type Source interface {
	Collect() ([]types.IdentifierRecord, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func() ([]types.IdentifierRecord, error)

func (f SourceFunc) Collect() ([]types.IdentifierRecord, error) { return f() }

// Rebuild replaces the index with the records from src, sorted by id with
// duplicate ids dropped (first wins) and invalid records skipped. The new
// file is written to a temp file, fsynced, and renamed into place. Given an
// unchanged source the resulting file is byte-identical. Rebuild returns
// the number of records written.
func (s *Store) Rebuild(src Source) (int, error) {
	collected, err := src.Collect()
	if err != nil {
		return 0, fmt.Errorf("collecting records for rebuild: %w", err)
	}

	valid := make([]types.IdentifierRecord, 0, len(collected))
	for _, rec := range collected {
		if err := rec.Validate(); err != nil {
			s.logger.Warn("rebuild skipping record", "id", rec.ID, "path", rec.Path, "error", err)
			continue
		}
		valid = append(valid, rec)
	}
	sort.SliceStable(valid, func(i, j int) bool { return valid[i].ID < valid[j].ID })

	records := valid[:0]
	for _, rec := range valid {
		if n := len(records); n > 0 && records[n-1].ID == rec.ID {
			s.logger.Warn("rebuild dropping duplicate id", "id", rec.ID, "path", rec.Path)
			continue
		}
		records = append(records, rec)
	}

	err = s.withLock(filelock.Exclusive, func() error {
		if err := writeJSONL(s.path, records); err != nil {
			return err
		}
		s.resetLocked()
		return s.syncLocked()
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("rebuilt index", "path", s.path, "records", len(records))
	return len(records), nil
}

// LinkParent sets the parent of record id to parentID and rewrites the
// index atomically. Both records must exist and the link must not create a
// cycle. Malformed lines are not carried over.
func (s *Store) LinkParent(id, parentID string) error {
	return s.withLock(filelock.Exclusive, func() error {
		child, ok := s.cache.FindByID(id)
		if !ok {
			return fmt.Errorf("%w: %s", types.ErrNotFound, id)
		}
		parent, ok := s.cache.FindByID(parentID)
		if !ok {
			return fmt.Errorf("%w: parent %s", types.ErrNotFound, parentID)
		}
		for p := parent; ; {
			if p.ID == child.ID {
				return fmt.Errorf("%w: linking %s under %s would create a cycle", types.ErrInvalidRecord, child.ID, parent.ID)
			}
			if p.ParentID == "" {
				break
			}
			next, ok := s.cache.FindByID(p.ParentID)
			if !ok {
				break
			}
			p = next
		}
		if child.ParentID == parent.ID {
			return nil
		}

		records := s.cache.Records()
		for i := range records {
			if records[i].ID == child.ID {
				records[i].ParentID = parent.ID
			}
		}
		if err := writeJSONL(s.path, records); err != nil {
			return err
		}
		s.resetLocked()
		return s.syncLocked()
	})
}

// Validate checks the index for duplicate ids, duplicate slugs within a
// kind, duplicate human IDs within a kind, and parents that do not resolve.
// It returns one message per problem, in index order; nil means clean.
func (s *Store) Validate() ([]string, error) {
	var problems []string
	err := s.read(func(c *cache) { problems = c.validate() })
	return problems, err
}

func (c *cache) validate() []string {
	var problems []string
	seenID := make(map[string]bool)
	seenSlug := make(map[slugKey]string)
	seenHuman := make(map[string]string)

	for _, r := range c.records {
		if seenID[r.ID] {
			problems = append(problems, fmt.Sprintf("duplicate id %s", r.ID))
		}
		seenID[r.ID] = true

		k := slugKey{r.Kind, r.Slug}
		if first, ok := seenSlug[k]; ok {
			problems = append(problems, fmt.Sprintf("duplicate %s slug %q: %s and %s", r.Kind, r.Slug, first, r.ID))
		} else {
			seenSlug[k] = r.ID
		}

		if r.HumanID != "" {
			if first, ok := seenHuman[r.HumanID]; ok {
				problems = append(problems, fmt.Sprintf("duplicate human id %s: %s and %s", r.HumanID, first, r.ID))
			} else {
				seenHuman[r.HumanID] = r.ID
			}
		}

		if r.ParentID != "" {
			if _, ok := c.byID[r.ParentID]; !ok {
				problems = append(problems, fmt.Sprintf("%s has dangling parent %s", r.ID, r.ParentID))
			}
		}
	}
	return problems
}
