package artifacts

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mesh-intelligence/waymark/internal/ids"
	"github.com/mesh-intelligence/waymark/pkg/types"
)

// FrontMatterSource collects identifier records from the artifacts under
// Root. It implements index.Source for Rebuild.
//
// Files without a usable id get a deterministic one derived from their
// creation time and relative path, so collecting the same tree twice yields
// the same records.
type FrontMatterSource struct {
	Root       string
	SlugMaxLen int
	Logger     *slog.Logger
}

// Collect walks plans/, specs/, and exec/ under Root. Files that cannot be
// parsed are logged and skipped.
func (s FrontMatterSource) Collect() ([]types.IdentifierRecord, error) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var records []types.IdentifierRecord
	for _, kind := range types.Kinds {
		dir := filepath.Join(s.Root, kind.Dir())
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == dir && os.IsNotExist(err) {
					return fs.SkipDir
				}
				return err
			}
			if d.IsDir() || filepath.Ext(path) != ".md" {
				return nil
			}
			rec, err := s.record(kind, path, d)
			if err != nil {
				logger.Warn("skipping artifact", "path", path, "error", err)
				return nil
			}
			records = append(records, rec)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", dir, err)
		}
	}

	sort.SliceStable(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	s.assignSlugs(records)
	return records, nil
}

func (s FrontMatterSource) record(kind types.Kind, path string, d fs.DirEntry) (types.IdentifierRecord, error) {
	fm, body, err := Read(path)
	if err != nil {
		return types.IdentifierRecord{}, err
	}
	if fm.Kind != "" && fm.Kind != kind {
		return types.IdentifierRecord{}, fmt.Errorf("%w: front matter kind %s in %s directory", types.ErrInvalidRecord, fm.Kind, kind.Dir())
	}

	rec := types.IdentifierRecord{
		Kind:     kind,
		Title:    strings.TrimSpace(fm.Title),
		Owner:    fm.Owner,
		Path:     filepath.ToSlash(path),
		ParentID: strings.ToUpper(fm.Parent),
	}
	if rec.Title == "" {
		rec.Title = heading(body)
	}
	if rec.Title == "" {
		return types.IdentifierRecord{}, types.ErrInvalidTitle
	}
	if !types.ValidID(rec.ParentID) {
		rec.ParentID = ""
	}
	if k, n, ok := types.ParseHumanID(fm.HumanID); ok && k == kind {
		rec.HumanID = types.FormatHumanID(k, n)
	}

	id := strings.ToUpper(strings.TrimSpace(fm.ID))
	created := fm.Created
	if types.ValidID(id) {
		if created.IsZero() {
			created, _ = ids.IDTime(id)
		}
	} else {
		if created.IsZero() {
			info, err := d.Info()
			if err != nil {
				return types.IdentifierRecord{}, err
			}
			created = info.ModTime()
		}
		rel, err := filepath.Rel(s.Root, path)
		if err != nil {
			rel = path
		}
		sum := sha256.Sum256([]byte(filepath.ToSlash(rel)))
		id, err = ids.DeterministicID(created, [10]byte(sum[:10]))
		if err != nil {
			return types.IdentifierRecord{}, err
		}
	}
	rec.ID = id
	rec.CreatedAt = created.UTC().Truncate(time.Millisecond)

	rec.Slug = fm.Slug
	if !types.ValidSlug(rec.Slug, s.slugMax()) {
		rec.Slug = fileSlug(path)
	}
	if rec.Slug == "" {
		rec.Slug = ids.Slugify(rec.Title, s.slugMax())
	}
	return rec, nil
}

// assignSlugs resolves slug collisions within a kind in identifier order.
// The earliest record keeps its slug.
func (s FrontMatterSource) assignSlugs(records []types.IdentifierRecord) {
	g := ids.NewGenerator(ids.WithSlugMaxLen(s.slugMax()))
	taken := slugSet{}
	for i := range records {
		r := &records[i]
		r.Slug = g.DedupeSlug(r.Slug, r.Kind, taken)
		taken.add(r.Kind, r.Slug)
	}
}

func (s FrontMatterSource) slugMax() int {
	if s.SlugMaxLen > 0 {
		return s.SlugMaxLen
	}
	return types.DefaultSlugMaxLen
}

type slugSet map[types.Kind]map[string]bool

func (s slugSet) SlugTaken(kind types.Kind, slug string) bool { return s[kind][slug] }

func (s slugSet) add(kind types.Kind, slug string) {
	if s[kind] == nil {
		s[kind] = map[string]bool{}
	}
	s[kind][slug] = true
}

// fileSlug recovers the slug from a file named PLAN-20251014-01K7A2-slug.md.
func fileSlug(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), ".md")
	if ref, ok := ids.ParseRef(name); ok && ref.Dated() {
		return ref.Slug
	}
	return ""
}

// heading returns the text of the first "# " line in body.
func heading(body []byte) string {
	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if title, ok := strings.CutPrefix(line, "# "); ok {
			return strings.TrimSpace(title)
		}
	}
	return ""
}
