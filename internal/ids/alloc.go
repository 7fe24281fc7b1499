package ids

import (
	"fmt"
	"strings"
	"time"

	"github.com/mesh-intelligence/waymark/pkg/types"
)

// maxRefAttempts bounds the retries when a fresh identifier's dated
// reference collides with an existing one of the same kind.
const maxRefAttempts = 16

// View is the read-only index state consulted while allocating.
type View interface {
	SlugIndex
	RefTaken(kind types.Kind, ref string) bool
	Records() []types.IdentifierRecord
}

// Allocation is the result of Allocate: everything the generator decides
// for a new record. Callers add path, parent, and owner.
type Allocation struct {
	ID        string
	Slug      string
	HumanID   string
	CreatedAt time.Time
}

// Record builds an IdentifierRecord from the allocation.
func (a Allocation) Record(kind types.Kind, title string) types.IdentifierRecord {
	return types.IdentifierRecord{
		ID:        a.ID,
		Kind:      kind,
		HumanID:   a.HumanID,
		Slug:      a.Slug,
		Title:     title,
		CreatedAt: a.CreatedAt,
	}
}

// Allocate produces an identifier, a collision-free slug, and the next
// human ID for (kind, title) against the given view.
func (g *Generator) Allocate(kind types.Kind, title string, view View) (Allocation, error) {
	if !kind.Valid() {
		return Allocation{}, fmt.Errorf("%w: %q", types.ErrInvalidKind, kind)
	}
	if strings.TrimSpace(title) == "" {
		return Allocation{}, types.ErrInvalidTitle
	}

	var (
		id      string
		created time.Time
		err     error
	)
	for attempt := 0; ; attempt++ {
		if attempt == maxRefAttempts {
			return Allocation{}, fmt.Errorf("%w: kind %s after %d attempts", types.ErrRefExhausted, kind, attempt)
		}
		id, created, err = g.NewID()
		if err != nil {
			return Allocation{}, err
		}
		if !view.RefTaken(kind, types.FormatRef(kind, id, created)) {
			break
		}
	}

	base := Slugify(title, g.slugMaxLen)
	return Allocation{
		ID:        id,
		Slug:      g.DedupeSlug(base, kind, view),
		HumanID:   NextHumanID(kind, view.Records()),
		CreatedAt: created,
	}, nil
}

// NextHumanID scans records of kind and returns the next legacy human ID,
// max+1, starting at 1. Records without a parseable human ID are ignored.
func NextHumanID(kind types.Kind, records []types.IdentifierRecord) string {
	hi := 0
	for _, r := range records {
		if r.Kind != kind || r.HumanID == "" {
			continue
		}
		k, n, ok := types.ParseHumanID(r.HumanID)
		if !ok || k != kind {
			continue
		}
		if n > hi {
			hi = n
		}
	}
	return types.FormatHumanID(kind, hi+1)
}
