package index

import (
	"regexp"
	"slices"
	"strings"

	"github.com/mesh-intelligence/waymark/internal/ids"
	"github.com/mesh-intelligence/waymark/pkg/types"
)

// View is the index state handed to Create's build function. It is only
// valid for the duration of the call, while the exclusive lock is held.
type View interface {
	ids.View
	FindByID(id string) (types.IdentifierRecord, bool)
	Resolve(ref string) []types.IdentifierRecord
}

type slugKey struct {
	kind types.Kind
	slug string
}

// cache holds every record read from the index in file order, plus lookup
// maps. The first record wins when an id appears twice.
type cache struct {
	records []types.IdentifierRecord
	byID    map[string]int
	bySlug  map[slugKey][]int
	byRef   map[string][]int
}

func newCache() *cache {
	return &cache{
		byID:   make(map[string]int),
		bySlug: make(map[slugKey][]int),
		byRef:  make(map[string][]int),
	}
}

func (c *cache) add(rec types.IdentifierRecord) {
	i := len(c.records)
	c.records = append(c.records, rec)
	if _, ok := c.byID[rec.ID]; !ok {
		c.byID[rec.ID] = i
	}
	k := slugKey{rec.Kind, rec.Slug}
	c.bySlug[k] = append(c.bySlug[k], i)
	ref := rec.Ref()
	c.byRef[ref] = append(c.byRef[ref], i)
}

func (c *cache) pick(idx []int) []types.IdentifierRecord {
	if len(idx) == 0 {
		return nil
	}
	out := make([]types.IdentifierRecord, len(idx))
	for j, i := range idx {
		out[j] = c.records[i]
	}
	return out
}

// SlugTaken implements ids.SlugIndex.
func (c *cache) SlugTaken(kind types.Kind, slug string) bool {
	return len(c.bySlug[slugKey{kind, slug}]) > 0
}

// RefTaken reports whether a dated reference is already in use. The kind
// is part of the reference prefix.
func (c *cache) RefTaken(_ types.Kind, ref string) bool {
	return len(c.byRef[ref]) > 0
}

func (c *cache) Records() []types.IdentifierRecord {
	return slices.Clone(c.records)
}

func (c *cache) FindByID(id string) (types.IdentifierRecord, bool) {
	i, ok := c.byID[strings.ToUpper(strings.TrimSpace(id))]
	if !ok {
		return types.IdentifierRecord{}, false
	}
	return c.records[i], true
}

func (c *cache) findBySlug(slug string, kind types.Kind) []types.IdentifierRecord {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if kind != "" {
		return c.pick(c.bySlug[slugKey{kind, slug}])
	}
	var out []types.IdentifierRecord
	for _, k := range types.Kinds {
		out = append(out, c.pick(c.bySlug[slugKey{k, slug}])...)
	}
	return out
}

// findByPattern matches pattern case-insensitively against id, human id,
// slug and title. A pattern that is not a valid regular expression is
// matched as a literal substring.
func (c *cache) findByPattern(pattern string) []types.IdentifierRecord {
	match := literalMatcher(pattern)
	if re, err := regexp.Compile("(?i)" + pattern); err == nil {
		match = re.MatchString
	}

	var out []types.IdentifierRecord
	for _, r := range c.records {
		if match(r.ID) || match(r.HumanID) || match(r.Slug) || match(r.Title) {
			out = append(out, r)
		}
	}
	return out
}

func literalMatcher(pattern string) func(string) bool {
	needle := strings.ToLower(pattern)
	return func(s string) bool {
		return strings.Contains(strings.ToLower(s), needle)
	}
}

// Resolve accepts an identifier, a dated reference with or without its
// slug, a legacy human ID in either form, or a bare slug.
func (c *cache) Resolve(ref string) []types.IdentifierRecord {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil
	}
	if types.ValidID(strings.ToUpper(ref)) {
		if r, ok := c.FindByID(ref); ok {
			return []types.IdentifierRecord{r}
		}
		return nil
	}

	parsed, ok := ids.ParseRef(ref)
	if !ok {
		return c.findBySlug(ref, "")
	}
	if parsed.Dated() {
		var out []types.IdentifierRecord
		for _, r := range c.pick(c.byRef[parsed.Base()]) {
			if parsed.Slug == "" || r.Slug == parsed.Slug {
				out = append(out, r)
			}
		}
		return out
	}

	var out []types.IdentifierRecord
	for _, r := range c.records {
		if r.Kind != parsed.Kind {
			continue
		}
		if _, n, ok := types.ParseHumanID(r.HumanID); ok && n == parsed.Number {
			out = append(out, r)
		}
	}
	return out
}
