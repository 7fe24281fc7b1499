package types

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Field limits for IdentifierRecord.
const (
	IDLength          = 26
	DefaultSlugMaxLen = 60
	MaxTitleLength    = 500

	// maxStoredSlugLen bounds slugs read back from the index. Configured
	// maxima may exceed the default, so validation is looser than Slugify.
	maxStoredSlugLen = 255
)

// refDateLayout is the date segment of a dated reference.
const refDateLayout = "20060102"

var (
	idPattern      = regexp.MustCompile(`^[0123456789ABCDEFGHJKMNPQRSTVWXYZ]{26}$`)
	slugPattern    = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	humanIDPattern = regexp.MustCompile(`^([PSE])-(\d{4,})$`)
)

// IdentifierRecord is one line of the index. Records are immutable once
// appended; only ParentID may be rewritten through an explicit link update.
type IdentifierRecord struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	HumanID   string    `json:"human_id,omitempty"`
	Slug      string    `json:"slug"`
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	ParentID  string    `json:"parent_id,omitempty"`
	Owner     string    `json:"owner,omitempty"`
}

// Validate checks the record fields. It returns an error wrapping
// ErrInvalidRecord that names the first offending field.
func (r IdentifierRecord) Validate() error {
	if !ValidID(r.ID) {
		return fmt.Errorf("%w: id %q is not a 26-character identifier", ErrInvalidRecord, r.ID)
	}
	if !r.Kind.Valid() {
		return fmt.Errorf("%w: kind %q", ErrInvalidRecord, r.Kind)
	}
	if r.HumanID != "" {
		m := humanIDPattern.FindStringSubmatch(r.HumanID)
		if m == nil || m[1] != r.Kind.HumanPrefix() {
			return fmt.Errorf("%w: human_id %q does not match kind %s", ErrInvalidRecord, r.HumanID, r.Kind)
		}
	}
	if !ValidSlug(r.Slug, maxStoredSlugLen) {
		return fmt.Errorf("%w: slug %q", ErrInvalidRecord, r.Slug)
	}
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("%w: title is empty", ErrInvalidRecord)
	}
	if utf8.RuneCountInString(r.Title) > MaxTitleLength {
		return fmt.Errorf("%w: title longer than %d characters", ErrInvalidRecord, MaxTitleLength)
	}
	if r.CreatedAt.IsZero() {
		return fmt.Errorf("%w: created_at is zero", ErrInvalidRecord)
	}
	if r.ParentID != "" {
		if !ValidID(r.ParentID) {
			return fmt.Errorf("%w: parent_id %q", ErrInvalidRecord, r.ParentID)
		}
		if r.ParentID == r.ID {
			return fmt.Errorf("%w: record cannot be its own parent", ErrInvalidRecord)
		}
	}
	return nil
}

// Ref returns the dated display reference, e.g. PLAN-20251014-01K7A2.
func (r IdentifierRecord) Ref() string {
	return FormatRef(r.Kind, r.ID, r.CreatedAt)
}

// RefWithSlug returns the dated reference followed by the slug, the form
// used for artifact file names.
func (r IdentifierRecord) RefWithSlug() string {
	return r.Ref() + "-" + r.Slug
}

// FormatRef builds a dated reference from a kind, an identifier, and its
// creation time. The code segment is the first four identifier characters
// (timestamp) followed by the last two (random tail).
func FormatRef(kind Kind, id string, createdAt time.Time) string {
	return fmt.Sprintf("%s-%s-%s", kind.RefPrefix(), createdAt.UTC().Format(refDateLayout), RefCode(id))
}

// RefCode returns the six-character code segment of a dated reference.
func RefCode(id string) string {
	if len(id) != IDLength {
		return strings.ToUpper(id)
	}
	return id[:4] + id[IDLength-2:]
}

// FormatHumanID renders a legacy human ID such as P-0042.
func FormatHumanID(kind Kind, n int) string {
	return fmt.Sprintf("%s-%04d", kind.HumanPrefix(), n)
}

// ParseHumanID splits a legacy human ID into its kind and number.
func ParseHumanID(s string) (Kind, int, bool) {
	m := humanIDPattern.FindStringSubmatch(strings.ToUpper(s))
	if m == nil {
		return "", 0, false
	}
	kind, ok := KindForPrefix(m[1])
	if !ok {
		return "", 0, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	return kind, n, true
}

// ValidID reports whether s is a 26-character Crockford base32 identifier.
func ValidID(s string) bool {
	return idPattern.MatchString(s)
}

// ValidSlug reports whether s is a well-formed slug no longer than maxLen.
func ValidSlug(s string, maxLen int) bool {
	if s == "" || len(s) > maxLen {
		return false
	}
	return slugPattern.MatchString(s)
}
