package ids

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/mesh-intelligence/waymark/pkg/types"
)

// FallbackSlug is returned when a title has no transliterable characters.
const FallbackSlug = "untitled"

// foldMarks decomposes accented letters and drops the combining marks.
var foldMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// transliterations covers letters with no canonical decomposition.
var transliterations = strings.NewReplacer(
	"ß", "ss", "ẞ", "SS",
	"æ", "ae", "Æ", "AE",
	"œ", "oe", "Œ", "OE",
	"ø", "o", "Ø", "O",
	"đ", "d", "Đ", "D",
	"ð", "d", "Ð", "D",
	"ł", "l", "Ł", "L",
	"þ", "th", "Þ", "TH",
	"ı", "i",
)

// Slugify converts a title into a lowercase ASCII slug of at most maxLen
// bytes. maxLen <= 0 selects the default of 60.
func Slugify(title string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = types.DefaultSlugMaxLen
	}

	s := transliterations.Replace(title)
	if folded, _, err := transform.String(foldMarks, s); err == nil {
		s = folded
	}

	var b strings.Builder
	b.Grow(len(s))
	pendingHyphen := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		case r >= 'A' && r <= 'Z':
			r += 'a' - 'A'
		case r > unicode.MaxASCII:
			// Non-transliterable letters vanish without splitting words;
			// other symbols and spaces still separate.
			if !unicode.IsLetter(r) && !unicode.IsNumber(r) && !unicode.Is(unicode.Mn, r) {
				pendingHyphen = true
			}
			continue
		default:
			pendingHyphen = true
			continue
		}
		if pendingHyphen && b.Len() > 0 {
			b.WriteByte('-')
		}
		pendingHyphen = false
		b.WriteRune(r)
	}

	slug := truncateSlug(b.String(), maxLen)
	if slug == "" {
		return FallbackSlug
	}
	return slug
}

// truncateSlug cuts s to maxLen bytes at a hyphen boundary when the cut
// would fall inside a word. A single word longer than maxLen is hard-cut.
func truncateSlug(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := s[:maxLen]
	if s[maxLen] != '-' {
		if i := strings.LastIndexByte(cut, '-'); i > 0 {
			cut = cut[:i]
		}
	}
	return strings.TrimRight(cut, "-")
}

// SlugIndex answers whether a slug is already used for a kind.
type SlugIndex interface {
	SlugTaken(kind types.Kind, slug string) bool
}

// DedupeSlug returns base when it is unused for kind, otherwise the first
// unused base-2, base-3, ... candidate. The result depends only on the
// index state, so repeated calls against the same state agree.
func DedupeSlug(base string, kind types.Kind, idx SlugIndex) string {
	return dedupeSlug(base, kind, idx, types.DefaultSlugMaxLen)
}

// DedupeSlug is the generator-bound variant honouring its slug length.
func (g *Generator) DedupeSlug(base string, kind types.Kind, idx SlugIndex) string {
	return dedupeSlug(base, kind, idx, g.slugMaxLen)
}

func dedupeSlug(base string, kind types.Kind, idx SlugIndex, maxLen int) string {
	if !idx.SlugTaken(kind, base) {
		return base
	}
	for n := 2; ; n++ {
		suffix := fmt.Sprintf("-%d", n)
		stem := base
		if len(stem)+len(suffix) > maxLen && len(suffix) < maxLen {
			stem = strings.TrimRight(stem[:maxLen-len(suffix)], "-")
		}
		candidate := stem + suffix
		if !idx.SlugTaken(kind, candidate) {
			return candidate
		}
	}
}
