package ids

import (
	"math/rand"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mesh-intelligence/waymark/pkg/types"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		title  string
		maxLen int
		want   string
	}{
		{"Fix Auth Bug!", 0, "fix-auth-bug"},
		{"Implement OAuth 2.1 & PKCE (Web+Mobile)", 0, "implement-oauth-2-1-pkce-web-mobile"},
		{"Design: Auth session lifetimes", 0, "design-auth-session-lifetimes"},
		{"Plan #123: New feature!", 0, "plan-123-new-feature"},
		{"  --Leading and trailing--  ", 0, "leading-and-trailing"},
		{"Café & Bar", 0, "cafe-bar"},
		{"Straße über Ærø", 0, "strasse-uber-aero"},
		{"Łódź naïve façade", 0, "lodz-naive-facade"},
		{"日本語", 0, FallbackSlug},
		{"Tokyo 東京 trip", 0, "tokyo-trip"},
		{"foo—bar", 0, "foo-bar"},
		{"", 0, FallbackSlug},
		{"!!!", 0, FallbackSlug},
		{"hello world again", 11, "hello-world"},
		{"hello world again", 13, "hello-world"},
		{"hello world again", 12, "hello-world"},
		{"supercalifragilistic", 5, "super"},
		{"ab cdefghijkl", 6, "ab"},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.title, tt.maxLen))
		})
	}
}

func TestSlugifyDefaultLength(t *testing.T) {
	title := strings.Repeat("word ", 40)
	got := Slugify(title, 0)
	assert.LessOrEqual(t, len(got), types.DefaultSlugMaxLen)
	assert.True(t, strings.HasPrefix(got, "word-word"))
	assert.False(t, strings.HasSuffix(got, "-"))
	assert.True(t, strings.HasSuffix(got, "word"), "never cut mid-word: %q", got)
}

var slugShape = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

func TestSlugifyProperties(t *testing.T) {
	alphabet := []rune("abcXYZ019 -_!?.,:;'\"/\\()[]{}éüßøΩЖ日\t\n—")
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 2000; i++ {
		n := rng.Intn(120)
		rs := make([]rune, n)
		for j := range rs {
			rs[j] = alphabet[rng.Intn(len(alphabet))]
		}
		maxLen := 8 + rng.Intn(60)
		got := Slugify(string(rs), maxLen)

		if !slugShape.MatchString(got) {
			t.Fatalf("Slugify(%q, %d) = %q: not a well-formed slug", string(rs), maxLen, got)
		}
		if len(got) > maxLen {
			t.Fatalf("Slugify(%q, %d) = %q: longer than max", string(rs), maxLen, got)
		}
	}
}

// slugSet is a SlugIndex over a fixed set of (kind, slug) pairs.
type slugSet map[types.Kind]map[string]bool

func (s slugSet) SlugTaken(kind types.Kind, slug string) bool { return s[kind][slug] }

func (s slugSet) add(kind types.Kind, slug string) {
	if s[kind] == nil {
		s[kind] = map[string]bool{}
	}
	s[kind][slug] = true
}

func TestDedupeSlug(t *testing.T) {
	idx := slugSet{}

	first := DedupeSlug("auth-fix", types.KindPlan, idx)
	assert.Equal(t, "auth-fix", first)
	assert.Equal(t, first, DedupeSlug("auth-fix", types.KindPlan, idx), "same state, same answer")

	idx.add(types.KindPlan, first)
	second := DedupeSlug("auth-fix", types.KindPlan, idx)
	assert.Equal(t, "auth-fix-2", second)

	idx.add(types.KindPlan, second)
	assert.Equal(t, "auth-fix-3", DedupeSlug("auth-fix", types.KindPlan, idx))

	assert.Equal(t, "auth-fix", DedupeSlug("auth-fix", types.KindSpec, idx), "uniqueness is per kind")
}

func TestDedupeSlugFillsGaps(t *testing.T) {
	idx := slugSet{}
	idx.add(types.KindSpec, "db")
	idx.add(types.KindSpec, "db-3")
	assert.Equal(t, "db-2", DedupeSlug("db", types.KindSpec, idx))
}

func TestDedupeSlugKeepsLengthBound(t *testing.T) {
	g := NewGenerator(WithSlugMaxLen(10))
	idx := slugSet{}
	idx.add(types.KindPlan, "abcdefghij")

	got := g.DedupeSlug("abcdefghij", types.KindPlan, idx)
	assert.Equal(t, "abcdefgh-2", got)
	assert.LessOrEqual(t, len(got), 10)

	idx.add(types.KindPlan, "abcd-efghi")
	got = g.DedupeSlug("abcd-efghi", types.KindPlan, idx)
	assert.Equal(t, "abcd-efg-2", got)
}
