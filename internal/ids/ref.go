package ids

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/waymark/pkg/types"
)

var (
	datedRefPattern  = regexp.MustCompile(`(?i)^(PLAN|SPEC|EXEC)-(\d{8})-([0-9A-Z]{6})(?:-([a-z0-9]+(?:-[a-z0-9]+)*))?$`)
	legacyRefPattern = regexp.MustCompile(`(?i)^(PLAN|SPEC|EXEC)-(\d{1,6})$`)
	shortRefPattern  = regexp.MustCompile(`^([PSE])-(\d{1,6})$`)
)

// Ref is a parsed artifact reference in one of three shapes:
//
//	PLAN-20251014-01K7A2[-slug]   dated
//	PLAN-42 / plan-42             legacy long
//	P-0042                        legacy short
//
// Legacy long and short forms of the same kind are equivalent.
type Ref struct {
	Kind   types.Kind
	Date   string // YYYYMMDD, dated form only
	Code   string // six-character code, dated form only
	Slug   string // optional trailing slug, dated form only
	Number int    // legacy forms only
	Short  bool   // written as P-0042 rather than PLAN-42
}

// Dated reports whether r is the long dated form.
func (r Ref) Dated() bool { return r.Code != "" }

// Base returns the reference without any slug: PLAN-20251014-01K7A2 for a
// dated ref, P-0042 for a legacy one.
func (r Ref) Base() string {
	if r.Dated() {
		return r.Kind.RefPrefix() + "-" + r.Date + "-" + r.Code
	}
	return types.FormatHumanID(r.Kind, r.Number)
}

// String returns the normalised reference: upper-case prefix and code,
// lower-case slug. Legacy forms keep the prefix style they were written in.
func (r Ref) String() string {
	if r.Dated() {
		if r.Slug != "" {
			return r.Base() + "-" + r.Slug
		}
		return r.Base()
	}
	if r.Short {
		return types.FormatHumanID(r.Kind, r.Number)
	}
	return r.Kind.RefPrefix() + "-" + strconv.Itoa(r.Number)
}

// ParseRef parses s as an artifact reference.
func ParseRef(s string) (Ref, bool) {
	s = strings.TrimSpace(s)
	if m := datedRefPattern.FindStringSubmatch(s); m != nil {
		kind, _ := types.KindForPrefix(m[1])
		return Ref{
			Kind: kind,
			Date: m[2],
			Code: strings.ToUpper(m[3]),
			Slug: strings.ToLower(m[4]),
		}, true
	}
	if m := legacyRefPattern.FindStringSubmatch(s); m != nil {
		kind, _ := types.KindForPrefix(m[1])
		n, _ := strconv.Atoi(m[2])
		return Ref{Kind: kind, Number: n}, true
	}
	if m := shortRefPattern.FindStringSubmatch(s); m != nil {
		kind, _ := types.KindForPrefix(m[1])
		n, _ := strconv.Atoi(m[2])
		return Ref{Kind: kind, Number: n, Short: true}, true
	}
	return Ref{}, false
}
