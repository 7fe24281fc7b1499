package types

import (
	"fmt"
	"strings"
)

// Kind is the artifact category. It scopes slug uniqueness, human IDs, and
// the shape of dated references.
type Kind string

// Artifact kinds.
const (
	KindPlan Kind = "plan"
	KindSpec Kind = "spec"
	KindExec Kind = "exec"
)

// Kinds lists every kind in display order.
var Kinds = []Kind{KindPlan, KindSpec, KindExec}

// kindInfo holds the per-kind prefixes used by references and human IDs.
var kindInfo = map[Kind]struct {
	refPrefix   string // dated reference prefix, e.g. PLAN
	humanPrefix string // legacy short prefix, e.g. P
	dir         string // artifact subdirectory
}{
	KindPlan: {refPrefix: "PLAN", humanPrefix: "P", dir: "plans"},
	KindSpec: {refPrefix: "SPEC", humanPrefix: "S", dir: "specs"},
	KindExec: {refPrefix: "EXEC", humanPrefix: "E", dir: "exec"},
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := kindInfo[k]
	return ok
}

// RefPrefix returns the upper-case prefix of dated references (PLAN, SPEC, EXEC).
func (k Kind) RefPrefix() string { return kindInfo[k].refPrefix }

// HumanPrefix returns the single-letter prefix of legacy human IDs (P, S, E).
func (k Kind) HumanPrefix() string { return kindInfo[k].humanPrefix }

// Dir returns the artifact subdirectory for the kind.
func (k Kind) Dir() string { return kindInfo[k].dir }

// String implements fmt.Stringer.
func (k Kind) String() string { return string(k) }

// ParseKind maps a user-supplied name to a Kind. It accepts the kind name,
// the reference prefix, the human prefix, and a few long forms, in any case.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "plan", "p", "plans":
		return KindPlan, nil
	case "spec", "s", "specs", "specification":
		return KindSpec, nil
	case "exec", "e", "execute", "execution", "exec_log", "exec-log":
		return KindExec, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

// KindForPrefix maps a reference prefix (PLAN) or human prefix (P) to a Kind.
func KindForPrefix(prefix string) (Kind, bool) {
	p := strings.ToUpper(prefix)
	for k, info := range kindInfo {
		if p == info.refPrefix || p == info.humanPrefix {
			return k, true
		}
	}
	return "", false
}
