package router

import (
	"fmt"

	"github.com/mesh-intelligence/waymark/pkg/types"
)

// Ambiguity reasons.
const (
	ReasonEmpty       = "empty input"
	ReasonNoPlan      = "no plan reference resolvable"
	ReasonNoSpec      = "no spec reference resolvable"
	ReasonConflicting = "conflicting spec and execute keywords"
)

// rule is one row of the decision table. match reports whether the rule
// applies; build produces the intent.
type rule struct {
	name  string
	match func(p parsed, ctx Context) bool
	build func(p parsed, ctx Context) Intent
}

// rules is evaluated in order; the first match wins. The final row always
// matches.
var rules = []rule{
	{
		name:  "empty",
		match: func(p parsed, _ Context) bool { return p.input == "" },
		build: func(p parsed, _ Context) Intent { return Ambiguous{Reason: ReasonEmpty} },
	},
	{
		name:  "exec with spec reference",
		match: func(p parsed, _ Context) bool { return p.hasExec && p.first[types.KindSpec] != nil },
		build: func(p parsed, _ Context) Intent {
			return CreateExec{SpecID: p.first[types.KindSpec].String(), Owner: p.owner}
		},
	},
	{
		name:  "spec with plan reference",
		match: func(p parsed, _ Context) bool { return p.hasSpec && p.first[types.KindPlan] != nil },
		build: func(p parsed, _ Context) Intent {
			return CreateSpec{Title: p.specTitle(), PlanID: p.first[types.KindPlan].String(), Owner: p.owner}
		},
	},
	{
		name: "ready with reference",
		match: func(p parsed, _ Context) bool {
			return p.readyWord && len(p.tokens) > 0
		},
		build: func(p parsed, _ Context) Intent {
			return MarkReady{TargetID: p.tokens[0].String(), Owner: p.owner}
		},
	},
	{
		name:  "spec and exec keywords without reference",
		match: func(p parsed, _ Context) bool { return p.hasSpec && p.hasExec && len(p.tokens) == 0 },
		build: func(p parsed, _ Context) Intent { return Ambiguous{Reason: ReasonConflicting, Owner: p.owner} },
	},
	{
		name:  "spec without reference",
		match: func(p parsed, _ Context) bool { return p.hasSpec && len(p.tokens) == 0 },
		build: func(p parsed, ctx Context) Intent {
			if ctx.LastPlanID == "" {
				return Ambiguous{Reason: ReasonNoPlan, Owner: p.owner}
			}
			return CreateSpec{Title: p.specTitle(), PlanID: ctx.LastPlanID, Owner: p.owner}
		},
	},
	{
		name:  "exec with wrong reference",
		match: func(p parsed, _ Context) bool { return p.hasExec && len(p.tokens) > 0 },
		build: func(p parsed, _ Context) Intent {
			return Ambiguous{Reason: fmt.Sprintf("execute needs a SPEC reference, got %s", p.tokens[0]), Owner: p.owner}
		},
	},
	{
		name:  "spec with wrong reference",
		match: func(p parsed, _ Context) bool { return p.hasSpec && len(p.tokens) > 0 },
		build: func(p parsed, _ Context) Intent {
			return Ambiguous{Reason: fmt.Sprintf("spec needs a PLAN reference, got %s", p.tokens[0]), Owner: p.owner}
		},
	},
	{
		name:  "leading exec verb without reference",
		match: func(p parsed, _ Context) bool { return len(p.tokens) == 0 && p.leadingExecVerb() },
		build: func(p parsed, ctx Context) Intent {
			if ctx.LastSpecID == "" {
				return Ambiguous{Reason: ReasonNoSpec, Owner: p.owner}
			}
			return CreateExec{SpecID: ctx.LastSpecID, Owner: p.owner}
		},
	},
	{
		name:  "plan",
		match: func(parsed, Context) bool { return true },
		build: func(p parsed, _ Context) Intent {
			return CreatePlan{Title: p.planTitle(), Ready: p.readyVerb || p.readyBare, Owner: p.owner}
		},
	},
}

// Route classifies text. It never fails: input it cannot classify safely
// yields Ambiguous.
func Route(text string, ctx Context) Intent {
	p := parse(text)
	for _, r := range rules {
		if r.match(p, ctx) {
			return r.build(p, ctx)
		}
	}
	panic("router: decision table has no default row")
}

// Explain returns the name of the rule that classifies text, for debug
// output.
func Explain(text string, ctx Context) string {
	p := parse(text)
	for _, r := range rules {
		if r.match(p, ctx) {
			return r.name
		}
	}
	return ""
}
