// Package router classifies a free-text instruction into an Intent.
//
// Route is pure: it reads no files, makes no calls, and never fails. Text
// that cannot be classified safely yields Ambiguous with a reason, and the
// caller decides whether to prompt or fall back.
package router

import (
	"fmt"
	"strings"
)

// Context carries the most recently referenced artifacts so that requests
// like "spec for jwt" or "run the tests" can resolve an implicit parent.
type Context struct {
	LastPlanID string
	LastSpecID string
}

// Intent is one of CreatePlan, CreateSpec, CreateExec, MarkReady or
// Ambiguous.
type Intent interface {
	// Action names the variant: create_plan, create_spec, create_exec,
	// mark_ready or ambiguous.
	Action() string
	// OwnerName returns the owner extracted from the text, if any.
	OwnerName() string
	String() string
	intent()
}

type CreatePlan struct {
	Title string `json:"title"`
	Ready bool   `json:"ready"`
	Owner string `json:"owner,omitempty"`
}

type CreateSpec struct {
	Title  string `json:"title"`
	PlanID string `json:"plan_id"`
	Owner  string `json:"owner,omitempty"`
}

type CreateExec struct {
	SpecID string `json:"spec_id"`
	Owner  string `json:"owner,omitempty"`
}

type MarkReady struct {
	TargetID string `json:"target_id"`
	Owner    string `json:"owner,omitempty"`
}

type Ambiguous struct {
	Reason string `json:"reason"`
	Owner  string `json:"owner,omitempty"`
}

func (CreatePlan) Action() string { return "create_plan" }
func (CreateSpec) Action() string { return "create_spec" }
func (CreateExec) Action() string { return "create_exec" }
func (MarkReady) Action() string  { return "mark_ready" }
func (Ambiguous) Action() string  { return "ambiguous" }

func (i CreatePlan) OwnerName() string { return i.Owner }
func (i CreateSpec) OwnerName() string { return i.Owner }
func (i CreateExec) OwnerName() string { return i.Owner }
func (i MarkReady) OwnerName() string  { return i.Owner }
func (i Ambiguous) OwnerName() string  { return i.Owner }

func (CreatePlan) intent() {}
func (CreateSpec) intent() {}
func (CreateExec) intent() {}
func (MarkReady) intent()  {}
func (Ambiguous) intent()  {}

func (i CreatePlan) String() string {
	return render("CreatePlan", i.Owner, fmt.Sprintf("title=%q", i.Title), fmt.Sprintf("ready=%t", i.Ready))
}

func (i CreateSpec) String() string {
	return render("CreateSpec", i.Owner, fmt.Sprintf("title=%q", i.Title), fmt.Sprintf("plan_id=%q", i.PlanID))
}

func (i CreateExec) String() string {
	return render("CreateExec", i.Owner, fmt.Sprintf("spec_id=%q", i.SpecID))
}

func (i MarkReady) String() string {
	return render("MarkReady", i.Owner, fmt.Sprintf("target_id=%q", i.TargetID))
}

func (i Ambiguous) String() string {
	return render("Ambiguous", i.Owner, fmt.Sprintf("reason=%q", i.Reason))
}

func render(name, owner string, fields ...string) string {
	if owner != "" {
		fields = append(fields, fmt.Sprintf("owner=%q", owner))
	}
	return name + "{" + strings.Join(fields, ", ") + "}"
}
