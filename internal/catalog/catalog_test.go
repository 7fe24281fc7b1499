package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/waymark/internal/ids"
	"github.com/mesh-intelligence/waymark/pkg/types"
)

var base = time.Date(2025, 10, 14, 9, 0, 0, 0, time.UTC)

func rec(t *testing.T, n int, kind types.Kind, owner, parent string) types.IdentifierRecord {
	t.Helper()
	at := base.Add(time.Duration(n) * time.Hour)
	id, err := ids.DeterministicID(at, [10]byte{byte(n)})
	require.NoError(t, err)
	return types.IdentifierRecord{
		ID:        id,
		Kind:      kind,
		HumanID:   types.FormatHumanID(kind, n),
		Slug:      "item",
		Path:      "ai_docs/x.md",
		Title:     "Item",
		Owner:     owner,
		ParentID:  parent,
		CreatedAt: at,
	}
}

func loaded(t *testing.T, records ...types.IdentifierRecord) *Catalog {
	t.Helper()
	c, err := Open()
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	require.NoError(t, c.Load(records))
	return c
}

func TestList(t *testing.T) {
	plan := rec(t, 1, types.KindPlan, "alice", "")
	spec := rec(t, 2, types.KindSpec, "bob", plan.ID)
	exec := rec(t, 3, types.KindExec, "", spec.ID)
	plan2 := rec(t, 4, types.KindPlan, "bob", "")
	c := loaded(t, plan2, exec, spec, plan)

	all, err := c.List(Filter{})
	require.NoError(t, err)
	assert.Equal(t, []types.IdentifierRecord{plan, spec, exec, plan2}, all, "oldest first, fields round trip")

	plans, err := c.List(Filter{Kind: types.KindPlan})
	require.NoError(t, err)
	assert.Equal(t, []types.IdentifierRecord{plan, plan2}, plans)

	bobs, err := c.List(Filter{Owner: "bob"})
	require.NoError(t, err)
	assert.Equal(t, []types.IdentifierRecord{spec, plan2}, bobs)

	recent, err := c.List(Filter{Since: base.Add(3 * time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, []types.IdentifierRecord{exec, plan2}, recent)

	limited, err := c.List(Filter{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []types.IdentifierRecord{plan}, limited)
}

func TestChildrenAndRoots(t *testing.T) {
	plan := rec(t, 1, types.KindPlan, "", "")
	specA := rec(t, 2, types.KindSpec, "", plan.ID)
	specB := rec(t, 3, types.KindSpec, "", plan.ID)
	orphan := rec(t, 4, types.KindSpec, "", rec(t, 9, types.KindPlan, "", "").ID)
	c := loaded(t, plan, specA, specB, orphan)

	kids, err := c.Children(plan.ID)
	require.NoError(t, err)
	assert.Equal(t, []types.IdentifierRecord{specA, specB}, kids)

	none, err := c.Children(specA.ID)
	require.NoError(t, err)
	assert.Empty(t, none)

	roots, err := c.Roots()
	require.NoError(t, err)
	assert.Equal(t, []types.IdentifierRecord{plan, orphan}, roots)
}

func TestCountByKind(t *testing.T) {
	c := loaded(t,
		rec(t, 1, types.KindPlan, "", ""),
		rec(t, 2, types.KindPlan, "", ""),
		rec(t, 3, types.KindExec, "", ""),
	)
	counts, err := c.CountByKind()
	require.NoError(t, err)
	assert.Equal(t, map[types.Kind]int{types.KindPlan: 2, types.KindSpec: 0, types.KindExec: 1}, counts)
}

func TestLoadReplacesAndKeepsFirstDuplicate(t *testing.T) {
	first := rec(t, 1, types.KindPlan, "", "")
	dup := first
	dup.Title = "Second copy"
	c := loaded(t, first, dup)

	all, err := c.List(Filter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Item", all[0].Title)

	other := rec(t, 2, types.KindSpec, "", "")
	require.NoError(t, c.Load([]types.IdentifierRecord{other}))
	all, err = c.List(Filter{})
	require.NoError(t, err)
	assert.Equal(t, []types.IdentifierRecord{other}, all)
}
