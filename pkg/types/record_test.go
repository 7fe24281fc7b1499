package types

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testID = "01K7A2B3C4D5E6F7G8H9J0KMNP"

func validRecord() IdentifierRecord {
	return IdentifierRecord{
		ID:        testID,
		Kind:      KindPlan,
		HumanID:   "P-0001",
		Slug:      "add-oauth-login",
		Path:      "plans/PLAN-20251014-01K7NP-add-oauth-login.md",
		Title:     "Add OAuth login",
		CreatedAt: time.Date(2025, 10, 14, 9, 30, 0, 0, time.UTC),
	}
}

func TestIdentifierRecordValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *IdentifierRecord)
		wantErr bool
	}{
		{name: "valid record", mutate: func(r *IdentifierRecord) {}},
		{name: "short id", mutate: func(r *IdentifierRecord) { r.ID = "01K7" }, wantErr: true},
		{name: "id with ambiguous letter", mutate: func(r *IdentifierRecord) { r.ID = "01K7A2B3C4D5E6F7G8H9J0KMNI" }, wantErr: true},
		{name: "lowercase id", mutate: func(r *IdentifierRecord) { r.ID = strings.ToLower(testID) }, wantErr: true},
		{name: "unknown kind", mutate: func(r *IdentifierRecord) { r.Kind = "task" }, wantErr: true},
		{name: "human id of another kind", mutate: func(r *IdentifierRecord) { r.HumanID = "S-0001" }, wantErr: true},
		{name: "empty human id allowed", mutate: func(r *IdentifierRecord) { r.HumanID = "" }},
		{name: "slug with double hyphen", mutate: func(r *IdentifierRecord) { r.Slug = "a--b" }, wantErr: true},
		{name: "slug with uppercase", mutate: func(r *IdentifierRecord) { r.Slug = "Auth" }, wantErr: true},
		{name: "blank title", mutate: func(r *IdentifierRecord) { r.Title = "   " }, wantErr: true},
		{name: "overlong title", mutate: func(r *IdentifierRecord) { r.Title = strings.Repeat("x", MaxTitleLength+1) }, wantErr: true},
		{name: "zero created_at", mutate: func(r *IdentifierRecord) { r.CreatedAt = time.Time{} }, wantErr: true},
		{name: "bad parent", mutate: func(r *IdentifierRecord) { r.ParentID = "PLAN-1" }, wantErr: true},
		{name: "self parent", mutate: func(r *IdentifierRecord) { r.ParentID = testID }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRecord()
			tt.mutate(&r)
			err := r.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidRecord), "expected ErrInvalidRecord, got %v", err)
		})
	}
}

func TestIdentifierRecordRef(t *testing.T) {
	r := validRecord()
	assert.Equal(t, "PLAN-20251014-01K7NP", r.Ref())
	assert.Equal(t, "PLAN-20251014-01K7NP-add-oauth-login", r.RefWithSlug())

	r.Kind = KindSpec
	r.CreatedAt = time.Date(2025, 10, 14, 23, 30, 0, 0, time.FixedZone("UTC-5", -5*3600))
	assert.Equal(t, "SPEC-20251015-01K7NP", r.Ref(), "date segment is rendered in UTC")
}

func TestHumanIDRoundTrip(t *testing.T) {
	for _, k := range Kinds {
		id := FormatHumanID(k, 42)
		kind, n, ok := ParseHumanID(id)
		require.True(t, ok, id)
		assert.Equal(t, k, kind)
		assert.Equal(t, 42, n)
	}

	_, _, ok := ParseHumanID("T-0001")
	assert.False(t, ok)
	_, _, ok = ParseHumanID("P-12")
	assert.False(t, ok, "fewer than four digits is not a stored human id")

	kind, n, ok := ParseHumanID("p-12345")
	require.True(t, ok)
	assert.Equal(t, KindPlan, kind)
	assert.Equal(t, 12345, n)
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{
		"plan": KindPlan, "PLAN": KindPlan, "p": KindPlan,
		"spec": KindSpec, "Specification": KindSpec,
		"exec": KindExec, "execute": KindExec, "E": KindExec,
	} {
		got, err := ParseKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseKind("task")
	assert.ErrorIs(t, err, ErrInvalidKind)
}

func TestIndexWriteErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := fmt.Errorf("append: %w", &IndexWriteError{Op: "write", Path: "index.jsonl", Err: cause})

	assert.ErrorIs(t, err, ErrIndexWrite)
	assert.ErrorIs(t, err, cause)
	assert.False(t, IsRetryable(err))
	assert.True(t, IsRetryable(fmt.Errorf("wrap: %w", ErrLockTimeout)))
}
