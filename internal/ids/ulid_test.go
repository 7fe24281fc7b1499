package ids

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/waymark/pkg/types"
)

func TestNewIDDistinctAndWellFormed(t *testing.T) {
	const n = 100_000
	g := NewGenerator()

	seen := make(map[string]struct{}, n)
	prev := ""
	for i := 0; i < n; i++ {
		id, _, err := g.NewID()
		require.NoError(t, err)
		require.Len(t, id, types.IDLength)
		require.True(t, types.ValidID(id), "invalid id %q", id)
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q after %d calls", id, i)
		}
		seen[id] = struct{}{}
		require.Greater(t, id, prev, "ids must increase within one generator")
		prev = id
	}
}

func TestNewIDSameMillisecond(t *testing.T) {
	fixed := time.Date(2025, 10, 14, 12, 0, 0, 0, time.UTC)
	g := NewGenerator(WithClock(func() time.Time { return fixed }))

	ids := make([]string, 1000)
	for i := range ids {
		id, created, err := g.NewID()
		require.NoError(t, err)
		assert.True(t, created.Equal(fixed))
		ids[i] = id
	}
	assert.True(t, sort.StringsAreSorted(ids), "monotonic entropy keeps same-millisecond ids ordered")
}

func TestNewIDClockNeverMovesBackwards(t *testing.T) {
	times := []time.Time{
		time.Date(2025, 10, 14, 12, 0, 0, 0, time.UTC),
		time.Date(2025, 10, 14, 11, 59, 0, 0, time.UTC), // clock stepped back
	}
	i := 0
	g := NewGenerator(WithClock(func() time.Time {
		tm := times[i]
		i++
		return tm
	}))

	first, t1, err := g.NewID()
	require.NoError(t, err)
	second, t2, err := g.NewID()
	require.NoError(t, err)

	assert.False(t, t2.Before(t1), "created_at must be non-decreasing")
	assert.Greater(t, second, first)
}

func TestNewIDClockError(t *testing.T) {
	tests := map[string]time.Time{
		"zero time":        {},
		"before the epoch": time.Date(1960, 1, 1, 0, 0, 0, 0, time.UTC),
		"beyond range":     time.Date(10900, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	for name, tm := range tests {
		t.Run(name, func(t *testing.T) {
			g := NewGenerator(WithClock(func() time.Time { return tm }))
			_, _, err := g.NewID()
			assert.ErrorIs(t, err, types.ErrClock)
		})
	}
}

func TestIDTime(t *testing.T) {
	at := time.Date(2025, 10, 14, 8, 15, 30, 123_000_000, time.UTC)
	g := NewGenerator(WithClock(func() time.Time { return at }))
	id, _, err := g.NewID()
	require.NoError(t, err)

	got, err := IDTime(id)
	require.NoError(t, err)
	assert.True(t, got.Equal(at), "got %v want %v", got, at)

	_, err = IDTime("not-an-id")
	assert.Error(t, err)
}

func TestDeterministicID(t *testing.T) {
	at := time.Date(2025, 10, 14, 0, 0, 0, 0, time.UTC)
	tail := [10]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	a, err := DeterministicID(at, tail)
	require.NoError(t, err)
	b, err := DeterministicID(at, tail)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.True(t, types.ValidID(a))

	tail[9] = 11
	c, err := DeterministicID(at, tail)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestPackageNewID(t *testing.T) {
	a, err := NewID()
	require.NoError(t, err)
	b, err := NewID()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
