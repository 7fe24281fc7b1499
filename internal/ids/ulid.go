// Package ids generates identifiers, slugs, dated references, and legacy
// human IDs for index records.
//
// Identifiers are ULIDs: a 48-bit millisecond timestamp followed by an
// 80-bit random tail, rendered as 26 Crockford base32 characters. A locked
// monotonic entropy source guarantees distinct, increasing identifiers for
// calls within the same millisecond.
package ids

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/mesh-intelligence/waymark/pkg/types"
)

// Clock returns the current time. Tests substitute fixed or stepping clocks.
type Clock func() time.Time

// Generator produces identifiers and slugs. The zero value is not usable;
// call NewGenerator.
type Generator struct {
	mu         sync.Mutex
	clock      Clock
	entropy    *ulid.MonotonicEntropy
	lastMS     uint64
	slugMaxLen int
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(g *Generator) { g.clock = c }
}

// WithSlugMaxLen sets the slug length bound used by Allocate and DedupeSlug.
func WithSlugMaxLen(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.slugMaxLen = n
		}
	}
}

// NewGenerator returns a Generator backed by crypto/rand.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		clock:      time.Now,
		entropy:    ulid.Monotonic(rand.Reader, 0),
		slugMaxLen: types.DefaultSlugMaxLen,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

var defaultGenerator = NewGenerator()

// NewID returns a new identifier from the package-level generator.
func NewID() (string, error) {
	id, _, err := defaultGenerator.NewID()
	return id, err
}

// NewID returns a new 26-character identifier and the timestamp encoded in
// it. The timestamp never moves backwards within one Generator, so records
// created in sequence have non-decreasing created_at values.
func (g *Generator) NewID() (string, time.Time, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock()
	if now.IsZero() || now.Before(time.UnixMilli(0)) {
		return "", time.Time{}, fmt.Errorf("%w: clock returned %v", types.ErrClock, now)
	}
	ms := ulid.Timestamp(now)
	if ms > ulid.MaxTime() {
		return "", time.Time{}, fmt.Errorf("%w: %v is beyond the identifier range", types.ErrClock, now)
	}
	if ms < g.lastMS {
		ms = g.lastMS
	}

	id, err := ulid.New(ms, g.entropy)
	if err != nil {
		// Monotonic overflow needs ~2^80 calls in one millisecond; treat
		// it like any other entropy failure.
		return "", time.Time{}, fmt.Errorf("generating identifier: %w", err)
	}
	g.lastMS = ms
	return id.String(), ulid.Time(ms).UTC(), nil
}

// IDTime returns the creation time encoded in an identifier.
func IDTime(id string) (time.Time, error) {
	u, err := ulid.ParseStrict(id)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing identifier %q: %w", id, err)
	}
	return ulid.Time(u.Time()).UTC(), nil
}

// DeterministicID builds an identifier from a timestamp and a fixed 10-byte
// tail. Rebuilds use it so that artifacts lacking a stored id map to the
// same identifier every time.
func DeterministicID(t time.Time, tail [10]byte) (string, error) {
	var u ulid.ULID
	if err := u.SetTime(ulid.Timestamp(t)); err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrClock, err)
	}
	if err := u.SetEntropy(tail[:]); err != nil {
		return "", err
	}
	return u.String(), nil
}
