package index

import (
	"bytes"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/waymark/internal/ids"
	"github.com/mesh-intelligence/waymark/pkg/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openStore(t *testing.T, dir string, logger *slog.Logger) *Store {
	t.Helper()
	if logger == nil {
		logger = discardLogger()
	}
	s, err := Open(types.Config{DataDir: dir, LockTimeout: 5 * time.Second}, logger)
	require.NoError(t, err)
	return s
}

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, nil)), &buf
}

// build returns a Create build function that allocates through g.
func build(g *ids.Generator, kind types.Kind, title string) func(View) (types.IdentifierRecord, error) {
	return func(v View) (types.IdentifierRecord, error) {
		a, err := g.Allocate(kind, title, v)
		if err != nil {
			return types.IdentifierRecord{}, err
		}
		rec := a.Record(kind, title)
		rec.Path = filepath.Join("ai_docs", kind.Dir(), rec.RefWithSlug()+".md")
		return rec, nil
	}
}

func create(t *testing.T, s *Store, g *ids.Generator, kind types.Kind, title string) types.IdentifierRecord {
	t.Helper()
	rec, err := s.Create(build(g, kind, title))
	require.NoError(t, err)
	return rec
}

var baseTime = time.Date(2025, 10, 14, 9, 30, 0, 0, time.UTC)

// fixedRecord builds a valid record with a deterministic id; n varies the
// timestamp and random tail.
func fixedRecord(t *testing.T, n int, kind types.Kind, slug string) types.IdentifierRecord {
	t.Helper()
	at := baseTime.Add(time.Duration(n) * time.Millisecond)
	id, err := ids.DeterministicID(at, [10]byte{byte(n), 0xA5, 0, 0, 0, 0, 0, 0, 0, byte(n)})
	require.NoError(t, err)
	return types.IdentifierRecord{
		ID:        id,
		Kind:      kind,
		Slug:      slug,
		Path:      filepath.Join("ai_docs", kind.Dir(), slug+".md"),
		Title:     slug,
		CreatedAt: at,
	}
}
