// Package catalog is an in-memory SQLite view over the identifier index.
// It is loaded from a snapshot of records and answers the listing queries
// the index itself has no shape for: filtered lists, children of a parent,
// and per-kind counts. It never writes back.
package catalog

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/waymark/pkg/types"
)

// Filter narrows List. Zero fields do not filter.
type Filter struct {
	Kind  types.Kind
	Owner string
	Since time.Time
	Limit int
}

// Catalog holds one loaded snapshot.
type Catalog struct {
	db *sql.DB
}

// Open creates an empty in-memory catalog.
func Open() (*Catalog, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	// Each connection to :memory: is its own database.
	db.SetMaxOpenConns(1)

	for _, ddl := range schemaDDL {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating catalog schema: %w", err)
		}
	}
	return &Catalog{db: db}, nil
}

// Close releases the database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Load replaces the catalog contents with records in one transaction.
// Duplicate ids keep the first occurrence.
func (c *Catalog) Load(records []types.IdentifierRecord) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning load transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM artifacts"); err != nil {
		return fmt.Errorf("clearing catalog: %w", err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(artifactColumns)), ", ")
	stmt, err := tx.Prepare(fmt.Sprintf(
		"INSERT OR IGNORE INTO artifacts (%s) VALUES (%s)",
		strings.Join(artifactColumns, ", "), placeholders,
	))
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		_, err := stmt.Exec(
			r.ID, string(r.Kind), nullable(r.HumanID), r.Slug, r.Path, r.Title,
			nullable(r.Owner), nullable(r.ParentID),
			r.CreatedAt.UTC().Format(time.RFC3339Nano), r.CreatedAt.UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("loading %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing load transaction: %w", err)
	}
	return nil
}

// List returns records matching f, oldest first.
func (c *Catalog) List(f Filter) ([]types.IdentifierRecord, error) {
	var (
		where []string
		args  []any
	)
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(f.Kind))
	}
	if f.Owner != "" {
		where = append(where, "owner = ?")
		args = append(args, f.Owner)
	}
	if !f.Since.IsZero() {
		where = append(where, "created_ms >= ?")
		args = append(args, f.Since.UnixMilli())
	}

	query := "SELECT " + strings.Join(artifactColumns, ", ") + " FROM artifacts"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_ms, artifact_id"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	return c.query(query, args...)
}

// Children returns the records whose parent is parentID, oldest first.
func (c *Catalog) Children(parentID string) ([]types.IdentifierRecord, error) {
	return c.query(
		"SELECT "+strings.Join(artifactColumns, ", ")+" FROM artifacts WHERE parent_id = ? ORDER BY created_ms, artifact_id",
		strings.ToUpper(parentID),
	)
}

// Roots returns records with no parent, or whose parent is not loaded.
func (c *Catalog) Roots() ([]types.IdentifierRecord, error) {
	return c.query(
		"SELECT " + strings.Join(artifactColumns, ", ") + ` FROM artifacts a
		WHERE a.parent_id IS NULL
		   OR NOT EXISTS (SELECT 1 FROM artifacts p WHERE p.artifact_id = a.parent_id)
		ORDER BY created_ms, artifact_id`,
	)
}

// CountByKind returns the number of records per kind. Kinds with no
// records are present with zero.
func (c *Catalog) CountByKind() (map[types.Kind]int, error) {
	counts := make(map[types.Kind]int, len(types.Kinds))
	for _, k := range types.Kinds {
		counts[k] = 0
	}
	rows, err := c.db.Query("SELECT kind, COUNT(*) FROM artifacts GROUP BY kind")
	if err != nil {
		return nil, fmt.Errorf("counting artifacts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			kind string
			n    int
		)
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		counts[types.Kind(kind)] = n
	}
	return counts, rows.Err()
}

func (c *Catalog) query(query string, args ...any) ([]types.IdentifierRecord, error) {
	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying catalog: %w", err)
	}
	defer rows.Close()

	var out []types.IdentifierRecord
	for rows.Next() {
		var (
			r                        types.IdentifierRecord
			kind, created            string
			humanID, owner, parentID sql.NullString
			ms                       int64
		)
		if err := rows.Scan(&r.ID, &kind, &humanID, &r.Slug, &r.Path, &r.Title, &owner, &parentID, &created, &ms); err != nil {
			return nil, fmt.Errorf("scanning artifact: %w", err)
		}
		r.Kind = types.Kind(kind)
		r.HumanID = humanID.String
		r.Owner = owner.String
		r.ParentID = parentID.String
		if r.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			r.CreatedAt = time.UnixMilli(ms).UTC()
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
