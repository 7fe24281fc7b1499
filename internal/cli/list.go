package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/waymark/internal/catalog"
	"github.com/mesh-intelligence/waymark/pkg/types"
)

// openCatalog loads the current index into a fresh catalog. The caller
// closes it.
func (a *app) openCatalog() (*catalog.Catalog, error) {
	store, err := a.index()
	if err != nil {
		return nil, err
	}
	records, err := store.All()
	if err != nil {
		return nil, err
	}
	cat, err := catalog.Open()
	if err != nil {
		return nil, &exitError{code: exitSysError, err: err}
	}
	if err := cat.Load(records); err != nil {
		cat.Close()
		return nil, &exitError{code: exitSysError, err: err}
	}
	return cat, nil
}

// parseSince accepts a date (2006-01-02), an RFC 3339 time, or a duration
// back from now (72h).
func parseSince(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return now.Add(-d), nil
	}
	return time.Time{}, userError("--since: %q is not a date, time, or duration", s)
}

func newListCmd(a *app) *cobra.Command {
	var (
		kind, owner, since string
		limit              int
		counts             bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List records, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := parseKindFlag(kind)
			if err != nil {
				return err
			}
			from, err := parseSince(since, time.Now())
			if err != nil {
				return err
			}
			cat, err := a.openCatalog()
			if err != nil {
				return err
			}
			defer cat.Close()

			if counts {
				byKind, err := cat.CountByKind()
				if err != nil {
					return err
				}
				if a.flags.jsonMode {
					return writeJSON(a.stdout, byKind)
				}
				for _, k := range types.Kinds {
					fmt.Fprintf(a.stdout, "%-5s %d\n", k, byKind[k])
				}
				return nil
			}

			recs, err := cat.List(catalog.Filter{Kind: k, Owner: owner, Since: from, Limit: limit})
			if err != nil {
				return err
			}
			return a.emitList(recs, "No records found.")
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "restrict to plan, spec or exec")
	cmd.Flags().StringVar(&owner, "by-owner", "", "restrict to one owner")
	cmd.Flags().StringVar(&since, "since", "", "created at or after a date, time, or duration ago")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of results (0 = no limit)")
	cmd.Flags().BoolVar(&counts, "count", false, "print the number of records per kind")
	return cmd
}

// treeNode is the JSON shape of tree output.
type treeNode struct {
	recordView
	Children []treeNode `json:"children,omitempty"`
}

func newTreeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tree [ref]",
		Short: "Show a record and its descendants, or every root when no ref is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := a.openCatalog()
			if err != nil {
				return err
			}
			defer cat.Close()

			var roots []types.IdentifierRecord
			if len(args) == 1 {
				t, err := a.tracker()
				if err != nil {
					return err
				}
				rec, err := t.Resolve(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				roots = []types.IdentifierRecord{rec}
			} else if roots, err = cat.Roots(); err != nil {
				return err
			}

			nodes := make([]treeNode, 0, len(roots))
			for _, r := range roots {
				n, err := buildTree(cat, r, map[string]bool{})
				if err != nil {
					return err
				}
				nodes = append(nodes, n)
			}

			if a.flags.jsonMode {
				return writeJSON(a.stdout, nodes)
			}
			if len(nodes) == 0 {
				fmt.Fprintln(a.stdout, "No records found.")
			}
			for _, n := range nodes {
				printTree(a, n, 0)
			}
			return nil
		},
	}
}

// buildTree walks children depth first. seen guards against parent cycles
// written by hand into the index.
func buildTree(cat *catalog.Catalog, rec types.IdentifierRecord, seen map[string]bool) (treeNode, error) {
	node := treeNode{recordView: viewOf(rec)}
	if seen[rec.ID] {
		return node, nil
	}
	seen[rec.ID] = true
	kids, err := cat.Children(rec.ID)
	if err != nil {
		return node, err
	}
	for _, k := range kids {
		child, err := buildTree(cat, k, seen)
		if err != nil {
			return node, err
		}
		node.Children = append(node.Children, child)
	}
	return node, nil
}

func printTree(a *app, n treeNode, depth int) {
	status := ""
	if n.Status != "" {
		status = " [" + n.Status + "]"
	}
	fmt.Fprintf(a.stdout, "%s%s  %s%s\n", strings.Repeat("  ", depth), n.Ref, n.Title, status)
	for _, c := range n.Children {
		printTree(a, c, depth+1)
	}
}
