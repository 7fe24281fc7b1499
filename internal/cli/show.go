package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <ref>",
		Short: "Display a record",
		Long:  "Resolve a ULID, dated reference, legacy ID such as P-0001, or slug and print the record.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.tracker()
			if err != nil {
				return err
			}
			rec, err := t.Resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.emitRecord(rec)
		},
	}
}

func newFindCmd(a *app) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "find <pattern>",
		Short: "Search ids, human IDs, slugs, and titles",
		Long:  "Match pattern as a case-insensitive regular expression, or as a plain substring\nwhen it does not compile.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := parseKindFlag(kind)
			if err != nil {
				return err
			}
			store, err := a.index()
			if err != nil {
				return err
			}
			found, err := store.FindByPattern(args[0])
			if err != nil {
				return err
			}
			if k != "" {
				kept := found[:0]
				for _, r := range found {
					if r.Kind == k {
						kept = append(kept, r)
					}
				}
				found = kept
			}
			return a.emitList(found, fmt.Sprintf("No records match %q.", args[0]))
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "restrict to plan, spec or exec")
	return cmd
}
