package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/waymark/internal/artifacts"
	"github.com/mesh-intelligence/waymark/internal/audit"
)

func newRebuildCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild the index from artifact front matter",
		Long:  "Scan plans/, specs/ and exec/ under the artifact root and replace the index\nwith one record per artifact, sorted by identifier. Running it twice over an\nunchanged tree produces the same file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.index()
			if err != nil {
				return err
			}
			src := artifacts.FrontMatterSource{
				Root:       a.cfg.ArtifactRoot,
				SlugMaxLen: a.cfg.SlugMaxLen,
				Logger:     a.logger,
			}
			n, err := store.Rebuild(src)
			if err != nil {
				return err
			}

			if log, err := a.auditLog(); err == nil {
				if _, err := log.Record(audit.EventRebuilt, map[string]any{"records": n, "root": a.cfg.ArtifactRoot}); err != nil {
					a.logger.Warn("audit write failed", "event", audit.EventRebuilt, "error", err)
				}
			}

			if a.flags.jsonMode {
				return writeJSON(a.stdout, map[string]any{"records": n, "index": store.Path()})
			}
			fmt.Fprintf(a.stdout, "Rebuilt %s with %d record(s)\n", store.Path(), n)
			return nil
		},
	}
}

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Report duplicate and dangling entries in the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.index()
			if err != nil {
				return err
			}
			problems, err := store.Validate()
			if err != nil {
				return err
			}

			if a.flags.jsonMode {
				if problems == nil {
					problems = []string{}
				}
				if err := writeJSON(a.stdout, map[string]any{"ok": len(problems) == 0, "problems": problems}); err != nil {
					return err
				}
			} else if len(problems) == 0 {
				fmt.Fprintln(a.stdout, "Index is consistent.")
			} else {
				for _, p := range problems {
					fmt.Fprintln(a.stdout, p)
				}
			}
			if len(problems) > 0 {
				return userError("%d problem(s) found", len(problems))
			}
			return nil
		},
	}
}
