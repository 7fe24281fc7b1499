package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/waymark/internal/router"
)

// contextFlags adds --last-plan and --last-spec to cmd.
func contextFlags(cmd *cobra.Command, rc *router.Context) {
	cmd.Flags().StringVar(&rc.LastPlanID, "last-plan", "", "plan reference used when the text names none")
	cmd.Flags().StringVar(&rc.LastSpecID, "last-spec", "", "spec reference used when the text names none")
}

func newDoCmd(a *app) *cobra.Command {
	var rc router.Context
	cmd := &cobra.Command{
		Use:   "do <text...>",
		Short: "Route free text and carry out the result",
		Example: `  waymark do "Add JWT authentication and mark ready"
  waymark do "spec for PLAN-20251014-01K7A2 'Database schema'"
  waymark do "execute S-0001"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.tracker()
			if err != nil {
				return err
			}
			res, err := t.Handle(cmd.Context(), strings.Join(args, " "), rc)
			if err != nil {
				return err
			}
			if amb, ok := res.Intent.(router.Ambiguous); ok {
				if a.flags.jsonMode {
					if err := writeJSON(a.stdout, intentView(res.Intent)); err != nil {
						return err
					}
				}
				return userError("could not decide what to do: %s", amb.Reason)
			}

			if a.flags.jsonMode {
				return writeJSON(a.stdout, map[string]any{
					"action": res.Intent.Action(),
					"record": viewOf(res.Record),
				})
			}
			fmt.Fprintf(a.stdout, "%s %s\n", verb(res.Intent), res.Record.Ref())
			fmt.Fprintf(a.stdout, "  %s\n", res.Record.Path)
			return nil
		},
	}
	contextFlags(cmd, &rc)
	return cmd
}

func newRouteCmd(a *app) *cobra.Command {
	var (
		rc      router.Context
		explain bool
	)
	cmd := &cobra.Command{
		Use:   "route <text...>",
		Short: "Print how text would be classified, without acting on it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			intent := router.Route(text, rc)
			if a.flags.jsonMode {
				v := intentView(intent)
				if explain {
					v["rule"] = router.Explain(text, rc)
				}
				return writeJSON(a.stdout, v)
			}
			fmt.Fprintln(a.stdout, intent.String())
			if explain {
				fmt.Fprintf(a.stdout, "rule: %s\n", router.Explain(text, rc))
			}
			return nil
		},
	}
	contextFlags(cmd, &rc)
	cmd.Flags().BoolVar(&explain, "explain", false, "also print the rule that matched")
	return cmd
}

func intentView(in router.Intent) map[string]any {
	return map[string]any{"action": in.Action(), "intent": in}
}

func verb(in router.Intent) string {
	switch in.(type) {
	case router.MarkReady:
		return "Marked ready"
	default:
		return "Created"
	}
}
