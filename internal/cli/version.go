package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/waymark/pkg/waymark"
)

const modulePath = "github.com/mesh-intelligence/waymark"

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the waymark version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.flags.jsonMode {
				return writeJSON(a.stdout, map[string]string{"version": waymark.Version, "module": modulePath})
			}
			fmt.Fprintf(a.stdout, "waymark v%s\nmodule: %s\n", waymark.Version, modulePath)
			return nil
		},
	}
}
