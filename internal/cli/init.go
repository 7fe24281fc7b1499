package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/waymark/pkg/types"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the configuration, data, and artifact directories",
		Long:  "Create config.yaml, the data directory holding the index and audit log,\nand the plans/, specs/ and exec/ directories under the artifact root.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.index(); err != nil {
				return err
			}
			for _, k := range types.Kinds {
				dir := filepath.Join(a.cfg.ArtifactRoot, k.Dir())
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return &exitError{code: exitSysError, err: fmt.Errorf("create %s: %w", dir, err)}
				}
			}

			if a.flags.jsonMode {
				return writeJSON(a.stdout, map[string]string{
					"config_dir":    a.configDir,
					"data_dir":      a.cfg.DataDir,
					"artifact_root": a.cfg.ArtifactRoot,
				})
			}
			fmt.Fprintln(a.stdout, "waymark initialized")
			fmt.Fprintf(a.stdout, "  config:    %s\n", filepath.Join(a.configDir, configFileExt))
			fmt.Fprintf(a.stdout, "  data:      %s\n", a.cfg.DataDir)
			fmt.Fprintf(a.stdout, "  artifacts: %s\n", a.cfg.ArtifactRoot)
			return nil
		},
	}
}
