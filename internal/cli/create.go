package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/waymark/pkg/types"
)

func newPlanCmd(a *app) *cobra.Command {
	var ready bool
	cmd := &cobra.Command{
		Use:   "plan <title...>",
		Short: "Create a plan",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.tracker()
			if err != nil {
				return err
			}
			rec, err := t.CreatePlan(cmd.Context(), strings.Join(args, " "), a.owner, ready)
			if err != nil {
				return err
			}
			return a.emitRecord(rec)
		},
	}
	cmd.Flags().BoolVar(&ready, "ready", false, "create the plan already marked ready")
	return cmd
}

func newSpecCmd(a *app) *cobra.Command {
	var planRef string
	cmd := &cobra.Command{
		Use:   "spec <title...> --plan <ref>",
		Short: "Create a spec under a plan",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.tracker()
			if err != nil {
				return err
			}
			rec, err := t.CreateSpec(cmd.Context(), strings.Join(args, " "), planRef, a.owner)
			if err != nil {
				return err
			}
			return a.emitRecord(rec)
		},
	}
	cmd.Flags().StringVar(&planRef, "plan", "", "parent plan reference (required)")
	_ = cmd.MarkFlagRequired("plan")
	return cmd
}

func newExecCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "exec <spec-ref>",
		Short: "Start an execute log for a spec",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.tracker()
			if err != nil {
				return err
			}
			rec, err := t.CreateExec(cmd.Context(), args[0], a.owner)
			if err != nil {
				return err
			}
			return a.emitRecord(rec)
		},
	}
}

func newReadyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ready <ref>",
		Short: "Mark a plan or spec ready",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.tracker()
			if err != nil {
				return err
			}
			rec, err := t.MarkReady(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.emitRecord(rec)
		},
	}
}

// parseKindFlag accepts an empty value as "all kinds".
func parseKindFlag(s string) (types.Kind, error) {
	if s == "" {
		return "", nil
	}
	k, err := types.ParseKind(s)
	if err != nil {
		return "", userError("--kind: %w", err)
	}
	return k, nil
}
