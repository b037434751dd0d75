package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/metalagman/questgraph/internal/config"
	"github.com/metalagman/questgraph/internal/progress"
	"github.com/metalagman/questgraph/internal/reconcile"
)

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Repair members that completed both sides of a mutually exclusive pair",
		Long:  "For every pair of alternative tasks a member completed on both sides, mark the later completion as failed.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), func(cfg config.Config, store *progress.Store) error {
				data, err := loadData(cmd.Context(), cfg)
				if err != nil {
					return err
				}
				report, err := reconcile.Run(cmd.Context(), store, data.Tasks, cfg.Mode())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(report.Repairs) == 0 {
					fmt.Fprintf(out, "%d members checked, nothing to repair\n", report.Members)
					return nil
				}
				rows := make([][]string, 0, len(report.Repairs))
				for _, r := range report.Repairs {
					rows = append(rows, []string{r.MemberID, r.Kept, r.Failed})
				}
				fmt.Fprintln(out, renderTable([]string{"MEMBER", "KEPT", "MARKED FAILED"}, rows, nil))
				return nil
			})
		},
	}
}
