package main

import (
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/metalagman/questgraph/internal/config"
	"github.com/metalagman/questgraph/internal/db"
	"github.com/metalagman/questgraph/internal/progress"
)

func historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history <member>",
		Short: "Show the progress journal of a member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(_ config.Config, store *progress.Store) error {
				id, err := resolveMember(cmd.Context(), store, args[0])
				if err != nil {
					return err
				}
				events, err := store.Journal().Events(cmd.Context(), id)
				if err != nil {
					return err
				}
				if limit > 0 && len(events) > limit {
					events = events[len(events)-limit:]
				}
				rows := make([][]string, 0, len(events))
				for _, ev := range events {
					rows = append(rows, []string{strconv.Itoa(ev.Seq), ev.TS, ev.Type, ev.Message, ev.DataJSON})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"SEQ", "TIME", "TYPE", "ID", "RECORD"}, rows, nil))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "show only the newest events (0 for all)")
	return cmd
}

func pruneCmd() *cobra.Command {
	var (
		dryRun   bool
		keepLast int
		keepDays int
	)
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete old progress journal events",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), func(cfg config.Config, store *progress.Store) error {
				policy := db.RetentionPolicy{KeepLast: cfg.Retention.KeepLast, KeepDays: cfg.Retention.KeepDays}
				if cmd.Flags().Changed("keep-last") {
					policy.KeepLast = keepLast
				}
				if cmd.Flags().Changed("keep-days") {
					policy.KeepDays = keepDays
				}
				res, err := store.Journal().Prune(cmd.Context(), policy, dryRun)
				if err != nil {
					return fmt.Errorf("prune journal: %w", err)
				}
				log.Info().
					Int("considered", res.Considered).
					Int("kept", res.Kept).
					Int("deleted", res.Deleted).
					Bool("dry_run", dryRun).
					Msg("journal pruned")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be deleted")
	cmd.Flags().IntVar(&keepLast, "keep-last", 0, "events to keep per member, overrides retention.keep_last")
	cmd.Flags().IntVar(&keepDays, "keep-days", 0, "keep events younger than this many days, overrides retention.keep_days")
	return cmd
}
