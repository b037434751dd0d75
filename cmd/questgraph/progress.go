package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/metalagman/questgraph/internal/config"
	"github.com/metalagman/questgraph/internal/model"
	"github.com/metalagman/questgraph/internal/progress"
)

func progressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Record task, objective and hideout progress",
	}
	cmd.AddCommand(
		taskRecordCmd("complete", "Mark a task as completed", model.CompletionRecord{Complete: true}),
		taskRecordCmd("fail", "Mark a task as failed", model.CompletionRecord{Complete: true, Failed: true}),
		taskRecordCmd("reset", "Clear a task back to not completed", model.CompletionRecord{}),
		objectiveCmd(),
		hideoutCmd(),
	)
	return cmd
}

func logWrite(kind, memberID, key string, applied bool) {
	ev := log.Info()
	msg := kind + " recorded"
	if !applied {
		ev = log.Warn()
		msg = kind + " ignored, a newer record exists"
	}
	ev.Str("member_id", memberID).Str("id", key).Msg(msg)
}

func taskRecordCmd(use, short string, rec model.CompletionRecord) *cobra.Command {
	var withObjectives bool
	cmd := &cobra.Command{
		Use:   use + " <member> <task-id>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(cfg config.Config, store *progress.Store) error {
				ctx := cmd.Context()
				id, err := resolveMember(ctx, store, args[0])
				if err != nil {
					return err
				}
				applied, err := store.PutTask(ctx, id, cfg.Mode(), args[1], rec)
				if err != nil {
					return err
				}
				logWrite("task", id, args[1], applied)
				if !withObjectives || !applied {
					return nil
				}
				return markObjectives(ctx, cfg, store, id, args[1], rec.Complete && !rec.Failed)
			})
		},
	}
	if rec.Complete && !rec.Failed {
		cmd.Flags().BoolVar(&withObjectives, "objectives", true, "also mark the task's objectives complete")
	} else if !rec.Complete {
		cmd.Flags().BoolVar(&withObjectives, "objectives", true, "also clear the task's objectives")
	}
	return cmd
}

func markObjectives(ctx context.Context, cfg config.Config, store *progress.Store, memberID, taskID string, complete bool) error {
	data, err := loadData(ctx, cfg)
	if err != nil {
		log.Warn().Err(err).Msg("game data unavailable, objectives left unchanged")
		return nil
	}
	t, ok := data.Tasks.Task(taskID)
	if !ok {
		log.Warn().Str("task_id", taskID).Msg("unknown task, objectives left unchanged")
		return nil
	}
	for _, obj := range t.Objectives {
		rec := model.ObjectiveRecord{Complete: complete}
		if complete {
			rec.Count = obj.Count
		}
		if _, err := store.PutObjective(ctx, memberID, cfg.Mode(), obj.ID, rec); err != nil {
			return err
		}
	}
	return nil
}

func objectiveCmd() *cobra.Command {
	var (
		count int
		reset bool
	)
	cmd := &cobra.Command{
		Use:   "objective <member> <objective-id>",
		Short: "Record objective progress",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 0 {
				return fmt.Errorf("count must not be negative")
			}
			rec := model.ObjectiveRecord{Complete: !reset && count == 0, Count: count}
			if reset {
				rec = model.ObjectiveRecord{}
			}
			return withStore(cmd.Context(), func(cfg config.Config, store *progress.Store) error {
				id, err := resolveMember(cmd.Context(), store, args[0])
				if err != nil {
					return err
				}
				applied, err := store.PutObjective(cmd.Context(), id, cfg.Mode(), args[1], rec)
				if err != nil {
					return err
				}
				logWrite("objective", id, args[1], applied)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&count, "count", 0, "partial progress count; without it the objective is marked complete")
	cmd.Flags().BoolVar(&reset, "reset", false, "clear the objective")
	return cmd
}

func hideoutCmd() *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "hideout <member> <module-id>",
		Short: "Mark a hideout module as built",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(cfg config.Config, store *progress.Store) error {
				id, err := resolveMember(cmd.Context(), store, args[0])
				if err != nil {
					return err
				}
				applied, err := store.PutHideout(cmd.Context(), id, cfg.Mode(), args[1], model.CompletionRecord{Complete: !reset})
				if err != nil {
					return err
				}
				logWrite("hideout module", id, args[1], applied)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "mark the module as not built")
	return cmd
}
