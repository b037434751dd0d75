package main

import (
	"fmt"
	"slices"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/metalagman/questgraph/internal/config"
	"github.com/metalagman/questgraph/internal/engine"
	"github.com/metalagman/questgraph/internal/gamedata"
	"github.com/metalagman/questgraph/internal/logging"
	"github.com/metalagman/questgraph/internal/progress"
)

func statusCmd() *cobra.Command {
	var (
		memberRef string
		policyArg string
		all       bool
		hideout   bool
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show resolved task or hideout state for a member or the team",
		RunE: func(cmd *cobra.Command, _ []string) error {
			policy, err := engine.ParsePolicy(policyArg)
			if err != nil {
				return err
			}
			return withStore(cmd.Context(), func(cfg config.Config, store *progress.Store) error {
				ctx := cmd.Context()
				data, err := loadData(ctx, cfg)
				if err != nil {
					return err
				}
				members, err := store.Members(ctx, cfg.Mode())
				if err != nil {
					return err
				}
				if memberRef != "" {
					id, err := resolveMember(ctx, store, memberRef)
					if err != nil {
						return err
					}
					members = onlyMember(members, id)
				}

				res, err := engine.Resolve(ctx, data.Tasks, members, resolveOptions(cfg, data)...)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if hideout {
					fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Hideout (%s, %s)", cfg.Mode(), policy)))
					fmt.Fprintln(out, hideoutTable(data, res, policy, members))
					return nil
				}
				title := fmt.Sprintf("Tasks (%s, %s)", cfg.Mode(), policy)
				if memberRef != "" && len(members) == 1 {
					title = fmt.Sprintf("Tasks for %s (%s)", members[0].Name, cfg.Mode())
				}
				fmt.Fprintln(out, titleStyle.Render(title))
				fmt.Fprintln(out, taskTable(data, res, policy, members, all))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&memberRef, "member", "", "show a single member (id or name)")
	cmd.Flags().StringVar(&policyArg, "policy", "any", "team aggregation policy (any|all)")
	cmd.Flags().BoolVar(&all, "all", false, "list every task, not only available ones")
	cmd.Flags().BoolVar(&hideout, "hideout", false, "show hideout modules instead of tasks")
	return cmd
}

func resolveOptions(cfg config.Config, data *gamedata.Data) []engine.Option {
	return []engine.Option{
		engine.WithLogger(logging.Component("engine")),
		engine.WithParallelism(cfg.Engine.Parallelism),
		engine.WithHideout(data.Hideout),
	}
}

func onlyMember(members []engine.Member, id string) []engine.Member {
	for _, m := range members {
		if m.ID == id {
			m.Hidden = false
			return []engine.Member{m}
		}
	}
	return nil
}

// teamState folds a team view into the state vocabulary used for single members.
func teamState(view engine.TeamView, id string) engine.TaskState {
	switch {
	case view.Complete[id]:
		return engine.StateCompleted
	case view.Invalid[id]:
		return engine.StateInvalid
	case view.Available[id]:
		return engine.StateAvailable
	default:
		return engine.StateLocked
	}
}

func taskTable(data *gamedata.Data, res *engine.Result, policy engine.Policy, members []engine.Member, all bool) string {
	view := res.Team(policy, data.Tasks, members)
	single := len(members) == 1

	tasks := slices.Clone(data.Tasks.Tasks())
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].MinPlayerLevel != tasks[j].MinPlayerLevel {
			return tasks[i].MinPlayerLevel < tasks[j].MinPlayerLevel
		}
		return tasks[i].Name < tasks[j].Name
	})

	rows := make([][]string, 0, len(tasks))
	for i := range tasks {
		t := &tasks[i]
		state := teamState(view, t.ID)
		if single {
			state = res.State(t.ID, members[0].ID)
		}
		if !all && state != engine.StateAvailable {
			continue
		}
		rows = append(rows, []string{t.ID, t.Name, t.TraderID, strconv.Itoa(t.MinPlayerLevel), string(state)})
	}
	col := 4
	return renderTable([]string{"ID", "TASK", "TRADER", "LEVEL", "STATE"}, rows, &col)
}

func hideoutTable(data *gamedata.Data, res *engine.Result, policy engine.Policy, members []engine.Member) string {
	available := engine.AggregateHideout(policy, res.HideoutAvailable, members)
	rows := [][]string{}
	for _, m := range data.Hideout.Modules() {
		state := engine.StateLocked
		if available[m.ID] {
			state = engine.StateAvailable
		}
		rows = append(rows, []string{m.ID, m.StationID, strconv.Itoa(m.Level), string(state)})
	}
	col := 3
	return renderTable([]string{"ID", "STATION", "LEVEL", "STATE"}, rows, &col)
}
