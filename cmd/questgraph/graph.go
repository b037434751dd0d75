package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/metalagman/questgraph/internal/gamedata"
	"github.com/metalagman/questgraph/internal/graph"
)

func graphCmd() *cobra.Command {
	var diagnostics bool
	cmd := &cobra.Command{
		Use:   "graph [task-id]",
		Short: "Inspect the task dependency graph",
		Long:  "Show what a task depends on and what it unlocks, or list graph diagnostics and roots.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			data, err := loadData(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch {
			case diagnostics:
				writeDiagnostics(out, data)
				return nil
			case len(args) == 0:
				g := data.Tasks
				fmt.Fprintf(out, "%d tasks, %d roots, %d leaves, %d cycles\n",
					g.Len(), len(g.Roots()), len(g.Leaves()), len(g.Cycles()))
				return nil
			}
			return writeTask(out, data.Tasks, args[0])
		},
	}
	cmd.Flags().BoolVar(&diagnostics, "diagnostics", false, "list data-quality diagnostics")
	return cmd
}

func taskNames(g *graph.TaskGraph, ids []string) string {
	if len(ids) == 0 {
		return "-"
	}
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if t, ok := g.Task(id); ok && t.Name != "" {
			names = append(names, fmt.Sprintf("%s (%s)", t.Name, id))
			continue
		}
		names = append(names, id)
	}
	return strings.Join(names, ", ")
}

func writeTask(out io.Writer, g *graph.TaskGraph, id string) error {
	t, ok := g.Task(id)
	if !ok {
		return fmt.Errorf("unknown task %q", id)
	}
	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("%s (%s)", t.Name, t.ID)))
	rows := [][]string{
		{"requires", taskNames(g, g.Predecessors(id))},
		{"unlocks", taskNames(g, g.Successors(id))},
		{"all prerequisites", taskNames(g, g.Ancestors(id))},
		{"blocks", taskNames(g, g.Descendants(id))},
		{"mutually exclusive", taskNames(g, g.Conflicts(id))},
	}
	fmt.Fprintln(out, renderTable([]string{"RELATION", "TASKS"}, rows, nil))
	return nil
}

func writeDiagnostics(out io.Writer, data *gamedata.Data) {
	diags := append(data.Tasks.Diagnostics(), data.Hideout.Diagnostics()...)
	if len(diags) == 0 {
		fmt.Fprintln(out, "no diagnostics")
		return
	}
	rows := make([][]string, 0, len(diags))
	for _, d := range diags {
		ref := d.Ref
		if len(d.Path) > 0 {
			ref = strings.Join(d.Path, " -> ")
		}
		rows = append(rows, []string{string(d.Kind), d.NodeID, ref, d.Message})
	}
	fmt.Fprintln(out, renderTable([]string{"KIND", "NODE", "REF", "MESSAGE"}, rows, nil))
}
