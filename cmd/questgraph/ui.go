package main

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/metalagman/questgraph/internal/engine"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))

	stateStyles = map[engine.TaskState]lipgloss.Style{
		engine.StateAvailable: cellStyle.Foreground(lipgloss.Color("10")),
		engine.StateCompleted: cellStyle.Foreground(lipgloss.Color("8")),
		engine.StateFailed:    cellStyle.Foreground(lipgloss.Color("9")),
		engine.StateInvalid:   cellStyle.Foreground(lipgloss.Color("1")).Strikethrough(true),
		engine.StateLocked:    cellStyle,
	}
)

// renderTable draws rows under headers. When stateCol is set, that column is colored
// by task state.
func renderTable(headers []string, rows [][]string, stateCol *int) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderRow(false).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if stateCol != nil && col == *stateCol && row >= 0 && row < len(rows) {
				if st, ok := stateStyles[engine.TaskState(rows[row][col])]; ok {
					return st
				}
			}
			return cellStyle
		})
	return t.String()
}
