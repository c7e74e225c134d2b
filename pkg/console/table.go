package console

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// TableConfig describes a table to render.
type TableConfig struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// RenderTable renders config as a bordered table. An empty config renders as "".
func RenderTable(config TableConfig) string {
	if len(config.Headers) == 0 && len(config.Rows) == 0 {
		return ""
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(config.Headers...).
		Rows(config.Rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow && styled {
				return headerStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})

	var sb strings.Builder
	if config.Title != "" {
		sb.WriteString(render(headerStyle, config.Title))
		sb.WriteString("\n")
	}
	sb.WriteString(t.Render())
	sb.WriteString("\n")
	return sb.String()
}
