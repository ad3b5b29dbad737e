// Package render formats plugin metadata and probe output for the terminal.
package render

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/openusage/openusage/internal/plugins"
	"github.com/openusage/openusage/internal/probe"
)

const barWidth = 20

var (
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444")).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// PluginTable writes listPlugins output as a table
func PluginTable(w io.Writer, metas []probe.PluginMeta) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"ID", "Name", "Lines", "Primary"})
	for _, m := range metas {
		t.AppendRow(table.Row{m.ID, m.Name, len(m.Lines), strings.Join(m.PrimaryCandidates, ", ")})
	}
	style := table.StyleLight
	style.Options.DrawBorder = false
	t.SetStyle(style)
	t.Render()
}

// Output renders one probe result as a titled block
func Output(out plugins.ProbeOutput, brandColor string) string {
	title := lipgloss.NewStyle().Bold(true)
	if brandColor != "" {
		title = title.Foreground(lipgloss.Color(brandColor))
	}

	rows := []string{title.Render(out.DisplayName)}
	for _, line := range out.Lines {
		rows = append(rows, Line(line))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// Line renders a single metric line
func Line(line plugins.MetricLine) string {
	label := labelStyle.Render(fmt.Sprintf("%-12s", line.Label))
	valueStyle := lipgloss.NewStyle()
	if line.Color != "" {
		valueStyle = valueStyle.Foreground(lipgloss.Color(line.Color))
	}

	switch line.Type {
	case plugins.LineProgress:
		return label + " " + valueStyle.Render(bar(line.Value, line.Max)) + " " + formatAmount(line)
	case plugins.LineBadge:
		if line.IsErrorBadge() {
			return label + " " + errorStyle.Render(line.Text)
		}
		return label + " " + valueStyle.Render("["+line.Text+"]")
	default:
		return label + " " + valueStyle.Render(line.Text)
	}
}

func bar(value, max float64) string {
	filled := 0
	if max > 0 {
		ratio := math.Min(math.Max(value/max, 0), 1)
		filled = int(math.Round(ratio * barWidth))
	}
	return strings.Repeat("█", filled) + dimStyle.Render(strings.Repeat("░", barWidth-filled))
}

func formatAmount(line plugins.MetricLine) string {
	switch line.Unit {
	case "percent":
		if line.Max > 0 {
			return fmt.Sprintf("%.0f%%", line.Value/line.Max*100)
		}
		return fmt.Sprintf("%.0f%%", line.Value)
	case "dollars":
		return fmt.Sprintf("$%.2f / $%.2f", line.Value, line.Max)
	default:
		return fmt.Sprintf("%g / %g", line.Value, line.Max)
	}
}
