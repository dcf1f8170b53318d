package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"mangamark/internal/processor"
)

type SummaryRow struct {
	Label string
	Value string
}

// SummaryRows lays out the counters of a finished run.
func SummaryRows(s processor.Summary) []SummaryRow {
	rows := []SummaryRow{
		{Label: "Chapters", Value: fmt.Sprintf("%d", s.Chapters)},
		{Label: "Chapters skipped", Value: fmt.Sprintf("%d", s.Skipped)},
		{Label: "Files succeeded", Value: fmt.Sprintf("%d", s.Succeeded)},
		{Label: "Files with errors", Value: fmt.Sprintf("%d", s.Errors)},
		{Label: "Watermarks placed", Value: fmt.Sprintf("%d", s.Watermarks)},
	}
	if s.Canceled {
		rows = append(rows, SummaryRow{Label: "Status", Value: "canceled"})
	}
	return rows
}

func RenderSummary(rows []SummaryRow) string {
	labelWidth := 0
	valueWidth := 0
	for _, row := range rows {
		labelWidth = max(labelWidth, len(row.Label))
		valueWidth = max(valueWidth, len(row.Value))
	}

	hline := dimStyle.Render(strings.Repeat("-", labelWidth+valueWidth+3))
	lines := []string{hline}

	for _, row := range rows {
		label := padRight(row.Label, labelWidth)
		value := padRight(row.Value, valueWidth)
		style := valueStyle
		if row.Label == "Files with errors" && row.Value != "0" {
			style = errValueStyle
		}
		lines = append(lines, fmt.Sprintf("%s | %s", labelStyle.Render(label), style.Render(value)))
	}

	lines = append(lines, hline)
	return strings.Join(lines, "\n")
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

var (
	valueStyle    = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	errValueStyle = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
)
