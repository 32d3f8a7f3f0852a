package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RenderTable lays rows out in left-aligned columns under a header row.
// Cells may already carry styling; widths are measured on printed width.
func RenderTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}

	var b strings.Builder
	b.WriteString(renderRow(headers, widths, TableHeaderStyle))
	b.WriteString("\n")
	for _, row := range rows {
		b.WriteString(renderRow(row, widths, lipgloss.NewStyle()))
		b.WriteString("\n")
	}
	return b.String()
}

func renderRow(cells []string, widths []int, style lipgloss.Style) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		parts[i] = TableCellStyle.Width(w + TableCellStyle.GetPaddingRight()).Render(style.Render(cell))
	}
	return strings.TrimRight(lipgloss.JoinHorizontal(lipgloss.Top, parts...), " ")
}

// UsageBar draws a fixed-width bar filled to percent (0-100).
func UsageBar(percent float64, width int) string {
	if width <= 0 {
		return ""
	}
	percent = min(100, max(0, percent))
	filled := int(percent / 100 * float64(width))

	style := SuccessStyle
	switch {
	case percent >= 100:
		style = ErrorStyle
	case percent >= 80:
		style = WarningStyle
	}
	return style.Render(strings.Repeat("█", filled)) + SubtleStyle.Render(strings.Repeat("░", width-filled))
}
