package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"
)

var (
	primaryColor = lipgloss.Color("#7D56F4")
	successColor = lipgloss.Color("#04B575")
	warningColor = lipgloss.Color("#FFA500")
	errorColor   = lipgloss.Color("#FF4B4B")
	mutedColor   = lipgloss.Color("#666666")

	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
	passStyle    = lipgloss.NewStyle().Bold(true).Foreground(successColor)
	failStyle    = lipgloss.NewStyle().Bold(true).Foreground(errorColor)
	mutedStyle   = lipgloss.NewStyle().Foreground(mutedColor)
	usedStyle    = lipgloss.NewStyle().Foreground(warningColor)
)

// render applies style unless --no-color is set.
func render(style lipgloss.Style, s string) string {
	if noColor {
		return s
	}
	return style.Render(s)
}

func passFail(ok bool) string {
	if ok {
		return render(passStyle, "PASS")
	}
	return render(failStyle, "FAIL")
}

// occupancyBar draws pct (0-100) as a bar of width cells.
func occupancyBar(pct float64, width int) string {
	filled := int(pct/100*float64(width) + 0.5)
	filled = min(max(filled, 0), width)
	used := strings.Repeat("█", filled)
	free := strings.Repeat("░", width-filled)
	return fmt.Sprintf("[%s%s] %5.1f%%", render(usedStyle, used), render(mutedStyle, free), pct)
}

// renderTable writes rows under header as an aligned text table.
func renderTable(w io.Writer, header []string, rows [][]string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetAutoFormatHeaders(false)
	table.AppendBulk(rows)
	table.Render()
}
