package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	labelStyle = lipgloss.NewStyle().Faint(true).Width(12)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	cardStyle  = lipgloss.NewStyle().
			Padding(0, 1).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63"))
)

type row struct {
	label string
	value string
}

// printSummary writes a boxed title followed by label/value rows
func printSummary(w io.Writer, title string, rows ...row) {
	lines := []string{titleStyle.Render(title)}
	for _, r := range rows {
		lines = append(lines, labelStyle.Render(r.label)+r.value)
	}
	fmt.Fprintln(w, cardStyle.Render(strings.Join(lines, "\n")))
}

func countStyle(n int, style lipgloss.Style) string {
	if n == 0 {
		return fmt.Sprint(n)
	}
	return style.Render(fmt.Sprint(n))
}
