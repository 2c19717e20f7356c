package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	badStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	labelStyle = lipgloss.NewStyle().Width(12)
)

// Section writes a bold section header.
func Section(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s\n", titleStyle.Render(title))
}

// Check writes a "present" line: ✓ label  detail.
func Check(w io.Writer, label, detail string) {
	fmt.Fprintf(w, "  %s %s %s\n", okStyle.Render("✓"), labelStyle.Render(label), mutedStyle.Render(detail))
}

// Cross writes a "missing" line: ✗ label  detail.
func Cross(w io.Writer, label, detail string) {
	fmt.Fprintf(w, "  %s %s %s\n", badStyle.Render("✗"), labelStyle.Render(label), mutedStyle.Render(detail))
}

// Line writes an indented plain line.
func Line(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, "  "+format+"\n", args...)
}
