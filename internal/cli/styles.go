// Package cli holds the terminal presentation of the vadsplit command:
// lipgloss styles, the kong help printer and span list rendering.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	primaryColor  = lipgloss.Color("#2E86AB") // Steel blue
	activeColor   = lipgloss.Color("#3BB273") // Green
	inactiveColor = lipgloss.Color("#888888") // Gray
	errorColor    = lipgloss.Color("#D1495B") // Red
	textColor     = lipgloss.Color("#FFFFFF") // White
)

// Styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(errorColor)

	KeyStyle = lipgloss.NewStyle().
			Foreground(inactiveColor)

	ValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(textColor)

	ActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(activeColor)

	InactiveStyle = lipgloss.NewStyle().
			Foreground(inactiveColor)
)

// PrintVersion prints version information to w.
func PrintVersion(w io.Writer, version string, extra ...[2]string) {
	fmt.Fprintln(w, TitleStyle.Render("vadsplit"))
	fmt.Fprintf(w, "%s %s\n", KeyStyle.Render("Version:"), ValueStyle.Render(version))
	for _, kv := range extra {
		fmt.Fprintf(w, "%s %s\n", KeyStyle.Render(kv[0]+":"), ValueStyle.Render(kv[1]))
	}
	fmt.Fprintln(w)
}

// PrintError prints an error message to stderr.
func PrintError(message string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", ErrorStyle.Render("Error:"), message)
}

// PrintSaved reports a written segment file.
func PrintSaved(w io.Writer, path string) {
	fmt.Fprintf(w, "%s %s\n", KeyStyle.Render("Saved"), ValueStyle.Render(path))
}
