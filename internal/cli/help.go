package cli

import (
	"fmt"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"
)

// Custom help styles
var (
	helpTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F18F01")).
			Italic(true).
			MarginBottom(1)

	helpSectionStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#F18F01")).
				MarginTop(1)

	helpFlagStyle = lipgloss.NewStyle().
			Foreground(activeColor).
			Bold(true)

	helpArgStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00AAAA")).
			Bold(true)

	helpDefaultStyle = lipgloss.NewStyle().
				Foreground(inactiveColor).
				Italic(true)
)

// StyledHelpPrinter returns a kong help printer that renders the selected
// command (or the application) with lipgloss styling.
func StyledHelpPrinter(description string) kong.HelpPrinter {
	return func(_ kong.HelpOptions, ctx *kong.Context) error {
		node := ctx.Model.Node
		if sel := ctx.Selected(); sel != nil {
			node = sel
		}

		var sb strings.Builder
		sb.WriteString(helpTitleStyle.Render("vadsplit"))
		sb.WriteString("\n")
		desc := description
		if node != ctx.Model.Node && node.Help != "" {
			desc = node.Help
		}
		sb.WriteString(helpDescStyle.Render(desc))
		sb.WriteString("\n")

		sb.WriteString(helpSectionStyle.Render("Usage:"))
		sb.WriteString("\n  ")
		sb.WriteString(usageLine(ctx.Model.Name, node))
		sb.WriteString("\n")

		writeSection(&sb, "Commands:", helpArgStyle, commandEntries(node))
		writeSection(&sb, "Arguments:", helpArgStyle, argumentEntries(node))
		writeSection(&sb, "Flags:", helpFlagStyle, flagEntries(node.Flags, true))
		if node != ctx.Model.Node {
			writeSection(&sb, "Global Flags:", helpFlagStyle, flagEntries(ctx.Model.Node.Flags, false))
		}

		sb.WriteString("\n")
		fmt.Fprint(ctx.Stdout, sb.String())
		return nil
	}
}

type entry struct {
	name       string
	help       string
	defaultVal string
}

func usageLine(app string, node *kong.Node) string {
	parts := []string{app}
	if p := node.Path(); p != "" {
		parts = append(parts, p)
	}
	if len(commandEntries(node)) > 0 {
		parts = append(parts, "<command>")
	}
	parts = append(parts, "[flags]")
	for _, a := range node.Positional {
		parts = append(parts, a.Summary())
	}
	return strings.Join(parts, " ")
}

func writeSection(sb *strings.Builder, title string, style lipgloss.Style, entries []entry) {
	if len(entries) == 0 {
		return
	}
	sb.WriteString("\n")
	sb.WriteString(helpSectionStyle.Render(title))
	sb.WriteString("\n")
	for _, e := range entries {
		sb.WriteString("  ")
		sb.WriteString(style.Render(e.name))
		if e.help != "" {
			sb.WriteString("  ")
			sb.WriteString(e.help)
		}
		if e.defaultVal != "" {
			sb.WriteString(" ")
			sb.WriteString(helpDefaultStyle.Render("(default: " + e.defaultVal + ")"))
		}
		sb.WriteString("\n")
	}
}

func commandEntries(node *kong.Node) []entry {
	var out []entry
	for _, c := range node.Children {
		if c.Hidden || c.Type != kong.CommandNode {
			continue
		}
		out = append(out, entry{name: c.Name, help: c.Help})
	}
	return out
}

func argumentEntries(node *kong.Node) []entry {
	var out []entry
	for _, a := range node.Positional {
		out = append(out, entry{name: a.Summary(), help: a.Help})
	}
	return out
}

func flagEntries(flags []*kong.Flag, withHelp bool) []entry {
	var out []entry
	if withHelp {
		out = append(out, entry{name: "-h, --help", help: "Show context-sensitive help."})
	}
	for _, f := range flags {
		if f.Name == "help" || f.Hidden {
			continue
		}
		name := "--" + f.Name
		if f.Short != 0 {
			name = fmt.Sprintf("-%c, --%s", f.Short, f.Name)
		}
		if !f.IsBool() {
			ph := f.PlaceHolder
			if ph == "" {
				ph = f.Name
			}
			name += "=" + strings.ToUpper(ph)
		}
		out = append(out, entry{name: name, help: f.Help, defaultVal: f.Default})
	}
	return out
}
