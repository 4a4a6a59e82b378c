package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MrWong99/vadsplit/internal/app"
	"github.com/MrWong99/vadsplit/internal/config"
)

// Render writes results to w in the given format. An empty format means
// table.
func Render(w io.Writer, format config.OutputFormat, results []app.Result) error {
	switch format {
	case config.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if len(results) == 1 {
			return enc.Encode(results[0])
		}
		return enc.Encode(results)
	case config.FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		if len(results) == 1 {
			return enc.Encode(results[0])
		}
		return enc.Encode(results)
	case config.FormatTable, "":
		for i, r := range results {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprint(w, SpanTable(r))
		}
		return nil
	default:
		return fmt.Errorf("cli: unknown output format %q", format)
	}
}

// SpanTable renders one result as a header block followed by an aligned span
// table. Times are printed with two decimals; active rows are highlighted.
func SpanTable(r app.Result) string {
	var sb strings.Builder

	title := r.Path
	if title == "" {
		title = "upload"
	}
	sb.WriteString(TitleStyle.Render(title))
	sb.WriteString("\n")
	rate := fmt.Sprintf("%d Hz", r.SampleRate)
	if r.SourceSampleRate != 0 && r.SourceSampleRate != r.SampleRate {
		rate += fmt.Sprintf(" (source %d Hz)", r.SourceSampleRate)
	}
	fmt.Fprintf(&sb, "%s %s  %s %s  %s %s\n",
		KeyStyle.Render("Rate:"), ValueStyle.Render(rate),
		KeyStyle.Render("Duration:"), ValueStyle.Render(fmt.Sprintf("%.2f s", r.Duration)),
		KeyStyle.Render("Mode:"), ValueStyle.Render(r.Mode),
	)
	if len(r.Spans) == 0 {
		sb.WriteString(InactiveStyle.Render("(no audio)"))
		sb.WriteString("\n")
		return sb.String()
	}

	headers := []string{"#", "Start", "End", "Length", "State"}
	rows := make([][]string, len(r.Spans))
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for i, s := range r.Spans {
		state := "silence"
		if s.Active {
			state = "active"
		}
		rows[i] = []string{
			fmt.Sprint(i + 1),
			fmt.Sprintf("%.2f", s.Start),
			fmt.Sprintf("%.2f", s.End),
			fmt.Sprintf("%.2f", s.Duration()),
			state,
		}
		for j, v := range rows[i] {
			widths[j] = max(widths[j], len(v))
		}
	}

	sb.WriteString("\n")
	for j, h := range headers {
		sb.WriteString(KeyStyle.Render(pad(h, widths[j], j < 4)))
		sb.WriteString("  ")
	}
	sb.WriteString("\n")
	for i, row := range rows {
		style := InactiveStyle
		if r.Spans[i].Active {
			style = ActiveStyle
		}
		for j, v := range row {
			sb.WriteString(style.Render(pad(v, widths[j], j < 4)))
			sb.WriteString("  ")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// pad aligns v to width, right-aligned for numeric columns.
func pad(v string, width int, right bool) string {
	if right {
		return fmt.Sprintf("%*s", width, v)
	}
	return fmt.Sprintf("%-*s", width, v)
}
