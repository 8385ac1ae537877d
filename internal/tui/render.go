package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/jeanpaul/pal/internal/knowledge"
)

// FactsMarkdown lays the fact store out as a Markdown table.
func FactsMarkdown(facts []knowledge.Fact) string {
	if len(facts) == 0 {
		return "_I don't know anything yet._\n"
	}
	var b strings.Builder
	b.WriteString("| Key | Value | Source |\n|---|---|---|\n")
	for _, f := range facts {
		source := "taught"
		if f.Entry.Kind == knowledge.KindAnswer {
			source = f.Entry.Context
			if source != knowledge.SearchedOnline {
				source = "context"
			}
		}
		fmt.Fprintf(&b, "| %s | %s | %s |\n", cell(f.Key), cell(f.Entry.Text()), cell(source))
	}
	return b.String()
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}

// RenderMarkdown renders Markdown for a terminal of the given width. Plain
// output returns the source untouched, for pipes and tests.
func RenderMarkdown(src string, width int, plain bool) string {
	if plain {
		return src
	}
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return src
	}
	out, err := r.Render(src)
	if err != nil {
		return src
	}
	return out
}

// ColorDiff colours the +/- lines of a unified diff.
func ColorDiff(diff string) string {
	lines := strings.Split(diff, "\n")
	for i, l := range lines {
		switch {
		case strings.HasPrefix(l, "+++"), strings.HasPrefix(l, "---"):
			lines[i] = HelpStyle.Render(l)
		case strings.HasPrefix(l, "+"):
			lines[i] = DiffAddStyle.Render(l)
		case strings.HasPrefix(l, "-"):
			lines[i] = DiffDelStyle.Render(l)
		}
	}
	return strings.Join(lines, "\n")
}
