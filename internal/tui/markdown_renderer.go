package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/hylla/ctrain/internal/app"
)

// markdownRenderer renders markdown for terminal views and recreates the renderer when wrap width changes.
type markdownRenderer struct {
	width    int
	renderer *glamour.TermRenderer
}

// render converts markdown input into ANSI-styled terminal text with the requested wrap width.
func (r *markdownRenderer) render(markdown string, width int) string {
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return ""
	}

	wrapWidth := width
	if wrapWidth < 24 {
		wrapWidth = 24
	}

	if r.renderer == nil || r.width != wrapWidth {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(wrapWidth),
		)
		if err != nil {
			return markdown
		}
		r.renderer = renderer
		r.width = wrapWidth
	}

	rendered, err := r.renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.TrimRight(rendered, "\n")
}

// creditGuideMarkdown builds the rate, rotational and goal reference from the catalog.
func creditGuideMarkdown(cat app.Catalog) string {
	var b strings.Builder
	b.WriteString("# Credit guide\n\n")
	b.WriteString("| Activity | Rate | Cap |\n|---|---|---|\n")
	for _, def := range cat.Activities {
		fmt.Fprintf(&b, "| %s | %s | %s |\n", def.Name, def.Descriptor, capCell(def.CapNote()))
	}
	if len(cat.Rotational) > 0 {
		b.WriteString("\n## Rotational assignments\n\n| Months | Credits |\n|---|---|\n")
		for _, award := range cat.Rotational {
			fmt.Fprintf(&b, "| %d | %s |\n", award.Months, formatCredits(award.Credits))
		}
	}
	b.WriteString("\n## Goals\n\n")
	for _, q := range cat.Qualifications {
		fmt.Fprintf(&b, "- **%s**: %s credits\n", q.Qualification, formatCredits(q.Goal))
	}
	fmt.Fprintf(&b, "- any other qualification: %s credits\n", formatCredits(cat.DefaultGoal))
	return b.String()
}

func capCell(note string) string {
	if note == "" {
		return "-"
	}
	return note
}

// formatCredits renders credit amounts without trailing zeros.
func formatCredits(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
