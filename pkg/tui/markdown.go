package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// renderScript renders a generated test script as a fenced code block,
// constrained to width. Falls back to the raw script if rendering fails.
func renderScript(script string, width int) string {
	if strings.TrimSpace(script) == "" {
		return script
	}
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return script
	}
	out, err := r.Render("```python\n" + strings.TrimRight(script, "\n") + "\n```\n")
	if err != nil {
		return script
	}
	return strings.TrimRight(out, "\n")
}
