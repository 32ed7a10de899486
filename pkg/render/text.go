package render

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/ormasoftchile/playrec/pkg/api"
	"github.com/ormasoftchile/playrec/pkg/session"
)

// Status glyphs, so meaning survives without color.
const (
	GlyphPassed   = "✓"
	GlyphFailed   = "✗"
	GlyphRunning  = "◉"
	GlyphSelected = "▸"
	GlyphRecord   = "●"
)

var (
	colorGreen  = lipgloss.Color("42")
	colorRed    = lipgloss.Color("196")
	colorYellow = lipgloss.Color("214")
	colorCyan   = lipgloss.Color("51")
	colorDim    = lipgloss.Color("240")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	passStyle    = lipgloss.NewStyle().Foreground(colorGreen)
	failStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorRed)
	warnStyle    = lipgloss.NewStyle().Foreground(colorYellow)
	dimStyle     = lipgloss.NewStyle().Foreground(colorDim)
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(colorRed).PaddingLeft(2)
)

// Text writes line-oriented, lipgloss-styled output. Only the newest
// entry of the result buffer is printed on each update.
type Text struct {
	mu  sync.Mutex
	out io.Writer
	err io.Writer
}

// NewText writes normal output to out and errors to errOut.
func NewText(out, errOut io.Writer) *Text {
	return &Text{out: out, err: errOut}
}

func (t *Text) printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, format, args...)
}

func (t *Text) Projects(projects []api.Project, selected string) {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Projects") + "\n")
	if len(projects) == 0 {
		b.WriteString(dimStyle.Render("  (no projects)") + "\n")
	}
	for _, p := range projects {
		marker := " "
		if p.ID == selected {
			marker = GlyphSelected
		}
		desc := p.Description
		if desc == "" {
			desc = "no description"
		}
		fmt.Fprintf(&b, "%s %s  %s  %s\n", marker, p.Name, dimStyle.Render(p.ID), dimStyle.Render(desc))
	}
	t.printf("%s", b.String())
}

func (t *Text) TestCases(projectID string, cases []api.TestCase) {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Test cases · "+projectID) + "\n")
	if len(cases) == 0 {
		b.WriteString(dimStyle.Render("  (no test cases)") + "\n")
	}
	for _, tc := range cases {
		fmt.Fprintf(&b, "  %s  %s  %s\n", tc.ID,
			dimStyle.Render(tc.RecordedAt.Local().Format("2006-01-02 15:04:05")),
			dimStyle.Render(FormatSize(tc.FileSizeBytes)))
	}
	t.printf("%s", b.String())
}

func (t *Text) ClearTestCases() {}

func (t *Text) Results(results []api.ExecutionResult) {
	if len(results) == 0 {
		return
	}
	t.printf("%s", FormatResult(results[0]))
}

func (t *Text) Summary(projectID string, sum api.ProjectExecutionSummary, favorable bool) {
	var b strings.Builder
	style := passStyle
	if !favorable {
		style = warnStyle
	}
	b.WriteString(style.Render("Project run · "+projectID) + "\n")
	fmt.Fprintf(&b, "  total %d  success %d  failed %d\n", sum.Total, sum.Success, sum.Failed)
	if sum.Message != "" {
		b.WriteString("  " + sum.Message + "\n")
	}
	for _, r := range sum.Results {
		b.WriteString(indent(FormatResult(r), "  "))
	}
	t.printf("%s", b.String())
}

func (t *Text) Affordance(control string, state AffordanceState) {
	if state == AffordanceRunning {
		t.printf("%s\n", dimStyle.Render(GlyphRunning+" "+control+" running..."))
	}
}

func (t *Text) RecordingInstructions(rec session.Recording) {
	t.printf("%s\n%s\n",
		warnStyle.Render(GlyphRecord+" recording "+rec.TestCaseID+" in project "+rec.ProjectID),
		dimStyle.Render("  interact with the opened browser, then stop the recording to save it"))
}

func (t *Text) Script(testCaseID, content string) {
	t.printf("%s\n%s\n", titleStyle.Render("Script · "+testCaseID), content)
}

func (t *Text) Notify(message string) {
	t.printf("%s %s\n", passStyle.Render(GlyphPassed), message)
}

func (t *Text) Error(op string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.err, "%s %s: %v\n", failStyle.Render(GlyphFailed), op, err)
}

// FormatResult renders one execution result with its diagnostic.
func FormatResult(r api.ExecutionResult) string {
	var b strings.Builder
	if r.Status == api.StatusSuccess {
		fmt.Fprintf(&b, "%s %s", passStyle.Render(GlyphPassed), r.TestCaseID)
	} else {
		fmt.Fprintf(&b, "%s %s", failStyle.Render(GlyphFailed), r.TestCaseID)
	}
	if !r.ExecutionTime.IsZero() {
		b.WriteString("  " + dimStyle.Render(r.ExecutionTime.Local().Format("2006-01-02 15:04:05")))
	}
	b.WriteString("\n")
	if r.Status == api.StatusSuccess {
		if r.Message != "" {
			b.WriteString("  " + r.Message + "\n")
		}
		return b.String()
	}
	if d := r.ErrorDetails; d != nil {
		b.WriteString(sectionStyle.Render("type") + "    " + d.Type + "\n")
		b.WriteString(sectionStyle.Render("reason") + "  " + d.Reason + "\n")
		for _, s := range d.Suggestions {
			b.WriteString("    - " + s + "\n")
		}
	} else if r.Message != "" {
		b.WriteString("  " + r.Message + "\n")
	}
	return b.String()
}

// FormatSize renders a byte count in KB with two decimals.
func FormatSize(n int64) string {
	return fmt.Sprintf("%.2f KB", float64(n)/1024)
}

func indent(s, prefix string) string {
	lines := strings.SplitAfter(s, "\n")
	var b strings.Builder
	for _, l := range lines {
		if l == "" {
			continue
		}
		b.WriteString(prefix + l)
	}
	return b.String()
}
