package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/ormasoftchile/playrec/pkg/api"
	"github.com/ormasoftchile/playrec/pkg/render"
	"github.com/ormasoftchile/playrec/pkg/session"
)

// Workbench is what the TUI drives. *workbench.Workbench implements it.
type Workbench interface {
	render.Actions

	LoadProjects(ctx context.Context) ([]api.Project, error)
	SelectProject(ctx context.Context, projectID string) ([]api.TestCase, error)
	CreateProject(ctx context.Context, id, name, description string) error
	DeleteProject(ctx context.Context, projectID string) error
	StartRecording(ctx context.Context, targetURL, testCaseID string) error
	StopRecording(ctx context.Context) error
	ExecuteProject(ctx context.Context) (api.ProjectExecutionSummary, bool, error)
}

type pane int

const (
	paneProjects pane = iota
	paneCases
)

type overlayKind int

const (
	overlayNone overlayKind = iota
	overlayForm
	overlayConfirm
	overlayScript
)

// Model is the top-level Bubble Tea model.
type Model struct {
	wb   Workbench
	sink *Sink
	ctx  context.Context

	projects   []api.Project
	projCursor int
	current    string // selected project

	cases      []api.TestCase
	caseCursor int

	results   []api.ExecutionResult
	summary   *summaryMsg
	states    map[string]render.AffordanceState
	recording *session.Recording

	notice  string
	errText string

	focus   pane
	overlay overlayKind
	form    form
	confirm confirmPrompt
	script  viewport.Model
	title   string

	spinner spinner.Model
	width   int
	height  int
}

// confirmPrompt is a yes/no question guarding a destructive action.
type confirmPrompt struct {
	question string
	action   tea.Cmd
}

// NewModel creates the model. Updates pushed into sink are applied as they
// arrive.
func NewModel(ctx context.Context, wb Workbench, sink *Sink) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle
	return Model{
		wb:      wb,
		sink:    sink,
		ctx:     ctx,
		states:  make(map[string]render.AffordanceState),
		spinner: sp,
		width:   100,
		height:  30,
	}
}

// Run starts the TUI and blocks until the operator quits.
func Run(ctx context.Context, wb Workbench, sink *Sink) error {
	defer sink.Close()
	p := tea.NewProgram(NewModel(ctx, wb, sink), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// Init starts the spinner, the update listener and the first project load.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.waitForUpdate(),
		m.run(func(ctx context.Context) { _, _ = m.wb.LoadProjects(ctx) }),
	)
}

// waitForUpdate returns a command that waits for the next sink message.
func (m Model) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		return m.sink.next()
	}
}

// run wraps a workbench call as a command. Outcomes come back through the
// sink, so the command itself yields no message.
func (m Model) run(f func(ctx context.Context)) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		f(ctx)
		return nil
	}
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.script.Width = msg.Width - 8
		m.script.Height = msg.Height - 8
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case sinkClosedMsg:
		return m, nil
	}

	if m.apply(msg) {
		return m, m.waitForUpdate()
	}
	return m, nil
}

// apply folds a sink message into the model. It reports whether msg came
// from the sink.
func (m *Model) apply(msg tea.Msg) bool {
	switch msg := msg.(type) {
	case projectsMsg:
		m.projects = msg.projects
		m.current = msg.selected
		m.projCursor = clamp(m.projCursor, len(m.projects))

	case casesMsg:
		m.current = msg.projectID
		m.cases = msg.cases
		m.caseCursor = clamp(m.caseCursor, len(m.cases))

	case clearCasesMsg:
		m.current = ""
		m.cases = nil
		m.caseCursor = 0
		m.summary = nil

	case resultsMsg:
		m.results = msg.results

	case summaryMsg:
		s := msg
		m.summary = &s

	case affordanceMsg:
		m.states[msg.control] = msg.state
		if msg.control == render.ControlRecord && msg.state == render.AffordanceIdle {
			m.recording = nil
		}

	case instructionsMsg:
		rec := msg.rec
		m.recording = &rec
		m.notice = fmt.Sprintf("recording %s: interact with the opened browser, press r here to stop and save", rec.TestCaseID)
		m.errText = ""

	case scriptMsg:
		m.title = msg.testCaseID
		w, h := m.width-8, m.height-8
		if w < 20 {
			w = 20
		}
		if h < 5 {
			h = 5
		}
		m.script = viewport.New(w, h)
		m.script.SetContent(renderScript(msg.content, w))
		m.overlay = overlayScript

	case noticeMsg:
		m.notice = msg.text
		m.errText = ""

	case errorMsg:
		m.errText = fmt.Sprintf("%s: %v", msg.op, msg.err)

	default:
		return false
	}
	return true
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.overlay {
	case overlayForm:
		return m.handleFormKey(msg)
	case overlayConfirm:
		switch {
		case key.Matches(msg, keys.Confirm):
			action := m.confirm.action
			m.overlay = overlayNone
			m.confirm = confirmPrompt{}
			return m, action
		case key.Matches(msg, keys.Cancel):
			m.overlay = overlayNone
			m.confirm = confirmPrompt{}
		}
		return m, nil
	case overlayScript:
		if key.Matches(msg, keys.Cancel) || key.Matches(msg, keys.Quit) {
			m.overlay = overlayNone
			return m, nil
		}
		var cmd tea.Cmd
		m.script, cmd = m.script.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.Focus):
		if m.focus == paneProjects {
			m.focus = paneCases
		} else {
			m.focus = paneProjects
		}

	case key.Matches(msg, keys.Up):
		if m.focus == paneProjects && m.projCursor > 0 {
			m.projCursor--
		} else if m.focus == paneCases && m.caseCursor > 0 {
			m.caseCursor--
		}

	case key.Matches(msg, keys.Down):
		if m.focus == paneProjects && m.projCursor < len(m.projects)-1 {
			m.projCursor++
		} else if m.focus == paneCases && m.caseCursor < len(m.cases)-1 {
			m.caseCursor++
		}

	case key.Matches(msg, keys.Open):
		if m.focus == paneProjects {
			if p, ok := m.cursorProject(); ok {
				m.caseCursor = 0
				m.summary = nil
				return m, m.run(func(ctx context.Context) { _, _ = m.wb.SelectProject(ctx, p.ID) })
			}
		} else if tc, ok := m.cursorCase(); ok {
			return m, m.run(func(context.Context) { m.wb.OnView(tc.ID) })
		}

	case key.Matches(msg, keys.Execute):
		if tc, ok := m.cursorCase(); ok {
			if m.busy(tc.ID) {
				return m, nil
			}
			return m, m.run(func(context.Context) { m.wb.OnExecute(tc.ID) })
		}

	case key.Matches(msg, keys.ExecAll):
		if m.states[render.ControlExecuteProject] == render.AffordanceRunning {
			return m, nil
		}
		return m, m.run(func(ctx context.Context) { _, _, _ = m.wb.ExecuteProject(ctx) })

	case key.Matches(msg, keys.Record):
		switch m.states[render.ControlRecord] {
		case render.AffordanceRecording:
			return m, m.run(func(ctx context.Context) { _ = m.wb.StopRecording(ctx) })
		case render.AffordanceRunning:
			return m, nil
		}
		if m.current == "" {
			m.errText = "record: " + session.ErrNoProject.Error()
			return m, nil
		}
		m.form = newRecordForm()
		m.overlay = overlayForm
		return m, m.form.focusCmd()

	case key.Matches(msg, keys.New):
		m.form = newProjectForm()
		m.overlay = overlayForm
		return m, m.form.focusCmd()

	case key.Matches(msg, keys.Delete):
		if m.focus == paneProjects {
			if p, ok := m.cursorProject(); ok {
				id := p.ID
				m.confirm = confirmPrompt{
					question: fmt.Sprintf("Delete project %q and all of its test cases? This cannot be undone.", p.Name),
					action:   m.run(func(ctx context.Context) { _ = m.wb.DeleteProject(ctx, id) }),
				}
				m.overlay = overlayConfirm
			}
		} else if tc, ok := m.cursorCase(); ok {
			id := tc.ID
			m.confirm = confirmPrompt{
				question: fmt.Sprintf("Delete test case %q?", id),
				action:   m.run(func(context.Context) { m.wb.OnDelete(id) }),
			}
			m.overlay = overlayConfirm
		}

	case key.Matches(msg, keys.Reload):
		return m, m.run(func(ctx context.Context) { _, _ = m.wb.LoadProjects(ctx) })
	}
	return m, nil
}

func (m Model) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.overlay = overlayNone
		return m, nil
	case "enter":
		values := m.form.values()
		m.overlay = overlayNone
		switch m.form.kind {
		case formRecord:
			return m, m.run(func(ctx context.Context) { _ = m.wb.StartRecording(ctx, values[0], values[1]) })
		case formProject:
			return m, m.run(func(ctx context.Context) { _ = m.wb.CreateProject(ctx, values[0], values[1], values[2]) })
		}
		return m, nil
	}
	if key.Matches(msg, keys.NextItem) {
		return m, m.form.cycle(msg.String() == "shift+tab")
	}
	var cmd tea.Cmd
	m.form, cmd = m.form.update(msg)
	return m, cmd
}

func (m Model) cursorProject() (api.Project, bool) {
	if m.projCursor < 0 || m.projCursor >= len(m.projects) {
		return api.Project{}, false
	}
	return m.projects[m.projCursor], true
}

func (m Model) cursorCase() (api.TestCase, bool) {
	if m.caseCursor < 0 || m.caseCursor >= len(m.cases) {
		return api.TestCase{}, false
	}
	return m.cases[m.caseCursor], true
}

// busy reports whether a test case control has not returned to rest.
func (m Model) busy(testCaseID string) bool {
	s := m.states[render.ExecuteControl(testCaseID)]
	return s != "" && s != render.AffordanceIdle
}

func clamp(i, n int) int {
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

// --- View ---

// View implements tea.Model.
func (m Model) View() string {
	var body string
	switch m.overlay {
	case overlayForm:
		body = overlayStyle.Render(m.form.view())
	case overlayConfirm:
		body = overlayStyle.Render(m.confirm.question + "\n\n" + keyDescStyle.Render("y to confirm, n to cancel"))
	case overlayScript:
		body = overlayStyle.Render(panelTitle.Render("script "+m.title) + "\n" + m.script.View())
	}
	if body != "" {
		return lipgloss.JoinVertical(lipgloss.Left,
			m.headerView(),
			lipgloss.Place(m.width, m.height-4, lipgloss.Center, lipgloss.Center, body),
			" "+keyBarText(m.overlay, m.recording != nil),
		)
	}

	colW := (m.width - 6) / 2
	if colW < 20 {
		colW = 20
	}
	lists := lipgloss.JoinHorizontal(lipgloss.Top,
		m.panel("projects", m.projectLines(colW), colW, m.focus == paneProjects),
		m.panel("test cases", m.caseLines(colW), colW, m.focus == paneCases),
	)

	parts := []string{m.headerView(), lists}
	if s := m.summaryView(); s != "" {
		parts = append(parts, s)
	}
	parts = append(parts, m.resultsView())
	if m.errText != "" {
		parts = append(parts, " "+errorStyle.Render(GlyphFailed+" "+m.errText))
	} else if m.notice != "" {
		parts = append(parts, " "+noticeStyle.Render(m.notice))
	}
	parts = append(parts, " "+keyBarText(overlayNone, m.recording != nil))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) headerView() string {
	h := headerStyle.Render("playrec")
	if m.current != "" {
		h += keyDescStyle.Render("project ") + itemCurrent.Render(m.current)
	}
	if m.recording != nil {
		h += "  " + recordingBadgeStyle.Render(GlyphRecording+" REC "+m.recording.TestCaseID)
	}
	return h
}

func (m Model) panel(title string, lines []string, width int, focused bool) string {
	style := panelBorder
	if focused {
		style = panelFocused
	}
	content := panelTitle.Render(title) + "\n" + strings.Join(lines, "\n")
	return style.Width(width).Render(content)
}

func (m Model) projectLines(width int) []string {
	if len(m.projects) == 0 {
		return []string{itemDim.Render("no projects")}
	}
	lines := make([]string, 0, len(m.projects))
	for i, p := range m.projects {
		marker := "  "
		if i == m.projCursor {
			marker = GlyphCurrent + " "
		}
		label := truncate(fmt.Sprintf("%s (%s)", p.Name, p.ID), width-4)
		if p.ID == m.current {
			lines = append(lines, itemCurrent.Render(marker+label))
		} else {
			lines = append(lines, itemNormal.Render(marker+label))
		}
	}
	return lines
}

func (m Model) caseLines(width int) []string {
	if m.current == "" {
		return []string{itemDim.Render("select a project")}
	}
	if len(m.cases) == 0 {
		return []string{itemDim.Render("no test cases")}
	}
	lines := make([]string, 0, len(m.cases))
	for i, tc := range m.cases {
		marker := "  "
		if i == m.caseCursor {
			marker = GlyphCurrent + " "
		}
		meta := render.FormatSize(tc.FileSizeBytes)
		if !tc.RecordedAt.IsZero() {
			meta = tc.RecordedAt.Local().Format("2006-01-02 15:04") + "  " + meta
		}
		name := truncate(tc.ID, width-runewidth.StringWidth(meta)-8)
		lines = append(lines, marker+m.caseGlyph(tc.ID)+" "+itemNormal.Render(name)+"  "+itemDim.Render(meta))
	}
	return lines
}

func (m Model) caseGlyph(testCaseID string) string {
	switch m.states[render.ExecuteControl(testCaseID)] {
	case render.AffordanceRunning:
		return m.spinner.View()
	case render.AffordanceSucceeded:
		return passedStyle.Render(GlyphPassed)
	case render.AffordanceFailed:
		return failedStyle.Render(GlyphFailed)
	}
	return itemDim.Render(GlyphIdle)
}

func (m Model) summaryView() string {
	if m.states[render.ControlExecuteProject] == render.AffordanceRunning {
		return " " + runningStyle.Render(m.spinner.View()+" executing project")
	}
	if m.summary == nil {
		return ""
	}
	s := m.summary.sum
	line := fmt.Sprintf("%s: %d total, %d passed, %d failed", m.summary.projectID, s.Total, s.Success, s.Failed)
	if m.summary.favorable {
		return " " + passedStyle.Render(GlyphPassed+" "+line)
	}
	return " " + failedStyle.Render(GlyphFailed+" "+line)
}

func (m Model) resultsView() string {
	if len(m.results) == 0 {
		return " " + itemDim.Render("no executions yet")
	}
	var b strings.Builder
	b.WriteString(" " + labelStyle.Render("results") + "\n")
	b.WriteString(indent(render.FormatResult(m.results[0]), " "))
	for _, r := range m.results[1:] {
		glyph := passedStyle.Render(GlyphPassed)
		if r.Status != api.StatusSuccess {
			glyph = failedStyle.Render(GlyphFailed)
		}
		line := r.TestCaseID
		if !r.ExecutionTime.IsZero() {
			line += "  " + r.ExecutionTime.Local().Format("15:04:05")
		}
		b.WriteString(" " + glyph + " " + truncate(line, m.width-6) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// truncate shortens s to width display columns.
func truncate(s string, width int) string {
	if width <= 1 {
		width = 1
	}
	return runewidth.Truncate(s, width, "…")
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n") + "\n"
}
