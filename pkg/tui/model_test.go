package tui

import (
	"context"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ormasoftchile/playrec/pkg/api"
	"github.com/ormasoftchile/playrec/pkg/render"
	"github.com/ormasoftchile/playrec/pkg/session"
)

type fakeWorkbench struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeWorkbench) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeWorkbench) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return ""
	}
	return f.calls[len(f.calls)-1]
}

func (f *fakeWorkbench) OnExecute(id string) { f.record("execute " + id) }
func (f *fakeWorkbench) OnDelete(id string)  { f.record("delete-case " + id) }
func (f *fakeWorkbench) OnView(id string)    { f.record("view " + id) }

func (f *fakeWorkbench) LoadProjects(ctx context.Context) ([]api.Project, error) {
	f.record("load")
	return nil, nil
}

func (f *fakeWorkbench) SelectProject(ctx context.Context, id string) ([]api.TestCase, error) {
	f.record("select " + id)
	return nil, nil
}

func (f *fakeWorkbench) CreateProject(ctx context.Context, id, name, description string) error {
	f.record("create " + id + "|" + name + "|" + description)
	return nil
}

func (f *fakeWorkbench) DeleteProject(ctx context.Context, id string) error {
	f.record("delete-project " + id)
	return nil
}

func (f *fakeWorkbench) StartRecording(ctx context.Context, url, id string) error {
	f.record("start " + url + " " + id)
	return nil
}

func (f *fakeWorkbench) StopRecording(ctx context.Context) error {
	f.record("stop")
	return nil
}

func (f *fakeWorkbench) ExecuteProject(ctx context.Context) (api.ProjectExecutionSummary, bool, error) {
	f.record("execute-project")
	return api.ProjectExecutionSummary{}, true, nil
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	tab   = tea.KeyMsg{Type: tea.KeyTab}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
)

func newTestModel(t *testing.T) (Model, *fakeWorkbench) {
	t.Helper()
	wb := &fakeWorkbench{}
	sink := NewSink()
	t.Cleanup(sink.Close)
	return NewModel(context.Background(), wb, sink), wb
}

// press sends msg and runs the resulting command, if any.
func press(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	if cmd != nil {
		cmd()
	}
	return next.(Model)
}

func loaded(t *testing.T) (Model, *fakeWorkbench) {
	m, wb := newTestModel(t)
	next, _ := m.Update(projectsMsg{projects: []api.Project{{ID: "shop", Name: "Shop"}, {ID: "blog", Name: "Blog"}}})
	next, _ = next.(Model).Update(casesMsg{projectID: "shop", cases: []api.TestCase{{ID: "login"}, {ID: "checkout"}}})
	return next.(Model), wb
}

func TestModel_SelectProject(t *testing.T) {
	m, wb := newTestModel(t)
	next, _ := m.Update(projectsMsg{projects: []api.Project{{ID: "shop", Name: "Shop"}, {ID: "blog", Name: "Blog"}}})
	m = next.(Model)

	m = press(t, m, runes("j"))
	m = press(t, m, enter)
	if got := wb.last(); got != "select blog" {
		t.Errorf("last call = %q, want select blog", got)
	}
	if !strings.Contains(m.View(), "Blog (blog)") {
		t.Error("view should list projects")
	}
}

func TestModel_CasesShownForSelectedProject(t *testing.T) {
	m, _ := loaded(t)
	if m.current != "shop" {
		t.Errorf("current = %q, want shop", m.current)
	}
	view := m.View()
	for _, want := range []string{"login", "checkout", "project shop"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestModel_ExecuteUsesActions(t *testing.T) {
	m, wb := loaded(t)
	m = press(t, m, tab)
	m = press(t, m, runes("j"))
	m = press(t, m, runes("x"))
	if got := wb.last(); got != "execute checkout" {
		t.Errorf("last call = %q, want execute checkout", got)
	}

	// A running control refuses another execute.
	next, _ := m.Update(affordanceMsg{control: render.ExecuteControl("checkout"), state: render.AffordanceRunning})
	m = next.(Model)
	before := len(wb.calls)
	_, cmd := m.Update(runes("x"))
	if cmd != nil {
		t.Error("execute while running should not issue a command")
	}
	if len(wb.calls) != before {
		t.Errorf("calls = %v", wb.calls)
	}
}

func TestModel_ExecuteProject(t *testing.T) {
	m, wb := loaded(t)
	m = press(t, m, runes("X"))
	if got := wb.last(); got != "execute-project" {
		t.Errorf("last call = %q, want execute-project", got)
	}

	next, _ := m.Update(summaryMsg{projectID: "shop", sum: api.ProjectExecutionSummary{Total: 2, Success: 1, Failed: 1}, favorable: false})
	if v := next.(Model).View(); !strings.Contains(v, "1 failed") {
		t.Errorf("summary missing from view:\n%s", v)
	}
}

func TestModel_RecordFlow(t *testing.T) {
	m, wb := newTestModel(t)
	m = press(t, m, runes("r"))
	if m.overlay != overlayNone || !strings.Contains(m.errText, "project") {
		t.Fatalf("record without project: overlay = %v err = %q", m.overlay, m.errText)
	}

	m, wb = loaded(t)
	m = press(t, m, runes("r"))
	if m.overlay != overlayForm {
		t.Fatalf("overlay = %v, want form", m.overlay)
	}
	m = press(t, m, runes("https://example.com"))
	m = press(t, m, tab)
	m = press(t, m, runes("signup"))
	m = press(t, m, enter)
	if got := wb.last(); got != "start https://example.com signup" {
		t.Errorf("last call = %q", got)
	}
	if m.overlay != overlayNone {
		t.Errorf("overlay = %v, want none", m.overlay)
	}

	next, _ := m.Update(instructionsMsg{rec: session.Recording{ProjectID: "shop", TestCaseID: "signup", Phase: session.PhaseActive}})
	next, _ = next.(Model).Update(affordanceMsg{control: render.ControlRecord, state: render.AffordanceRecording})
	m = next.(Model)
	if !strings.Contains(m.View(), "REC signup") {
		t.Error("view should show the recording badge")
	}

	m = press(t, m, runes("r"))
	if got := wb.last(); got != "stop" {
		t.Errorf("last call = %q, want stop", got)
	}
	next, _ = m.Update(affordanceMsg{control: render.ControlRecord, state: render.AffordanceIdle})
	if next.(Model).recording != nil {
		t.Error("recording should clear when the control returns to idle")
	}
}

func TestModel_CreateProjectForm(t *testing.T) {
	m, wb := newTestModel(t)
	m = press(t, m, runes("n"))
	m = press(t, m, runes("news"))
	m = press(t, m, tab)
	m = press(t, m, runes("News"))
	m = press(t, m, enter)
	if got := wb.last(); got != "create news|News|" {
		t.Errorf("last call = %q", got)
	}
}

func TestModel_DeleteNeedsConfirmation(t *testing.T) {
	m, wb := loaded(t)

	m = press(t, m, runes("d"))
	if m.overlay != overlayConfirm {
		t.Fatalf("overlay = %v, want confirm", m.overlay)
	}
	m = press(t, m, esc)
	if m.overlay != overlayNone || len(wb.calls) != 0 {
		t.Fatalf("cancel: overlay = %v calls = %v", m.overlay, wb.calls)
	}

	m = press(t, m, runes("d"))
	m = press(t, m, runes("y"))
	if got := wb.last(); got != "delete-project shop" {
		t.Errorf("last call = %q, want delete-project shop", got)
	}

	m = press(t, m, tab)
	m = press(t, m, runes("d"))
	m = press(t, m, runes("y"))
	if got := wb.last(); got != "delete-case login" {
		t.Errorf("last call = %q, want delete-case login", got)
	}
}

func TestModel_ClearTestCases(t *testing.T) {
	m, _ := loaded(t)
	next, _ := m.Update(clearCasesMsg{})
	m = next.(Model)
	if m.current != "" || len(m.cases) != 0 {
		t.Errorf("current = %q cases = %v", m.current, m.cases)
	}
	if !strings.Contains(m.View(), "select a project") {
		t.Error("view should ask for a project")
	}
}

func TestModel_ScriptOverlay(t *testing.T) {
	m, wb := loaded(t)
	m = press(t, m, tab)
	m = press(t, m, enter)
	if got := wb.last(); got != "view login" {
		t.Errorf("last call = %q, want view login", got)
	}

	next, _ := m.Update(scriptMsg{testCaseID: "login", content: "page.goto('https://example.com')"})
	m = next.(Model)
	if m.overlay != overlayScript {
		t.Fatalf("overlay = %v, want script", m.overlay)
	}
	m = press(t, m, esc)
	if m.overlay != overlayNone {
		t.Errorf("overlay = %v, want none", m.overlay)
	}
}

func TestModel_ResultsAndErrors(t *testing.T) {
	m, _ := loaded(t)
	results := []api.ExecutionResult{
		{TestCaseID: "checkout", Status: api.StatusFailure, ErrorDetails: &api.Diagnostic{Type: "TimeoutError", Reason: "slow"}},
		{TestCaseID: "login", Status: api.StatusSuccess},
	}
	next, cmd := m.Update(resultsMsg{results: results})
	if cmd == nil {
		t.Error("sink messages should re-arm the listener")
	}
	next, _ = next.(Model).Update(errorMsg{op: "execute test case", err: session.ErrNoProject})
	view := next.(Model).View()
	for _, want := range []string{"TimeoutError", "login", "execute test case"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestSink_DeliversAndCloses(t *testing.T) {
	s := NewSink()
	s.Projects([]api.Project{{ID: "shop"}}, "shop")
	msg, ok := s.next().(projectsMsg)
	if !ok || msg.selected != "shop" || len(msg.projects) != 1 {
		t.Errorf("next = %#v", msg)
	}

	s.Close()
	if _, ok := s.next().(sinkClosedMsg); !ok {
		t.Error("closed sink should report sinkClosedMsg")
	}
	s.Notify("dropped") // must not block after Close
}

func TestTruncate(t *testing.T) {
	if got := truncate("登录流程测试用例", 9); got != "登录流程…" {
		t.Errorf("truncate = %q, want 登录流程…", got)
	}
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate = %q, want short", got)
	}
}
