package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ormasoftchile/playrec/pkg/api"
	"github.com/ormasoftchile/playrec/pkg/render"
	"github.com/ormasoftchile/playrec/pkg/session"
)

// --- Tea messages pushed by the workbench ---

type projectsMsg struct {
	projects []api.Project
	selected string
}

type casesMsg struct {
	projectID string
	cases     []api.TestCase
}

type clearCasesMsg struct{}

type resultsMsg struct{ results []api.ExecutionResult }

type summaryMsg struct {
	projectID string
	sum       api.ProjectExecutionSummary
	favorable bool
}

type affordanceMsg struct {
	control string
	state   render.AffordanceState
}

type instructionsMsg struct{ rec session.Recording }

type scriptMsg struct {
	testCaseID string
	content    string
}

type noticeMsg struct{ text string }

type errorMsg struct {
	op  string
	err error
}

// sinkClosedMsg signals that no more updates will arrive.
type sinkClosedMsg struct{}

// Sink is a render.Renderer that forwards every update to the TUI as a
// tea.Msg. Sends block while the buffer is full and are dropped after Close.
type Sink struct {
	events chan tea.Msg
	done   chan struct{}
	once   sync.Once
}

var _ render.Renderer = (*Sink)(nil)

// NewSink creates a sink buffering up to 64 updates.
func NewSink() *Sink {
	return &Sink{
		events: make(chan tea.Msg, 64),
		done:   make(chan struct{}),
	}
}

// Close stops delivery.
func (s *Sink) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *Sink) send(msg tea.Msg) {
	select {
	case <-s.done:
	case s.events <- msg:
	}
}

// next waits for the next update.
func (s *Sink) next() tea.Msg {
	select {
	case <-s.done:
		return sinkClosedMsg{}
	case msg := <-s.events:
		return msg
	}
}

func (s *Sink) Projects(projects []api.Project, selected string) {
	s.send(projectsMsg{projects: append([]api.Project(nil), projects...), selected: selected})
}

func (s *Sink) TestCases(projectID string, cases []api.TestCase) {
	s.send(casesMsg{projectID: projectID, cases: append([]api.TestCase(nil), cases...)})
}

func (s *Sink) ClearTestCases() { s.send(clearCasesMsg{}) }

func (s *Sink) Results(results []api.ExecutionResult) {
	s.send(resultsMsg{results: append([]api.ExecutionResult(nil), results...)})
}

func (s *Sink) Summary(projectID string, sum api.ProjectExecutionSummary, favorable bool) {
	s.send(summaryMsg{projectID: projectID, sum: sum, favorable: favorable})
}

func (s *Sink) Affordance(control string, state render.AffordanceState) {
	s.send(affordanceMsg{control: control, state: state})
}

func (s *Sink) RecordingInstructions(rec session.Recording) { s.send(instructionsMsg{rec: rec}) }

func (s *Sink) Script(testCaseID, content string) {
	s.send(scriptMsg{testCaseID: testCaseID, content: content})
}

func (s *Sink) Notify(message string) { s.send(noticeMsg{text: message}) }

func (s *Sink) Error(op string, err error) { s.send(errorMsg{op: op, err: err}) }
