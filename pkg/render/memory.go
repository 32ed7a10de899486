package render

import (
	"fmt"
	"sync"

	"github.com/ormasoftchile/playrec/pkg/api"
	"github.com/ormasoftchile/playrec/pkg/session"
)

// Call is one recorded Renderer invocation.
type Call struct {
	Method string
	Arg    string
}

// Memory records every call it receives along with the last state pushed
// for each view.
type Memory struct {
	mu sync.Mutex

	Calls        []Call
	ProjectList  []api.Project
	Cases        []api.TestCase
	Latest       []api.ExecutionResult
	LastSummary  *api.ProjectExecutionSummary
	States       map[string]AffordanceState
	Instructions []session.Recording
	Scripts      map[string]string
	Notices      []string
	Errors       []error
}

// NewMemory returns an empty recorder.
func NewMemory() *Memory {
	return &Memory{
		States:  make(map[string]AffordanceState),
		Scripts: make(map[string]string),
	}
}

func (m *Memory) record(method, arg string) {
	m.Calls = append(m.Calls, Call{Method: method, Arg: arg})
}

func (m *Memory) Projects(projects []api.Project, selected string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Projects", selected)
	m.ProjectList = append([]api.Project(nil), projects...)
}

func (m *Memory) TestCases(projectID string, cases []api.TestCase) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("TestCases", projectID)
	m.Cases = append([]api.TestCase(nil), cases...)
}

func (m *Memory) ClearTestCases() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ClearTestCases", "")
	m.Cases = nil
}

func (m *Memory) Results(results []api.ExecutionResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Results", fmt.Sprint(len(results)))
	m.Latest = append([]api.ExecutionResult(nil), results...)
}

func (m *Memory) Summary(projectID string, sum api.ProjectExecutionSummary, favorable bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Summary", fmt.Sprintf("%s favorable=%t", projectID, favorable))
	m.LastSummary = &sum
}

func (m *Memory) Affordance(control string, state AffordanceState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Affordance", control+"="+string(state))
	m.States[control] = state
}

func (m *Memory) RecordingInstructions(rec session.Recording) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("RecordingInstructions", rec.TestCaseID)
	m.Instructions = append(m.Instructions, rec)
}

func (m *Memory) Script(testCaseID, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Script", testCaseID)
	m.Scripts[testCaseID] = content
}

func (m *Memory) Notify(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Notify", message)
	m.Notices = append(m.Notices, message)
}

func (m *Memory) Error(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Error", op)
	m.Errors = append(m.Errors, err)
}

// Count returns how many times method was called.
func (m *Memory) Count(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// State returns the last state pushed for control.
func (m *Memory) State(control string) AffordanceState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.States[control]
}

// Snapshot returns a copy of the recorded calls.
func (m *Memory) Snapshot() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.Calls...)
}
