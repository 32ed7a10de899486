// Package render defines the display collaborator the workbench pushes
// results into, and the actions a display can trigger.
package render

import (
	"github.com/ormasoftchile/playrec/pkg/api"
	"github.com/ormasoftchile/playrec/pkg/session"
)

// AffordanceState is the resting or transient state of an interactive control.
type AffordanceState string

const (
	AffordanceIdle      AffordanceState = "idle"
	AffordanceRunning   AffordanceState = "running"
	AffordanceSucceeded AffordanceState = "succeeded"
	AffordanceFailed    AffordanceState = "failed"
	AffordanceRecording AffordanceState = "recording"
)

// Control names.
const (
	ControlRecord         = "record"
	ControlExecuteProject = "execute-project"
)

// ExecuteControl names the execute control of one test case.
func ExecuteControl(testCaseID string) string {
	return "execute:" + testCaseID
}

// Renderer receives everything the operator sees. Implementations must be
// safe for use from multiple goroutines.
type Renderer interface {
	Projects(projects []api.Project, selected string)
	TestCases(projectID string, cases []api.TestCase)
	ClearTestCases()
	// Results receives the bounded result buffer, most recent first.
	Results(results []api.ExecutionResult)
	Summary(projectID string, sum api.ProjectExecutionSummary, favorable bool)
	Affordance(control string, state AffordanceState)
	RecordingInstructions(rec session.Recording)
	Script(testCaseID, content string)
	Notify(message string)
	Error(op string, err error)
}

// Actions is what a display may invoke for a listed test case.
type Actions interface {
	OnExecute(testCaseID string)
	OnDelete(testCaseID string)
	OnView(testCaseID string)
}

// Nop discards everything.
type Nop struct{}

func (Nop) Projects([]api.Project, string)                    {}
func (Nop) TestCases(string, []api.TestCase)                  {}
func (Nop) ClearTestCases()                                   {}
func (Nop) Results([]api.ExecutionResult)                     {}
func (Nop) Summary(string, api.ProjectExecutionSummary, bool) {}
func (Nop) Affordance(string, AffordanceState)                {}
func (Nop) RecordingInstructions(session.Recording)           {}
func (Nop) Script(string, string)                             {}
func (Nop) Notify(string)                                     {}
func (Nop) Error(string, error)                               {}
