// Package session holds the operator's selection state and the phase of
// the single recording session.
package session

import (
	"errors"
	"fmt"
	"sync"
)

// Phase is the recording-session phase.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseStarting Phase = "starting"
	PhaseActive   Phase = "active"
	PhaseStopping Phase = "stopping"
)

// Valid reports whether p is one of the four named phases.
func (p Phase) Valid() bool {
	switch p {
	case PhaseIdle, PhaseStarting, PhaseActive, PhaseStopping:
		return true
	}
	return false
}

// Recording describes the recording session. Phase != PhaseIdle implies
// both identifiers are set.
type Recording struct {
	ProjectID  string
	TestCaseID string
	Phase      Phase
}

// ValidationError is a missing required input. Nothing was sent to the
// backend and no state changed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ErrNoProject is returned when an operation needs a selected project.
var ErrNoProject = &ValidationError{Field: "project", Message: "select a project first"}

// ErrBusy is returned by BeginRecording while a session exists.
var ErrBusy = errors.New("a recording session is already in progress")

// State is the explicit context object shared by the workbench components.
// The zero value is usable and starts with no selection and PhaseIdle.
type State struct {
	mu         sync.Mutex
	projectID  string
	testCaseID string
	rec        Recording
}

// New returns an empty state.
func New() *State {
	return &State{}
}

// SelectProject makes id the current project and drops the current test
// case. A recording in progress is left alone.
func (s *State) SelectProject(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projectID = id
	s.testCaseID = ""
}

// SelectTestCase records the current test case within the selected project.
func (s *State) SelectTestCase(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.testCaseID = id
}

// ClearProjectIfMatches resets the selection when id is the current
// project. It reports whether the selection was cleared so the caller can
// clear views that depend on it.
func (s *State) ClearProjectIfMatches(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.projectID == "" || s.projectID != id {
		return false
	}
	s.projectID = ""
	s.testCaseID = ""
	return true
}

// CurrentProject returns the selected project id.
func (s *State) CurrentProject() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projectID, s.projectID != ""
}

// RequireProject returns the selected project or ErrNoProject.
func (s *State) RequireProject() (string, error) {
	id, ok := s.CurrentProject()
	if !ok {
		return "", ErrNoProject
	}
	return id, nil
}

// CurrentTestCase returns the selected test case id.
func (s *State) CurrentTestCase() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.testCaseID, s.testCaseID != ""
}

// Phase returns the recording phase.
func (s *State) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phaseLocked()
}

func (s *State) phaseLocked() Phase {
	if s.rec.Phase == "" {
		return PhaseIdle
	}
	return s.rec.Phase
}

// Recording returns a copy of the recording session.
func (s *State) Recording() Recording {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.rec
	r.Phase = s.phaseLocked()
	return r
}

// BeginRecording moves an idle session to PhaseStarting for the given
// identifiers. It fails if a session already exists.
func (s *State) BeginRecording(projectID, testCaseID string) error {
	if projectID == "" {
		return ErrNoProject
	}
	if testCaseID == "" {
		return &ValidationError{Field: "test_case_id", Message: "test case id is required"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phaseLocked() != PhaseIdle {
		return ErrBusy
	}
	s.rec = Recording{ProjectID: projectID, TestCaseID: testCaseID, Phase: PhaseStarting}
	s.testCaseID = testCaseID
	return nil
}

// Transition moves the session from one phase to another only if it is
// currently in from. Both phases must be non-idle.
func (s *State) Transition(from, to Phase) error {
	if !from.Valid() || !to.Valid() || from == PhaseIdle || to == PhaseIdle {
		return fmt.Errorf("invalid transition %s -> %s", from, to)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur := s.phaseLocked(); cur != from {
		return fmt.Errorf("recording is %s, not %s", cur, from)
	}
	s.rec.Phase = to
	return nil
}

// EndRecording destroys the session and returns what it was.
func (s *State) EndRecording() Recording {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.rec
	prev.Phase = s.phaseLocked()
	s.rec = Recording{Phase: PhaseIdle}
	return prev
}
