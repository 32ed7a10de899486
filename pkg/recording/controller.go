// Package recording drives the recording session against the recorder
// backend.
//
//	Idle --Start--> Starting --ack--> Active --Stop--> Stopping --ack--> Idle
//	                    |                 ^                |
//	                    +--failure--> Idle +----failure-----+
//
// A successful stop is followed by a save request that persists the
// session as a test case.
package recording

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/ormasoftchile/playrec/pkg/api"
	"github.com/ormasoftchile/playrec/pkg/logging"
	"github.com/ormasoftchile/playrec/pkg/render"
	"github.com/ormasoftchile/playrec/pkg/session"
)

var (
	// ErrSessionBusy is returned by Start unless the session is idle.
	ErrSessionBusy = session.ErrBusy

	// ErrNotRecording is returned by Stop unless the session is active.
	ErrNotRecording = errors.New("no active recording to stop")

	// ErrNoPendingSave is returned by RetrySave when nothing is waiting.
	ErrNoPendingSave = errors.New("no stopped recording is waiting to be saved")
)

// Backend is the recorder service plus the listing used to refresh the
// test-case view after a save.
type Backend interface {
	StartRecording(ctx context.Context, req api.StartRecordingRequest) (api.RecorderResponse, error)
	StopRecording(ctx context.Context) (api.RecorderResponse, error)
	SaveRecording(ctx context.Context, req api.SaveRecordingRequest) (api.RecorderResponse, error)
	ListTestCases(ctx context.Context, projectID string) ([]api.TestCase, error)
}

// Controller owns the recording state machine. Phase lives in the shared
// session.State so other components can observe it.
type Controller struct {
	state    *session.State
	backend  Backend
	renderer render.Renderer
	log      *zap.Logger

	mu      sync.Mutex
	pending *session.Recording // stopped but not saved
}

// New creates a controller. A nil renderer or logger discards output.
func New(state *session.State, backend Backend, renderer render.Renderer, log *zap.Logger) *Controller {
	if renderer == nil {
		renderer = render.Nop{}
	}
	return &Controller{
		state:    state,
		backend:  backend,
		renderer: renderer,
		log:      logging.OrNop(log).Named("recording"),
	}
}

// Phase returns the current phase.
func (c *Controller) Phase() session.Phase {
	return c.state.Phase()
}

// Start opens targetURL in the recorder for a new test case of the
// selected project. Validation failures return a *session.ValidationError
// and leave everything untouched.
func (c *Controller) Start(ctx context.Context, targetURL, testCaseID string) error {
	targetURL = strings.TrimSpace(targetURL)
	testCaseID = strings.TrimSpace(testCaseID)

	projectID, err := c.state.RequireProject()
	if err != nil {
		return c.reject("start", err)
	}
	if targetURL == "" {
		return c.reject("start", &session.ValidationError{Field: "url", Message: "enter a valid URL"})
	}
	if testCaseID == "" {
		return c.reject("start", &session.ValidationError{Field: "test_case_id", Message: "enter a test case id"})
	}

	if err := c.state.BeginRecording(projectID, testCaseID); err != nil {
		return c.reject("start", err)
	}
	c.mu.Lock()
	c.pending = nil
	c.mu.Unlock()

	log := c.log.With(zap.String("project", projectID), zap.String("test_case", testCaseID))
	log.Info("starting recording", zap.String("url", targetURL))
	c.renderer.Affordance(render.ControlRecord, render.AffordanceRunning)

	_, err = c.backend.StartRecording(ctx, api.StartRecordingRequest{
		URL:        targetURL,
		ProjectID:  projectID,
		TestCaseID: testCaseID,
	})
	if err != nil {
		c.state.EndRecording()
		log.Warn("start failed", zap.Error(err))
		c.renderer.Affordance(render.ControlRecord, render.AffordanceIdle)
		c.renderer.Error("start recording", err)
		return fmt.Errorf("start recording: %w", err)
	}

	if err := c.state.Transition(session.PhaseStarting, session.PhaseActive); err != nil {
		return fmt.Errorf("start recording: %w", err)
	}
	log.Info("recording active")
	c.renderer.Affordance(render.ControlRecord, render.AffordanceRecording)
	c.renderer.RecordingInstructions(c.state.Recording())
	return nil
}

// Stop ends the active recording and saves it as a test case. A failed
// stop request leaves the session active so it can be retried. A failed
// save still ends the session; the recording stays available to RetrySave
// until the next Start.
func (c *Controller) Stop(ctx context.Context) error {
	if err := c.state.Transition(session.PhaseActive, session.PhaseStopping); err != nil {
		return c.reject("stop", fmt.Errorf("%w: %v", ErrNotRecording, err))
	}
	rec := c.state.Recording()
	log := c.log.With(zap.String("project", rec.ProjectID), zap.String("test_case", rec.TestCaseID))
	log.Info("stopping recording")
	c.renderer.Affordance(render.ControlRecord, render.AffordanceRunning)

	if _, err := c.backend.StopRecording(ctx); err != nil {
		if terr := c.state.Transition(session.PhaseStopping, session.PhaseActive); terr != nil {
			log.Error("restore active phase", zap.Error(terr))
		}
		log.Warn("stop failed", zap.Error(err))
		c.renderer.Affordance(render.ControlRecord, render.AffordanceRecording)
		c.renderer.Error("stop recording", err)
		return fmt.Errorf("stop recording: %w", err)
	}

	rec = c.state.EndRecording()
	rec.Phase = session.PhaseIdle
	c.renderer.Affordance(render.ControlRecord, render.AffordanceIdle)
	log.Info("recording stopped")

	return c.save(ctx, rec)
}

// Adopt takes over a recording a different process started, so Stop can
// end it here. The browser session itself lives in the recorder backend.
func (c *Controller) Adopt(testCaseID string) error {
	testCaseID = strings.TrimSpace(testCaseID)
	projectID, err := c.state.RequireProject()
	if err != nil {
		return c.reject("adopt", err)
	}
	if testCaseID == "" {
		return c.reject("adopt", &session.ValidationError{Field: "test_case_id", Message: "enter a test case id"})
	}
	if err := c.state.BeginRecording(projectID, testCaseID); err != nil {
		return c.reject("adopt", err)
	}
	c.log.Debug("adopted recording", zap.String("project", projectID), zap.String("test_case", testCaseID))
	return c.state.Transition(session.PhaseStarting, session.PhaseActive)
}

// Save persists an already stopped recording of the selected project.
func (c *Controller) Save(ctx context.Context, testCaseID string) error {
	testCaseID = strings.TrimSpace(testCaseID)
	projectID, err := c.state.RequireProject()
	if err != nil {
		return c.reject("save", err)
	}
	if testCaseID == "" {
		return c.reject("save", &session.ValidationError{Field: "test_case_id", Message: "enter a test case id"})
	}
	return c.save(ctx, session.Recording{ProjectID: projectID, TestCaseID: testCaseID})
}

// Pending returns the stopped recording whose save failed, if any.
func (c *Controller) Pending() (session.Recording, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return session.Recording{}, false
	}
	return *c.pending, true
}

// RetrySave re-issues the save request for a recording whose save failed.
func (c *Controller) RetrySave(ctx context.Context) error {
	rec, ok := c.Pending()
	if !ok {
		return c.reject("save", ErrNoPendingSave)
	}
	return c.save(ctx, rec)
}

func (c *Controller) save(ctx context.Context, rec session.Recording) error {
	log := c.log.With(zap.String("project", rec.ProjectID), zap.String("test_case", rec.TestCaseID))

	_, err := c.backend.SaveRecording(ctx, api.SaveRecordingRequest{
		ProjectID:  rec.ProjectID,
		TestCaseID: rec.TestCaseID,
	})
	if err != nil {
		c.mu.Lock()
		c.pending = &rec
		c.mu.Unlock()
		log.Warn("save failed; recording kept for retry", zap.Error(err))
		c.renderer.Error("save recording", err)
		return fmt.Errorf("save recording: %w", err)
	}

	c.mu.Lock()
	c.pending = nil
	c.mu.Unlock()
	log.Info("recording saved")

	c.refresh(ctx, rec.ProjectID)
	c.renderer.Notify(fmt.Sprintf("recording %s saved", rec.TestCaseID))
	return nil
}

// refresh reloads the test-case list when the project is still on screen.
func (c *Controller) refresh(ctx context.Context, projectID string) {
	if current, _ := c.state.CurrentProject(); current != projectID {
		return
	}
	cases, err := c.backend.ListTestCases(ctx, projectID)
	if err != nil {
		c.log.Warn("refresh test cases", zap.String("project", projectID), zap.Error(err))
		c.renderer.Error("load test cases", err)
		return
	}
	c.renderer.TestCases(projectID, cases)
}

func (c *Controller) reject(op string, err error) error {
	c.log.Debug("rejected", zap.String("op", op), zap.Error(err))
	c.renderer.Error(op+" recording", err)
	return err
}
