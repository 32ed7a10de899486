// Package workbench is the operator-facing controller. It owns the session
// state and routes every user action to the recorder, executor or project
// store, pushing what changed into a render.Renderer.
package workbench

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ormasoftchile/playrec/pkg/api"
	"github.com/ormasoftchile/playrec/pkg/execution"
	"github.com/ormasoftchile/playrec/pkg/logging"
	"github.com/ormasoftchile/playrec/pkg/recording"
	"github.com/ormasoftchile/playrec/pkg/render"
	"github.com/ormasoftchile/playrec/pkg/session"
)

// Backend is every backend endpoint the workbench reaches. *api.Client
// implements it.
type Backend interface {
	recording.Backend
	execution.Backend

	ListProjects(ctx context.Context) ([]api.Project, error)
	CreateProject(ctx context.Context, req api.CreateProjectRequest) error
	DeleteProject(ctx context.Context, projectID string) error
	DeleteTestCase(ctx context.Context, projectID, testCaseID string) error
	Script(ctx context.Context, projectID, testCaseID string) (string, error)
}

// Options configures a Workbench.
type Options struct {
	ResetDelay   time.Duration
	HistoryLimit int
	Favorable    *execution.Predicate
	Logger       *zap.Logger

	// Context is used by the render.Actions callbacks, which carry none.
	Context context.Context
}

// Workbench is safe for concurrent use.
type Workbench struct {
	state      *session.State
	backend    Backend
	renderer   render.Renderer
	recorder   *recording.Controller
	dispatcher *execution.Dispatcher
	ctx        context.Context
	log        *zap.Logger
}

var _ render.Actions = (*Workbench)(nil)

// New wires a workbench around backend. A nil renderer discards output.
func New(backend Backend, renderer render.Renderer, opts Options) *Workbench {
	if renderer == nil {
		renderer = render.Nop{}
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	log := logging.OrNop(opts.Logger)
	state := session.New()
	return &Workbench{
		state:    state,
		backend:  backend,
		renderer: renderer,
		recorder: recording.New(state, backend, renderer, log),
		dispatcher: execution.New(backend, renderer, execution.Config{
			ResetDelay:   opts.ResetDelay,
			HistoryLimit: opts.HistoryLimit,
			Favorable:    opts.Favorable,
			Logger:       log,
		}),
		ctx: ctx,
		log: log.Named("workbench"),
	}
}

// State exposes the session state.
func (w *Workbench) State() *session.State { return w.state }

// Recorder exposes the recording controller.
func (w *Workbench) Recorder() *recording.Controller { return w.recorder }

// Dispatcher exposes the execution dispatcher.
func (w *Workbench) Dispatcher() *execution.Dispatcher { return w.dispatcher }

// Results returns the retained execution results, most recent first.
func (w *Workbench) Results() []api.ExecutionResult {
	return w.dispatcher.History().Snapshot()
}

// Close cancels pending control resets.
func (w *Workbench) Close() {
	w.dispatcher.Close()
}

// LoadProjects fetches and renders the project list.
func (w *Workbench) LoadProjects(ctx context.Context) ([]api.Project, error) {
	projects, err := w.backend.ListProjects(ctx)
	if err != nil {
		return nil, w.fail("load projects", err)
	}
	selected, _ := w.state.CurrentProject()
	w.renderer.Projects(projects, selected)
	return projects, nil
}

// SelectProject makes projectID current and loads its test cases.
func (w *Workbench) SelectProject(ctx context.Context, projectID string) ([]api.TestCase, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, w.fail("select project", session.ErrNoProject)
	}
	w.state.SelectProject(projectID)
	w.log.Debug("project selected", zap.String("project", projectID))
	return w.LoadTestCases(ctx)
}

// CreateProject creates a project and reloads the list.
func (w *Workbench) CreateProject(ctx context.Context, id, name, description string) error {
	req := api.CreateProjectRequest{
		ProjectID:   strings.TrimSpace(id),
		ProjectName: strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
	}
	if req.ProjectID == "" {
		return w.fail("create project", &session.ValidationError{Field: "project_id", Message: "project id is required"})
	}
	if req.ProjectName == "" {
		return w.fail("create project", &session.ValidationError{Field: "project_name", Message: "project name is required"})
	}
	if err := w.backend.CreateProject(ctx, req); err != nil {
		return w.fail("create project", err)
	}
	w.log.Info("project created", zap.String("project", req.ProjectID))
	_, err := w.LoadProjects(ctx)
	return err
}

// DeleteProject deletes a project and all its test cases. The selection is
// cleared only when it was the deleted project.
func (w *Workbench) DeleteProject(ctx context.Context, projectID string) error {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return w.fail("delete project", &session.ValidationError{Field: "project_id", Message: "project id is required"})
	}
	if err := w.backend.DeleteProject(ctx, projectID); err != nil {
		return w.fail("delete project", err)
	}
	w.log.Info("project deleted", zap.String("project", projectID))
	if w.state.ClearProjectIfMatches(projectID) {
		w.renderer.ClearTestCases()
	}
	if _, err := w.LoadProjects(ctx); err != nil {
		return err
	}
	w.renderer.Notify(fmt.Sprintf("project %s deleted", projectID))
	return nil
}

// LoadTestCases fetches and renders the test cases of the selected project.
func (w *Workbench) LoadTestCases(ctx context.Context) ([]api.TestCase, error) {
	projectID, err := w.state.RequireProject()
	if err != nil {
		return nil, w.fail("load test cases", err)
	}
	cases, err := w.backend.ListTestCases(ctx, projectID)
	if err != nil {
		return nil, w.fail("load test cases", err)
	}
	w.renderer.TestCases(projectID, cases)
	return cases, nil
}

// DeleteTestCase deletes one test case of the selected project.
func (w *Workbench) DeleteTestCase(ctx context.Context, testCaseID string) error {
	projectID, err := w.state.RequireProject()
	if err != nil {
		return w.fail("delete test case", err)
	}
	if err := w.backend.DeleteTestCase(ctx, projectID, testCaseID); err != nil {
		return w.fail("delete test case", err)
	}
	w.log.Info("test case deleted", zap.String("project", projectID), zap.String("test_case", testCaseID))
	_, err = w.LoadTestCases(ctx)
	return err
}

// ViewScript fetches and renders the generated script of a test case.
func (w *Workbench) ViewScript(ctx context.Context, testCaseID string) (string, error) {
	projectID, err := w.state.RequireProject()
	if err != nil {
		return "", w.fail("view script", err)
	}
	content, err := w.backend.Script(ctx, projectID, testCaseID)
	if err != nil {
		return "", w.fail("view script", err)
	}
	w.state.SelectTestCase(testCaseID)
	w.renderer.Script(testCaseID, content)
	return content, nil
}

// StartRecording starts a recording session for the selected project.
func (w *Workbench) StartRecording(ctx context.Context, targetURL, testCaseID string) error {
	return w.recorder.Start(ctx, targetURL, testCaseID)
}

// StopRecording stops the active session and saves it.
func (w *Workbench) StopRecording(ctx context.Context) error {
	return w.recorder.Stop(ctx)
}

// RetrySave re-sends the save of a stopped recording whose save failed.
func (w *Workbench) RetrySave(ctx context.Context) error {
	return w.recorder.RetrySave(ctx)
}

// ExecuteTestCase runs one test case of the selected project.
func (w *Workbench) ExecuteTestCase(ctx context.Context, testCaseID string) (api.ExecutionResult, error) {
	projectID, _ := w.state.CurrentProject()
	return w.dispatcher.ExecuteOne(ctx, projectID, testCaseID)
}

// ExecuteProject runs every test case of the selected project.
func (w *Workbench) ExecuteProject(ctx context.Context) (api.ProjectExecutionSummary, bool, error) {
	projectID, _ := w.state.CurrentProject()
	return w.dispatcher.ExecuteProject(ctx, projectID)
}

// OnExecute implements render.Actions.
func (w *Workbench) OnExecute(testCaseID string) {
	_, _ = w.ExecuteTestCase(w.ctx, testCaseID)
}

// OnDelete implements render.Actions.
func (w *Workbench) OnDelete(testCaseID string) {
	_ = w.DeleteTestCase(w.ctx, testCaseID)
}

// OnView implements render.Actions.
func (w *Workbench) OnView(testCaseID string) {
	_, _ = w.ViewScript(w.ctx, testCaseID)
}

// fail logs and reports err, then returns it.
func (w *Workbench) fail(op string, err error) error {
	w.log.Debug("operation failed", zap.String("op", op), zap.Error(err))
	w.renderer.Error(op, err)
	return err
}
