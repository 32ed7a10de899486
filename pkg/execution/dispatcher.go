// Package execution dispatches test-case and project runs to the executor
// backend and tracks which test cases have a run outstanding.
package execution

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ormasoftchile/playrec/pkg/api"
	"github.com/ormasoftchile/playrec/pkg/diagnostic"
	"github.com/ormasoftchile/playrec/pkg/logging"
	"github.com/ormasoftchile/playrec/pkg/render"
	"github.com/ormasoftchile/playrec/pkg/session"
)

// DefaultResetDelay is how long a finished control shows its outcome
// before returning to rest.
const DefaultResetDelay = 3 * time.Second

// ErrInFlight is returned when the same test case or project already has a
// run outstanding.
var ErrInFlight = errors.New("execution already in progress")

// Backend is the executor service.
type Backend interface {
	Execute(ctx context.Context, projectID, testCaseID string) (api.ExecutionResult, error)
	ExecuteProject(ctx context.Context, projectID string) (api.ProjectExecutionSummary, error)
}

// Timer is the part of *time.Timer the dispatcher uses.
type Timer interface {
	Stop() bool
}

// Config tunes a Dispatcher. Zero values pick defaults.
type Config struct {
	ResetDelay   time.Duration
	HistoryLimit int
	Favorable    *Predicate
	Logger       *zap.Logger

	// AfterFunc schedules control resets; time.AfterFunc when nil.
	AfterFunc func(d time.Duration, f func()) Timer
	// Now stamps results synthesized from transport failures.
	Now func() time.Time
}

// Dispatcher submits executions and normalizes their results.
type Dispatcher struct {
	backend    Backend
	renderer   render.Renderer
	history    *History
	favorable  *Predicate
	resetDelay time.Duration
	afterFunc  func(d time.Duration, f func()) Timer
	now        func() time.Time
	log        *zap.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
	timers   map[string]pendingReset
	closed   bool
}

type pendingReset struct {
	timer   Timer
	control string
}

// New creates a dispatcher.
func New(backend Backend, renderer render.Renderer, cfg Config) *Dispatcher {
	if renderer == nil {
		renderer = render.Nop{}
	}
	d := &Dispatcher{
		backend:    backend,
		renderer:   renderer,
		history:    NewHistory(cfg.HistoryLimit),
		favorable:  cfg.Favorable,
		resetDelay: cfg.ResetDelay,
		afterFunc:  cfg.AfterFunc,
		now:        cfg.Now,
		log:        logging.OrNop(cfg.Logger).Named("execution"),
		inFlight:   make(map[string]struct{}),
		timers:     make(map[string]pendingReset),
	}
	if d.resetDelay <= 0 {
		d.resetDelay = DefaultResetDelay
	}
	if d.afterFunc == nil {
		d.afterFunc = func(delay time.Duration, f func()) Timer {
			return time.AfterFunc(delay, f)
		}
	}
	if d.now == nil {
		d.now = time.Now
	}
	if d.favorable == nil {
		p, err := CompilePredicate(DefaultFavorable)
		if err != nil {
			panic(err) // constant expression
		}
		d.favorable = p
	}
	return d
}

// History returns the bounded result buffer.
func (d *Dispatcher) History() *History {
	return d.history
}

// Busy reports whether testCaseID has a run outstanding or its control has
// not yet returned to rest.
func (d *Dispatcher) Busy(testCaseID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.inFlight[testKey(testCaseID)]
	return ok
}

// ExecuteOne runs one test case. A backend failure still yields a
// completed result with StatusFailure, returned alongside the error.
func (d *Dispatcher) ExecuteOne(ctx context.Context, projectID, testCaseID string) (api.ExecutionResult, error) {
	if projectID == "" {
		d.renderer.Error("execute test case", session.ErrNoProject)
		return api.ExecutionResult{}, session.ErrNoProject
	}
	if testCaseID == "" {
		err := &session.ValidationError{Field: "test_case_id", Message: "test case id is required"}
		d.renderer.Error("execute test case", err)
		return api.ExecutionResult{}, err
	}

	key := testKey(testCaseID)
	if !d.acquire(key) {
		d.log.Debug("execution refused, already running", zap.String("test_case", testCaseID))
		return api.ExecutionResult{}, fmt.Errorf("test case %s: %w", testCaseID, ErrInFlight)
	}

	control := render.ExecuteControl(testCaseID)
	log := d.log.With(zap.String("project", projectID), zap.String("test_case", testCaseID))
	log.Info("executing test case")
	d.renderer.Affordance(control, render.AffordanceRunning)

	res, err := d.backend.Execute(ctx, projectID, testCaseID)
	if err != nil {
		res = d.failedResult(testCaseID, err)
		log.Warn("execution request failed", zap.Error(err))
		d.renderer.Error("execute test case", err)
		d.finish(key, control, render.AffordanceFailed)
		return res, fmt.Errorf("execute %s: %w", testCaseID, err)
	}

	if res.TestCaseID == "" {
		res.TestCaseID = testCaseID
	}
	res = Normalize(res)
	log.Info("execution finished", zap.String("status", res.RawStatus))

	d.history.Push(res)
	d.renderer.Results(d.history.Snapshot())

	outcome := render.AffordanceSucceeded
	if res.Status != api.StatusSuccess {
		outcome = render.AffordanceFailed
	}
	d.finish(key, control, outcome)
	return res, nil
}

// ExecuteProject runs every test case of a project as one backend request.
// Whether the summary is favorable is decided by the predicate over its
// counts, not by the HTTP status.
func (d *Dispatcher) ExecuteProject(ctx context.Context, projectID string) (api.ProjectExecutionSummary, bool, error) {
	if projectID == "" {
		d.renderer.Error("execute project", session.ErrNoProject)
		return api.ProjectExecutionSummary{}, false, session.ErrNoProject
	}
	key := projectKey(projectID)
	if !d.acquire(key) {
		return api.ProjectExecutionSummary{}, false, fmt.Errorf("project %s: %w", projectID, ErrInFlight)
	}
	defer d.release(key)

	log := d.log.With(zap.String("project", projectID))
	log.Info("executing project")
	d.renderer.Affordance(render.ControlExecuteProject, render.AffordanceRunning)
	defer d.renderer.Affordance(render.ControlExecuteProject, render.AffordanceIdle)

	sum, err := d.backend.ExecuteProject(ctx, projectID)
	if err != nil {
		log.Warn("project execution request failed", zap.Error(err))
		d.renderer.Error("execute project", err)
		return api.ProjectExecutionSummary{}, false, fmt.Errorf("execute project %s: %w", projectID, err)
	}

	for i := range sum.Results {
		sum.Results[i] = Normalize(sum.Results[i])
	}
	favorable, err := d.favorable.Eval(sum)
	if err != nil {
		log.Warn("favorable expression failed; using failed == 0", zap.Error(err))
		favorable = sum.Failed == 0
	}
	log.Info("project execution finished",
		zap.Int("total", sum.Total), zap.Int("success", sum.Success), zap.Int("failed", sum.Failed))

	d.renderer.Summary(projectID, sum, favorable)
	return sum, favorable, nil
}

// Close cancels pending control resets, returns their controls to rest
// and releases every test case.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	var controls []string
	for key, p := range d.timers {
		if p.timer.Stop() {
			controls = append(controls, p.control)
		}
		delete(d.timers, key)
		delete(d.inFlight, key)
	}
	d.mu.Unlock()

	for _, control := range controls {
		d.renderer.Affordance(control, render.AffordanceIdle)
	}
}

// Normalize maps the backend status onto Success/Failure and makes sure
// every failure carries a diagnostic.
func Normalize(r api.ExecutionResult) api.ExecutionResult {
	r = api.Normalize(r)
	if r.Status == api.StatusFailure && r.ErrorDetails == nil {
		d := diagnostic.Parse(r)
		r.ErrorDetails = &d
	}
	return r
}

// failedResult builds the result shown when the request itself failed.
func (d *Dispatcher) failedResult(testCaseID string, err error) api.ExecutionResult {
	reason := err.Error()
	if apiErr, ok := api.AsError(err); ok {
		reason = apiErr.Reason
	}
	diag := diagnostic.ParseText(reason)
	if diag.Type == diagnostic.SentinelType {
		diag = api.Diagnostic{
			Type:        "request-failed",
			Reason:      strings.TrimSpace(reason),
			Suggestions: []string{"check that the executor backend is reachable", "retry the execution"},
		}
	}
	return api.ExecutionResult{
		TestCaseID:    testCaseID,
		RawStatus:     "error",
		Status:        api.StatusFailure,
		ExecutionTime: api.Timestamp{Time: d.now()},
		Message:       reason,
		ErrorDetails:  &diag,
	}
}

func (d *Dispatcher) acquire(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, busy := d.inFlight[key]; busy {
		return false
	}
	d.inFlight[key] = struct{}{}
	return true
}

func (d *Dispatcher) release(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.inFlight, key)
}

// finish shows outcome on control and schedules the return to rest. The
// test case stays busy until the reset fires. AfterFunc is invoked with
// d.mu held and must not run f synchronously.
func (d *Dispatcher) finish(key, control string, outcome render.AffordanceState) {
	d.renderer.Affordance(control, outcome)

	d.mu.Lock()
	if d.closed {
		delete(d.inFlight, key)
		d.mu.Unlock()
		d.renderer.Affordance(control, render.AffordanceIdle)
		return
	}
	defer d.mu.Unlock()
	t := d.afterFunc(d.resetDelay, func() {
		d.renderer.Affordance(control, render.AffordanceIdle)
		d.mu.Lock()
		delete(d.timers, key)
		delete(d.inFlight, key)
		d.mu.Unlock()
	})
	d.timers[key] = pendingReset{timer: t, control: control}
}

func testKey(id string) string    { return "case/" + id }
func projectKey(id string) string { return "project/" + id }
