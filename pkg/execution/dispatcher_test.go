package execution

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/ormasoftchile/playrec/pkg/api"
	"github.com/ormasoftchile/playrec/pkg/diagnostic"
	"github.com/ormasoftchile/playrec/pkg/render"
	"github.com/ormasoftchile/playrec/pkg/session"
)

type fakeBackend struct {
	mu       sync.Mutex
	calls    []string
	results  map[string]api.ExecutionResult
	err      error
	summary  api.ProjectExecutionSummary
	blockOn  string
	entered  chan struct{}
	unblock  chan struct{}
	projects int
}

func (f *fakeBackend) Execute(ctx context.Context, projectID, testCaseID string) (api.ExecutionResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, projectID+"/"+testCaseID)
	res, ok := f.results[testCaseID]
	err, block := f.err, f.blockOn == testCaseID
	f.mu.Unlock()

	if block {
		close(f.entered)
		<-f.unblock
	}
	if err != nil {
		return api.ExecutionResult{}, err
	}
	if !ok {
		res = api.ExecutionResult{RawStatus: "success", Message: "ok"}
	}
	return res, nil
}

func (f *fakeBackend) ExecuteProject(ctx context.Context, projectID string) (api.ProjectExecutionSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.projects++
	if f.err != nil {
		return api.ProjectExecutionSummary{}, f.err
	}
	return f.summary, nil
}

func (f *fakeBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// manualTimers holds scheduled resets until fire is called.
type manualTimers struct {
	mu     sync.Mutex
	fns    []func()
	delays []time.Duration
}

type stubTimer struct{ stopped bool }

func (s *stubTimer) Stop() bool {
	was := !s.stopped
	s.stopped = true
	return was
}

func (m *manualTimers) after(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fns = append(m.fns, f)
	m.delays = append(m.delays, d)
	return &stubTimer{}
}

func (m *manualTimers) pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.fns)
}

func (m *manualTimers) fire() {
	m.mu.Lock()
	fns := m.fns
	m.fns = nil
	m.mu.Unlock()
	for _, f := range fns {
		f()
	}
}

func newDispatcher(t *testing.T, be *fakeBackend) (*Dispatcher, *render.Memory, *manualTimers) {
	t.Helper()
	mem := render.NewMemory()
	timers := &manualTimers{}
	d := New(be, mem, Config{AfterFunc: timers.after})
	t.Cleanup(d.Close)
	return d, mem, timers
}

func TestExecuteOne_NoProject(t *testing.T) {
	be := &fakeBackend{}
	d, mem, _ := newDispatcher(t, be)

	_, err := d.ExecuteOne(context.Background(), "", "login")
	var ve *session.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	if !errors.Is(err, session.ErrNoProject) {
		t.Errorf("err = %v, want ErrNoProject", err)
	}
	if be.callCount() != 0 {
		t.Errorf("backend calls = %d, want 0", be.callCount())
	}
	if mem.Count("Error") != 1 {
		t.Errorf("errors reported = %d, want 1", mem.Count("Error"))
	}
}

func TestExecuteOne_EmptyTestCase(t *testing.T) {
	be := &fakeBackend{}
	d, _, _ := newDispatcher(t, be)

	_, err := d.ExecuteOne(context.Background(), "shop", "")
	var ve *session.ValidationError
	if !errors.As(err, &ve) || ve.Field != "test_case_id" {
		t.Fatalf("err = %v, want test_case_id ValidationError", err)
	}
	if be.callCount() != 0 {
		t.Errorf("backend calls = %d, want 0", be.callCount())
	}
}

func TestExecuteOne_SuccessAndReset(t *testing.T) {
	be := &fakeBackend{}
	d, mem, timers := newDispatcher(t, be)

	res, err := d.ExecuteOne(context.Background(), "shop", "login")
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != api.StatusSuccess || res.TestCaseID != "login" {
		t.Errorf("result = %+v", res)
	}
	if res.ErrorDetails != nil {
		t.Errorf("success carries diagnostic %+v", res.ErrorDetails)
	}

	control := render.ExecuteControl("login")
	if s := mem.State(control); s != render.AffordanceSucceeded {
		t.Errorf("affordance = %q, want succeeded", s)
	}
	if !d.Busy("login") {
		t.Error("test case should stay busy until the reset fires")
	}
	if len(timers.delays) != 1 || timers.delays[0] != DefaultResetDelay {
		t.Errorf("reset delays = %v, want [%v]", timers.delays, DefaultResetDelay)
	}

	timers.fire()
	if s := mem.State(control); s != render.AffordanceIdle {
		t.Errorf("affordance after reset = %q, want idle", s)
	}
	if d.Busy("login") {
		t.Error("test case still busy after reset")
	}
	if _, err := d.ExecuteOne(context.Background(), "shop", "login"); err != nil {
		t.Errorf("second run after reset: %v", err)
	}
}

func TestExecuteOne_FailureCarriesDiagnostic(t *testing.T) {
	be := &fakeBackend{results: map[string]api.ExecutionResult{
		"checkout": {
			RawStatus: "error",
			Message:   "错误类型: TimeoutError\n错误原因: element not found\n- wait for the page\n- check the selector",
		},
	}}
	d, mem, _ := newDispatcher(t, be)

	res, err := d.ExecuteOne(context.Background(), "shop", "checkout")
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != api.StatusFailure {
		t.Errorf("status = %q, want failure", res.Status)
	}
	want := &api.Diagnostic{
		Type:        "TimeoutError",
		Reason:      "element not found",
		Suggestions: []string{"wait for the page", "check the selector"},
	}
	if diff := cmp.Diff(want, res.ErrorDetails); diff != "" {
		t.Errorf("diagnostic mismatch (-want +got):\n%s", diff)
	}
	if s := mem.State(render.ExecuteControl("checkout")); s != render.AffordanceFailed {
		t.Errorf("affordance = %q, want failed", s)
	}
	if len(mem.Latest) != 1 || mem.Latest[0].ErrorDetails == nil {
		t.Errorf("rendered results = %+v", mem.Latest)
	}
}

func TestExecuteOne_UnparseableFailureGetsSentinel(t *testing.T) {
	be := &fakeBackend{results: map[string]api.ExecutionResult{
		"x": {RawStatus: "error", Message: ""},
	}}
	d, _, _ := newDispatcher(t, be)

	res, err := d.ExecuteOne(context.Background(), "shop", "x")
	if err != nil {
		t.Fatal(err)
	}
	if res.ErrorDetails == nil || res.ErrorDetails.Type != diagnostic.SentinelType {
		t.Errorf("diagnostic = %+v, want sentinel", res.ErrorDetails)
	}
}

func TestExecuteOne_BackendError(t *testing.T) {
	be := &fakeBackend{err: &api.Error{Op: "execute", StatusCode: 500, Reason: "executor crashed"}}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mem := render.NewMemory()
	timers := &manualTimers{}
	d := New(be, mem, Config{AfterFunc: timers.after, Now: func() time.Time { return now }})
	defer d.Close()

	res, err := d.ExecuteOne(context.Background(), "shop", "login")
	if _, ok := api.AsError(err); !ok {
		t.Fatalf("err = %v, want *api.Error", err)
	}
	if res.Status != api.StatusFailure || res.TestCaseID != "login" {
		t.Errorf("result = %+v", res)
	}
	if !res.ExecutionTime.Equal(now) {
		t.Errorf("execution time = %v, want %v", res.ExecutionTime.Time, now)
	}
	if res.ErrorDetails == nil || res.ErrorDetails.Type != "request-failed" || res.ErrorDetails.Reason != "executor crashed" {
		t.Errorf("diagnostic = %+v", res.ErrorDetails)
	}
	if d.History().Len() != 0 {
		t.Errorf("history len = %d, want 0", d.History().Len())
	}
	if mem.Count("Results") != 0 {
		t.Error("results must not be re-rendered for a failed request")
	}
	if s := mem.State(render.ExecuteControl("login")); s != render.AffordanceFailed {
		t.Errorf("affordance = %q, want failed", s)
	}
	if mem.Count("Error") != 1 {
		t.Errorf("errors = %d, want 1", mem.Count("Error"))
	}
}

func TestExecuteOne_KeepsTenMostRecent(t *testing.T) {
	be := &fakeBackend{}
	d, mem, timers := newDispatcher(t, be)

	for i := 1; i <= 11; i++ {
		if _, err := d.ExecuteOne(context.Background(), "shop", fmt.Sprintf("tc%d", i)); err != nil {
			t.Fatal(err)
		}
	}
	timers.fire()

	var want []string
	for i := 11; i >= 2; i-- {
		want = append(want, fmt.Sprintf("tc%d", i))
	}
	if diff := cmp.Diff(want, ids(mem.Latest)); diff != "" {
		t.Errorf("rendered results mismatch (-want +got):\n%s", diff)
	}
	if mem.Count("Results") != 11 {
		t.Errorf("Results calls = %d, want 11", mem.Count("Results"))
	}
}

func TestExecuteOne_RefusesSameTestCaseInFlight(t *testing.T) {
	defer goleak.VerifyNone(t)

	be := &fakeBackend{
		blockOn: "slow",
		entered: make(chan struct{}),
		unblock: make(chan struct{}),
	}
	d, _, timers := newDispatcher(t, be)

	done := make(chan error, 1)
	go func() {
		_, err := d.ExecuteOne(context.Background(), "shop", "slow")
		done <- err
	}()
	<-be.entered

	if _, err := d.ExecuteOne(context.Background(), "shop", "slow"); !errors.Is(err, ErrInFlight) {
		t.Errorf("duplicate run err = %v, want ErrInFlight", err)
	}
	if _, err := d.ExecuteOne(context.Background(), "shop", "fast"); err != nil {
		t.Errorf("other test case: %v", err)
	}

	close(be.unblock)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if be.callCount() != 2 {
		t.Errorf("backend calls = %d, want 2", be.callCount())
	}

	// Still refused while the outcome is on screen.
	if _, err := d.ExecuteOne(context.Background(), "shop", "slow"); !errors.Is(err, ErrInFlight) {
		t.Errorf("run before reset err = %v, want ErrInFlight", err)
	}
	timers.fire()
	if d.Busy("slow") || d.Busy("fast") {
		t.Error("busy after reset")
	}
}

func TestExecuteOne_RealTimerReset(t *testing.T) {
	defer goleak.VerifyNone(t)

	mem := render.NewMemory()
	d := New(&fakeBackend{}, mem, Config{ResetDelay: 10 * time.Millisecond})
	defer d.Close()

	if _, err := d.ExecuteOne(context.Background(), "shop", "login"); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for d.Busy("login") {
		if time.Now().After(deadline) {
			t.Fatal("reset never fired")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if s := mem.State(render.ExecuteControl("login")); s != render.AffordanceIdle {
		t.Errorf("affordance = %q, want idle", s)
	}
}

func TestClose_ReleasesPendingResets(t *testing.T) {
	be := &fakeBackend{}
	d, mem, _ := newDispatcher(t, be)

	if _, err := d.ExecuteOne(context.Background(), "shop", "login"); err != nil {
		t.Fatal(err)
	}
	d.Close()
	if d.Busy("login") {
		t.Error("Close should release busy test cases")
	}
	if s := mem.State(render.ExecuteControl("login")); s != render.AffordanceIdle {
		t.Errorf("affordance after Close = %q, want idle", s)
	}
}

func TestClose_LaterRunsReturnToIdle(t *testing.T) {
	be := &fakeBackend{}
	d, mem, timers := newDispatcher(t, be)
	d.Close()

	if _, err := d.ExecuteOne(context.Background(), "shop", "login"); err != nil {
		t.Fatalf("run after Close: %v", err)
	}
	if d.Busy("login") {
		t.Error("runs after Close release immediately")
	}
	if n := timers.pending(); n != 0 {
		t.Errorf("resets scheduled after Close = %d, want 0", n)
	}

	control := render.ExecuteControl("login")
	want := []string{
		control + "=" + string(render.AffordanceRunning),
		control + "=" + string(render.AffordanceSucceeded),
		control + "=" + string(render.AffordanceIdle),
	}
	var got []string
	for _, c := range mem.Snapshot() {
		if c.Method == "Affordance" {
			got = append(got, c.Arg)
		}
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("affordance calls mismatch (-want +got):\n%s", diff)
	}
}

func TestExecuteProject_FavorableByFailedCount(t *testing.T) {
	tests := []struct {
		name string
		sum  api.ProjectExecutionSummary
		want bool
	}{
		{
			name: "all passed",
			sum:  api.ProjectExecutionSummary{Status: "success", Total: 2, Success: 2},
			want: true,
		},
		{
			name: "failures despite success status",
			sum:  api.ProjectExecutionSummary{Status: "success", Total: 2, Success: 1, Failed: 1},
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			be := &fakeBackend{summary: tt.sum}
			d, mem, _ := newDispatcher(t, be)

			_, favorable, err := d.ExecuteProject(context.Background(), "shop")
			if err != nil {
				t.Fatal(err)
			}
			if favorable != tt.want {
				t.Errorf("favorable = %v, want %v", favorable, tt.want)
			}
			if mem.LastSummary == nil || mem.LastSummary.Failed != tt.sum.Failed {
				t.Errorf("rendered summary = %+v", mem.LastSummary)
			}
			if s := mem.State(render.ControlExecuteProject); s != render.AffordanceIdle {
				t.Errorf("affordance = %q, want idle", s)
			}
		})
	}
}

func TestExecuteProject_NormalizesResults(t *testing.T) {
	be := &fakeBackend{summary: api.ProjectExecutionSummary{
		Total: 2, Success: 1, Failed: 1,
		Results: []api.ExecutionResult{
			{TestCaseID: "a", RawStatus: "success"},
			{TestCaseID: "b", RawStatus: "error", Message: "错误类型: AssertionError\n错误原因: title mismatch"},
		},
	}}
	d, _, _ := newDispatcher(t, be)

	sum, _, err := d.ExecuteProject(context.Background(), "shop")
	if err != nil {
		t.Fatal(err)
	}
	if sum.Results[0].Status != api.StatusSuccess {
		t.Errorf("results[0].Status = %q, want success", sum.Results[0].Status)
	}
	b := sum.Results[1]
	if b.Status != api.StatusFailure || b.ErrorDetails == nil || b.ErrorDetails.Type != "AssertionError" {
		t.Errorf("results[1] = %+v", b)
	}
}

func TestExecuteProject_CustomPredicate(t *testing.T) {
	p, err := CompilePredicate("failed <= 1")
	if err != nil {
		t.Fatal(err)
	}
	be := &fakeBackend{summary: api.ProjectExecutionSummary{Total: 4, Success: 3, Failed: 1}}
	d := New(be, nil, Config{Favorable: p})
	defer d.Close()

	_, favorable, err := d.ExecuteProject(context.Background(), "shop")
	if err != nil {
		t.Fatal(err)
	}
	if !favorable {
		t.Error("favorable = false, want true")
	}
}

func TestExecuteProject_Errors(t *testing.T) {
	be := &fakeBackend{err: errors.New("connection refused")}
	d, mem, _ := newDispatcher(t, be)

	if _, _, err := d.ExecuteProject(context.Background(), ""); !errors.Is(err, session.ErrNoProject) {
		t.Errorf("no project err = %v, want ErrNoProject", err)
	}
	if be.projects != 0 {
		t.Errorf("backend calls = %d, want 0", be.projects)
	}

	if _, _, err := d.ExecuteProject(context.Background(), "shop"); err == nil {
		t.Error("expected backend error")
	}
	if mem.LastSummary != nil {
		t.Error("no summary should be rendered on failure")
	}
	if s := mem.State(render.ControlExecuteProject); s != render.AffordanceIdle {
		t.Errorf("affordance = %q, want idle", s)
	}

	// The project key is released after failure.
	be.err = nil
	if _, _, err := d.ExecuteProject(context.Background(), "shop"); err != nil {
		t.Errorf("retry: %v", err)
	}
}

func TestNormalize(t *testing.T) {
	preset := &api.Diagnostic{Type: "Preset", Reason: "from server"}
	tests := []struct {
		name     string
		in       api.ExecutionResult
		status   api.Status
		wantType string
	}{
		{name: "success", in: api.ExecutionResult{RawStatus: "success"}, status: api.StatusSuccess},
		{name: "error parsed", in: api.ExecutionResult{RawStatus: "error", Message: "错误类型: X\n错误原因: y"}, status: api.StatusFailure, wantType: "X"},
		{name: "server details kept", in: api.ExecutionResult{RawStatus: "error", ErrorDetails: preset}, status: api.StatusFailure, wantType: "Preset"},
		{name: "unknown status", in: api.ExecutionResult{RawStatus: "weird"}, status: api.StatusFailure, wantType: diagnostic.SentinelType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.in)
			if got.Status != tt.status {
				t.Errorf("Status = %q, want %q", got.Status, tt.status)
			}
			gotType := ""
			if got.ErrorDetails != nil {
				gotType = got.ErrorDetails.Type
			}
			if gotType != tt.wantType {
				t.Errorf("diagnostic type = %q, want %q", gotType, tt.wantType)
			}
		})
	}
}
