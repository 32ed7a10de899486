// Package api provides a Go client for the recorder/executor backend.
//
// All endpoints live under /api/v1. Non-2xx responses surface as *Error,
// whose Reason is the structured "detail" field when present and the raw
// body otherwise.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is where the backend listens when started locally.
	DefaultBaseURL = "http://127.0.0.1:8000"

	apiPrefix = "/api/v1"
)

// Error is a non-success response from the backend.
type Error struct {
	Op         string
	StatusCode int
	Reason     string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.StatusCode, e.Reason)
}

// AsError unwraps err into an *Error if it is one.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// Client is a lightweight backend client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New creates a client for baseURL. An empty baseURL means DefaultBaseURL.
func New(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// --- projects ---

// ListProjects returns every project known to the backend.
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var projects []Project
	if err := c.doJSON(ctx, "list projects", http.MethodGet, "/project/list", nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// CreateProject creates a project.
func (c *Client) CreateProject(ctx context.Context, req CreateProjectRequest) error {
	return c.doJSON(ctx, "create project", http.MethodPost, "/project/create", req, nil)
}

// DeleteProject deletes a project and, on the backend side, all its test cases.
func (c *Client) DeleteProject(ctx context.Context, projectID string) error {
	return c.doJSON(ctx, "delete project", http.MethodDelete, "/project/delete/"+esc(projectID), nil, nil)
}

// --- test cases ---

// ListTestCases returns the test cases recorded for a project.
func (c *Client) ListTestCases(ctx context.Context, projectID string) ([]TestCase, error) {
	var cases []TestCase
	if err := c.doJSON(ctx, "list test cases", http.MethodGet, "/testcase/list/"+esc(projectID), nil, &cases); err != nil {
		return nil, err
	}
	return cases, nil
}

// DeleteTestCase removes a recorded test case.
func (c *Client) DeleteTestCase(ctx context.Context, projectID, testCaseID string) error {
	path := fmt.Sprintf("/testcase/delete/%s/%s", esc(projectID), esc(testCaseID))
	return c.doJSON(ctx, "delete test case", http.MethodDelete, path, nil, nil)
}

// Script returns the raw recorded script text.
func (c *Client) Script(ctx context.Context, projectID, testCaseID string) (string, error) {
	path := fmt.Sprintf("/testcase/script/%s/%s", esc(projectID), esc(testCaseID))
	body, err := c.do(ctx, "get script", http.MethodGet, path, nil)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Execute runs one test case and returns its result.
func (c *Client) Execute(ctx context.Context, projectID, testCaseID string) (ExecutionResult, error) {
	path := fmt.Sprintf("/testcase/execute/%s/%s", esc(projectID), esc(testCaseID))
	var res ExecutionResult
	if err := c.doJSON(ctx, "execute test case", http.MethodPost, path, nil, &res); err != nil {
		return ExecutionResult{}, err
	}
	if res.TestCaseID == "" {
		res.TestCaseID = testCaseID
	}
	return Normalize(res), nil
}

// ExecuteProject runs every test case of a project on the backend.
func (c *Client) ExecuteProject(ctx context.Context, projectID string) (ProjectExecutionSummary, error) {
	var sum ProjectExecutionSummary
	if err := c.doJSON(ctx, "execute project", http.MethodPost, "/testcase/execute_project/"+esc(projectID), nil, &sum); err != nil {
		return ProjectExecutionSummary{}, err
	}
	for i := range sum.Results {
		sum.Results[i] = Normalize(sum.Results[i])
	}
	return sum, nil
}

// --- recorder ---

// StartRecording asks the recorder to open url for a new test case.
func (c *Client) StartRecording(ctx context.Context, req StartRecordingRequest) (RecorderResponse, error) {
	var resp RecorderResponse
	err := c.doJSON(ctx, "start recording", http.MethodPost, "/recorder/start", req, &resp)
	return resp, err
}

// StopRecording ends the active recording.
func (c *Client) StopRecording(ctx context.Context) (RecorderResponse, error) {
	var resp RecorderResponse
	err := c.doJSON(ctx, "stop recording", http.MethodPost, "/recorder/stop", nil, &resp)
	return resp, err
}

// SaveRecording persists the stopped recording as a test case.
func (c *Client) SaveRecording(ctx context.Context, req SaveRecordingRequest) (RecorderResponse, error) {
	var resp RecorderResponse
	err := c.doJSON(ctx, "save recording", http.MethodPost, "/recorder/save", req, &resp)
	return resp, err
}

// Normalize fills Status from the backend's raw status string.
func Normalize(r ExecutionResult) ExecutionResult {
	if r.Succeeded() {
		r.Status = StatusSuccess
	} else {
		r.Status = StatusFailure
	}
	return r
}

// doJSON sends in (if non-nil) as JSON and decodes the response into out (if non-nil).
func (c *Client) doJSON(ctx context.Context, op, method, path string, in, out any) error {
	var payload []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		payload = b
	}

	body, err := c.do(ctx, op, method, path, payload)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: parse response: %w\nraw: %s", op, err, truncate(body, 300))
	}
	return nil
}

func (c *Client) do(ctx context.Context, op, method, path string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+apiPrefix+path, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Op: op, StatusCode: resp.StatusCode, Reason: failureReason(resp.StatusCode, body)}
	}
	return body, nil
}

// failureReason prefers a structured {"detail": ...} body, then the raw text.
func failureReason(code int, body []byte) string {
	var structured struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &structured); err == nil && len(structured.Detail) > 0 && string(structured.Detail) != "null" {
		var s string
		if err := json.Unmarshal(structured.Detail, &s); err == nil {
			return s
		}
		// FastAPI validation errors carry a list under "detail"
		return string(structured.Detail)
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	return http.StatusText(code)
}

func esc(segment string) string {
	return url.PathEscape(segment)
}

func truncate(b []byte, max int) string {
	s := string(b)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
