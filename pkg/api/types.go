package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// timestampLayouts are tried in order. The backend emits naive
// datetime.isoformat() values, interpreted as local time.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// Timestamp decodes RFC 3339 and zone-less ISO 8601 values.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if s == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("timestamp: unrecognized format %q", s)
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(time.RFC3339Nano))
}

// Project is a top-level grouping owning zero or more test cases.
type Project struct {
	ID          string    `json:"project_id"`
	Name        string    `json:"project_name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   Timestamp `json:"created_at"`
	UpdatedAt   Timestamp `json:"updated_at"`
}

// CreateProjectRequest is the body of POST /project/create.
type CreateProjectRequest struct {
	ProjectID   string `json:"project_id"`
	ProjectName string `json:"project_name"`
	Description string `json:"description"`
}

// TestCase is a persisted recorded script plus metadata.
type TestCase struct {
	ID            string    `json:"test_case_id"`
	ProjectID     string    `json:"project_id,omitempty"`
	RecordedAt    Timestamp `json:"recorded_at"`
	FileSizeBytes int64     `json:"file_size"`
}

// Status is the normalized outcome of an execution.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Diagnostic is the canonical structured failure explanation.
type Diagnostic struct {
	Type        string   `json:"type"`
	Reason      string   `json:"reason"`
	Suggestions []string `json:"suggestions"`
}

// ExecutionResult is produced per execution call.
//
// The backend reports free-form status strings ("success", "error",
// "failed"); RawStatus keeps what it sent and Status is the normalized form,
// emitted as "outcome".
type ExecutionResult struct {
	TestCaseID    string      `json:"test_case_id"`
	RawStatus     string      `json:"status"`
	Status        Status      `json:"outcome,omitempty"`
	ExecutionTime Timestamp   `json:"execution_time"`
	Message       string      `json:"message,omitempty"`
	Output        string      `json:"output,omitempty"`
	ErrorDetails  *Diagnostic `json:"error_details,omitempty"`
}

// Succeeded reports whether the backend declared the run a success.
func (r ExecutionResult) Succeeded() bool {
	return r.RawStatus == string(StatusSuccess)
}

// ProjectExecutionSummary is returned by POST /testcase/execute_project.
type ProjectExecutionSummary struct {
	Status  string            `json:"status,omitempty"`
	Total   int               `json:"total"`
	Success int               `json:"success"`
	Failed  int               `json:"failed"`
	Message string            `json:"message"`
	Results []ExecutionResult `json:"results"`
}

// StartRecordingRequest is the body of POST /recorder/start.
type StartRecordingRequest struct {
	URL        string `json:"url"`
	ProjectID  string `json:"project_id"`
	TestCaseID string `json:"test_case_id"`
}

// SaveRecordingRequest is the body of POST /recorder/save.
type SaveRecordingRequest struct {
	ProjectID  string `json:"project_id"`
	TestCaseID string `json:"test_case_id"`
}

// RecorderResponse is returned by every /recorder endpoint.
type RecorderResponse struct {
	Status  string           `json:"status"`
	Message string           `json:"message"`
	Steps   []map[string]any `json:"steps,omitempty"`
}
