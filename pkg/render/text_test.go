package render

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/ormasoftchile/playrec/pkg/api"
)

func TestFormatSize(t *testing.T) {
	if got := FormatSize(2048); got != "2.00 KB" {
		t.Errorf("FormatSize(2048) = %q", got)
	}
	if got := FormatSize(1536); got != "1.50 KB" {
		t.Errorf("FormatSize(1536) = %q", got)
	}
}

func TestFormatResult_FailureShowsDiagnostic(t *testing.T) {
	out := FormatResult(api.ExecutionResult{
		TestCaseID: "login",
		Status:     api.StatusFailure,
		ErrorDetails: &api.Diagnostic{
			Type:        "TimeoutError",
			Reason:      "#submit not visible",
			Suggestions: []string{"check the selector"},
		},
	})
	for _, want := range []string{GlyphFailed, "login", "TimeoutError", "#submit not visible", "- check the selector"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatResult_SuccessShowsMessage(t *testing.T) {
	out := FormatResult(api.ExecutionResult{TestCaseID: "login", Status: api.StatusSuccess, Message: "passed"})
	if !strings.Contains(out, GlyphPassed) || !strings.Contains(out, "passed") {
		t.Errorf("output = %q", out)
	}
}

func TestText_ResultsPrintsNewestOnly(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewText(&out, &errOut)
	r.Results([]api.ExecutionResult{
		{TestCaseID: "newest", Status: api.StatusSuccess},
		{TestCaseID: "older", Status: api.StatusSuccess},
	})
	if !strings.Contains(out.String(), "newest") || strings.Contains(out.String(), "older") {
		t.Errorf("output = %q", out.String())
	}
}

func TestText_ErrorsGoToErrWriter(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewText(&out, &errOut)
	r.Error("start recording", errors.New("boom"))
	if out.Len() != 0 {
		t.Errorf("stdout = %q, want empty", out.String())
	}
	if !strings.Contains(errOut.String(), "start recording: boom") {
		t.Errorf("stderr = %q", errOut.String())
	}
}

func TestText_Projects(t *testing.T) {
	var out bytes.Buffer
	r := NewText(&out, &out)
	r.Projects([]api.Project{{ID: "shop", Name: "Shop"}, {ID: "blog", Name: "Blog", Description: "posts"}}, "blog")
	s := out.String()
	if !strings.Contains(s, "no description") || !strings.Contains(s, GlyphSelected+" Blog") {
		t.Errorf("output = %q", s)
	}
}
