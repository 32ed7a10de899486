package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ormasoftchile/playrec/pkg/api"
	"github.com/ormasoftchile/playrec/pkg/diagnostic"
)

// Handlers implements the tools that reach the backend.
type Handlers struct {
	backend Backend
	exec    Executor
}

// HandleProjects implements the playrec/projects tool.
func (h *Handlers) HandleProjects(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projects, err := h.backend.ListProjects(ctx)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return jsonResult(projects, false), nil
}

// HandleCases implements the playrec/cases tool.
func (h *Handlers) HandleCases(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, _ := req.GetArguments()["project"].(string)
	if project == "" {
		return errorResult("project argument is required"), nil
	}
	cases, err := h.backend.ListTestCases(ctx, project)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return jsonResult(cases, false), nil
}

// HandleScript implements the playrec/script tool.
func (h *Handlers) HandleScript(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	project, _ := args["project"].(string)
	testCase, _ := args["test_case"].(string)
	if project == "" || testCase == "" {
		return errorResult("project and test_case arguments are required"), nil
	}
	content, err := h.backend.Script(ctx, project, testCase)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return textResult(content), nil
}

// HandleExecute implements the playrec/execute tool. A failed test case is
// reported as an error result carrying its diagnostic.
func (h *Handlers) HandleExecute(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	project, _ := args["project"].(string)
	testCase, _ := args["test_case"].(string)
	if project == "" || testCase == "" {
		return errorResult("project and test_case arguments are required"), nil
	}

	res, err := h.exec.ExecuteOne(ctx, project, testCase)
	if err != nil && res.TestCaseID == "" {
		return errorResult(err.Error()), nil
	}
	return jsonResult(res, res.Status != api.StatusSuccess), nil
}

// HandleExecuteProject implements the playrec/execute-project tool.
func (h *Handlers) HandleExecuteProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, _ := req.GetArguments()["project"].(string)
	if project == "" {
		return errorResult("project argument is required"), nil
	}

	sum, favorable, err := h.exec.ExecuteProject(ctx, project)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	response := map[string]any{
		"summary":   sum,
		"favorable": favorable,
	}
	return jsonResult(response, !favorable), nil
}

// HandleParseDiagnostic implements the playrec/parse-diagnostic tool.
func HandleParseDiagnostic(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message, _ := req.GetArguments()["message"].(string)
	if message == "" {
		return errorResult("message argument is required"), nil
	}
	return jsonResult(diagnostic.ParseText(message), false), nil
}

func jsonResult(v any, isErr bool) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("marshal result: %v", err))
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(string(data))},
		IsError: isErr,
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(msg),
		},
		IsError: true,
	}
}
