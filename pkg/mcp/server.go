// Package mcp exposes the workbench to AI agents as Model Context Protocol
// tools served over stdio.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ormasoftchile/playrec/pkg/api"
)

// Backend is the subset of the backend API the tools read.
type Backend interface {
	ListProjects(ctx context.Context) ([]api.Project, error)
	ListTestCases(ctx context.Context, projectID string) ([]api.TestCase, error)
	Script(ctx context.Context, projectID, testCaseID string) (string, error)
}

// Executor runs test cases. *execution.Dispatcher implements it.
type Executor interface {
	ExecuteOne(ctx context.Context, projectID, testCaseID string) (api.ExecutionResult, error)
	ExecuteProject(ctx context.Context, projectID string) (api.ProjectExecutionSummary, bool, error)
}

// NewServer creates an MCP server with the playrec tools registered.
func NewServer(version string, backend Backend, exec Executor) *server.MCPServer {
	h := &Handlers{backend: backend, exec: exec}
	s := server.NewMCPServer(
		"playrec",
		version,
		server.WithToolCapabilities(true),
	)

	s.AddTool(
		mcp.NewTool("playrec/projects",
			mcp.WithDescription("List test projects"),
		),
		h.HandleProjects,
	)

	s.AddTool(
		mcp.NewTool("playrec/cases",
			mcp.WithDescription("List the recorded test cases of a project"),
			mcp.WithString("project", mcp.Required(), mcp.Description("Project id")),
		),
		h.HandleCases,
	)

	s.AddTool(
		mcp.NewTool("playrec/script",
			mcp.WithDescription("Show the generated script of a test case"),
			mcp.WithString("project", mcp.Required(), mcp.Description("Project id")),
			mcp.WithString("test_case", mcp.Required(), mcp.Description("Test case id")),
		),
		h.HandleScript,
	)

	s.AddTool(
		mcp.NewTool("playrec/execute",
			mcp.WithDescription("Execute one test case and return its normalized result"),
			mcp.WithString("project", mcp.Required(), mcp.Description("Project id")),
			mcp.WithString("test_case", mcp.Required(), mcp.Description("Test case id")),
		),
		h.HandleExecute,
	)

	s.AddTool(
		mcp.NewTool("playrec/execute-project",
			mcp.WithDescription("Execute every test case of a project and return the summary"),
			mcp.WithString("project", mcp.Required(), mcp.Description("Project id")),
		),
		h.HandleExecuteProject,
	)

	s.AddTool(
		mcp.NewTool("playrec/parse-diagnostic",
			mcp.WithDescription("Parse executor failure text into type, reason and suggestions"),
			mcp.WithString("message", mcp.Required(), mcp.Description("Raw failure message")),
		),
		HandleParseDiagnostic,
	)

	return s
}

// Serve runs the server on stdio until the client disconnects.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}
