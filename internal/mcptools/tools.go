// Package mcptools exposes dataset profiling and querying as MCP tools.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/KaramelBytes/csvdash/internal/dashboard"
)

// Tools builds a fresh session for every call; nothing is kept between calls.
type Tools struct {
	svc dashboard.Services
}

func New(svc dashboard.Services) *Tools {
	return &Tools{svc: svc}
}

// Register adds profile_csv, suggest_questions and query_csv to s.
func (t *Tools) Register(s *server.MCPServer) {
	profileTool := mcp.NewTool("profile_csv",
		mcp.WithDescription("Load a CSV or XLSX file, clean it and describe its columns, data quality and headline metrics"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the CSV or XLSX file"),
		),
	)
	suggestTool := mcp.NewTool("suggest_questions",
		mcp.WithDescription("Propose analysis questions for a CSV or XLSX file"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the CSV or XLSX file"),
		),
	)
	queryTool := mcp.NewTool("query_csv",
		mcp.WithDescription("Answer a natural-language question about a CSV or XLSX file with result records, a chart configuration and a summary"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the CSV or XLSX file"),
		),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("Question such as \"average salary by department\""),
		),
		mcp.WithBoolean("summary",
			mcp.Description("Include a prose summary (default: true)"),
		),
	)

	s.AddTool(profileTool, t.ProfileHandler)
	s.AddTool(suggestTool, t.SuggestHandler)
	s.AddTool(queryTool, t.QueryHandler)
}

func (t *Tools) load(request mcp.CallToolRequest) (*dashboard.Session, *mcp.CallToolResult) {
	path, err := request.RequireString("path")
	if err != nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf("Missing path parameter: %v", err))
	}
	sess := dashboard.NewSession(t.svc)
	if _, err := sess.LoadFile(path); err != nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf("Load failed: %v", err))
	}
	return sess, nil
}

// ProfileHandler serves profile_csv.
func (t *Tools) ProfileHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, fail := t.load(request)
	if fail != nil {
		return fail, nil
	}
	ov, err := sess.Describe(ctx, true)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Profile failed: %v", err)), nil
	}
	return jsonResult(ov)
}

// SuggestHandler serves suggest_questions.
func (t *Tools) SuggestHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, fail := t.load(request)
	if fail != nil {
		return fail, nil
	}
	res, err := sess.Suggestions(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Suggest failed: %v", err)), nil
	}
	return jsonResult(res)
}

// QueryHandler serves query_csv.
func (t *Tools) QueryHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Missing question parameter: %v", err)), nil
	}
	sess, fail := t.load(request)
	if fail != nil {
		return fail, nil
	}
	withSummary := true
	if args, ok := request.Params.Arguments.(map[string]any); ok {
		if v, ok := args["summary"].(bool); ok {
			withSummary = v
		}
	}
	ans, err := sess.Ask(ctx, question, dashboard.AskOptions{NoSummary: !withSummary})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Query failed: %v", err)), nil
	}
	return jsonResult(ans)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to marshal results: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// NewServer returns an MCP server with every tool registered.
func NewServer(version string, svc dashboard.Services) *server.MCPServer {
	s := server.NewMCPServer("csvdash", version,
		server.WithToolCapabilities(false),
		server.WithLogging(),
	)
	New(svc).Register(s)
	return s
}
