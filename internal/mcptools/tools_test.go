package mcptools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/KaramelBytes/csvdash/internal/dashboard"
)

func writeCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sales.csv")
	data := "Region,Product,Sales\nNorth,A,100\nSouth,A,80\nNorth,B,40\nEast,B,70\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("content=%v", res.Content)
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type %T", res.Content[0])
	}
	return tc.Text
}

func TestQueryHandler(t *testing.T) {
	tools := New(dashboard.Services{})
	res, err := tools.QueryHandler(context.Background(), call(map[string]any{
		"path":     writeCSV(t),
		"question": "total sales by region",
		"summary":  false,
	}))
	if err != nil || res.IsError {
		t.Fatalf("err=%v res=%+v", err, res)
	}
	var ans struct {
		Records []map[string]any `json:"records"`
		Summary string           `json:"summary"`
	}
	if err := json.Unmarshal([]byte(text(t, res)), &ans); err != nil {
		t.Fatal(err)
	}
	if len(ans.Records) != 3 || ans.Summary != "" {
		t.Fatalf("answer=%+v", ans)
	}
	if ans.Records[0]["Region"] != "North" || ans.Records[0]["value"] != 140.0 {
		t.Fatalf("first=%v", ans.Records[0])
	}
}

func TestProfileAndSuggestHandlers(t *testing.T) {
	tools := New(dashboard.Services{})
	path := writeCSV(t)

	res, err := tools.ProfileHandler(context.Background(), call(map[string]any{"path": path}))
	if err != nil || res.IsError {
		t.Fatalf("err=%v res=%+v", err, res)
	}
	if out := text(t, res); !strings.Contains(out, `"dataset": "sales.csv"`) || !strings.Contains(out, "Total Records") {
		t.Fatalf("profile=%s", out)
	}

	res, err = tools.SuggestHandler(context.Background(), call(map[string]any{"path": path}))
	if err != nil || res.IsError || !strings.Contains(text(t, res), "Sales") {
		t.Fatalf("err=%v res=%+v", err, res)
	}
}

func TestHandlerErrors(t *testing.T) {
	tools := New(dashboard.Services{})
	cases := map[string]map[string]any{
		"missing path":     {"question": "x"},
		"missing question": {"path": "whatever.csv"},
		"unreadable file":  {"path": filepath.Join(t.TempDir(), "nope.csv"), "question": "x"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			res, err := tools.QueryHandler(context.Background(), call(args))
			if err != nil || !res.IsError {
				t.Fatalf("err=%v res=%+v", err, res)
			}
		})
	}
}
