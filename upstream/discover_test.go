package upstream

import (
	"context"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type fakeCaller struct {
	tools   []*mcp.Tool
	listErr error

	callResult *mcp.CallToolResult
	callErr    error
	calls      []string
}

func (f *fakeCaller) ListTools(ctx context.Context) ([]*mcp.Tool, error) {
	return f.tools, f.listErr
}

func (f *fakeCaller) CallTool(ctx context.Context, name string, arguments any) (*mcp.CallToolResult, error) {
	f.calls = append(f.calls, name)
	return f.callResult, f.callErr
}

func TestParseInnerToolList(t *testing.T) {
	text := `Available tools:
- search_issues: full-text search across issues
* fetch_page — download a page by URL
create-ticket - open a new ticket
not a tool line at all
- search_issues: duplicate entry ignored
`
	tools := ParseInnerToolList(text)
	if got, want := len(tools), 3; got != want {
		t.Fatalf("len(tools) = %d, want %d", got, want)
	}

	byName := map[string]string{}
	for _, tool := range tools {
		byName[tool.Name] = tool.Description
		if tool.InputSchema == nil {
			t.Fatalf("tool %s has nil schema, want empty object schema", tool.Name)
		}
	}
	if got, want := byName["search_issues"], "full-text search across issues"; got != want {
		t.Fatalf("search_issues description = %q, want %q", got, want)
	}
	if got, want := byName["fetch_page"], "download a page by URL"; got != want {
		t.Fatalf("fetch_page description = %q, want %q", got, want)
	}
	if got, want := byName["create-ticket"], "open a new ticket"; got != want {
		t.Fatalf("create-ticket description = %q, want %q", got, want)
	}
}

func TestParseInnerToolListMalformed(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"prose only", "This gateway exposes many capabilities.\nCall it with a task."},
		{"json blob", `{"tools": ["a", "b"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tools := ParseInnerToolList(tt.in); len(tools) != 0 {
				t.Fatalf("ParseInnerToolList(%q) = %d tools, want 0", tt.in, len(tools))
			}
		})
	}
}

func TestDiscoverInnerTools(t *testing.T) {
	caller := &fakeCaller{
		callResult: &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: "- alpha: first tool\n- beta: second tool"},
			},
		},
	}
	tools := DiscoverInnerTools(context.Background(), caller, "gateway", nil)
	if got, want := len(tools), 2; got != want {
		t.Fatalf("len(tools) = %d, want %d", got, want)
	}
	if got, want := caller.calls[0], "gateway"; got != want {
		t.Fatalf("called tool = %s, want %s", got, want)
	}
}

func TestDiscoverInnerToolsFailuresYieldNothing(t *testing.T) {
	tests := []struct {
		name   string
		caller *fakeCaller
	}{
		{"call error", &fakeCaller{callErr: errors.New("boom")}},
		{"tool error", &fakeCaller{callResult: &mcp.CallToolResult{IsError: true}}},
		{"nil result", &fakeCaller{}},
		{"no text content", &fakeCaller{callResult: &mcp.CallToolResult{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tools := DiscoverInnerTools(context.Background(), tt.caller, "gateway", nil); tools != nil {
				t.Fatalf("DiscoverInnerTools = %v, want nil", tools)
			}
		})
	}
}
