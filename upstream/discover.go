package upstream

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonchun/uibridge/tooldef"
)

// innerToolPattern matches one tool per line in the loosely formatted
// listings returned by meta-tool gateways, e.g.
//
//	- search_issues: full-text search across issues
//	fetch_page — download a page
//
// The name must look like an identifier; the separator is a colon or a
// spaced dash so hyphenated tool names survive.
var innerToolPattern = regexp.MustCompile(`(?m)^\s*(?:[-*]\s+)?([A-Za-z][A-Za-z0-9_.-]*)\s*(?::|\s\x{2014}|\s-)\s+(\S.*)$`)

// DiscoverInnerTools calls the meta tool and scrapes its text output
// for inner tool definitions. This is an untrusted parser: malformed or
// surprising output yields a partial or empty list, never an error.
func DiscoverInnerTools(ctx context.Context, caller Caller, metaTool string, logger *slog.Logger) []tooldef.ToolDefinition {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	res, err := caller.CallTool(ctx, metaTool, map[string]any{})
	if err != nil {
		logger.DebugContext(ctx, "discover inner tools", "meta_tool", metaTool, "outcome", "error", "error", err.Error())
		return nil
	}
	if res == nil || res.IsError {
		logger.DebugContext(ctx, "discover inner tools", "meta_tool", metaTool, "outcome", "tool_error")
		return nil
	}

	var text strings.Builder
	for _, content := range res.Content {
		if tc, ok := content.(*mcp.TextContent); ok {
			text.WriteString(tc.Text)
			text.WriteString("\n")
		}
	}

	tools := ParseInnerToolList(text.String())
	logger.InfoContext(ctx, "discover inner tools", "meta_tool", metaTool, "outcome", "success", "count", len(tools))
	return tools
}

// ParseInnerToolList extracts tool definitions from a text listing.
// Inner tools carry no machine-readable schema, so each gets an empty
// object schema; the UI pipeline guesses the rest.
func ParseInnerToolList(text string) []tooldef.ToolDefinition {
	matches := innerToolPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	tools := make([]tooldef.ToolDefinition, 0, len(matches))
	for _, m := range matches {
		name := m[1]
		if seen[name] {
			continue
		}
		seen[name] = true
		tools = append(tools, tooldef.ToolDefinition{
			Name:        name,
			Description: strings.TrimSpace(m[2]),
			InputSchema: tooldef.EmptyObjectSchema(),
		})
	}
	return tools
}
