// Package upstream connects to the wrapped MCP tool server.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Caller is the narrow boundary the core depends on. Implementations
// must treat their own transport details as opaque to callers.
type Caller interface {
	ListTools(ctx context.Context) ([]*mcp.Tool, error)
	CallTool(ctx context.Context, name string, arguments any) (*mcp.CallToolResult, error)
}

// Target selects the upstream transport: a stdio subprocess when
// Command is set, otherwise an SSE endpoint URL.
type Target struct {
	Command string
	Args    []string
	URL     string
}

// Client is a Caller backed by a live MCP client session.
type Client struct {
	client  *mcp.Client
	session *mcp.ClientSession
}

// Connect dials the target and performs the MCP handshake.
func Connect(ctx context.Context, target Target) (*Client, error) {
	var transport mcp.Transport
	switch {
	case target.Command != "":
		transport = &mcp.CommandTransport{Command: exec.Command(target.Command, target.Args...)}
	case target.URL != "":
		transport = &mcp.SSEClientTransport{Endpoint: target.URL}
	default:
		return nil, errors.New("upstream command or url is required")
	}

	client := mcp.NewClient(&mcp.Implementation{Name: "uibridge-upstream", Version: "v0.1.0"}, nil)
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("connect to upstream: %w", err)
	}
	return &Client{client: client, session: session}, nil
}

// ListTools fetches the full tool list, following pagination.
func (c *Client) ListTools(ctx context.Context) ([]*mcp.Tool, error) {
	res, err := c.session.ListTools(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}
	tools := append([]*mcp.Tool{}, res.Tools...)
	cursor := res.NextCursor
	for cursor != "" {
		res, err = c.session.ListTools(ctx, &mcp.ListToolsParams{Cursor: cursor})
		if err != nil {
			return nil, fmt.Errorf("list tools (page): %w", err)
		}
		tools = append(tools, res.Tools...)
		cursor = res.NextCursor
	}
	return tools, nil
}

func (c *Client) CallTool(ctx context.Context, name string, arguments any) (*mcp.CallToolResult, error) {
	if arguments == nil {
		arguments = map[string]any{}
	}
	return c.session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: arguments})
}

func (c *Client) Close() error {
	if c.session == nil {
		return nil
	}
	return c.session.Close()
}
