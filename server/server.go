// Package server wires together the UI synthesis pipeline and registers MCP tools.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonchun/uibridge/fingerprint"
	"github.com/jonchun/uibridge/standard"
	"github.com/jonchun/uibridge/store"
	"github.com/jonchun/uibridge/synth"
	"github.com/jonchun/uibridge/tooldef"
	"github.com/jonchun/uibridge/upstream"
)

const defaultSampleTimeout = 10 * time.Second

// Synthesizer produces a vetted UI artifact for a tool.
// *synth.Synthesizer is the production implementation.
type Synthesizer interface {
	Generate(ctx context.Context, tool tooldef.ToolDefinition, refinements []string) synth.Result
}

// Core orchestrates the pipeline: it mirrors upstream tools, fingerprints
// their definitions, serves cached artifacts from the store, and hands
// misses to the synthesizer.
type Core struct {
	Upstream upstream.Caller
	Store    *store.Store
	Synth    Synthesizer
	Profile  *standard.Profile

	// Instruction is the operator's standing styling instruction; it is
	// folded into every refinement fingerprint so changing it regenerates
	// all UIs.
	Instruction string

	// MetaTool names an upstream gateway tool whose text output lists
	// inner tools. Empty disables discovery.
	MetaTool string

	SampleTimeout time.Duration

	logger *slog.Logger

	mu          sync.RWMutex
	tools       map[string]tooldef.ToolDefinition
	mirrored    map[string]*mcp.Tool
	refinements map[string][]string
}

type RefineInput struct {
	Tool     string `json:"tool" jsonschema:"Name of the tool whose UI to refine"`
	Feedback string `json:"feedback" jsonschema:"Styling or layout feedback to apply on the next generation"`
}

type RegenerateInput struct {
	Tool string `json:"tool" jsonschema:"Name of the tool whose UI to regenerate"`
}

type ResetInput struct {
	Tool string `json:"tool" jsonschema:"Name of the tool whose refinement history to clear"`
}

type CoreOption func(*Core)

func WithInstruction(instruction string) CoreOption {
	return func(c *Core) { c.Instruction = instruction }
}

func WithMetaTool(name string) CoreOption {
	return func(c *Core) { c.MetaTool = name }
}

func WithSampleTimeout(d time.Duration) CoreOption {
	return func(c *Core) { c.SampleTimeout = d }
}

func NewCore(up upstream.Caller, st *store.Store, sy Synthesizer, profile *standard.Profile, logger *slog.Logger, opts ...CoreOption) *Core {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	c := &Core{
		Upstream:      up,
		Store:         st,
		Synth:         sy,
		Profile:       profile,
		SampleTimeout: defaultSampleTimeout,
		logger:        logger,
		tools:         make(map[string]tooldef.ToolDefinition),
		mirrored:      make(map[string]*mcp.Tool),
		refinements:   make(map[string][]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SyncTools fetches the upstream tool list (and, when configured, the
// inner tools behind the meta-tool gateway) into the registry. Upstream
// being unreachable is fatal; discovery failures are not.
func (c *Core) SyncTools(ctx context.Context) error {
	raw, err := c.Upstream.ListTools(ctx)
	if err != nil {
		return fmt.Errorf("list upstream tools: %w", err)
	}

	c.mu.Lock()
	for _, t := range raw {
		if t == nil || t.Name == "" {
			continue
		}
		c.mirrored[t.Name] = t
		c.tools[t.Name] = tooldef.FromMCP(t)
	}
	c.mu.Unlock()

	if c.MetaTool != "" {
		inner := upstream.DiscoverInnerTools(ctx, c.Upstream, c.MetaTool, c.logger)
		c.mu.Lock()
		for _, def := range inner {
			if _, exists := c.tools[def.Name]; exists {
				continue
			}
			c.tools[def.Name] = def
		}
		c.mu.Unlock()
	}

	c.logger.InfoContext(ctx, "sync tools",
		"outcome", "success",
		"mirrored", len(raw),
		"total", c.toolCount(),
	)
	return nil
}

// EnsureUI serves a tool's UI from the store, synthesizing it on a miss.
// Only generated artifacts are cached: pinning a fallback under the
// fingerprint would make a transient generation outage permanent. The
// returned bool reports whether the HTML is the minimal fallback.
func (c *Core) EnsureUI(ctx context.Context, toolName string) (string, bool, error) {
	tool, ok := c.ToolDefinition(toolName)
	if !ok {
		return "", false, fmt.Errorf("unknown tool %q", toolName)
	}

	start := time.Now()
	history := c.RefinementsFor(toolName)
	ns := c.namespace(toolName)
	schemaHash := fingerprint.Schema(tool.InputSchema)
	refinementHash := fingerprint.Refinements(history, c.Instruction)

	if entry, ok := c.Store.Get(ns, schemaHash, refinementHash); ok {
		c.logger.InfoContext(ctx, "ensure ui",
			"tool", toolName,
			"outcome", "cache_hit",
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return entry.HTML, false, nil
	}

	tool.SampleOutput = c.gatherSample(ctx, tool)
	res := c.Synth.Generate(ctx, tool, history)
	if !res.Minimal {
		c.Store.Set(ns, schemaHash, refinementHash, res.HTML)
	}

	c.logger.InfoContext(ctx, "ensure ui",
		"tool", toolName,
		"outcome", "generated",
		"minimal", res.Minimal,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res.HTML, res.Minimal, nil
}

// gatherSample probes the tool once with empty arguments so the
// synthesizer can design around live output. Every failure mode means
// "no sample available".
func (c *Core) gatherSample(ctx context.Context, tool tooldef.ToolDefinition) any {
	ctx, cancel := context.WithTimeout(ctx, c.SampleTimeout)
	defer cancel()

	res, err := c.Upstream.CallTool(ctx, tool.Name, map[string]any{})
	if err != nil {
		c.logger.DebugContext(ctx, "sample output", "tool", tool.Name, "outcome", "unavailable", "error", err.Error())
		return nil
	}
	if res == nil || res.IsError {
		c.logger.DebugContext(ctx, "sample output", "tool", tool.Name, "outcome", "tool_error")
		return nil
	}

	if res.StructuredContent != nil {
		return res.StructuredContent
	}

	var text strings.Builder
	for _, content := range res.Content {
		if tc, ok := content.(*mcp.TextContent); ok {
			text.WriteString(tc.Text)
		}
	}
	if text.Len() == 0 {
		return nil
	}
	var decoded any
	if err := json.Unmarshal([]byte(text.String()), &decoded); err == nil {
		return decoded
	}
	return text.String()
}

// Refine appends feedback to a tool's refinement history and invalidates
// its cached artifacts so the next UI request regenerates.
func (c *Core) Refine(ctx context.Context, toolName, feedback string) (int, error) {
	if strings.TrimSpace(feedback) == "" {
		return 0, errors.New("feedback is required")
	}
	if _, ok := c.ToolDefinition(toolName); !ok {
		return 0, fmt.Errorf("unknown tool %q", toolName)
	}

	c.mu.Lock()
	c.refinements[toolName] = append(c.refinements[toolName], feedback)
	count := len(c.refinements[toolName])
	c.mu.Unlock()

	removed := c.Store.Invalidate(c.namespace(toolName))
	c.logger.InfoContext(ctx, "refine ui",
		"tool", toolName,
		"outcome", "success",
		"refinements", count,
		"invalidated", removed,
	)
	return count, nil
}

// Regenerate drops cached artifacts for a tool without touching its
// refinement history.
func (c *Core) Regenerate(ctx context.Context, toolName string) (int, error) {
	if _, ok := c.ToolDefinition(toolName); !ok {
		return 0, fmt.Errorf("unknown tool %q", toolName)
	}
	removed := c.Store.Invalidate(c.namespace(toolName))
	c.logger.InfoContext(ctx, "regenerate ui",
		"tool", toolName,
		"outcome", "success",
		"invalidated", removed,
	)
	return removed, nil
}

// ResetRefinements clears a tool's refinement history and invalidates
// its cached artifacts. This is the only way history shrinks.
func (c *Core) ResetRefinements(ctx context.Context, toolName string) (int, error) {
	if _, ok := c.ToolDefinition(toolName); !ok {
		return 0, fmt.Errorf("unknown tool %q", toolName)
	}

	c.mu.Lock()
	delete(c.refinements, toolName)
	c.mu.Unlock()

	removed := c.Store.Invalidate(c.namespace(toolName))
	c.logger.InfoContext(ctx, "reset ui refinements",
		"tool", toolName,
		"outcome", "success",
		"invalidated", removed,
	)
	return removed, nil
}

// RefinementsFor returns a copy of a tool's refinement history in
// append order.
func (c *Core) RefinementsFor(toolName string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	history := c.refinements[toolName]
	if len(history) == 0 {
		return nil
	}
	return append([]string(nil), history...)
}

// ToolDefinition returns the registered definition for a tool.
func (c *Core) ToolDefinition(name string) (tooldef.ToolDefinition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	def, ok := c.tools[name]
	return def, ok
}

// ToolNames returns every registered tool name, sorted.
func (c *Core) ToolNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.tools))
	for name := range c.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Core) namespace(toolName string) string {
	return c.Profile.Name + ":" + toolName
}

func (c *Core) toolCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tools)
}

func (c *Core) mirroredSnapshot() []*mcp.Tool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tools := make([]*mcp.Tool, 0, len(c.mirrored))
	for _, t := range c.mirrored {
		tools = append(tools, t)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	return tools
}

// CallUpstream forwards a mirrored tool invocation and decorates the
// result per the active standard. Upstream transport failures come back
// as tool-error results rather than protocol faults, so the downstream
// client always sees something renderable.
func (c *Core) CallUpstream(ctx context.Context, toolName string, arguments any) (*mcp.CallToolResult, error) {
	start := time.Now()

	res, err := c.Upstream.CallTool(ctx, toolName, arguments)
	if err != nil {
		c.logger.InfoContext(ctx, "call tool",
			"tool", toolName,
			"outcome", "error",
			"error", err.Error(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("upstream call failed: %v", err)}},
		}, nil
	}

	c.decorateResult(ctx, toolName, res)

	c.logger.InfoContext(ctx, "call tool",
		"tool", toolName,
		"outcome", "success",
		"is_error", res.IsError,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// decorateResult attaches the tool's UI per the active standard:
// openai-apps mirrors structured content into result metadata next to
// the output template reference; mcp-ui embeds the HTML document on the
// result itself.
func (c *Core) decorateResult(ctx context.Context, toolName string, res *mcp.CallToolResult) {
	if res == nil || res.IsError {
		return
	}
	uri := c.Profile.ResourceURI(toolName)

	if c.Profile.WrapStructured {
		meta := map[string]any{"outputTemplate": uri}
		if res.StructuredContent != nil {
			meta["structuredContent"] = res.StructuredContent
		}
		res.SetMeta(meta)
		return
	}

	html, _, err := c.EnsureUI(ctx, toolName)
	if err != nil {
		return
	}
	res.Content = append(res.Content, &mcp.EmbeddedResource{
		Resource: &mcp.ResourceContents{
			URI:      uri,
			MIMEType: c.Profile.MIMEType,
			Text:     html,
		},
	})
}

type ServerOptions struct {
	// Name is the MCP server implementation name. Default: "uibridge".
	Name string
	// Version is the MCP server implementation version. Default: "0.1.0".
	Version string
}

// NewMCPServer builds the downstream-facing server: every mirrored
// upstream tool, a UI resource per registered tool, and the three UI
// management tools. SyncTools must have run first.
func NewMCPServer(core *Core, logger *slog.Logger, opts ...ServerOptions) *mcp.Server {
	name := "uibridge"
	version := "0.1.0"
	if len(opts) > 0 {
		if opts[0].Name != "" {
			name = opts[0].Name
		}
		if opts[0].Version != "" {
			version = opts[0].Version
		}
	}
	srv := mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, &mcp.ServerOptions{Logger: logger})

	for _, t := range core.mirroredSnapshot() {
		if t.InputSchema == nil {
			core.logger.Warn("skip tool without input schema", "tool", t.Name)
			continue
		}
		mirrored := *t
		if meta := core.Profile.ToolMeta(t.Name, core.Profile.ResourceURI(t.Name)); meta != nil {
			mirrored.Meta = meta
		}
		toolName := t.Name
		srv.AddTool(&mirrored, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return core.CallUpstream(ctx, toolName, req.Params.Arguments)
		})
	}

	for _, toolName := range core.ToolNames() {
		uri := core.Profile.ResourceURI(toolName)
		name := toolName
		srv.AddResource(&mcp.Resource{
			URI:         uri,
			Name:        name + " UI",
			Description: fmt.Sprintf("Generated interface for the %s tool", name),
			MIMEType:    core.Profile.MIMEType,
		}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			html, _, err := core.EnsureUI(ctx, name)
			if err != nil {
				return nil, err
			}
			return &mcp.ReadResourceResult{
				Contents: []*mcp.ResourceContents{
					{URI: req.Params.URI, MIMEType: core.Profile.MIMEType, Text: html},
				},
			}, nil
		})
	}

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "ui_refine",
		Description: "Record styling or layout feedback for a tool's generated UI. Feedback accumulates: every entry is applied cumulatively on the next generation.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in RefineInput) (*mcp.CallToolResult, map[string]any, error) {
		count, err := core.Refine(ctx, in.Tool, in.Feedback)
		if err != nil {
			return nil, nil, err
		}
		return nil, map[string]any{"ok": true, "tool": in.Tool, "refinements": count}, nil
	})

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "ui_regenerate",
		Description: "Discard the cached UI for a tool so the next request generates a fresh one. Refinement history is kept.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in RegenerateInput) (*mcp.CallToolResult, map[string]any, error) {
		removed, err := core.Regenerate(ctx, in.Tool)
		if err != nil {
			return nil, nil, err
		}
		return nil, map[string]any{"ok": true, "tool": in.Tool, "invalidated": removed}, nil
	})

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "ui_reset",
		Description: "Clear a tool's refinement history and discard its cached UI, returning it to the default generation.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in ResetInput) (*mcp.CallToolResult, map[string]any, error) {
		removed, err := core.ResetRefinements(ctx, in.Tool)
		if err != nil {
			return nil, nil, err
		}
		return nil, map[string]any{"ok": true, "tool": in.Tool, "invalidated": removed}, nil
	})

	return srv
}

func RunStdio(ctx context.Context, core *Core, logger *slog.Logger, opts ...ServerOptions) error {
	server := NewMCPServer(core, logger, opts...)
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("run mcp stdio server: %w", err)
	}
	return nil
}

// NewHTTPHandler returns an http.Handler serving MCP over SSE.
func NewHTTPHandler(core *Core, logger *slog.Logger, opts ...ServerOptions) http.Handler {
	srv := NewMCPServer(core, logger, opts...)
	return mcp.NewSSEHandler(func(_ *http.Request) *mcp.Server {
		return srv
	}, nil)
}
