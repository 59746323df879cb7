// Package standard defines the supported UI output standards. Each
// profile is a data record selected by name from a closed registry;
// dispatch is by lookup, never by subclassing.
package standard

import (
	"fmt"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonchun/uibridge/tooldef"
)

// Profile describes how one output standard addresses, validates and
// delivers generated UIs.
type Profile struct {
	// Name is the registry key, e.g. "mcp-ui".
	Name string

	// URIPrefix and URISuffix bracket the tool name to form the
	// resource URI for its generated UI.
	URIPrefix string
	URISuffix string

	// MIMEType of served UI resources.
	MIMEType string

	// ValidationMarker must appear in generated output; it signals the
	// correct host-integration pattern was used.
	ValidationMarker string

	// WrapStructured mirrors a tool result's structured content into
	// result metadata for the host widget.
	WrapStructured bool

	// SystemPrompt is the fixed generation system prompt.
	SystemPrompt string

	// ToolMeta builds tool metadata referencing the UI resource. May
	// return nil when the standard carries the UI on results instead.
	ToolMeta func(toolName, uri string) mcp.Meta

	// MinimalUI renders the deterministic fallback document. It must
	// never fail for any well-formed schema.
	MinimalUI func(tool tooldef.ToolDefinition) string
}

// ResourceURI addresses the generated UI for a tool.
func (p *Profile) ResourceURI(toolName string) string {
	return p.URIPrefix + toolName + p.URISuffix
}

var mcpUI = &Profile{
	Name:             "mcp-ui",
	URIPrefix:        "ui://",
	URISuffix:        "/app.html",
	MIMEType:         "text/html",
	ValidationMarker: "window.parent.postMessage",
	WrapStructured:   false,
	SystemPrompt:     mcpUISystemPrompt,
	ToolMeta:         func(string, string) mcp.Meta { return nil },
	MinimalUI: func(tool tooldef.ToolDefinition) string {
		return renderMinimal(tool, mcpUIHostJS)
	},
}

var openaiApps = &Profile{
	Name:             "openai-apps",
	URIPrefix:        "ui://",
	URISuffix:        "/widget.html",
	MIMEType:         "text/html+skybridge",
	ValidationMarker: "window.openai",
	WrapStructured:   true,
	SystemPrompt:     openaiAppsSystemPrompt,
	ToolMeta: func(toolName, uri string) mcp.Meta {
		return mcp.Meta{
			"openai/outputTemplate":          uri,
			"openai/toolInvocation/invoking": "Running " + toolName + "...",
			"openai/widgetAccessible":        true,
		}
	},
	MinimalUI: func(tool tooldef.ToolDefinition) string {
		return renderMinimal(tool, openaiAppsHostJS)
	},
}

var profiles = map[string]*Profile{
	mcpUI.Name:      mcpUI,
	openaiApps.Name: openaiApps,
}

// Lookup resolves a profile by name. An unrecognized name is a
// configuration error, not a silent default.
func Lookup(name string) (*Profile, error) {
	p, ok := profiles[name]
	if !ok {
		return nil, fmt.Errorf("unknown UI standard %q (supported: %s)", name, strings.Join(Names(), ", "))
	}
	return p, nil
}

// Names lists the registered standard names, sorted.
func Names() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

const mcpUISystemPrompt = `You are an expert front-end engineer generating a self-contained interactive HTML UI for a single tool exposed over the Model Context Protocol, rendered by an MCP-UI host inside a sandboxed iframe.

Requirements:
- Output exactly one complete HTML document. No markdown, no commentary, no code fences.
- Inline all CSS and JavaScript; no external resources or network requests.
- To invoke the tool, post a message to the host:
    window.parent.postMessage({ type: 'tool', payload: { toolName: '<name>', params: { ... } } }, '*');
- Listen for 'message' events carrying the host's response and render the result in the page. Handle error payloads visibly.
- Build inputs for every schema property, honor required fields and defaults, and coerce values to their schema-declared types before invoking.
- Keep the UI compact, readable and keyboard-friendly.`

const openaiAppsSystemPrompt = `You are an expert front-end engineer generating a self-contained interactive HTML widget for a single tool, hosted by the OpenAI Apps SDK (skybridge) runtime.

Requirements:
- Output exactly one complete HTML document. No markdown, no commentary, no code fences.
- Inline all CSS and JavaScript; no external resources or network requests.
- Invoke the tool through the host bridge:
    const result = await window.openai.callTool('<name>', { ... });
- Read any initial payload from window.openai.toolOutput when present, and render tool results in the page. Handle rejections visibly.
- Build inputs for every schema property, honor required fields and defaults, and coerce values to their schema-declared types before invoking.
- Keep the UI compact, readable and keyboard-friendly.`
