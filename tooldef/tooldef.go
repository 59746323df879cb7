// Package tooldef describes upstream tools as the synthesis pipeline sees them.
package tooldef

import (
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ToolDefinition is a snapshot of an upstream tool, immutable per
// generation call. SampleOutput is optional live output captured from a
// probe invocation; nil means the output structure is unknown.
type ToolDefinition struct {
	Name         string
	Description  string
	InputSchema  map[string]any
	SampleOutput any
}

// FromMCP converts an SDK tool. A nil or unmarshalable input schema
// becomes an empty object schema so downstream consumers never see nil.
func FromMCP(t *mcp.Tool) ToolDefinition {
	return ToolDefinition{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: SchemaMap(t.InputSchema),
	}
}

// SchemaMap renders any JSON-Schema-like value as a plain map.
func SchemaMap(schema any) map[string]any {
	if schema == nil {
		return EmptyObjectSchema()
	}
	b, err := json.Marshal(schema)
	if err != nil {
		return EmptyObjectSchema()
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil || m == nil {
		return EmptyObjectSchema()
	}
	return m
}

// EmptyObjectSchema is the schema of a tool that takes no arguments.
func EmptyObjectSchema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

// Properties returns the schema's property map, never nil.
func (d ToolDefinition) Properties() map[string]any {
	props, ok := d.InputSchema["properties"].(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return props
}

// Required returns the set of required property names.
func (d ToolDefinition) Required() map[string]bool {
	required := make(map[string]bool)
	switch raw := d.InputSchema["required"].(type) {
	case []any:
		for _, v := range raw {
			if s, ok := v.(string); ok {
				required[s] = true
			}
		}
	case []string:
		for _, s := range raw {
			required[s] = true
		}
	}
	return required
}
