package tooldef

import (
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func TestFromMCP(t *testing.T) {
	tool := &mcp.Tool{
		Name:        "search",
		Description: "Full-text search",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"query": {Type: "string"},
			},
			Required: []string{"query"},
		},
	}

	def := FromMCP(tool)
	if got, want := def.Name, "search"; got != want {
		t.Fatalf("Name = %s, want %s", got, want)
	}
	props := def.Properties()
	if _, ok := props["query"]; !ok {
		t.Fatalf("Properties() = %v, want query present", props)
	}
	if !def.Required()["query"] {
		t.Fatal("Required()[query] = false, want true")
	}
}

func TestFromMCPNilSchema(t *testing.T) {
	def := FromMCP(&mcp.Tool{Name: "ping"})
	if def.InputSchema == nil {
		t.Fatal("InputSchema = nil, want empty object schema")
	}
	if got, want := def.InputSchema["type"], "object"; got != want {
		t.Fatalf("type = %v, want %v", got, want)
	}
	if got := len(def.Properties()); got != 0 {
		t.Fatalf("len(Properties()) = %d, want 0", got)
	}
}

func TestSchemaMapUnmarshalable(t *testing.T) {
	m := SchemaMap(func() {})
	if got, want := m["type"], "object"; got != want {
		t.Fatalf("type = %v, want %v", got, want)
	}
}

func TestRequiredVariants(t *testing.T) {
	tests := []struct {
		name   string
		schema map[string]any
		want   []string
	}{
		{"any slice", map[string]any{"required": []any{"a", "b"}}, []string{"a", "b"}},
		{"string slice", map[string]any{"required": []string{"c"}}, []string{"c"}},
		{"absent", map[string]any{}, nil},
		{"wrong type", map[string]any{"required": "a"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := ToolDefinition{InputSchema: tt.schema}
			required := def.Required()
			if got, want := len(required), len(tt.want); got != want {
				t.Fatalf("len(Required()) = %d, want %d", got, want)
			}
			for _, name := range tt.want {
				if !required[name] {
					t.Fatalf("Required()[%s] = false, want true", name)
				}
			}
		})
	}
}
