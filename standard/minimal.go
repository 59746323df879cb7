package standard

import (
	"encoding/json"
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/jonchun/uibridge/tooldef"
)

// minimalField is the client-side description of one form control, used
// by the submit handler to coerce values back to schema types.
type minimalField struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

// renderMinimal builds the deterministic fallback UI: one control per
// schema property, required markers, defaults pre-filled, and a submit
// handler wired to the standard's host integration. It performs no
// external calls and never fails.
func renderMinimal(tool tooldef.ToolDefinition, hostJS string) string {
	props := tool.Properties()
	required := tool.Required()

	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	var controls strings.Builder
	fields := make([]minimalField, 0, len(names))
	for _, name := range names {
		prop, _ := props[name].(map[string]any)
		fields = append(fields, minimalField{
			Name:     name,
			Type:     propType(prop),
			Required: required[name],
		})
		writeControl(&controls, name, prop, required[name])
	}

	nameJSON, _ := json.Marshal(tool.Name)
	fieldsJSON, _ := json.Marshal(fields)

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	b.WriteString("<meta charset=\"utf-8\">\n")
	b.WriteString("<title>" + html.EscapeString(tool.Name) + "</title>\n")
	b.WriteString(`<style>
body { font-family: system-ui, sans-serif; margin: 1.5rem; max-width: 40rem; }
label { display: block; margin-top: 0.75rem; font-weight: 600; }
input, select { width: 100%; padding: 0.4rem; margin-top: 0.25rem; box-sizing: border-box; }
button { margin-top: 1rem; padding: 0.5rem 1.25rem; }
.error { color: #b00020; margin-top: 1rem; }
pre { background: #f4f4f4; padding: 0.75rem; margin-top: 1rem; overflow: auto; }
</style>
`)
	b.WriteString("</head>\n<body>\n")
	b.WriteString("<h1>" + html.EscapeString(tool.Name) + "</h1>\n")
	if tool.Description != "" {
		b.WriteString("<p>" + html.EscapeString(tool.Description) + "</p>\n")
	}
	b.WriteString("<form id=\"tool-form\">\n")
	b.WriteString(controls.String())
	b.WriteString("<button type=\"submit\">Run</button>\n</form>\n")
	b.WriteString("<div id=\"error\" class=\"error\" hidden></div>\n")
	b.WriteString("<pre id=\"result\" hidden></pre>\n")
	b.WriteString("<script>\n")
	b.WriteString("const TOOL_NAME = " + string(nameJSON) + ";\n")
	b.WriteString("const FIELDS = " + string(fieldsJSON) + ";\n")
	b.WriteString(minimalSharedJS)
	b.WriteString(hostJS)
	b.WriteString("</script>\n</body>\n</html>\n")
	return b.String()
}

func writeControl(b *strings.Builder, name string, prop map[string]any, required bool) {
	label := html.EscapeString(name)
	if required {
		label += " *"
	}
	id := "field-" + html.EscapeString(name)
	b.WriteString("<label for=\"" + id + "\">" + label + "</label>\n")

	def, hasDefault := prop["default"]
	defStr := ""
	if hasDefault {
		defStr = fmt.Sprintf("%v", def)
	}

	if enum, ok := prop["enum"].([]any); ok && len(enum) > 0 {
		b.WriteString("<select id=\"" + id + "\">\n")
		if !required {
			b.WriteString("<option value=\"\"></option>\n")
		}
		for _, v := range enum {
			val := html.EscapeString(fmt.Sprintf("%v", v))
			selected := ""
			if hasDefault && fmt.Sprintf("%v", v) == defStr {
				selected = " selected"
			}
			b.WriteString("<option value=\"" + val + "\"" + selected + ">" + val + "</option>\n")
		}
		b.WriteString("</select>\n")
		return
	}

	switch propType(prop) {
	case "boolean":
		b.WriteString("<select id=\"" + id + "\">\n")
		if !required {
			b.WriteString("<option value=\"\"></option>\n")
		}
		b.WriteString("<option value=\"true\"" + boolSelected(defStr, "true") + ">yes</option>\n")
		b.WriteString("<option value=\"false\"" + boolSelected(defStr, "false") + ">no</option>\n")
		b.WriteString("</select>\n")
	case "number":
		b.WriteString("<input type=\"number\" step=\"any\" id=\"" + id + "\"" + valueAttr(defStr, hasDefault) + ">\n")
	case "integer":
		b.WriteString("<input type=\"number\" step=\"1\" id=\"" + id + "\"" + valueAttr(defStr, hasDefault) + ">\n")
	default:
		b.WriteString("<input type=\"text\" id=\"" + id + "\"" + valueAttr(defStr, hasDefault) + ">\n")
	}
}

func propType(prop map[string]any) string {
	t, _ := prop["type"].(string)
	return t
}

func valueAttr(def string, has bool) string {
	if !has {
		return ""
	}
	return " value=\"" + html.EscapeString(def) + "\""
}

func boolSelected(def, want string) string {
	if def == want {
		return " selected"
	}
	return ""
}

const minimalSharedJS = `function coerce(field, raw) {
  if (raw === '') return undefined;
  switch (field.type) {
    case 'number': return parseFloat(raw);
    case 'integer': return parseInt(raw, 10);
    case 'boolean': return raw === 'true';
    default: return raw;
  }
}
function collect() {
  const params = {};
  for (const f of FIELDS) {
    const el = document.getElementById('field-' + f.name);
    if (!el) continue;
    const v = coerce(f, el.value);
    if (v !== undefined) params[f.name] = v;
  }
  return params;
}
function showResult(value) {
  const out = document.getElementById('result');
  out.hidden = false;
  out.textContent = typeof value === 'string' ? value : JSON.stringify(value, null, 2);
  document.getElementById('error').hidden = true;
}
function showError(message) {
  const err = document.getElementById('error');
  err.hidden = false;
  err.textContent = message;
}
document.getElementById('tool-form').addEventListener('submit', async (ev) => {
  ev.preventDefault();
  try {
    await invokeTool(TOOL_NAME, collect());
  } catch (err) {
    showError(String(err));
  }
});
`

const mcpUIHostJS = `function invokeTool(name, params) {
  window.parent.postMessage({ type: 'tool', payload: { toolName: name, params: params } }, '*');
}
window.addEventListener('message', (ev) => {
  const msg = ev.data;
  if (!msg || msg.type !== 'ui-message-response') return;
  if (msg.payload && msg.payload.error) {
    showError(String(msg.payload.error));
    return;
  }
  showResult(msg.payload ? msg.payload.response : msg);
});
`

const openaiAppsHostJS = `async function invokeTool(name, params) {
  const result = await window.openai.callTool(name, params);
  showResult(result);
}
`
