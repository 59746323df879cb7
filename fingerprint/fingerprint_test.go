package fingerprint

import (
	"strings"
	"testing"
)

func TestSchemaKeyOrderInsensitive(t *testing.T) {
	a := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{"type": "string"},
			"limit": map[string]any{"type": "integer"},
		},
	}
	b := map[string]any{
		"properties": map[string]any{
			"limit": map[string]any{"type": "integer"},
			"query": map[string]any{"type": "string"},
		},
		"type": "object",
	}
	if got, want := Schema(a), Schema(b); got != want {
		t.Fatalf("Schema(a) = %s, Schema(b) = %s; want equal", got, want)
	}
}

func TestSchemaDiffersOnContent(t *testing.T) {
	a := map[string]any{"type": "object"}
	b := map[string]any{"type": "string"}
	if Schema(a) == Schema(b) {
		t.Fatal("distinct schemas produced the same fingerprint")
	}
}

func TestSchemaLength(t *testing.T) {
	got := Schema(map[string]any{"type": "object"})
	if len(got) != 16 {
		t.Fatalf("len(Schema()) = %d, want 16", len(got))
	}
	if strings.ToLower(got) != got {
		t.Fatalf("Schema() = %s, want lowercase hex", got)
	}
}

func TestRefinementsEmpty(t *testing.T) {
	if got, want := Refinements(nil, ""), NoRefinements; got != want {
		t.Fatalf("Refinements(nil, %q) = %s, want %s", "", got, want)
	}
	if got, want := Refinements([]string{}, ""), NoRefinements; got != want {
		t.Fatalf("Refinements([], %q) = %s, want %s", "", got, want)
	}
}

func TestRefinementsInstructionOnly(t *testing.T) {
	got := Refinements(nil, "dark mode")
	if got == NoRefinements {
		t.Fatal("instruction alone should produce a digest, got the empty sentinel")
	}
	if len(got) != 16 {
		t.Fatalf("len = %d, want 16", len(got))
	}
}

func TestRefinementsOrderSensitive(t *testing.T) {
	a := Refinements([]string{"bigger font", "blue theme"}, "")
	b := Refinements([]string{"blue theme", "bigger font"}, "")
	if a == b {
		t.Fatal("reordered histories produced the same fingerprint")
	}
}

func TestRefinementsInstructionChanges(t *testing.T) {
	history := []string{"bigger font"}
	a := Refinements(history, "dark")
	b := Refinements(history, "light")
	if a == b {
		t.Fatal("different instructions produced the same fingerprint")
	}
}

func TestRefinementsDeterministic(t *testing.T) {
	history := []string{"one", "two"}
	if got, want := Refinements(history, "x"), Refinements(history, "x"); got != want {
		t.Fatalf("Refinements not deterministic: %s vs %s", got, want)
	}
}
