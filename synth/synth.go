// Package synth turns tool definitions into vetted HTML artifacts via
// a generation call, with validation and a deterministic fallback.
package synth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/jonchun/uibridge/standard"
	"github.com/jonchun/uibridge/tooldef"
)

// DefaultTimeout bounds a single generation call.
const DefaultTimeout = 60 * time.Second

// Generator is the external generation collaborator. A rejection and an
// exceeded deadline are treated identically: fall back to the minimal UI.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Result is a vetted artifact. Minimal reports whether the HTML is the
// deterministic fallback rather than LLM-generated.
type Result struct {
	HTML    string
	Minimal bool
}

type Synthesizer struct {
	gen     Generator
	profile *standard.Profile
	timeout time.Duration
	logger  *slog.Logger
}

type Option func(*Synthesizer)

func WithTimeout(d time.Duration) Option {
	return func(s *Synthesizer) { s.timeout = d }
}

func New(gen Generator, profile *standard.Profile, logger *slog.Logger, opts ...Option) *Synthesizer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Synthesizer{
		gen:     gen,
		profile: profile,
		timeout: DefaultTimeout,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate runs the compose -> invoke -> post-process -> validate chain
// and falls back to the minimal UI on any failure. It never returns an
// error: the caller always receives usable HTML.
func (s *Synthesizer) Generate(ctx context.Context, tool tooldef.ToolDefinition, refinements []string) Result {
	start := time.Now()

	if s.gen == nil {
		return s.fallback(ctx, tool, "no generator configured")
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.gen.Generate(callCtx, s.profile.SystemPrompt, BuildUserPrompt(tool, refinements))
	if err != nil {
		s.logger.InfoContext(ctx, "synthesize",
			"tool", tool.Name,
			"outcome", "fallback",
			"stage", "generate",
			"error", err.Error(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return s.fallbackResult(tool)
	}

	cleaned := CleanOutput(raw)
	if err := Validate(cleaned, s.profile.ValidationMarker); err != nil {
		s.logger.InfoContext(ctx, "synthesize",
			"tool", tool.Name,
			"outcome", "fallback",
			"stage", "validate",
			"error", err.Error(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return s.fallbackResult(tool)
	}

	s.logger.InfoContext(ctx, "synthesize",
		"tool", tool.Name,
		"outcome", "success",
		"bytes", len(cleaned),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return Result{HTML: cleaned}
}

func (s *Synthesizer) fallback(ctx context.Context, tool tooldef.ToolDefinition, reason string) Result {
	s.logger.InfoContext(ctx, "synthesize",
		"tool", tool.Name,
		"outcome", "fallback",
		"stage", "compose",
		"error", reason,
	)
	return s.fallbackResult(tool)
}

func (s *Synthesizer) fallbackResult(tool tooldef.ToolDefinition) Result {
	return Result{HTML: s.profile.MinimalUI(tool), Minimal: true}
}

// BuildUserPrompt assembles the generation request from the tool
// definition and its refinement history.
func BuildUserPrompt(tool tooldef.ToolDefinition, refinements []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Tool name: %s\n", tool.Name)
	if tool.Description != "" {
		fmt.Fprintf(&b, "Tool description: %s\n", tool.Description)
	}

	b.WriteString("\nInput schema (JSON Schema):\n")
	b.WriteString(marshalIndent(tool.InputSchema))
	b.WriteString("\n")

	if tool.SampleOutput != nil {
		b.WriteString("\nSample output from a live invocation:\n")
		b.WriteString(marshalIndent(tool.SampleOutput))
		b.WriteString("\nDesign the result display around every field present in this sample.\n")
	} else {
		b.WriteString("\nNo sample output is available. The output structure is unknown; render results generically (pretty-printed JSON with sensible formatting for primitives).\n")
	}

	if len(refinements) > 0 {
		b.WriteString("\nRefinement requests from the operator. Apply every one of them cumulatively, in order; later entries amend earlier ones rather than replacing the whole design:\n")
		for i, r := range refinements {
			fmt.Fprintf(&b, "%d. %s\n", i+1, r)
		}
	}

	b.WriteString("\nGenerate the complete HTML document now.\n")
	return b.String()
}

func marshalIndent(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// CleanOutput strips markdown fences and any prose surrounding the HTML
// document. Models frequently wrap output in explanation text; tolerate
// it rather than discarding otherwise valid documents.
func CleanOutput(raw string) string {
	out := strings.TrimSpace(raw)

	// Leading ``` or ```html fence: drop the whole fence line.
	if strings.HasPrefix(out, "```") {
		if nl := strings.IndexByte(out, '\n'); nl >= 0 {
			out = out[nl+1:]
		} else {
			out = ""
		}
	}
	out = strings.TrimSpace(out)
	if strings.HasSuffix(out, "```") {
		out = strings.TrimSpace(strings.TrimSuffix(out, "```"))
	}

	// Preamble before the document start.
	lower := strings.ToLower(out)
	docStart := strings.Index(lower, "<!doctype")
	htmlStart := strings.Index(lower, "<html")
	start := docStart
	if start < 0 || (htmlStart >= 0 && htmlStart < start) {
		start = htmlStart
	}
	if start > 0 {
		out = out[start:]
	}

	// Trailing content after the document end.
	if end := strings.LastIndex(strings.ToLower(out), "</html>"); end >= 0 {
		out = out[:end+len("</html>")]
	}

	return out
}

// Validate checks for an HTML root element and the standard-specific
// host-integration marker.
func Validate(html, marker string) error {
	if !strings.Contains(strings.ToLower(html), "<html") {
		return errors.New("missing HTML root element")
	}
	if !strings.Contains(html, marker) {
		return fmt.Errorf("missing host integration marker %q", marker)
	}
	return nil
}
