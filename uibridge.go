// Package uibridge is an MCP proxy that generates and caches HTML
// interfaces for the tools of a wrapped MCP server.
package uibridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/jonchun/uibridge/config"
	"github.com/jonchun/uibridge/llm"
	"github.com/jonchun/uibridge/server"
	"github.com/jonchun/uibridge/standard"
	"github.com/jonchun/uibridge/store"
	"github.com/jonchun/uibridge/synth"
	"github.com/jonchun/uibridge/upstream"
)

// DefaultStandard is the output standard used when none is configured.
const DefaultStandard = "openai-apps"

type Config struct {
	// Upstream is the wrapped MCP server. If nil, a client is dialed from
	// the upstream section of the user config.
	Upstream upstream.Caller

	// Generator produces UI documents. If nil, an Anthropic client is
	// built; ANTHROPIC_API_KEY must then be set.
	Generator synth.Generator

	// Logger is the structured logger passed to Core. If nil, a discard logger is used.
	Logger *slog.Logger

	// Name overrides the MCP server implementation name (default: "uibridge").
	Name string

	// Version overrides the MCP server implementation version (default: "0.1.0").
	Version string
}

// New builds a Core: it loads user config, resolves the output standard,
// dials the upstream, loads the artifact cache, and syncs the tool
// registry.
func New(ctx context.Context, cfg Config) (*server.Core, error) {
	userCfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load user config: %w", err)
	}

	standardName := DefaultStandard
	if userCfg.Standard != nil {
		standardName = *userCfg.Standard
	}
	profile, err := standard.Lookup(standardName)
	if err != nil {
		return nil, err
	}

	gen := cfg.Generator
	if gen == nil {
		if os.Getenv("ANTHROPIC_API_KEY") == "" {
			return nil, errors.New("ANTHROPIC_API_KEY is required when no generator is injected")
		}
		model := ""
		if userCfg.Model != nil {
			model = *userCfg.Model
		}
		var maxTokens int64
		if userCfg.MaxTokens != nil {
			maxTokens = int64(*userCfg.MaxTokens)
		}
		gen = llm.NewAnthropic("", model, maxTokens)
	}

	up := cfg.Upstream
	if up == nil {
		if userCfg.Upstream == nil {
			return nil, errors.New("upstream configuration is required")
		}
		target := upstream.Target{Args: userCfg.Upstream.Args}
		if userCfg.Upstream.Command != nil {
			target.Command = *userCfg.Upstream.Command
		}
		if userCfg.Upstream.URL != nil {
			target.URL = *userCfg.Upstream.URL
		}
		client, err := upstream.Connect(ctx, target)
		if err != nil {
			return nil, err
		}
		up = client
	}

	cachePath := config.DefaultCachePath()
	if userCfg.CachePath != nil {
		cachePath = *userCfg.CachePath
	}
	st := store.New(cachePath, cfg.Logger)
	st.Load()

	var synthOpts []synth.Option
	if userCfg.GenerationTimeout != nil {
		synthOpts = append(synthOpts, synth.WithTimeout(userCfg.GenerationTimeout.Duration()))
	}
	sy := synth.New(gen, profile, cfg.Logger, synthOpts...)

	var coreOpts []server.CoreOption
	if userCfg.Instruction != nil {
		coreOpts = append(coreOpts, server.WithInstruction(*userCfg.Instruction))
	}
	if userCfg.MetaTool != nil {
		coreOpts = append(coreOpts, server.WithMetaTool(*userCfg.MetaTool))
	}
	if userCfg.SampleTimeout != nil {
		coreOpts = append(coreOpts, server.WithSampleTimeout(userCfg.SampleTimeout.Duration()))
	}

	core := server.NewCore(up, st, sy, profile, cfg.Logger, coreOpts...)
	if err := core.SyncTools(ctx); err != nil {
		return nil, err
	}
	return core, nil
}

// RunStdio creates a server from cfg and runs it over stdin/stdout.
func RunStdio(ctx context.Context, cfg Config) error {
	core, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	return server.RunStdio(ctx, core, cfg.Logger, server.ServerOptions{
		Name:    cfg.Name,
		Version: cfg.Version,
	})
}
