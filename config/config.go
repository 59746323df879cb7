// Package config loads uibridge settings from file and environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configFileName = "config.yaml"
	configDirName  = "uibridge"
	cacheFileName  = "ui-cache.json"
)

// duration wraps time.Duration for YAML unmarshaling.
type duration struct {
	d time.Duration
}

func (d *duration) unmarshalText(s string) error {
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.d = parsed
	return nil
}

func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	return d.unmarshalText(value.Value)
}

func (d *duration) Duration() time.Duration {
	return d.d
}

// Config for uibridge. Pointer fields; nil = unset.
type Config struct {
	Standard          *string         `yaml:"standard"`
	CachePath         *string         `yaml:"cache_path"`
	Instruction       *string         `yaml:"instruction"`
	MetaTool          *string         `yaml:"meta_tool"`
	GenerationTimeout *duration       `yaml:"generation_timeout"`
	SampleTimeout     *duration       `yaml:"sample_timeout"`
	Model             *string         `yaml:"model"`
	MaxTokens         *int            `yaml:"max_tokens"`
	Upstream          *UpstreamConfig `yaml:"upstream"`
}

// UpstreamConfig selects the wrapped MCP server: a stdio subprocess
// when Command is set, otherwise an SSE endpoint URL.
type UpstreamConfig struct {
	Command *string  `yaml:"command"`
	Args    []string `yaml:"args"`
	URL     *string  `yaml:"url"`
}

// LoadFrom loads config from path. Missing files return zero Config, nil.
func LoadFrom(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else if len(data) > 0 {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func Load() (Config, error) {
	return LoadFrom(defaultConfigPath())
}

func (c *Config) applyEnvOverrides() error {
	if v, ok := os.LookupEnv("UIBRIDGE_STANDARD"); ok {
		c.Standard = &v
	}
	if v, ok := os.LookupEnv("UIBRIDGE_CACHE_PATH"); ok {
		c.CachePath = &v
	}
	if v, ok := os.LookupEnv("UIBRIDGE_INSTRUCTION"); ok {
		c.Instruction = &v
	}
	if v, ok := os.LookupEnv("UIBRIDGE_META_TOOL"); ok {
		c.MetaTool = &v
	}
	if v, ok := os.LookupEnv("UIBRIDGE_GENERATION_TIMEOUT"); ok {
		d := &duration{}
		if err := d.unmarshalText(v); err != nil {
			return fmt.Errorf("parse UIBRIDGE_GENERATION_TIMEOUT: %w", err)
		}
		c.GenerationTimeout = d
	}
	if v, ok := os.LookupEnv("UIBRIDGE_SAMPLE_TIMEOUT"); ok {
		d := &duration{}
		if err := d.unmarshalText(v); err != nil {
			return fmt.Errorf("parse UIBRIDGE_SAMPLE_TIMEOUT: %w", err)
		}
		c.SampleTimeout = d
	}
	if v, ok := os.LookupEnv("UIBRIDGE_MODEL"); ok {
		c.Model = &v
	}
	if v, ok := os.LookupEnv("UIBRIDGE_MAX_TOKENS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse UIBRIDGE_MAX_TOKENS: %w", err)
		}
		c.MaxTokens = &n
	}

	if v, ok := os.LookupEnv("UIBRIDGE_UPSTREAM_COMMAND"); ok {
		if c.Upstream == nil {
			c.Upstream = &UpstreamConfig{}
		}
		fields := strings.Fields(v)
		if len(fields) > 0 {
			c.Upstream.Command = &fields[0]
			c.Upstream.Args = fields[1:]
		}
	}
	if v, ok := os.LookupEnv("UIBRIDGE_UPSTREAM_URL"); ok {
		if c.Upstream == nil {
			c.Upstream = &UpstreamConfig{}
		}
		c.Upstream.URL = &v
	}

	return nil
}

func (c *Config) validate() error {
	if c.Standard != nil && strings.TrimSpace(*c.Standard) == "" {
		return errors.New("standard must not be blank")
	}
	if c.GenerationTimeout != nil && c.GenerationTimeout.Duration() <= 0 {
		return fmt.Errorf("generation_timeout must be positive, got %v", c.GenerationTimeout.Duration())
	}
	if c.GenerationTimeout != nil && c.GenerationTimeout.Duration() > 10*time.Minute {
		return fmt.Errorf("generation_timeout must not exceed 10m, got %v", c.GenerationTimeout.Duration())
	}
	if c.SampleTimeout != nil && c.SampleTimeout.Duration() <= 0 {
		return fmt.Errorf("sample_timeout must be positive, got %v", c.SampleTimeout.Duration())
	}
	if c.SampleTimeout != nil && c.SampleTimeout.Duration() > time.Minute {
		return fmt.Errorf("sample_timeout must not exceed 1m, got %v", c.SampleTimeout.Duration())
	}
	if c.MaxTokens != nil && *c.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive, got %d", *c.MaxTokens)
	}
	if c.MaxTokens != nil && *c.MaxTokens > 200000 {
		return fmt.Errorf("max_tokens must not exceed 200000, got %d", *c.MaxTokens)
	}
	if c.Upstream != nil {
		hasCommand := c.Upstream.Command != nil && strings.TrimSpace(*c.Upstream.Command) != ""
		hasURL := c.Upstream.URL != nil && strings.TrimSpace(*c.Upstream.URL) != ""
		if hasCommand && hasURL {
			return errors.New("upstream.command and upstream.url are mutually exclusive")
		}
		if !hasCommand && len(c.Upstream.Args) > 0 {
			return errors.New("upstream.args requires upstream.command")
		}
	}
	return nil
}

// DefaultCachePath is where the artifact store persists when cache_path
// is unset.
func DefaultCachePath() string {
	dir := os.Getenv("XDG_CACHE_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".cache")
	}
	return filepath.Join(dir, configDirName, cacheFileName)
}

func defaultConfigPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, configDirName, configFileName)
}
