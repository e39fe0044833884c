// Package config defines runtime configuration for hwrt.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/hartyporpoise/hwrt/internal/cpu"
)

// Scope selects how FPU register images are kept.
type Scope string

const (
	// ScopeGlobal keeps a single image shared by the whole kernel.
	ScopeGlobal Scope = "global"
	// ScopePerContext keeps one image per context id.
	ScopePerContext Scope = "per-context"
)

var (
	// ErrUnknownFeature is returned for a disabled-feature name the
	// registry does not track.
	ErrUnknownFeature = errors.New("unknown cpu feature")
	// ErrInvalidScope is returned for an FPU scope other than ScopeGlobal
	// or ScopePerContext.
	ErrInvalidScope = errors.New("invalid fpu scope")
	// ErrInvalidContexts is returned when per-context scope has no contexts.
	ErrInvalidContexts = errors.New("per-context scope needs at least one context")
)

// Config holds all settings from the config file, environment variables and
// CLI flags, applied in that order.
type Config struct {
	// DisabledFeatures forces capabilities off after detection
	// (e.g. ["avx2", "sse4.2"]). Useful to exercise fallback paths.
	DisabledFeatures []string `yaml:"disabled_features"`

	// FPUScope selects one shared FPU image or one per context.
	FPUScope Scope `yaml:"fpu_scope"`

	// Contexts is the number of per-context FPU images. Ignored for
	// ScopeGlobal.
	Contexts int `yaml:"contexts"`

	// LogLevel is a zap level name: debug, info, warn or error.
	LogLevel string `yaml:"log_level"`

	// Host is the network interface the diagnostics server binds to.
	Host string `yaml:"host"`

	// Port is the diagnostics server port.
	Port int `yaml:"port"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		FPUScope: ScopeGlobal,
		Contexts: 1,
		LogLevel: "info",
		Host:     "127.0.0.1",
		Port:     8080,
	}
}

// Load reads a YAML file on top of the defaults. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Environment variables read by ApplyEnv.
const (
	EnvDisable  = "HWRT_DISABLE"
	EnvFPUScope = "HWRT_FPU_SCOPE"
	EnvContexts = "HWRT_CONTEXTS"
	EnvLogLevel = "HWRT_LOG_LEVEL"
	EnvHost     = "HWRT_HOST"
	EnvPort     = "HWRT_PORT"
)

// ApplyEnv overrides fields from the process environment. HWRT_DISABLE is a
// comma-separated feature list.
func (c *Config) ApplyEnv() error {
	if v := envOrDefault(EnvDisable, ""); v != "" {
		c.DisabledFeatures = splitList(v)
	}
	c.FPUScope = Scope(envOrDefault(EnvFPUScope, string(c.FPUScope)))
	c.LogLevel = envOrDefault(EnvLogLevel, c.LogLevel)
	c.Host = envOrDefault(EnvHost, c.Host)

	var err error
	if c.Contexts, err = envInt(EnvContexts, c.Contexts); err != nil {
		return err
	}
	if c.Port, err = envInt(EnvPort, c.Port); err != nil {
		return err
	}
	return nil
}

// Validate checks the configuration for values the runtime cannot use.
func (c Config) Validate() error {
	switch c.FPUScope {
	case ScopeGlobal:
	case ScopePerContext:
		if c.Contexts < 1 {
			return fmt.Errorf("%w: contexts=%d", ErrInvalidContexts, c.Contexts)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidScope, c.FPUScope)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if _, err := c.Disabled(); err != nil {
		return err
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (zapcore.Level, error) {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}

// Disabled resolves DisabledFeatures to registry features.
func (c Config) Disabled() ([]cpu.Feature, error) {
	out := make([]cpu.Feature, 0, len(c.DisabledFeatures))
	for _, name := range c.DisabledFeatures {
		f, ok := cpu.ParseFeature(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFeature, name)
		}
		out = append(out, f)
	}
	return out, nil
}

// Addr returns the diagnostics server listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// envOrDefault returns the value of an env var, or fallback if unset.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
