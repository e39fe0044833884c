package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/hartyporpoise/hwrt/internal/cpu"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hwrt.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ScopeGlobal, cfg.FPUScope)
	assert.Equal(t, "127.0.0.1:8080", cfg.Addr())
}

func TestLoad(t *testing.T) {
	path := writeFile(t, `
disabled_features: [avx2, "sse4.2"]
fpu_scope: per-context
contexts: 4
log_level: debug
port: 9090
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ScopePerContext, cfg.FPUScope)
	assert.Equal(t, 4, cfg.Contexts)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "127.0.0.1", cfg.Host, "unset keys keep defaults")

	lvl, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, lvl)

	disabled, err := cfg.Disabled()
	require.NoError(t, err)
	assert.Equal(t, []cpu.Feature{cpu.AVX2, cpu.SSE42}, disabled)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeFile(t, "no_such_key: 1\n"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvDisable, "avx2, sse4.1 ,")
	t.Setenv(EnvFPUScope, "per-context")
	t.Setenv(EnvContexts, "8")
	t.Setenv(EnvLogLevel, "warn")
	t.Setenv(EnvPort, "7000")

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv())
	assert.Equal(t, []string{"avx2", "sse4.1"}, cfg.DisabledFeatures)
	assert.Equal(t, ScopePerContext, cfg.FPUScope)
	assert.Equal(t, 8, cfg.Contexts)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, "127.0.0.1", cfg.Host)
}

func TestApplyEnvBadNumber(t *testing.T) {
	t.Setenv(EnvPort, "eighty")
	cfg := Default()
	assert.Error(t, cfg.ApplyEnv())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"bad scope", func(c *Config) { c.FPUScope = "per-cpu" }, ErrInvalidScope},
		{"no contexts", func(c *Config) { c.FPUScope = ScopePerContext; c.Contexts = 0 }, ErrInvalidContexts},
		{"unknown feature", func(c *Config) { c.DisabledFeatures = []string{"avx512"} }, ErrUnknownFeature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.want)
		})
	}

	cfg := Default()
	cfg.LogLevel = "loud"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Port = 70000
	assert.Error(t, cfg.Validate())
}
