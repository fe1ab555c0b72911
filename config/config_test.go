package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// writeConfig writes a YAML config file into a temp dir and returns its path
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stixpat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 1024, cfg.Cache.Size)
	assert.Equal(t, 100*time.Millisecond, cfg.Semantic.RegexTimeout)
	assert.False(t, cfg.Semantic.KnownTypesOnly)
	assert.Equal(t, 4, cfg.Bundle.Workers)
	assert.Equal(t, int64(64<<20), cfg.Bundle.MaxFileSize)
	assert.Equal(t, "text", cfg.Output.Format)
	assert.True(t, cfg.Output.Color)
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
  format: json
cache:
  size: 10
semantic:
  regex_timeout: 2s
  known_types_only: true
bundle:
  workers: 8
output:
  format: yaml
  color: false
`)

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 10, cfg.Cache.Size)
	assert.Equal(t, 2*time.Second, cfg.Semantic.RegexTimeout)
	assert.True(t, cfg.Semantic.KnownTypesOnly)
	assert.Equal(t, 8, cfg.Bundle.Workers)
	assert.Equal(t, "yaml", cfg.Output.Format)
	assert.False(t, cfg.Output.Color)
}

func TestLoadConfig_Precedence(t *testing.T) {
	path := writeConfig(t, "cache:\n  size: 10\nbundle:\n  workers: 2\n")
	t.Setenv("STIXPAT_CACHE_SIZE", "20")
	t.Setenv("STIXPAT_OUTPUT_FORMAT", "json")

	cfg, err := LoadConfig(path, map[string]interface{}{"bundle.workers": 16})
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.Cache.Size, "env overrides file")
	assert.Equal(t, 16, cfg.Bundle.Workers, "override beats file")
	assert.Equal(t, "json", cfg.Output.Format)
	assert.True(t, cfg.Output.Color)
}

func TestLoadConfig_OutputEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	tests := []struct {
		name      string
		env       map[string]string
		wantFmt   string
		wantColor bool
	}{
		{"format", map[string]string{"STIXPAT_OUTPUT_FORMAT": "yaml"}, "yaml", true},
		{"color alias", map[string]string{"STIXPAT_COLOR": "false"}, "text", false},
		{"color full name", map[string]string{"STIXPAT_OUTPUT_COLOR": "false"}, "text", false},
		{"format and color", map[string]string{"STIXPAT_OUTPUT_FORMAT": "json", "STIXPAT_COLOR": "false"}, "json", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := LoadConfig("", nil)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFmt, cfg.Output.Format)
			assert.Equal(t, tt.wantColor, cfg.Output.Color)
		})
	}
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantKey string
	}{
		{"bad log level", "log:\n  level: loud\n", "log.level"},
		{"bad log format", "log:\n  format: xml\n", "log.format"},
		{"negative cache", "cache:\n  size: -1\n", "cache.size"},
		{"zero regex timeout", "semantic:\n  regex_timeout: 0s\n", "semantic.regex_timeout"},
		{"zero workers", "bundle:\n  workers: 0\n", "bundle.workers"},
		{"bad output", "output:\n  format: csv\n", "output.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content), nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "config validation failed")
			assert.Contains(t, err.Error(), tt.wantKey)
		})
	}
}

func TestNewLogger(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := LoadConfig("", map[string]interface{}{"log.level": "info", "log.format": "json"})
	require.NoError(t, err)

	var buf bytes.Buffer
	logger, err := newLogger(cfg, &buf)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("shown", zap.String("pattern", "[a:b = 1]"))
	require.NoError(t, logger.Sync())

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"pattern":"[a:b = 1]"`)

	cfg.Log.Level = "chatty"
	_, err = NewLogger(cfg)
	assert.Error(t, err)
}

func TestConfigKey(t *testing.T) {
	assert.Equal(t, "bundle.workers", configKey("Config.bundle.workers"))
	assert.Equal(t, "x", configKey("x"))
	assert.True(t, strings.HasPrefix(configKey("Config.log.level"), "log"))
}
