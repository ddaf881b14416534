package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadWithFile_Defaults(t *testing.T) {
	// An empty file leaves every default in place.
	path := writeConfig(t, "")

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 64, cfg.Sandbox.MemoryLimitMB)
	assert.Equal(t, 5*time.Second, cfg.Sandbox.Timeout.Duration())
	assert.True(t, cfg.Plugins.Enabled)
}

func TestLoadWithFile_YAMLOverrides(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
  format: console
sandbox:
  memory_limit_mb: 32
  timeout: 2s
plugins:
  dir: /opt/errsift/plugins
`)

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, 32, cfg.Sandbox.MemoryLimitMB)
	assert.Equal(t, 2*time.Second, cfg.Sandbox.Timeout.Duration())
	assert.Equal(t, "/opt/errsift/plugins", cfg.Plugins.Dir)
}

func TestLoadWithFile_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: debug\n")
	t.Setenv("ERRSIFT_LOGGING_LEVEL", "warn")
	t.Setenv("ERRSIFT_SANDBOX_TIMEOUT", "1s")

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, time.Second, cfg.Sandbox.Timeout.Duration())
}

func TestLoadWithFile_ExplicitMissingFileFails(t *testing.T) {
	_, err := LoadWithFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLoadWithFile_InsecurePermissionsRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: info\n"), 0o644))

	_, err := LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insecure")
}

func TestLoadWithFile_InvalidValuesRejected(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "bad format", yaml: "logging:\n  format: xml\n"},
		{name: "zero memory", yaml: "sandbox:\n  memory_limit_mb: -1\n"},
		{name: "negative timeout", yaml: "sandbox:\n  timeout: -3s\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadWithFile(writeConfig(t, tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestDuration_UnmarshalText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1500ms")))
	assert.Equal(t, 1500*time.Millisecond, d.Duration())

	assert.Error(t, d.UnmarshalText([]byte("-1s")))
	assert.Error(t, d.UnmarshalText([]byte("soon")))
}

func TestDuration_MarshalJSON(t *testing.T) {
	d := Duration(90 * time.Second)
	b, err := d.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"1m30s"`, string(b))
}
