package config

import (
	"fmt"
	"time"
)

// Config is the full errsift configuration.
type Config struct {
	Logging LoggingConfig `koanf:"logging"`
	Sandbox SandboxConfig `koanf:"sandbox"`
	Plugins PluginsConfig `koanf:"plugins"`
}

// LoggingConfig controls diagnostic output. Logs go to stderr so they
// never mix with extraction results on stdout.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// SandboxConfig bounds untrusted plugin execution.
type SandboxConfig struct {
	MemoryLimitMB int      `koanf:"memory_limit_mb"`
	Timeout       Duration `koanf:"timeout"`
}

// PluginsConfig controls external extractor loading.
type PluginsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Dir     string `koanf:"dir"`
}

// NewDefaultConfig returns config with production-ready defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Sandbox: SandboxConfig{
			MemoryLimitMB: 64,
			Timeout:       Duration(5 * time.Second),
		},
		Plugins: PluginsConfig{
			Enabled: true,
			Dir:     "",
		},
	}
}

// Validate checks config for errors.
func (c *Config) Validate() error {
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging format must be 'json' or 'console', got %q", c.Logging.Format)
	}
	if c.Sandbox.MemoryLimitMB <= 0 {
		return fmt.Errorf("sandbox memory limit must be > 0, got %d", c.Sandbox.MemoryLimitMB)
	}
	if c.Sandbox.Timeout.Duration() <= 0 {
		return fmt.Errorf("sandbox timeout must be > 0, got %s", c.Sandbox.Timeout.Duration())
	}
	return nil
}
