package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/errsift/internal/config"
	"github.com/fyrsmithlabs/errsift/internal/logging"
	"github.com/fyrsmithlabs/errsift/internal/plugin"
	"github.com/fyrsmithlabs/errsift/internal/registry"
	"github.com/fyrsmithlabs/errsift/internal/sandbox"
	"github.com/fyrsmithlabs/errsift/internal/selector"
)

// app holds the wired services behind every subcommand.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *registry.Registry
	selector *selector.Service
}

// newApp loads configuration, builds the logger, registers built-ins
// plus any configured plugins, freezes the registry and constructs the
// selector.
func newApp() (*app, error) {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return nil, err
	}
	if pluginDir != "" {
		cfg.Plugins.Dir = pluginDir
		cfg.Plugins.Enabled = true
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}

	sb := sandbox.New(sandbox.Config{
		MemoryLimitMB: cfg.Sandbox.MemoryLimitMB,
		Timeout:       cfg.Sandbox.Timeout.Duration(),
	}, logger)

	reg := registry.Default()
	if cfg.Plugins.Enabled && cfg.Plugins.Dir != "" {
		if err := loadPlugins(reg, sb, logger, cfg.Plugins.Dir); err != nil {
			return nil, err
		}
	}
	reg.Freeze()

	sel, err := selector.New(reg, sb, logger)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		registry: reg,
		selector: sel,
	}, nil
}

// close flushes the logger.
func (a *app) close() {
	_ = logging.Sync(a.logger)
}

// loadPlugins registers every manifest/module pair in dir. Each plugin
// is a <name>.yaml manifest next to a <name>.wasm module. A plugin that
// fails to load is skipped with a warning; one bad plugin must not take
// the CLI down.
func loadPlugins(reg *registry.Registry, sb *sandbox.Sandbox, logger *zap.Logger, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read plugin directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		base := strings.TrimSuffix(entry.Name(), ".yaml")
		manifestPath := filepath.Join(dir, entry.Name())
		modulePath := filepath.Join(dir, base+".wasm")

		manifestData, err := os.ReadFile(manifestPath)
		if err != nil {
			logger.Warn("skipping plugin: unreadable manifest",
				zap.String("path", manifestPath), zap.Error(err))
			continue
		}
		code, err := os.ReadFile(modulePath)
		if err != nil {
			logger.Warn("skipping plugin: missing WASM module",
				zap.String("path", modulePath), zap.Error(err))
			continue
		}

		loaded, err := plugin.Load(manifestData, code, sb, logger)
		if err != nil {
			logger.Warn("skipping plugin: failed to load",
				zap.String("manifest", manifestPath), zap.Error(err))
			continue
		}
		if err := reg.Register(loaded.Extractor, loaded.Trust); err != nil {
			logger.Warn("skipping plugin: registration rejected",
				zap.String("plugin", loaded.Manifest.Name), zap.Error(err))
			continue
		}
		logger.Info("plugin registered",
			zap.String("plugin", loaded.Manifest.Name),
			zap.String("version", loaded.Manifest.Version),
			zap.Int("priority", loaded.Manifest.Priority),
		)
	}
	return nil
}
