// Package main implements the errsift CLI: it reads raw tool output
// from a file or stdin and emits a bounded structured error report.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// configPath overrides the default config file location
	configPath string
	// pluginDir overrides the configured plugin directory
	pluginDir string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "errsift",
	Short: "Convert raw build, lint and test output into structured error reports",
	Long: `errsift ingests the raw output of build, lint and test tools,
auto-detects the format, and emits a bounded structured error report
suitable for machine consumption.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default ~/.config/errsift/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&pluginDir, "plugin-dir", "", "directory of plugin manifest/WASM pairs (overrides config)")
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(formatsCmd)
}
