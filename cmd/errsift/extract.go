package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/errsift/internal/schema"
)

var (
	// extractCommand is the command line that produced the output,
	// recorded as context only and never executed
	extractCommand string
	// forcedExtractor bypasses auto-detection when set
	forcedExtractor string
	// outputFormat is "json" or "text"
	outputFormat string
)

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract structured errors from raw tool output",
	Long: `Extract structured errors from raw tool output.

The format is auto-detected; use --extractor to force one.

Examples:
  # Extract from a file
  errsift extract build.log

  # Extract from stdin
  npm test 2>&1 | errsift extract -

  # Force a specific format
  errsift extract --extractor eslint lint.log

  # Record the command that produced the output
  errsift extract --command "tsc --noEmit" tsc.log`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVar(&extractCommand, "command", "", "command that produced the output (context only)")
	extractCmd.Flags().StringVar(&forcedExtractor, "extractor", "", "force a specific extractor instead of auto-detecting")
	extractCmd.Flags().StringVarP(&outputFormat, "output", "o", "json", "output format: json or text")
}

func runExtract(cmd *cobra.Command, args []string) error {
	if outputFormat != "json" && outputFormat != "text" {
		return fmt.Errorf("output format must be 'json' or 'text', got %q", outputFormat)
	}

	content, err := readInput(args)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := context.Background()
	var result schema.ExtractionResult
	if forcedExtractor != "" {
		result, err = a.selector.ExtractWith(ctx, forcedExtractor, string(content), extractCommand)
		if err != nil {
			return err
		}
	} else {
		result = a.selector.AutoDetectAndExtract(ctx, string(content), extractCommand)
	}

	return writeResult(cmd.OutOrStdout(), result)
}

// readInput reads the whole input from the named file, or from stdin
// when no file (or "-") is given. Empty input is valid: the pipeline
// reports zero errors for it.
func readInput(args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		content, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read from stdin: %w", err)
		}
		return content, nil
	}
	content, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", args[0], err)
	}
	return content, nil
}

// writeResult renders the extraction result as JSON or plain text.
func writeResult(w io.Writer, result schema.ExtractionResult) error {
	if outputFormat == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	var b strings.Builder
	b.WriteString(result.Summary)
	b.WriteString("\n")
	if result.ErrorSummary != "" {
		b.WriteString("\n")
		b.WriteString(result.ErrorSummary)
		b.WriteString("\n")
	}
	if result.Guidance != "" {
		b.WriteString("\nGuidance: ")
		b.WriteString(result.Guidance)
		b.WriteString("\n")
	}
	if result.TotalErrors > len(result.Errors) {
		fmt.Fprintf(&b, "\nShowing %d of %d errors.\n", len(result.Errors), result.TotalErrors)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
