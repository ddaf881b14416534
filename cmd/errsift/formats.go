package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List registered extractors",
	Long: `List every registered extractor with its selection priority and
trust tier, in selection order. Plugins from the plugin directory are
included.`,
	Args: cobra.NoArgs,
	RunE: runFormats,
}

func runFormats(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tPRIORITY\tTRUST")
	for _, entry := range a.registry.Entries() {
		fmt.Fprintf(w, "%s\t%d\t%s\n",
			entry.Extractor.Name(),
			entry.Extractor.Priority(),
			entry.Trust,
		)
	}
	return w.Flush()
}
