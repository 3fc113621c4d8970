package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootVerbose bool

var rootCmd = &cobra.Command{
	Use:   "scribe",
	Short: "Documentation-grounded script generation",
	Long: `Scribe turns a natural-language request into an executable script.

The request is decomposed into atomic subtasks, each subtask is resolved
against a documentation search service by a specialist agent running in
parallel with its siblings, and the retrieved command fragments are woven
into one script that respects the subtask dependency order.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&rootVerbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
