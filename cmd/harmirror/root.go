// Package main provides the entry point for the harmirror CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for harmirror.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harmirror",
		Short: "Reconstruct a static site mirror from a HAR capture",
		Long: `harmirror reconstructs a static mirror of a captured web session from an
HTTP Archive (HAR) file.

Recorded response bodies are written to paths derived from their URLs, and
the site's entry HTML document is patched so script and stylesheet
references resolve locally. Image references are deliberately left pointing
at their original hosts, since image bodies are never extracted.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewMirrorCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
