package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/nao1215/harmirror/internal/config"
	"github.com/nao1215/harmirror/internal/database"
	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [archive]",
		Short: "Show past mirror runs",
		Long: `History lists mirror runs recorded in the local database, newest first.

With no argument every archive is listed. Naming an archive restricts the
listing to runs of that archive.

Examples:
  # Show all recorded runs
  harmirror history

  # Show runs for one archive
  harmirror history site.har

  # Machine-readable output
  harmirror history --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("json", "j", false, "Output history as JSON")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	archive := ""
	if len(args) == 1 {
		archive = args[0]
	}

	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	dbDir := config.XDGDataDir()
	if _, err := os.Stat(dbDir); os.IsNotExist(err) {
		fmt.Println("No mirror runs recorded yet.")
		return nil
	}

	db, err := database.Open(dbDir, database.Options{CreateIfNotExists: false})
	if err != nil {
		fmt.Println("No mirror runs recorded yet.")
		return nil //nolint:nilerr // a missing database just means nothing ran yet
	}
	defer db.Close()

	runs, err := db.GetRunHistory(cmd.Context(), archive)
	if err != nil {
		return fmt.Errorf("failed to read run history: %w", err)
	}

	if asJSON {
		return printHistoryJSON(runs)
	}
	printHistoryTable(runs)
	return nil
}

// printHistoryJSON writes the run list as indented JSON to stdout.
func printHistoryJSON(runs []database.RunMetadata) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(runs)
}

// printHistoryTable writes a human-readable run listing to stdout.
func printHistoryTable(runs []database.RunMetadata) {
	if len(runs) == 0 {
		fmt.Println("No mirror runs recorded yet.")
		return
	}

	for _, run := range runs {
		fmt.Printf("[%d] %s\n", run.ID, run.Timestamp.Format("2006-01-02 15:04:05"))
		fmt.Printf("    Archive:   %s\n", run.Archive)
		fmt.Printf("    Site root: %s\n", run.SiteRoot)
		if len(run.Summary) > 0 {
			fmt.Printf("    Written: %d, Skipped (image): %d, Skipped (no body): %d, Failed: %d\n",
				run.Summary["written"],
				run.Summary["skipped_image"],
				run.Summary["skipped_no_body"],
				run.Summary["failed"])
		}
		fmt.Println()
	}
	fmt.Printf("Total: %d run(s)\n", len(runs))
}
