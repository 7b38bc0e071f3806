package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/calder/vestige/internal/catalog"
	"github.com/calder/vestige/internal/config"
	"github.com/calder/vestige/internal/fileutil"
)

// newHistoryCommand creates the 'vestige recovery history' command
func newHistoryCommand() *cobra.Command {
	var limit int
	var runID string
	var dbPath string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past recovery runs from the evidence catalog",
		Long: `List recorded recovery runs, most recent first.

With --run, list the files recovered by one run instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := cmd.OutOrStdout()

			cfg, err := config.LoadConfigFromDir(".")
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			path, err := catalogDBPath(cfg, dbPath)
			if err != nil {
				return fmt.Errorf("resolve catalog path: %w", err)
			}

			if _, err := os.Stat(path); os.IsNotExist(err) {
				fmt.Fprintf(output, "No recovery runs recorded.\n")
				fmt.Fprintf(output, "Catalog path: %s\n", path)
				return nil
			}

			store, err := catalog.Open(path)
			if err != nil {
				return fmt.Errorf("open catalog: %w", err)
			}
			defer store.Close()

			if runID != "" {
				files, err := store.RunFiles(cmd.Context(), runID)
				if err != nil {
					return fmt.Errorf("load run files: %w", err)
				}
				printRunFiles(output, runID, files)
				return nil
			}

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}
			printRuns(output, runs)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Limit number of runs (0 for all)")
	cmd.Flags().StringVar(&runID, "run", "", "Show the files recovered by this run ID")
	cmd.Flags().StringVar(&dbPath, "db-path", "", "Path to catalog database (for testing)")

	return cmd
}

// printRuns renders the run list
func printRuns(w io.Writer, runs []*catalog.Run) {
	if len(runs) == 0 {
		fmt.Fprintf(w, "No recovery runs recorded.\n")
		return
	}

	cyan := color.New(color.FgCyan, color.Bold)
	yellow := color.New(color.FgYellow)

	cyan.Fprintf(w, "\n=== Recovery Runs ===\n\n")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\n", run.ID)
		fmt.Fprintf(w, "  Started: %s\n", run.StartedAt.Local().Format("2006-01-02 15:04:05"))
		fmt.Fprintf(w, "  Source: %s\n", run.Source)
		fmt.Fprintf(w, "  Output: %s\n", run.OutputDir)
		fmt.Fprintf(w, "  Identified %d of %d scanned", run.FilesIdentified, run.FilesScanned)
		if run.Truncated > 0 {
			fmt.Fprintf(w, " (%d truncated)", run.Truncated)
		}
		fmt.Fprintf(w, ", %s in %s\n",
			fileutil.FormatBytes(run.BytesRecovered),
			(time.Duration(run.DurationSecs) * time.Second).String())
		if run.TimedOut {
			yellow.Fprintf(w, "  Timed out\n")
		}
		fmt.Fprintf(w, "\n")
	}
}

// printRunFiles renders the files recovered by one run
func printRunFiles(w io.Writer, runID string, files []*catalog.File) {
	if len(files) == 0 {
		fmt.Fprintf(w, "No files recorded for run %s.\n", runID)
		return
	}

	cyan := color.New(color.FgCyan, color.Bold)
	cyan.Fprintf(w, "\n=== Files from run %s ===\n\n", runID)

	for _, f := range files {
		fmt.Fprintf(w, "  [%s] %s (%s", f.Type, f.OutputPath, fileutil.FormatBytes(f.SizeBytes))
		if !f.Complete {
			fmt.Fprintf(w, ", truncated")
		}
		fmt.Fprintf(w, ")\n")
		fmt.Fprintf(w, "      from %s\n", f.SourcePath)
	}
	fmt.Fprintf(w, "\n")
}
