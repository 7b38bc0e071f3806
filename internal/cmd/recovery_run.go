package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/calder/vestige/internal/catalog"
	"github.com/calder/vestige/internal/config"
	"github.com/calder/vestige/internal/fileutil"
	"github.com/calder/vestige/internal/logger"
	"github.com/calder/vestige/internal/recovery"
	"github.com/calder/vestige/internal/report"
)

// newRecoveryRunCommand creates the 'vestige recovery run' command
func newRecoveryRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <source-dir>",
		Short: "Recover files from a directory tree by signature",
		Long: `Walk a directory tree, identify files by their magic bytes, and copy
recoverable hits into per-type subdirectories of the output directory.

Identified files are validated against content markers; files missing
their end-of-file trailer are still recovered but flagged as truncated.
The run is recorded in the evidence catalog unless --no-catalog is set.

Configuration is loaded from .vestige/config.yaml if present.
CLI flags override configuration file settings.

Examples:
  vestige recovery run /mnt/usb-image
  vestige recovery run /mnt/usb-image -o /cases/0042/recovered
  vestige recovery run /mnt/usb-image --types png,jpg,pdf
  vestige recovery run /mnt/usb-image --timeout 10m --report run.md
  vestige recovery run /mnt/usb-image --audit-log /cases/0042/logs
  vestige recovery run /mnt/usb-image --no-catalog`,
		Args: cobra.ExactArgs(1),
		RunE: runRecovery,
	}

	// Add flags
	cmd.Flags().String("config", "", "Path to config file (default: .vestige/config.yaml)")
	cmd.Flags().StringP("output", "o", "", "Directory for recovered files (default: ./recovered)")
	cmd.Flags().StringSlice("types", nil, "Restrict recovery to these file types (default: all known)")
	cmd.Flags().Int64("min-size", 0, "Skip files smaller than this many bytes")
	cmd.Flags().String("timeout", "", "Maximum run time (e.g. 30s, 10m)")
	cmd.Flags().Bool("no-catalog", false, "Do not record this run in the evidence catalog")
	cmd.Flags().String("report", "", "Write a markdown report to this path")
	cmd.Flags().String("report-html", "", "Write an HTML report to this path")
	cmd.Flags().String("log-level", "", "Log verbosity (trace, debug, info, warn, error)")
	cmd.Flags().String("audit-log", "", "Directory for per-run log files (default: disabled)")
	cmd.Flags().String("db-path", "", "Path to catalog database (for testing)")

	return cmd
}

// runRecovery implements the recovery run command logic
func runRecovery(cmd *cobra.Command, args []string) error {
	output := cmd.OutOrStdout()

	// Load configuration from file
	configPath, _ := cmd.Flags().GetString("config")
	var cfg *config.Config
	var err error

	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("load config from %s: %w", configPath, err)
		}
	} else {
		cfg, err = config.LoadConfigFromDir(".")
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}

	// Build flag pointers for merge (only values the user set)
	var logLevelPtr *string
	if cmd.Flags().Changed("log-level") {
		logLevel, _ := cmd.Flags().GetString("log-level")
		logLevelPtr = &logLevel
	}

	var outputDirPtr *string
	if cmd.Flags().Changed("output") {
		outputDir, _ := cmd.Flags().GetString("output")
		outputDirPtr = &outputDir
	}

	var typesPtr *[]string
	if cmd.Flags().Changed("types") {
		types, _ := cmd.Flags().GetStringSlice("types")
		typesPtr = &types
	}

	var timeoutPtr *time.Duration
	if cmd.Flags().Changed("timeout") {
		timeoutStr, _ := cmd.Flags().GetString("timeout")
		timeout, err := time.ParseDuration(timeoutStr)
		if err != nil {
			return fmt.Errorf("invalid timeout format %q: %w", timeoutStr, err)
		}
		timeoutPtr = &timeout
	}

	var noCatalogPtr *bool
	if cmd.Flags().Changed("no-catalog") {
		noCatalog, _ := cmd.Flags().GetBool("no-catalog")
		noCatalogPtr = &noCatalog
	}

	cfg.MergeWithFlags(logLevelPtr, outputDirPtr, typesPtr, timeoutPtr, noCatalogPtr)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	minSize := cfg.Recovery.MinSizeBytes
	if cmd.Flags().Changed("min-size") {
		minSize, _ = cmd.Flags().GetInt64("min-size")
	}

	var log logger.Logger = logger.NewConsoleLogger(output, cfg.LogLevel)
	if auditDir, _ := cmd.Flags().GetString("audit-log"); auditDir != "" {
		fileLog, err := logger.NewFileLogger(auditDir, cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("open audit log: %w", err)
		}
		defer fileLog.Close()
		log = logger.NewTeeLogger(log, fileLog)
	}

	summary, err := recovery.Run(cmd.Context(), recovery.Options{
		Source:       args[0],
		OutputDir:    cfg.Recovery.OutputDir,
		Types:        cfg.Recovery.Types,
		MinSizeBytes: minSize,
		Timeout:      cfg.Recovery.Timeout,
		Logger:       log,
	})
	if err != nil {
		return err
	}

	printRecoverySummary(output, summary)

	if cfg.Catalog.Enabled {
		if err := recordInCatalog(cmd, cfg, summary); err != nil {
			return err
		}
	}

	if reportPath, _ := cmd.Flags().GetString("report"); reportPath != "" {
		if err := report.WriteMarkdown(summary, reportPath); err != nil {
			return err
		}
		fmt.Fprintf(output, "Report written to %s\n", reportPath)
	}

	if htmlPath, _ := cmd.Flags().GetString("report-html"); htmlPath != "" {
		if err := report.WriteHTML(summary, htmlPath); err != nil {
			return err
		}
		fmt.Fprintf(output, "HTML report written to %s\n", htmlPath)
	}

	return nil
}

// recordInCatalog persists a finished run in the evidence catalog
func recordInCatalog(cmd *cobra.Command, cfg *config.Config, summary *recovery.Summary) error {
	dbPathFlag, _ := cmd.Flags().GetString("db-path")
	dbPath, err := catalogDBPath(cfg, dbPathFlag)
	if err != nil {
		return fmt.Errorf("resolve catalog path: %w", err)
	}

	store, err := catalog.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer store.Close()

	run := &catalog.Run{
		ID:              summary.RunID,
		StartedAt:       summary.StartedAt,
		Source:          summary.Source,
		OutputDir:       summary.OutputDir,
		FilesScanned:    summary.Scanned,
		FilesIdentified: summary.Identified,
		Truncated:       summary.Truncated,
		BytesRecovered:  summary.BytesRecovered,
		DurationSecs:    int64(summary.Duration / time.Second),
		TimedOut:        summary.TimedOut,
	}

	ctx := cmd.Context()
	if err := store.RecordRun(ctx, run); err != nil {
		return fmt.Errorf("record run in catalog: %w", err)
	}

	files := make([]catalog.File, 0, len(summary.Files))
	for _, f := range summary.Files {
		files = append(files, catalog.File{
			Type:       f.Type,
			SourcePath: f.SourcePath,
			OutputPath: f.RecoveredPath,
			SizeBytes:  f.SizeBytes,
			Complete:   !f.Truncated,
		})
	}
	if err := store.RecordFiles(ctx, run.ID, files); err != nil {
		return fmt.Errorf("record files in catalog: %w", err)
	}

	return nil
}

// printRecoverySummary formats and prints the outcome of a recovery run
func printRecoverySummary(w io.Writer, summary *recovery.Summary) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	cyan.Fprintf(w, "\n=== Recovery Summary ===\n\n")
	fmt.Fprintf(w, "Run ID: %s\n", summary.RunID)
	fmt.Fprintf(w, "  Scanned: %d files\n", summary.Scanned)
	fmt.Fprintf(w, "  Identified: ")
	green.Fprintf(w, "%d\n", summary.Identified)
	fmt.Fprintf(w, "  Truncated: %d\n", summary.Truncated)
	fmt.Fprintf(w, "  False positives: %d\n", summary.FalsePositives)
	if summary.SkippedOversize > 0 {
		fmt.Fprintf(w, "  Skipped oversize: %d\n", summary.SkippedOversize)
	}
	fmt.Fprintf(w, "  Recovered: %s in %s\n",
		fileutil.FormatBytes(summary.BytesRecovered), logger.FormatDuration(summary.Duration))

	if summary.TimedOut {
		yellow.Fprintf(w, "  Run hit its time limit before scanning everything\n")
	}

	if len(summary.ByType) > 0 {
		fmt.Fprintf(w, "\n")
		cyan.Fprintf(w, "By type:\n")
		for _, name := range summary.SortedTypes() {
			stats := summary.ByType[name]
			fmt.Fprintf(w, "  %s: %d", name, stats.Identified)
			if stats.Truncated > 0 {
				fmt.Fprintf(w, ", %d truncated", stats.Truncated)
			}
			fmt.Fprintf(w, " (%s)\n", fileutil.FormatBytes(stats.Bytes))
		}
	}

	if len(summary.Errors) > 0 {
		fmt.Fprintf(w, "\n")
		cyan.Fprintf(w, "Scan errors:\n")
		for _, e := range summary.Errors {
			fmt.Fprintf(w, "  - ")
			red.Fprintf(w, "%s\n", e)
		}
	}

	fmt.Fprintf(w, "\n")
}
