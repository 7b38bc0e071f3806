package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/calder/vestige/internal/metadata"
)

// NewMetadataCommand creates the 'vestige metadata' parent command
func NewMetadataCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metadata",
		Short: "Document metadata inspection and scrubbing commands",
		Long: `Commands for extracting and clearing metadata from evidence files.

Extraction is a shallow container walk: PNG text chunks, JPEG marker
segments, PDF Info dictionary and XMP packet, and Office docProps parts.
Clearing rewrites only the metadata surfaces. PDF clears keep the exact
byte length of the original so cross references stay valid.`,
	}

	// Add subcommands
	cmd.AddCommand(newImageExtractCommand())
	cmd.AddCommand(newImageClearCommand())
	cmd.AddCommand(newPDFExtractCommand())
	cmd.AddCommand(newPDFClearCommand())
	cmd.AddCommand(newDOCXExtractCommand())
	cmd.AddCommand(newDOCXClearCommand())

	return cmd
}

// printExtracted writes a document either as indented JSON or as grouped
// human-readable fields.
func printExtracted(w io.Writer, doc *metadata.Document, asJSON bool) error {
	if asJSON {
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		fmt.Fprintln(w, string(data))
		return nil
	}

	printDocument(w, doc)
	return nil
}

// printDocument formats extracted metadata grouped by category
func printDocument(w io.Writer, doc *metadata.Document) {
	cyan := color.New(color.FgCyan, color.Bold)

	cyan.Fprintf(w, "\n=== Metadata: %s ===\n", doc.Path)
	fmt.Fprintf(w, "Format: %s\n", doc.Format)

	if len(doc.Fields) == 0 {
		fmt.Fprintf(w, "\nNo metadata fields found.\n")
		return
	}

	// Categories keep their first-appearance order
	var categories []string
	seen := make(map[string]bool)
	for _, f := range doc.Fields {
		if !seen[f.Category] {
			seen[f.Category] = true
			categories = append(categories, f.Category)
		}
	}

	for _, category := range categories {
		fmt.Fprintf(w, "\n%s:\n", category)
		for _, f := range doc.FieldsInCategory(category) {
			fmt.Fprintf(w, "  %-18s %s\n", f.Key+":", f.Value)
		}
	}
}

// printCleared reports the outcome of a clear operation
func printCleared(w io.Writer, result *metadata.ClearResult) {
	if result.RemovedFields == 0 {
		fmt.Fprintf(w, "No metadata to remove; wrote clean copy to %s\n", result.OutputPath)
		return
	}
	fmt.Fprintf(w, "Removed %d metadata fields, wrote %s\n", result.RemovedFields, result.OutputPath)
}
