package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/calder/vestige/internal/config"
	"github.com/calder/vestige/internal/fileutil"
	"github.com/calder/vestige/internal/metadata"
)

// newPDFExtractCommand creates the 'vestige metadata pdf-extract' command
func newPDFExtractCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "pdf-extract <pdf>",
		Short: "Extract Info dictionary and XMP metadata from a PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := metadata.ExtractPDF(args[0])
			if err != nil {
				return err
			}
			return printExtracted(cmd.OutOrStdout(), doc, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")

	return cmd
}

// newPDFClearCommand creates the 'vestige metadata pdf-clear' command
func newPDFClearCommand() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "pdf-clear <pdf>",
		Short: "Blank PDF Info and XMP metadata in place",
		Long: `Write a copy of a PDF with its Info dictionary strings and XMP packet
blanked out.

Values are padded to their original byte length instead of being removed,
so object offsets and the cross reference table stay valid and the copy
opens in any reader.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			dest := outputPath
			if dest == "" {
				cfg, err := config.LoadConfigFromDir(".")
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				dest = fileutil.DerivedPath(path, cfg.CleanOutputSuffix)
			}

			result, err := metadata.ClearPDF(path, dest)
			if err != nil {
				return err
			}
			printCleared(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Destination for the clean copy (default: <pdf>_clean.pdf)")

	return cmd
}
