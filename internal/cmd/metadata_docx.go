package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/calder/vestige/internal/config"
	"github.com/calder/vestige/internal/fileutil"
	"github.com/calder/vestige/internal/metadata"
)

// newDOCXExtractCommand creates the 'vestige metadata docx-extract' command
func newDOCXExtractCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "docx-extract <docx>",
		Short: "Extract docProps metadata from an Office document",
		Long: `List the core and app properties of an Office Open XML document
(docx, xlsx, pptx): author, company, timestamps, revision, and the rest of
the docProps surface.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := metadata.ExtractDOCX(args[0])
			if err != nil {
				return err
			}
			return printExtracted(cmd.OutOrStdout(), doc, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")

	return cmd
}

// newDOCXClearCommand creates the 'vestige metadata docx-clear' command
func newDOCXClearCommand() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "docx-clear <docx>",
		Short: "Scrub core properties from an Office document",
		Long: `Write a copy of an Office Open XML document whose docProps/core.xml has
been replaced with an empty property set. Document content and every other
archive entry are copied through byte for byte.`,
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

			result, err := metadata.ClearDOCX(path, dest)
			if err != nil {
				return err
			}
			printCleared(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Destination for the clean copy (default: <docx>_clean.docx)")

	return cmd
}
