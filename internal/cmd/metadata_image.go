package cmd

import (
	"github.com/spf13/cobra"

	"github.com/calder/vestige/internal/metadata"
)

// newImageExtractCommand creates the 'vestige metadata image-extract' command
func newImageExtractCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "image-extract <image>",
		Short: "Extract metadata from a PNG, JPEG, BMP, GIF, or TIFF image",
		Long: `List the metadata an image carries alongside its pixels.

For PNG this walks tEXt, zTXt, and iTXt chunks; for JPEG it walks marker
segments (comments, Exif, XMP). Dimensions and color model are reported
for every decodable image.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := metadata.ExtractImage(args[0])
			if err != nil {
				return err
			}
			return printExtracted(cmd.OutOrStdout(), doc, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")

	return cmd
}

// newImageClearCommand creates the 'vestige metadata image-clear' command
func newImageClearCommand() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "image-clear <image>",
		Short: "Write a pixel-only copy of an image",
		Long: `Re-encode an image from its decoded pixels, dropping every metadata
chunk and marker segment.

PNG and BMP sources keep their format. Lossy sources (JPEG, GIF) are
written as PNG so the clean copy does not lose further quality; the
default output name switches extension accordingly.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Empty output lets the library pick the extension, which
			// changes for lossy sources.
			result, err := metadata.ClearImage(args[0], outputPath)
			if err != nil {
				return err
			}
			printCleared(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Destination for the clean copy (default: <image>_clean.<ext>)")

	return cmd
}
