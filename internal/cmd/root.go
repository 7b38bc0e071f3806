package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for vestige
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vestige",
		Short: "Digital forensics toolkit for images, documents, and deleted files",
		Long: `Vestige is a digital forensics toolkit built around three workflows:

  stego     hide, extract, and detect LSB-encoded messages in images
  metadata  inspect and scrub metadata from images, PDFs, and Office files
  recovery  recover files from directory trees by magic-byte signature

Recovery runs are recorded in an evidence catalog under $VESTIGE_HOME
(default ~/.vestige) so past runs stay auditable.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	// Add subcommands
	cmd.AddCommand(NewStegoCommand())
	cmd.AddCommand(NewMetadataCommand())
	cmd.AddCommand(NewRecoveryCommand())

	return cmd
}
