package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/calder/vestige/internal/config"
	"github.com/calder/vestige/internal/fileutil"
	"github.com/calder/vestige/internal/stego"
)

// NewStegoCommand creates the 'vestige stego' parent command
func NewStegoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stego",
		Short: "LSB image steganography commands",
		Long: `Commands for hiding, extracting, and detecting messages in images.

Messages are embedded one bit per R, G, B channel, least significant bit
first, behind a 32-bit length header. Covers must be lossless (PNG, BMP,
or similar); JPEG output would destroy the payload.`,
	}

	// Add subcommands
	cmd.AddCommand(newEncodeCommand())
	cmd.AddCommand(newDecodeCommand())
	cmd.AddCommand(newCapacityCommand())
	cmd.AddCommand(NewDetectCommand())

	return cmd
}

// newEncodeCommand creates the 'vestige stego encode' command
func newEncodeCommand() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "encode <image> <message>",
		Short: "Hide a message inside a lossless image",
		Long: `Embed a UTF-8 message into the least significant bits of an image.

The cover image is left untouched; the encoded copy is written next to it
with an "_encoded" suffix unless --output names a destination. Output must
be a lossless format.

Examples:
  vestige stego encode vacation.png "meet at dawn"
  vestige stego encode scan.bmp "key under mat" -o briefing.png`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			coverPath, message := args[0], args[1]
			output := cmd.OutOrStdout()

			cfg, err := config.LoadConfigFromDir(".")
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			dest := outputPath
			if dest == "" {
				dest = fileutil.DerivedPath(coverPath, cfg.StegoOutputSuffix)
			}

			written, err := stego.Encode(coverPath, message, dest)
			if err != nil {
				return err
			}

			fmt.Fprintf(output, "Embedded %d bytes into %s\n", len(message), written)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Destination for the encoded image (default: <image>_encoded.<ext>)")

	return cmd
}

// newDecodeCommand creates the 'vestige stego decode' command
func newDecodeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode <image>",
		Short: "Extract a hidden message from an image",
		Long: `Extract the message embedded in an image's least significant bits.

The recovered message is printed to stdout. Images whose LSB plane does not
hold a well-formed payload are reported as carrying no hidden message.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			message, err := stego.Decode(args[0])
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), message)
			return nil
		},
	}

	return cmd
}

// newCapacityCommand creates the 'vestige stego capacity' command
func newCapacityCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "capacity <image>",
		Short: "Report how much payload an image can carry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			totalBits, payloadBits, err := stego.CapacityFile(args[0])
			if err != nil {
				return err
			}
			output := cmd.OutOrStdout()

			fmt.Fprintf(output, "Carrier bits:     %d\n", totalBits)
			fmt.Fprintf(output, "Payload capacity: %d bits (%d bytes, %s)\n",
				payloadBits, payloadBits/8, fileutil.FormatBytes(int64(payloadBits/8)))
			return nil
		},
	}

	return cmd
}
