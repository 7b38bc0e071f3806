package cmd

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/calder/vestige/internal/stego"
)

// NewDetectCommand creates the 'vestige stego detect' command
func NewDetectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect <image>",
		Short: "Run chi-square steganalysis on an image",
		Long: `Estimate whether an image carries LSB-embedded data.

The detector runs a pair-of-values chi-square test over the R, G, B channel
histogram. Uniform LSB embedding equalizes the counts of each value pair
(2k, 2k+1), which drives the embed probability toward 1; natural images
keep their skew and land near 0.

The verdict is statistical, not proof. Treat "suspicious" as a lead, not a
finding.`,
		Args: cobra.ExactArgs(1),
		RunE: runDetect,
	}

	return cmd
}

// runDetect executes the detect command
func runDetect(cmd *cobra.Command, args []string) error {
	imagePath := args[0]
	output := cmd.OutOrStdout()

	report, err := stego.DetectFile(imagePath)
	if err != nil {
		return err
	}

	printDetectionReport(output, imagePath, report)
	return nil
}

// printDetectionReport formats and prints a steganalysis report
func printDetectionReport(w io.Writer, imagePath string, report *stego.DetectionReport) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	cyan.Fprintf(w, "\n=== Steganalysis: %s ===\n\n", imagePath)

	fmt.Fprintf(w, "Chi-square statistic: %.4f (df %d)\n", report.ChiSquare, report.DegreesOfFreedom)
	fmt.Fprintf(w, "Embed probability:    %.4f\n", report.EmbedProbability)
	fmt.Fprintf(w, "LSB entropy:          %.4f bits/bit\n", report.LSBEntropy)
	fmt.Fprintf(w, "Sampled bits:         %d\n", report.SampledBits)

	fmt.Fprintf(w, "\nVerdict: ")
	switch report.Verdict {
	case stego.VerdictEmbedded:
		red.Fprintf(w, "%s\n", report.Verdict)
	case stego.VerdictSuspicious:
		yellow.Fprintf(w, "%s\n", report.Verdict)
	default:
		green.Fprintf(w, "%s\n", report.Verdict)
	}
}
