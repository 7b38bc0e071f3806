package stego

import (
	"image"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Verdict classifies the outcome of a steganalysis pass.
type Verdict string

const (
	// VerdictClean means the LSB statistics look like a natural image.
	VerdictClean Verdict = "clean"
	// VerdictSuspicious means the statistics lean toward embedding but are
	// not conclusive.
	VerdictSuspicious Verdict = "suspicious"
	// VerdictEmbedded means the value-pair histogram is equalized the way
	// uniform LSB embedding equalizes it.
	VerdictEmbedded Verdict = "embedded"
)

// DetectionReport summarizes the LSB steganalysis of an image.
type DetectionReport struct {
	// ChiSquare is the pair-of-values statistic over the channel histogram.
	ChiSquare float64
	// DegreesOfFreedom counts the histogram pairs that entered the test.
	DegreesOfFreedom int
	// EmbedProbability estimates how likely the LSB plane carries uniform
	// embedded data: near 1 when value pairs are equalized, near 0 for
	// natural images.
	EmbedProbability float64
	// LSBEntropy is the Shannon entropy of the LSB plane in bits per bit.
	// Uniform embedded data pushes it toward 1.
	LSBEntropy float64
	// SampledBits is the number of carrier channels examined.
	SampledBits int
	// Verdict is the overall classification.
	Verdict Verdict
}

// Detect runs a pair-of-values chi-square test over the R, G, B channel
// values of img. LSB embedding with uniformly distributed payload bits
// drives the counts of each value pair (2k, 2k+1) toward their mean; the
// test measures how equalized the pairs are and converts the statistic to a
// probability with the chi-squared distribution.
func Detect(img image.Image) *DetectionReport {
	grid := toNRGBA(img)
	total := CapacityBits(img)

	var hist [256]int
	ones := 0
	for i := 0; i < total; i++ {
		v := grid.Pix[carrierOffset(i)]
		hist[v]++
		ones += int(v & 1)
	}

	var chi float64
	pairs := 0
	for k := 0; k < 128; k++ {
		even := float64(hist[2*k])
		odd := float64(hist[2*k+1])
		expected := (even + odd) / 2
		// Standard low-count exclusion keeps sparse pairs from dominating.
		if expected < 5 {
			continue
		}
		chi += (even-expected)*(even-expected)/expected + (odd-expected)*(odd-expected)/expected
		pairs++
	}

	report := &DetectionReport{
		ChiSquare:   chi,
		SampledBits: total,
		LSBEntropy:  bitEntropy(ones, total),
	}
	if pairs < 2 {
		// Too flat a histogram to say anything.
		report.Verdict = VerdictClean
		return report
	}
	report.DegreesOfFreedom = pairs - 1

	dist := distuv.ChiSquared{K: float64(report.DegreesOfFreedom)}
	report.EmbedProbability = 1 - dist.CDF(chi)

	// Natural histograms give astronomically large statistics and a
	// probability pinned to zero, so anything clearly away from zero is
	// worth flagging.
	switch {
	case report.EmbedProbability >= 0.90:
		report.Verdict = VerdictEmbedded
	case report.EmbedProbability >= 0.05:
		report.Verdict = VerdictSuspicious
	default:
		report.Verdict = VerdictClean
	}
	return report
}

// DetectFile loads the image at path and runs Detect on it.
func DetectFile(path string) (*DetectionReport, error) {
	img, _, err := loadImage(path)
	if err != nil {
		return nil, err
	}
	return Detect(img), nil
}

// bitEntropy returns the Shannon entropy of a bit source with the observed
// ones count, in bits per bit.
func bitEntropy(ones, total int) float64 {
	if total == 0 || ones == 0 || ones == total {
		return 0
	}
	p := float64(ones) / float64(total)
	q := 1 - p
	return -p*math.Log2(p) - q*math.Log2(q)
}
