package domain

import (
	"gonum.org/v1/gonum/mat"
)

// Band identifies an EEG frequency band
type Band int

const (
	BandAlpha Band = iota
	BandBeta
	BandDelta
	BandTheta
)

// NumBands is the number of per-band matrices in a FeatureBundle
const NumBands = 4

// ExportBands lists the bands in the order their matrices are stored and exported
var ExportBands = [NumBands]Band{BandAlpha, BandBeta, BandDelta, BandTheta}

// String returns the export name of the band ("alpha_psd", ...)
func (b Band) String() string {
	switch b {
	case BandAlpha:
		return "alpha_psd"
	case BandBeta:
		return "beta_psd"
	case BandDelta:
		return "delta_psd"
	case BandTheta:
		return "theta_psd"
	default:
		return "unknown_psd"
	}
}

// SummaryColumns is the number of columns of the recordings summary matrix:
// signal mean, signal std, delta, theta, alpha and beta band-power means.
const SummaryColumns = 6

// FeatureBundle is the output of feature extraction for one patient.
//
// A nil matrix stands for a matrix with zero rows. Bands is indexed in
// ExportBands order.
type FeatureBundle struct {
	PatientFeatures []float64
	Summary         mat.Matrix
	Bands           [NumBands]mat.Matrix
	QualityScore    *float64
}

// HasQualityScore reports whether the extractor produced a quality score
func (b *FeatureBundle) HasQualityScore() bool {
	return b != nil && b.QualityScore != nil
}

// Band returns the matrix stored for band
func (b *FeatureBundle) Band(band Band) mat.Matrix {
	if b == nil || band < 0 || int(band) >= NumBands {
		return nil
	}
	return b.Bands[band]
}
