package features

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	apperrors "icarecli/internal/errors"
	"icarecli/pkg/contracts/domain"
)

// Options controls the feature layout
type Options struct {
	// Stacked flattens the recordings summary into the patient feature row
	Stacked bool
	// EncodeSex one-hot encodes sex as female, male, other
	EncodeSex bool
}

// Extractor computes feature bundles from loaded challenge data
type Extractor struct {
	segmentLength int
	logger        *slog.Logger
}

// NewExtractor creates an extractor using the default Welch segment length
func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		segmentLength: DefaultSegmentLength,
		logger:        logger,
	}
}

// GetFeatures builds the feature bundle for one patient. recordings must be
// aligned with the windows of recMeta; nil entries mark missing recordings.
func (e *Extractor) GetFeatures(
	patient *domain.PatientMetadata,
	recMeta *domain.RecordingMetadata,
	recordings []*domain.Recording,
	opts Options,
) (*domain.FeatureBundle, error) {
	if patient == nil || recMeta == nil {
		return nil, apperrors.NewExtractionError("patient and recording metadata are required", nil)
	}
	if len(recordings) != recMeta.Len() {
		return nil, apperrors.NewExtractionError(
			fmt.Sprintf("expected %d recordings, got %d", recMeta.Len(), len(recordings)), nil).
			WithContext("patient_id", patient.PatientID())
	}

	bundle := &domain.FeatureBundle{
		PatientFeatures: PatientFeatures(patient, opts.EncodeSex),
		QualityScore:    QualityScore(recMeta),
	}

	channels := 0
	for _, rec := range recordings {
		if rec != nil && rec.NumChannels() > channels {
			channels = rec.NumChannels()
		}
	}

	rows := len(recordings)
	summary := make([]float64, 0, rows*domain.SummaryColumns)
	bands := [domain.NumBands][]float64{}
	for _, rec := range recordings {
		row, perChannel := e.recordingFeatures(rec, channels)
		summary = append(summary, row...)
		for b := range bands {
			bands[b] = append(bands[b], perChannel[b]...)
		}
	}

	if opts.Stacked {
		bundle.PatientFeatures = append(bundle.PatientFeatures, summary...)
	} else {
		bundle.Summary = newMatrix(rows, domain.SummaryColumns, summary)
	}
	for b := range bands {
		bundle.Bands[b] = newMatrix(rows, channels, bands[b])
	}

	e.logger.Debug("features extracted",
		slog.String("patient_id", patient.PatientID()),
		slog.Int("recordings", rows),
		slog.Int("channels", channels),
		slog.Bool("stacked", opts.Stacked))

	return bundle, nil
}

// recordingFeatures returns the summary row and per-band channel rows of
// width channels for rec. A nil recording yields NaN rows.
func (e *Extractor) recordingFeatures(rec *domain.Recording, channels int) ([]float64, [domain.NumBands][]float64) {
	summary := nanSlice(domain.SummaryColumns)
	var bands [domain.NumBands][]float64
	for b := range bands {
		bands[b] = nanSlice(channels)
	}
	if rec == nil || rec.Signal == nil || rec.NumSamples() == 0 {
		return summary, bands
	}

	all := make([]float64, 0, rec.NumChannels()*rec.NumSamples())
	for c := 0; c < rec.NumChannels(); c++ {
		all = append(all, mat.Row(nil, c, rec.Signal)...)
	}
	summary[0], summary[1] = stat.PopMeanStdDev(all, nil)

	limits := map[domain.Band]FrequencyBand{
		domain.BandAlpha: AlphaBand,
		domain.BandBeta:  BetaBand,
		domain.BandDelta: DeltaBand,
		domain.BandTheta: ThetaBand,
	}
	for c := 0; c < rec.NumChannels(); c++ {
		spectrum := Welch(mat.Row(nil, c, rec.Signal), rec.SamplingFrequency, e.segmentLength)
		for b, band := range limits {
			bands[b][c] = spectrum.BandMean(band)
		}
	}

	summary[2] = nanMean(bands[domain.BandDelta][:rec.NumChannels()])
	summary[3] = nanMean(bands[domain.BandTheta][:rec.NumChannels()])
	summary[4] = nanMean(bands[domain.BandAlpha][:rec.NumChannels()])
	summary[5] = nanMean(bands[domain.BandBeta][:rec.NumChannels()])

	return summary, bands
}

// QualityScore is the mean of the finite quality values, nil if none
func QualityScore(recMeta *domain.RecordingMetadata) *float64 {
	if recMeta == nil {
		return nil
	}
	score := nanMean(recMeta.Qualities())
	if math.IsNaN(score) {
		return nil
	}
	return &score
}

func nanMean(values []float64) float64 {
	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return math.NaN()
	}
	return stat.Mean(finite, nil)
}

func nanSlice(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}

// newMatrix returns nil for empty shapes since a nil matrix means no rows
func newMatrix(rows, cols int, data []float64) mat.Matrix {
	if rows == 0 || cols == 0 {
		return nil
	}
	return mat.NewDense(rows, cols, data)
}
