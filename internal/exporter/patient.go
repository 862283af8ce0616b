package exporter

import (
	"context"
	"log/slog"
	"path/filepath"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"icarecli/internal/config"
	apperrors "icarecli/internal/errors"
	"icarecli/pkg/contracts/domain"
)

const tracerName = "icarecli/exporter"

// Artifacts describes the files written for one patient
type Artifacts struct {
	PatientID string
	Dir       string
	Files     []string
	Bytes     int64
}

// PatientExporter writes the artifact set of a patient
type PatientExporter struct {
	writer       *CSVWriter
	layout       Layout
	qualityScore string
	tracer       trace.Tracer
	logger       *slog.Logger
}

// NewPatientExporter creates a patient exporter. qualityScore is one of
// config.QualityScoreAppend, config.QualityScoreFile or config.QualityScoreOmit.
// A nil tracer falls back to the global tracer provider.
func NewPatientExporter(writer *CSVWriter, layout Layout, qualityScore string, tracer trace.Tracer, logger *slog.Logger) *PatientExporter {
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if qualityScore == "" {
		qualityScore = config.QualityScoreAppend
	}
	return &PatientExporter{
		writer:       writer,
		layout:       layout,
		qualityScore: qualityScore,
		tracer:       tracer,
		logger:       logger,
	}
}

// Export writes the patient directory and its files. Existing files are
// truncated, so repeated exports of the same bundle are byte-identical.
func (e *PatientExporter) Export(ctx context.Context, patientID string, bundle *domain.FeatureBundle) (*Artifacts, error) {
	if bundle == nil {
		return nil, apperrors.NewExtractionError("no features for patient", nil).
			WithContext("patient_id", patientID)
	}

	dir := e.layout.PatientDir(patientID)
	if _, err := e.writer.Files().EnsureDirectory(dir); err != nil {
		return nil, apperrors.NewStorageError("failed to create patient directory", err).
			WithContext("path", e.writer.Files().Path(dir))
	}

	artifacts := &Artifacts{PatientID: patientID, Dir: dir}

	row := append([]float64(nil), bundle.PatientFeatures...)
	if bundle.HasQualityScore() && e.qualityScore == config.QualityScoreAppend {
		row = append(row, *bundle.QualityScore)
	}
	if err := e.write(ctx, artifacts, e.layout.PatientFile(patientID), func(path string) (int64, error) {
		return e.writer.WriteRow(path, row)
	}); err != nil {
		return artifacts, err
	}

	if bundle.HasQualityScore() && e.qualityScore == config.QualityScoreFile {
		if err := e.write(ctx, artifacts, e.layout.QualityFile(patientID), func(path string) (int64, error) {
			return e.writer.WriteRow(path, []float64{*bundle.QualityScore})
		}); err != nil {
			return artifacts, err
		}
	}

	if err := e.write(ctx, artifacts, e.layout.SummaryFile(patientID), func(path string) (int64, error) {
		return e.writer.WriteMatrix(path, config.SummaryHeader, bundle.Summary)
	}); err != nil {
		return artifacts, err
	}

	for _, band := range domain.ExportBands {
		m := bundle.Band(band)
		if err := e.write(ctx, artifacts, e.layout.BandFile(band, patientID), func(path string) (int64, error) {
			return e.writer.WriteMatrix(path, "", m)
		}); err != nil {
			return artifacts, err
		}
	}

	e.logger.Debug("Patient files written",
		slog.String("patient_id", patientID),
		slog.String("dir", dir),
		slog.Int("files", len(artifacts.Files)),
		slog.Int64("bytes", artifacts.Bytes))

	return artifacts, nil
}

// write runs fn for one file inside a span and records the result
func (e *PatientExporter) write(ctx context.Context, artifacts *Artifacts, name string, fn func(path string) (int64, error)) error {
	path := filepath.Join(artifacts.Dir, name)

	_, span := e.tracer.Start(ctx, "export.write_file",
		trace.WithAttributes(
			attribute.String("patient.id", artifacts.PatientID),
			attribute.String("file.name", name),
		))
	defer span.End()

	n, err := fn(path)
	artifacts.Bytes += n
	span.SetAttributes(attribute.Int64("file.bytes", n))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "write failed")
		return err
	}

	artifacts.Files = append(artifacts.Files, path)
	return nil
}
