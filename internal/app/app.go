package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"icarecli/internal/challenge"
	"icarecli/internal/config"
	apperrors "icarecli/internal/errors"
	"icarecli/internal/exporter"
	"icarecli/internal/features"
	"icarecli/internal/files"
	"icarecli/internal/infrastructure"
	"icarecli/internal/validation"
	"icarecli/pkg/contracts/domain"
)

// Discoverer finds patient ids in a data folder
type Discoverer interface {
	FindDataFolders(root string) ([]string, error)
}

// Loader loads the metadata and recordings of one patient
type Loader interface {
	LoadChallengeData(root, patientID string) (*domain.PatientMetadata, *domain.RecordingMetadata, []*domain.Recording, error)
}

// Extractor computes the feature bundle of one patient
type Extractor interface {
	GetFeatures(patient *domain.PatientMetadata, recMeta *domain.RecordingMetadata, recordings []*domain.Recording, opts features.Options) (*domain.FeatureBundle, error)
}

// Output is a run output held back until the pre-checks have passed
type Output interface {
	Open() error
}

// Dependencies are the collaborators of a run
type Dependencies struct {
	Discoverer Discoverer
	Loader     Loader
	Extractor  Extractor
}

// Options are the positional arguments of a run
type Options struct {
	DataFolder   string
	ExportFolder string
	// Limit is the number of patients to export; empty exports all
	Limit string
}

// Result summarizes a run
type Result struct {
	Discovered int
	Limit      int
	Exported   []string
	Files      int
	Bytes      int64
	Duration   time.Duration
}

// Application represents the export application container
type Application struct {
	Config    *config.Config
	Logger    *slog.Logger
	Telemetry *infrastructure.Telemetry
	Deps      Dependencies

	// Progress receives human readable progress lines; nil disables them
	Progress io.Writer

	// Outputs are opened with the telemetry files once the pre-checks pass
	Outputs []Output
}

// NewApplication creates an application, filling missing dependencies with
// the file-based implementations
func NewApplication(cfg *config.Config, logger *slog.Logger, telemetry *infrastructure.Telemetry, deps Dependencies) *Application {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = infrastructure.WithComponent(logger, "export")

	if deps.Discoverer == nil {
		deps.Discoverer = files.NewDiscovery("")
	}
	if deps.Loader == nil {
		deps.Loader = challenge.NewLoader(logger)
	}
	if deps.Extractor == nil {
		deps.Extractor = features.NewExtractor(logger)
	}

	return &Application{
		Config:    cfg,
		Logger:    logger,
		Telemetry: telemetry,
		Deps:      deps,
	}
}

// Run exports the first limit patients of opts.DataFolder using default settings
func Run(ctx context.Context, opts Options) (*Result, error) {
	return NewApplication(nil, nil, nil, Dependencies{}).Run(ctx, opts)
}

// Run discovers, loads, extracts and writes patients in discovery order
func (a *Application) Run(ctx context.Context, opts Options) (*Result, error) {
	ctx, span := a.tracer().Start(ctx, "export.run",
		trace.WithAttributes(
			attribute.String("data.folder", opts.DataFolder),
			attribute.String("export.folder", opts.ExportFolder),
		))
	defer span.End()

	start := time.Now()
	result, err := a.run(ctx, span, opts)
	if result != nil {
		result.Duration = time.Since(start)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "export failed")
		a.metrics().RecordError(ctx, errorType(err))
		infrastructure.WithError(a.Logger, err).ErrorContext(ctx, "Export failed",
			slog.String("data_folder", opts.DataFolder),
			slog.String("export_folder", opts.ExportFolder))
		return result, err
	}

	a.Logger.InfoContext(ctx, "Export completed",
		slog.Int("discovered", result.Discovered),
		slog.Int("exported", len(result.Exported)),
		slog.Int("files", result.Files),
		slog.Int64("bytes", result.Bytes),
		slog.Duration("duration", result.Duration))
	return result, nil
}

func (a *Application) run(ctx context.Context, span trace.Span, opts Options) (*Result, error) {
	validator := validation.NewFileValidator(a.Logger)
	if err := validator.ValidateInputDirectory(opts.DataFolder); err != nil {
		return nil, err
	}

	ids, err := a.Deps.Discoverer.FindDataFolders(opts.DataFolder)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to discover patients", err).
			WithContext("data_folder", opts.DataFolder)
	}
	if len(ids) == 0 {
		return nil, apperrors.NewNoDataError(opts.DataFolder)
	}

	limit, err := resolveLimit(opts.Limit, len(ids))
	if err != nil {
		return nil, err
	}

	if err := validator.ValidateOutputDirectory(opts.ExportFolder); err != nil {
		return nil, err
	}
	if a.Config.Export.Workbook != "" {
		if err := validator.ValidateWorkbookPath(a.Config.Export.Workbook); err != nil {
			return nil, err
		}
	}

	if err := a.openOutputs(); err != nil {
		return nil, err
	}

	result := &Result{Discovered: len(ids), Limit: limit}
	span.SetAttributes(
		attribute.Int("patients.discovered", len(ids)),
		attribute.Int("patients.limit", limit),
	)

	a.Logger.InfoContext(ctx, "Export started",
		slog.String("data_folder", opts.DataFolder),
		slog.String("export_folder", opts.ExportFolder),
		slog.Int("discovered", len(ids)),
		slog.Int("limit", limit))

	manager := files.NewManager(opts.ExportFolder, a.Logger)
	writer := exporter.NewCSVWriter(manager, a.Logger)
	patients := exporter.NewPatientExporter(writer,
		exporter.Layout{DirPrefix: a.Config.Export.DirPrefix},
		a.Config.Export.QualityScore,
		a.tracer(),
		a.Logger)

	var workbook []exporter.WorkbookRow
	for i, id := range ids[:limit] {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("export interrupted after %d patients: %w", len(result.Exported), err)
		}

		a.progress("Exporting %d of %d patients\n", i+1, limit)

		artifacts, bundle, err := a.exportPatient(ctx, opts, manager, patients, id)
		if artifacts != nil {
			result.Files += len(artifacts.Files)
			result.Bytes += artifacts.Bytes
		}
		if err != nil {
			return result, err
		}

		result.Exported = append(result.Exported, id)
		if a.Config.Export.Workbook != "" {
			workbook = append(workbook, exporter.WorkbookRow{
				PatientID:    id,
				Features:     bundle.PatientFeatures,
				QualityScore: bundle.QualityScore,
			})
		}

		a.progress("Exported patient %s\n", id)
	}

	if a.Config.Export.Workbook != "" {
		if err := exporter.NewWorkbookWriter(a.Logger).Write(a.Config.Export.Workbook, workbook); err != nil {
			return result, err
		}
	}

	return result, nil
}

// exportPatient loads, extracts and writes one patient
func (a *Application) exportPatient(
	ctx context.Context,
	opts Options,
	manager *files.Manager,
	patients *exporter.PatientExporter,
	id string,
) (*exporter.Artifacts, *domain.FeatureBundle, error) {
	ctx, span := a.tracer().Start(ctx, "export.patient",
		trace.WithAttributes(attribute.String("patient.id", id)))
	defer span.End()

	start := time.Now()
	logger := a.Logger.With(slog.String("patient_id", id))

	patient, recMeta, recordings, err := a.Deps.Loader.LoadChallengeData(opts.DataFolder, id)
	if err != nil {
		return nil, nil, a.patientError(span, fmt.Errorf("failed to load patient %s: %w", id, err))
	}

	bundle, err := a.Deps.Extractor.GetFeatures(patient, recMeta, recordings, features.Options{})
	if err != nil {
		return nil, nil, a.patientError(span, fmt.Errorf("failed to extract features for patient %s: %w", id, err))
	}

	created, err := manager.EnsureDirectory("")
	if err != nil {
		return nil, nil, a.patientError(span, apperrors.NewStorageError("failed to create export folder", err).
			WithContext("path", opts.ExportFolder))
	}
	if created {
		logger.InfoContext(ctx, "Created export folder", slog.String("path", opts.ExportFolder))
	}

	artifacts, err := patients.Export(ctx, id, bundle)
	if err != nil {
		return artifacts, nil, a.patientError(span, fmt.Errorf("failed to write patient %s: %w", id, err))
	}

	elapsed := time.Since(start)
	if m := a.metrics(); m != nil {
		attrs := metric.WithAttributes(attribute.String("quality_score", a.Config.Export.QualityScore))
		m.PatientsExported.Add(ctx, 1, attrs)
		m.FilesWritten.Add(ctx, int64(len(artifacts.Files)), attrs)
		m.BytesWritten.Add(ctx, artifacts.Bytes, attrs)
		m.PatientDuration.Record(ctx, elapsed.Seconds())
	}
	span.SetAttributes(
		attribute.Int("files", len(artifacts.Files)),
		attribute.Int64("bytes", artifacts.Bytes),
	)

	logger.InfoContext(ctx, "Patient exported",
		slog.Int("recordings", recMeta.Len()),
		slog.Int("files", len(artifacts.Files)),
		slog.Duration("duration", elapsed))

	return artifacts, bundle, nil
}

func (a *Application) patientError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, "patient export failed")
	return err
}

// resolveLimit applies the limit rules: omitted means all patients, a
// non-integer is rejected, negative values clamp to zero and values above
// the number of patients clamp to it.
func resolveLimit(limit string, numPatients int) (int, error) {
	if limit == "" {
		return numPatients, nil
	}
	if !challenge.IsInteger(limit) {
		return 0, apperrors.NewInvalidArgumentError(
			fmt.Sprintf("%q is not an integer; the third argument must be the number of patients", limit)).
			WithContext("limit", limit)
	}

	trimmed := strings.TrimSpace(limit)
	n, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		// digits only, so the only failure is overflow
		if strings.HasPrefix(trimmed, "-") {
			return 0, nil
		}
		return numPatients, nil
	}

	switch {
	case n < 0:
		return 0, nil
	case n > int64(numPatients):
		return numPatients, nil
	default:
		return int(n), nil
	}
}

// openOutputs creates the telemetry and log files of the run
func (a *Application) openOutputs() error {
	outputs := a.Outputs
	if a.Telemetry != nil {
		outputs = append([]Output{a.Telemetry}, outputs...)
	}
	for _, out := range outputs {
		if err := out.Open(); err != nil {
			return apperrors.NewStorageError("failed to open run output", err)
		}
	}
	return nil
}

func (a *Application) progress(format string, args ...any) {
	if a.Progress == nil || !a.Config.Export.Progress {
		return
	}
	fmt.Fprintf(a.Progress, format, args...)
}

func (a *Application) tracer() trace.Tracer {
	if a.Telemetry != nil && a.Telemetry.Tracer != nil {
		return a.Telemetry.Tracer
	}
	return otel.Tracer(infrastructure.InstrumentationName)
}

func (a *Application) metrics() *infrastructure.ExportMetrics {
	if a.Telemetry == nil {
		return nil
	}
	return a.Telemetry.Metrics
}

func errorType(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return string(appErr.Type)
	}
	return "UNKNOWN"
}
