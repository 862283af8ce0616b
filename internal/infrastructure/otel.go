package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"icarecli/internal/config"
)

const (
	// InstrumentationName names the tracer and meter of the export tool
	InstrumentationName = "icarecli"
)

// Telemetry holds the OpenTelemetry providers of one export run.
//
// Metrics are always collected into a private Prometheus registry so that
// instruments are usable unconditionally; they are only written to disk when
// a metrics file is configured and Open has been called. Spans are held in
// memory until Open creates the trace file. Tracing falls back to a no-op
// tracer.
type Telemetry struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	Metrics        *ExportMetrics
	Registry       *prometheus.Registry

	cfg       config.TelemetryConfig
	traceFile *DeferredFile
	opened    bool
	logger    *slog.Logger
}

// ExportMetrics holds the export instruments
type ExportMetrics struct {
	PatientsExported metric.Int64Counter
	FilesWritten     metric.Int64Counter
	BytesWritten     metric.Int64Counter
	Errors           metric.Int64Counter
	PatientDuration  metric.Float64Histogram
}

// InitializeOTel sets up tracing and metrics for an export run
func InitializeOTel(cfg config.TelemetryConfig, logger *slog.Logger) (*Telemetry, error) {
	if logger == nil {
		logger = slog.Default()
	}

	res, err := createResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	t := &Telemetry{cfg: cfg, logger: logger}

	if err := t.initializeTracing(res); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	if err := t.initializeMetrics(res); err != nil {
		t.closeTraceFile()
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	logger.Debug("Telemetry initialized",
		slog.Bool("tracing_enabled", cfg.TracingEnabled()),
		slog.Bool("metrics_file_enabled", cfg.MetricsEnabled()))

	return t, nil
}

// createResource creates the OpenTelemetry resource
func createResource(cfg config.TelemetryConfig) (*resource.Resource, error) {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(config.AppVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
	), nil
}

func (t *Telemetry) initializeTracing(res *resource.Resource) error {
	if !t.cfg.TracingEnabled() {
		t.Tracer = noop.NewTracerProvider().Tracer(InstrumentationName)
		return nil
	}

	t.traceFile = NewDeferredFile(t.cfg.TraceFile, os.O_TRUNC)

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(t.traceFile))
	if err != nil {
		t.closeTraceFile()
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	t.TracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(t.cfg.SampleRatio)),
	)
	t.Tracer = t.TracerProvider.Tracer(InstrumentationName, trace.WithInstrumentationVersion(config.AppVersion))
	return nil
}

func (t *Telemetry) initializeMetrics(res *resource.Resource) error {
	t.Registry = prometheus.NewRegistry()

	exporter, err := otelprom.New(
		otelprom.WithRegisterer(t.Registry),
		otelprom.WithoutScopeInfo(),
		otelprom.WithoutTargetInfo(),
	)
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	t.MeterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	t.Meter = t.MeterProvider.Meter(InstrumentationName, metric.WithInstrumentationVersion(config.AppVersion))

	t.Metrics, err = CreateExportMetrics(t.Meter)
	return err
}

// CreateExportMetrics creates the export instruments on meter
func CreateExportMetrics(meter metric.Meter) (*ExportMetrics, error) {
	patients, err := meter.Int64Counter(
		"export_patients",
		metric.WithDescription("Number of patients exported"),
	)
	if err != nil {
		return nil, err
	}

	files, err := meter.Int64Counter(
		"export_files",
		metric.WithDescription("Number of CSV files written"),
	)
	if err != nil {
		return nil, err
	}

	bytesWritten, err := meter.Int64Counter(
		"export_bytes_written",
		metric.WithDescription("Bytes written to export files"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	errorsTotal, err := meter.Int64Counter(
		"export_errors",
		metric.WithDescription("Number of failed export runs by error type"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"export_patient_duration",
		metric.WithDescription("Time to load, extract and write one patient"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &ExportMetrics{
		PatientsExported: patients,
		FilesWritten:     files,
		BytesWritten:     bytesWritten,
		Errors:           errorsTotal,
		PatientDuration:  duration,
	}, nil
}

// RecordError counts a failed run labelled with the error type
func (m *ExportMetrics) RecordError(ctx context.Context, errType string) {
	if m == nil {
		return
	}
	m.Errors.Add(ctx, 1, metric.WithAttributes(attribute.String("error_type", errType)))
}

// Open creates the trace file and enables the metrics textfile. Without it
// Shutdown leaves the file system untouched.
func (t *Telemetry) Open() error {
	if t == nil {
		return nil
	}
	if err := t.traceFile.Open(); err != nil {
		return fmt.Errorf("failed to create trace file: %w", err)
	}
	t.opened = true
	return nil
}

// Shutdown flushes spans, writes the metrics textfile if configured and
// opened, and releases the providers.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}

	var errs []error
	if t.TracerProvider != nil {
		if err := t.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
		}
	}
	if err := t.closeTraceFile(); err != nil {
		errs = append(errs, fmt.Errorf("close trace file: %w", err))
	}

	if t.opened && t.cfg.MetricsEnabled() && t.Registry != nil {
		if err := t.WriteMetrics(t.cfg.MetricsFile); err != nil {
			errs = append(errs, err)
		}
	}

	if t.MeterProvider != nil {
		if err := t.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter shutdown: %w", err))
		}
	}

	return errors.Join(errs...)
}

// WriteMetrics writes the registry in the node-exporter textfile format
func (t *Telemetry) WriteMetrics(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), config.DirPerm); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, t.Registry); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	t.logger.Info("Metrics written", slog.String("path", path))
	return nil
}

func (t *Telemetry) closeTraceFile() error {
	err := t.traceFile.Close()
	t.traceFile = nil
	return err
}
