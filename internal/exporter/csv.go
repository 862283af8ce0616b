package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"

	"icarecli/internal/config"
	apperrors "icarecli/internal/errors"
	"icarecli/internal/files"
)

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	files  *files.Manager
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer resolving paths through manager
func NewCSVWriter(manager *files.Manager, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{files: manager, logger: logger}
}

// Files returns the manager used to resolve output paths
func (w *CSVWriter) Files() *files.Manager {
	return w.files
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	// HeaderLine is written verbatim, without CSV quoting, before the records
	HeaderLine string
	Records    [][]string
}

// WriteCSV truncates or creates filePath and writes the records.
// It returns the number of bytes written.
func (w *CSVWriter) WriteCSV(filePath string, options WriteOptions) (int64, error) {
	fullPath := w.files.Path(filePath)

	w.logger.Debug("Writing CSV file",
		slog.String("file_path", filePath),
		slog.String("full_path", fullPath),
		slog.Int("record_count", len(options.Records)))

	if _, err := w.files.EnsureDirectory(filepath.Dir(fullPath)); err != nil {
		return 0, apperrors.NewStorageError("failed to create directory", err).
			WithContext("path", filepath.Dir(fullPath))
	}

	file, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, config.FilePerm)
	if err != nil {
		return 0, apperrors.NewStorageError("failed to open file", err).WithContext("path", fullPath)
	}

	counter := &countingWriter{w: file}
	if err := writeRecords(counter, options); err != nil {
		file.Close()
		return counter.n, apperrors.NewStorageError("failed to write file", err).WithContext("path", fullPath)
	}
	if err := file.Close(); err != nil {
		return counter.n, apperrors.NewStorageError("failed to close file", err).WithContext("path", fullPath)
	}

	return counter.n, nil
}

// WriteMatrix writes m with 16 fractional digits, one matrix row per line
func (w *CSVWriter) WriteMatrix(filePath, headerLine string, m mat.Matrix) (int64, error) {
	return w.WriteCSV(filePath, WriteOptions{
		HeaderLine: headerLine,
		Records:    matrixRecords(m),
	})
}

// WriteRow writes a single-row file
func (w *CSVWriter) WriteRow(filePath string, values []float64) (int64, error) {
	return w.WriteCSV(filePath, WriteOptions{
		Records: [][]string{formatRow(values)},
	})
}

func writeRecords(out io.Writer, options WriteOptions) error {
	if options.HeaderLine != "" {
		if _, err := io.WriteString(out, options.HeaderLine+"\n"); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	writer := csv.NewWriter(out)
	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// countingWriter counts bytes passed to the underlying writer
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
