package exporter

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"icarecli/internal/config"
	apperrors "icarecli/internal/errors"
)

// WorkbookRow is one exported patient in the overview workbook
type WorkbookRow struct {
	PatientID    string
	Features     []float64
	QualityScore *float64
}

// WorkbookWriter writes an XLSX overview of exported patients
type WorkbookWriter struct {
	sheet  string
	logger *slog.Logger
}

// NewWorkbookWriter creates a workbook writer using the default sheet name
func NewWorkbookWriter(logger *slog.Logger) *WorkbookWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookWriter{sheet: config.DefaultWorkbookSheet, logger: logger}
}

// Write saves rows to path as a single sheet with header
// patient_id, f1..fN and quality when any row carries a score.
func (w *WorkbookWriter) Write(path string, rows []WorkbookRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", w.sheet); err != nil {
		return apperrors.NewStorageError("failed to name workbook sheet", err)
	}

	width, withQuality := 0, false
	for _, row := range rows {
		if len(row.Features) > width {
			width = len(row.Features)
		}
		withQuality = withQuality || row.QualityScore != nil
	}

	header := []interface{}{"patient_id"}
	for i := 1; i <= width; i++ {
		header = append(header, fmt.Sprintf("f%d", i))
	}
	if withQuality {
		header = append(header, "quality")
	}
	if err := f.SetSheetRow(w.sheet, "A1", &header); err != nil {
		return apperrors.NewStorageError("failed to write workbook header", err)
	}

	for i, row := range rows {
		values := make([]interface{}, 0, len(header))
		values = append(values, row.PatientID)
		for j := 0; j < width; j++ {
			if j < len(row.Features) {
				values = append(values, cellValue(row.Features[j]))
			} else {
				values = append(values, nil)
			}
		}
		if withQuality {
			if row.QualityScore != nil {
				values = append(values, cellValue(*row.QualityScore))
			} else {
				values = append(values, nil)
			}
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return apperrors.NewStorageError("invalid workbook cell", err)
		}
		if err := f.SetSheetRow(w.sheet, cell, &values); err != nil {
			return apperrors.NewStorageError("failed to write workbook row", err).
				WithContext("patient_id", row.PatientID)
		}
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, config.DirPerm); err != nil {
			return apperrors.NewStorageError("failed to create workbook directory", err).WithContext("path", dir)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return apperrors.NewStorageError("failed to save workbook", err).WithContext("path", path)
	}

	w.logger.Info("Workbook written",
		slog.String("path", path),
		slog.Int("patients", len(rows)))
	return nil
}

// cellValue keeps non-finite values readable since XLSX has no NaN
func cellValue(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return formatFloat(v)
	}
	return v
}
