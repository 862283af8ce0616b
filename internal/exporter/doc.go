// Package exporter writes per-patient feature bundles as CSV files.
//
// This package contains four components:
//
// CSVWriter: Core CSV writing with an optional verbatim header line, fixed
// 16-digit numeric formatting and byte accounting.
//
// Layout: Names the patient directory and the files inside it.
//
// PatientExporter: Writes the full artifact set of one patient: the patient
// feature row, the recordings summary and one matrix file per frequency band.
//
// WorkbookWriter: Writes an optional XLSX overview of all exported patients.
//
// Example usage:
//
//	manager := files.NewManager("/path/to/out", logger)
//	writer := exporter.NewCSVWriter(manager, logger)
//	patients := exporter.NewPatientExporter(writer, exporter.Layout{}, config.QualityScoreAppend, nil, logger)
//
//	artifacts, err := patients.Export(ctx, "0284", bundle)
package exporter
