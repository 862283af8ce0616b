// Package app orchestrates an export run.
//
// # Architecture
//
// The app package follows a dependency injection pattern: patient discovery,
// data loading and feature extraction are injected through Dependencies so
// that the run loop can be tested with fakes. Missing dependencies default to
// the file-based implementations in internal/files, internal/challenge and
// internal/features.
//
// # Run Flow
//
// A run proceeds as follows:
//
//  1. Discover patient ids in the data folder; none is a NoData error
//  2. Validate the optional limit; a non-integer is an InvalidArgument error
//  3. Validate the export folder and workbook path, then open the log,
//     trace and metrics outputs
//  4. For the first limit ids in discovery order load data, extract
//     features and write the patient files
//  5. Optionally write the XLSX overview workbook
//
// Nothing is written before these checks pass. A failing patient aborts the
// run; files of patients already exported stay on disk.
//
// # Usage
//
//	application := app.NewApplication(cfg, logger, telemetry, app.Dependencies{})
//	result, err := application.Run(ctx, app.Options{
//	    DataFolder:   "training",
//	    ExportFolder: "export",
//	    Limit:        "10",
//	})
//
// # Error Handling
//
// All errors are returned to the caller. The app does not call os.Exit(),
// allowing the main function to map errors to exit codes.
package app
