// Package challenge reads the PhysioNet 2023 (I-CARE) challenge data layout.
//
// A patient folder looks like:
//
//	<root>/<id>/<id>.txt        patient metadata, "Key: Value" lines
//	<root>/<id>/<id>.tsv        recording metadata (Hour, Time, Quality, Record)
//	<root>/<id>/<record>.hea    WFDB header of one recording
//	<root>/<id>/<record>.mat    MATLAB level 4 matrix "val", channels x samples
//
// Loader implements the data loading contract consumed by the exporter.
// IsInteger is the argument check used for the patient limit.
package challenge
