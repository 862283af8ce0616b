// Package config provides configuration management for the export tool.
//
// # Configuration Sources
//
// Configuration is built from the following sources in increasing order of
// precedence:
//
//  1. Default values (Default)
//  2. An optional YAML file passed with --config
//  3. Environment variables prefixed with ICARE_
//  4. Command line flags (applied by the CLI after Load)
//
// # Environment Variables
//
//	ICARE_LOGGING_LEVEL=debug
//	ICARE_LOGGING_OUTPUT=both
//	ICARE_EXPORT_DIR_PREFIX=ICARE_
//	ICARE_EXPORT_QUALITY_SCORE=file
//	ICARE_TELEMETRY_METRICS_FILE=/var/lib/node_exporter/icare.prom
//
// # YAML File
//
//	logging:
//	  level: info
//	  output: both
//	  file_path: logs/export.log
//	export:
//	  dir_prefix: ""
//	  quality_score: append
//	telemetry:
//	  trace_file: traces.json
//
// Validation uses go-playground/validator struct tags; Load returns an error
// when any field is out of range.
package config
