package config

import "icarecli/pkg/contracts"

// Application constants for the export tool
const (
	AppName    = "icarecli"
	AppVersion = contracts.Version

	// EnvPrefix namespaces all environment overrides, e.g. ICARE_EXPORT_DIR_PREFIX
	EnvPrefix = "ICARE"

	// CLI
	ExportCommand = "export_data"

	// Output layout
	PatientFilePrefix    = "patient_"
	SummaryFilePrefix    = "recordings_summary_"
	QualityFilePrefix    = "quality_"
	CSVExtension         = ".csv"
	BandFileSeparator    = " "
	ChallengeDirPrefix   = "ICARE_"
	DefaultWorkbookSheet = "patients"

	// SummaryHeader is written verbatim as the first line of the recordings summary
	SummaryHeader = "signal mean, signal std, delta psd mean, theta psd mean, alpha psd mean, beta psd mean"

	// FloatPrecision is the number of fractional digits of every numeric cell
	FloatPrecision = 16

	// Quality score placement
	QualityScoreAppend = "append"
	QualityScoreFile   = "file"
	QualityScoreOmit   = "omit"

	// Input layout
	PatientMetadataExt   = ".txt"
	RecordingMetadataExt = ".tsv"
	HeaderExt            = ".hea"
	MatExt               = ".mat"

	// File permissions
	DirPerm  = 0o755
	FilePerm = 0o644
)
