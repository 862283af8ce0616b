package exporter

import (
	"icarecli/internal/config"
	"icarecli/pkg/contracts/domain"
)

// Layout names the output directory and files of a patient.
// The zero value uses the bare patient id as directory name.
type Layout struct {
	DirPrefix string
}

// PatientDir returns the patient directory relative to the export folder
func (l Layout) PatientDir(patientID string) string {
	return l.DirPrefix + patientID
}

// PatientFile returns the patient feature file name
func (l Layout) PatientFile(patientID string) string {
	return config.PatientFilePrefix + patientID + config.CSVExtension
}

// SummaryFile returns the recordings summary file name
func (l Layout) SummaryFile(patientID string) string {
	return config.SummaryFilePrefix + patientID + config.CSVExtension
}

// BandFile returns the file name of a band matrix, e.g. "alpha_psd 0284.csv"
func (l Layout) BandFile(band domain.Band, patientID string) string {
	return band.String() + config.BandFileSeparator + patientID + config.CSVExtension
}

// QualityFile returns the quality score file name
func (l Layout) QualityFile(patientID string) string {
	return config.QualityFilePrefix + patientID + config.CSVExtension
}
