package challenge

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"

	"icarecli/internal/config"
	apperrors "icarecli/internal/errors"
	"icarecli/pkg/contracts/domain"
)

// Loader loads one patient's metadata and recordings from a challenge folder
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a loader
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger.With(slog.String("component", "challenge_loader"))}
}

// LoadChallengeData loads <root>/<id>/<id>.txt, <root>/<id>/<id>.tsv and
// every recording the metadata names. The returned recordings slice is
// aligned with the metadata windows; windows without a record get nil.
func (l *Loader) LoadChallengeData(root, patientID string) (*domain.PatientMetadata, *domain.RecordingMetadata, []*domain.Recording, error) {
	patientDir := filepath.Join(root, patientID)

	patient, err := l.loadPatientMetadata(filepath.Join(patientDir, patientID+config.PatientMetadataExt))
	if err != nil {
		return nil, nil, nil, err
	}

	recordingMeta, err := l.loadRecordingMetadata(filepath.Join(patientDir, patientID+config.RecordingMetadataExt))
	if err != nil {
		return nil, nil, nil, err
	}

	recordings := make([]*domain.Recording, recordingMeta.Len())
	for i, w := range recordingMeta.Windows {
		if !w.HasRecord() {
			continue
		}
		rec, err := LoadRecording(filepath.Join(patientDir, w.Record))
		if err != nil {
			return nil, nil, nil, err
		}
		recordings[i] = rec
	}

	l.logger.Debug("Loaded patient data",
		slog.String("patient_id", patientID),
		slog.Int("metadata_fields", patient.Len()),
		slog.Int("recording_windows", recordingMeta.Len()))

	return patient, recordingMeta, recordings, nil
}

func (l *Loader) loadPatientMetadata(path string) (*domain.PatientMetadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, openError("patient metadata", path, err)
	}
	defer f.Close()

	md, err := ParsePatientMetadata(f)
	if err != nil {
		return nil, apperrors.NewParsingError("failed to parse patient metadata", err).WithContext("path", path)
	}
	return md, nil
}

func (l *Loader) loadRecordingMetadata(path string) (*domain.RecordingMetadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, openError("recording metadata", path, err)
	}
	defer f.Close()

	md, err := ParseRecordingMetadata(f)
	if err != nil {
		return nil, apperrors.NewParsingError("failed to parse recording metadata", err).WithContext("path", path)
	}
	return md, nil
}

// LoadRecording loads <record>.hea and <record>.mat and converts the digital
// samples to physical units with (d - baseline) / gain per channel.
func LoadRecording(record string) (*domain.Recording, error) {
	headerPath := record + config.HeaderExt
	hf, err := os.Open(headerPath)
	if err != nil {
		return nil, openError("recording header", headerPath, err)
	}
	header, err := ParseHeader(hf)
	hf.Close()
	if err != nil {
		return nil, apperrors.NewParsingError("failed to parse recording header", err).WithContext("path", headerPath)
	}

	matPath := record + config.MatExt
	mf, err := os.Open(matPath)
	if err != nil {
		return nil, openError("recording data", matPath, err)
	}
	signal, err := ReadMat4(mf, SignalVariable)
	mf.Close()
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read recording data", err).WithContext("path", matPath)
	}

	if err := toPhysical(signal, header); err != nil {
		return nil, apperrors.NewParsingError("recording does not match its header", err).WithContext("path", matPath)
	}

	return &domain.Recording{
		Name:              filepath.Base(record),
		Signal:            signal,
		SamplingFrequency: header.SamplingFrequency,
		Channels:          header.Channels(),
	}, nil
}

// openError reports a missing input file as NOT_FOUND and any other open
// failure as STORAGE
func openError(resource, path string, err error) *apperrors.AppError {
	if errors.Is(err, fs.ErrNotExist) {
		return apperrors.NewNotFoundError(resource, err).WithContext("path", path)
	}
	return apperrors.NewStorageError("failed to open "+resource, err).WithContext("path", path)
}

func toPhysical(signal *mat.Dense, header *Header) error {
	rows, cols := signal.Dims()
	if rows != header.NumSignals {
		return fmt.Errorf("header has %d signals, data has %d rows", header.NumSignals, rows)
	}
	if header.NumSamples > 0 && cols != header.NumSamples {
		return fmt.Errorf("header has %d samples, data has %d columns", header.NumSamples, cols)
	}

	for i, spec := range header.Signals {
		row := signal.RawRowView(i)
		for j := range row {
			row[j] = (row[j] - spec.Baseline) / spec.Gain
		}
	}
	return nil
}
