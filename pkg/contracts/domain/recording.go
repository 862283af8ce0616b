package domain

import (
	"gonum.org/v1/gonum/mat"
)

// MissingRecord is the Record value used by the recording metadata for
// windows that have no recording on disk.
const MissingRecord = "nan"

// RecordingWindow is one row of the "<id>.tsv" recording metadata table.
type RecordingWindow struct {
	Hour    int
	Time    string
	Quality float64 // NaN when not reported
	Record  string  // MissingRecord when absent
}

// HasRecord reports whether a recording exists for this window
func (w RecordingWindow) HasRecord() bool {
	return w.Record != "" && w.Record != MissingRecord
}

// RecordingMetadata is the ordered recording metadata of one patient
type RecordingMetadata struct {
	Windows []RecordingWindow
}

// Len returns the number of recording windows
func (m *RecordingMetadata) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Windows)
}

// Qualities returns the Quality column in window order
func (m *RecordingMetadata) Qualities() []float64 {
	if m == nil {
		return nil
	}
	out := make([]float64, len(m.Windows))
	for i, w := range m.Windows {
		out[i] = w.Quality
	}
	return out
}

// Recording is one loaded recording in physical units.
// Signal has one row per channel and one column per sample.
type Recording struct {
	Name              string
	Signal            *mat.Dense
	SamplingFrequency float64
	Channels          []string
}

// NumChannels returns the number of channels in the signal
func (r *Recording) NumChannels() int {
	if r == nil || r.Signal == nil {
		return 0
	}
	rows, _ := r.Signal.Dims()
	return rows
}

// NumSamples returns the number of samples per channel
func (r *Recording) NumSamples() int {
	if r == nil || r.Signal == nil {
		return 0
	}
	_, cols := r.Signal.Dims()
	return cols
}
