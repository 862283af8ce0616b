package testutil

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// MAT level 4 precision codes
const (
	MatDouble = 0
	MatSingle = 1
	MatInt32  = 2
	MatInt16  = 3
	MatUint16 = 4
	MatUint8  = 5
)

// WindowFixture is one recording metadata row. Signal is nil for windows
// without a recording; otherwise it holds digital samples, channels x samples.
type WindowFixture struct {
	Hour     int
	Time     string
	Quality  string
	Record   string
	Signal   [][]float64
	Fs       float64
	Gain     float64
	Baseline float64
	Channels []string
}

// PatientFixture describes one patient folder of the challenge layout
type PatientFixture struct {
	ID       string
	Metadata [][2]string
	Windows  []WindowFixture
}

// DefaultMetadata returns a typical patient metadata block
func DefaultMetadata(id string) [][2]string {
	return [][2]string{
		{"Patient", id},
		{"Age", "53"},
		{"Sex", "Male"},
		{"ROSC", "nan"},
		{"OHCA", "True"},
		{"VFib", "True"},
		{"TTM", "33"},
		{"Outcome", "Good"},
		{"CPC", "1"},
	}
}

// SineChannels returns digital samples of sine waves at the given frequencies
func SineChannels(fs float64, samples int, amplitude float64, freqs ...float64) [][]float64 {
	out := make([][]float64, len(freqs))
	for c, f := range freqs {
		row := make([]float64, samples)
		for i := range row {
			row[i] = math.Round(amplitude * math.Sin(2*math.Pi*f*float64(i)/fs))
		}
		out[c] = row
	}
	return out
}

// WritePatient writes the folder <root>/<id> and returns its path
func WritePatient(t *testing.T, root string, p PatientFixture) string {
	t.Helper()

	dir := filepath.Join(root, p.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create patient dir: %v", err)
	}

	var md strings.Builder
	for _, kv := range p.Metadata {
		fmt.Fprintf(&md, "%s: %s\n", kv[0], kv[1])
	}
	writeFile(t, filepath.Join(dir, p.ID+".txt"), []byte(md.String()))

	var tsv strings.Builder
	tsv.WriteString("Hour\tTime\tQuality\tRecord\n")
	for _, w := range p.Windows {
		record := w.Record
		if record == "" {
			record = "nan"
		}
		quality := w.Quality
		if quality == "" {
			quality = "nan"
		}
		timeField := w.Time
		if timeField == "" {
			timeField = "nan"
		}
		fmt.Fprintf(&tsv, "%d\t%s\t%s\t%s\n", w.Hour, timeField, quality, record)

		if w.Signal != nil && record != "nan" {
			WriteRecording(t, dir, record, w)
		}
	}
	writeFile(t, filepath.Join(dir, p.ID+".tsv"), []byte(tsv.String()))

	return dir
}

// WriteRecording writes <dir>/<record>.hea and <dir>/<record>.mat
func WriteRecording(t *testing.T, dir, record string, w WindowFixture) {
	t.Helper()

	fs := w.Fs
	if fs == 0 {
		fs = 100
	}
	gain := w.Gain
	if gain == 0 {
		gain = 1
	}

	samples := 0
	if len(w.Signal) > 0 {
		samples = len(w.Signal[0])
	}

	var hea strings.Builder
	fmt.Fprintf(&hea, "%s %d %g %d\n", record, len(w.Signal), fs, samples)
	for c := range w.Signal {
		name := fmt.Sprintf("Ch%d", c+1)
		if c < len(w.Channels) {
			name = w.Channels[c]
		}
		fmt.Fprintf(&hea, "%s.mat 16+24 %g(%g)/uV 16 0 0 0 0 %s\n", record, gain, w.Baseline, name)
	}
	writeFile(t, filepath.Join(dir, record+".hea"), []byte(hea.String()))

	writeFile(t, filepath.Join(dir, record+".mat"), EncodeMat4("val", w.Signal, binary.LittleEndian, MatInt16))
}

// EncodeMat4 encodes rows as a MATLAB level 4 matrix named name
func EncodeMat4(name string, rows [][]float64, order binary.ByteOrder, precision int) []byte {
	nrows := len(rows)
	ncols := 0
	if nrows > 0 {
		ncols = len(rows[0])
	}

	mopt := int32(precision * 10)
	if order == binary.BigEndian {
		mopt += 1000
	}

	var buf bytes.Buffer
	for _, v := range []int32{mopt, int32(nrows), int32(ncols), 0, int32(len(name) + 1)} {
		binary.Write(&buf, order, v)
	}
	buf.WriteString(name)
	buf.WriteByte(0)

	// column-major
	for c := 0; c < ncols; c++ {
		for r := 0; r < nrows; r++ {
			v := rows[r][c]
			switch precision {
			case MatDouble:
				binary.Write(&buf, order, v)
			case MatSingle:
				binary.Write(&buf, order, float32(v))
			case MatInt32:
				binary.Write(&buf, order, int32(v))
			case MatInt16:
				binary.Write(&buf, order, int16(v))
			case MatUint16:
				binary.Write(&buf, order, uint16(v))
			default:
				buf.WriteByte(uint8(v))
			}
		}
	}
	return buf.Bytes()
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}
