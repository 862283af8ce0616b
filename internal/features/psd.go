package features

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/floats"
)

// DefaultSegmentLength is the Welch segment length in samples
const DefaultSegmentLength = 256

// FrequencyBand is a closed frequency interval in Hz
type FrequencyBand struct {
	Low  float64
	High float64
}

// Band limits
var (
	DeltaBand = FrequencyBand{Low: 0.5, High: 8.0}
	ThetaBand = FrequencyBand{Low: 4.0, High: 8.0}
	AlphaBand = FrequencyBand{Low: 8.0, High: 12.0}
	BetaBand  = FrequencyBand{Low: 12.0, High: 30.0}
)

// Spectrum is a one-sided power spectral density
type Spectrum struct {
	Frequencies []float64
	Power       []float64
}

// Welch estimates the power spectral density of x sampled at fs using
// non-overlapping Hamming-windowed segments of segmentLength samples.
// Signals shorter than one segment use a single segment of their length.
func Welch(x []float64, fs float64, segmentLength int) Spectrum {
	if len(x) == 0 || fs <= 0 {
		return Spectrum{}
	}
	n := segmentLength
	if n <= 0 || n > len(x) {
		n = len(x)
	}

	win := make([]float64, n)
	for i := range win {
		win[i] = 1
	}
	window.Hamming(win)
	scale := 1 / (fs * floats.Dot(win, win))

	fft := fourier.NewFFT(n)
	bins := n/2 + 1
	power := make([]float64, bins)
	segment := make([]float64, n)
	coeffs := make([]complex128, bins)

	segments := len(x) / n
	for s := 0; s < segments; s++ {
		copy(segment, x[s*n:(s+1)*n])
		mean := floats.Sum(segment) / float64(n)
		floats.AddConst(-mean, segment)
		floats.Mul(segment, win)

		coeffs = fft.Coefficients(coeffs, segment)
		for k, c := range coeffs {
			p := (real(c)*real(c) + imag(c)*imag(c)) * scale
			// one-sided: double everything but DC and, for even n, Nyquist
			if k != 0 && !(n%2 == 0 && k == bins-1) {
				p *= 2
			}
			power[k] += p
		}
	}
	floats.Scale(1/float64(segments), power)

	freqs := make([]float64, bins)
	for k := range freqs {
		freqs[k] = fft.Freq(k) * fs
	}

	return Spectrum{Frequencies: freqs, Power: power}
}

// BandMean returns the mean power of the bins within band, NaN if none
func (s Spectrum) BandMean(band FrequencyBand) float64 {
	sum, count := 0.0, 0
	for i, f := range s.Frequencies {
		if f >= band.Low && f <= band.High {
			sum += s.Power[i]
			count++
		}
	}
	if count == 0 {
		return math.NaN()
	}
	return sum / float64(count)
}
