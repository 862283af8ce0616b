// Package features derives the per-patient feature bundle that the exporter
// writes: clinical patient features, a recordings summary, per-band power
// matrices and an optional quality score.
//
// Band powers come from a Welch power spectral density estimate per channel
// (Hamming window, no overlap, constant detrend, one-sided density scaling).
// Band limits follow the challenge example model:
//
//	delta  0.5 - 8 Hz
//	theta  4   - 8 Hz
//	alpha  8   - 12 Hz
//	beta   12  - 30 Hz
package features
