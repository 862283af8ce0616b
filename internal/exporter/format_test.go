package exporter

import (
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected string
	}{
		{
			name:     "zero value",
			input:    0.0,
			expected: "0.0000000000000000",
		},
		{
			name:     "positive integer",
			input:    1.0,
			expected: "1.0000000000000000",
		},
		{
			name:     "half",
			input:    2.5,
			expected: "2.5000000000000000",
		},
		{
			name:     "negative decimal",
			input:    -0.125,
			expected: "-0.1250000000000000",
		},
		{
			name:     "large value keeps fixed point",
			input:    1e6,
			expected: "1000000.0000000000000000",
		},
		{
			name:     "not a number",
			input:    math.NaN(),
			expected: "nan",
		},
		{
			name:     "positive infinity",
			input:    math.Inf(1),
			expected: "inf",
		},
		{
			name:     "negative infinity",
			input:    math.Inf(-1),
			expected: "-inf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatFloat(tt.input))
		})
	}
}

func TestFormatFloat_RoundTrip(t *testing.T) {
	values := []float64{0.1, 1.0 / 3.0, math.Pi, -2.5e-5, 123.456789012345, 1e-12}

	for _, v := range values {
		s := formatFloat(v)
		dot := len(s) - 17
		require.Equal(t, byte('.'), s[dot], s)

		parsed, err := strconv.ParseFloat(s, 64)
		require.NoError(t, err)
		assert.InDelta(t, v, parsed, 1e-12, s)
	}
}

func TestFormatRow(t *testing.T) {
	got := formatRow([]float64{1.0, 2.5, 0.0})
	assert.Equal(t, []string{"1.0000000000000000", "2.5000000000000000", "0.0000000000000000"}, got)
	assert.Empty(t, formatRow(nil))
}

func TestMatrixRecords(t *testing.T) {
	assert.Nil(t, matrixRecords(nil))

	m := mat.NewDense(2, 2, []float64{1, 2, 3, math.NaN()})
	records := matrixRecords(m)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"1.0000000000000000", "2.0000000000000000"}, records[0])
	assert.Equal(t, []string{"3.0000000000000000", "nan"}, records[1])
}
