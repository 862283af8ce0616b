package exporter

import (
	"math"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"icarecli/internal/config"
)

// formatFloat formats a float64 value for CSV output with exactly 16 fractional digits
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	return strconv.FormatFloat(f, 'f', config.FloatPrecision, 64)
}

// formatRow formats every value of a row
func formatRow(values []float64) []string {
	record := make([]string, len(values))
	for i, v := range values {
		record[i] = formatFloat(v)
	}
	return record
}

// matrixRecords formats a matrix row by row; nil yields no records
func matrixRecords(m mat.Matrix) [][]string {
	if m == nil {
		return nil
	}
	rows, cols := m.Dims()
	records := make([][]string, rows)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			row[j] = m.At(i, j)
		}
		records[i] = formatRow(row)
	}
	return records
}
