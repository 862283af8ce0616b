package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"icarecli/pkg/contracts/domain"
)

func metadata(pairs ...string) *domain.PatientMetadata {
	md := domain.NewPatientMetadata()
	for i := 0; i+1 < len(pairs); i += 2 {
		md.Set(pairs[i], pairs[i+1])
	}
	return md
}

func TestPatientFeatures(t *testing.T) {
	md := metadata(
		domain.FieldPatient, "0284",
		domain.FieldAge, "53",
		domain.FieldSex, "Male",
		domain.FieldROSC, "nan",
		domain.FieldOHCA, "True",
		domain.FieldVFib, "False",
		domain.FieldTTM, "33",
	)

	got := PatientFeatures(md, false)
	assert.Len(t, got, 6)
	assert.Equal(t, 53.0, got[0])
	assert.Equal(t, SexMale, got[1])
	assert.True(t, math.IsNaN(got[2]))
	assert.Equal(t, 1.0, got[3])
	assert.Equal(t, 0.0, got[4])
	assert.Equal(t, 33.0, got[5])
}

func TestPatientFeatures_SexCoding(t *testing.T) {
	tests := []struct {
		sex     string
		plain   float64
		encoded []float64
	}{
		{"Female", SexFemale, []float64{1, 0, 0}},
		{"male", SexMale, []float64{0, 1, 0}},
		{"", math.NaN(), []float64{0, 0, 1}},
		{"Unknown", math.NaN(), []float64{0, 0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.sex, func(t *testing.T) {
			md := metadata(domain.FieldSex, tt.sex)

			plain := PatientFeatures(md, false)
			if math.IsNaN(tt.plain) {
				assert.True(t, math.IsNaN(plain[1]))
			} else {
				assert.Equal(t, tt.plain, plain[1])
			}

			encoded := PatientFeatures(md, true)
			assert.Len(t, encoded, 8)
			assert.Equal(t, tt.encoded, encoded[1:4])
		})
	}
}

func TestPatientFeatures_MissingFields(t *testing.T) {
	got := PatientFeatures(domain.NewPatientMetadata(), false)
	for i, v := range got {
		assert.True(t, math.IsNaN(v), "feature %d", i)
	}
}
