package features

import (
	"math"
	"strconv"
	"strings"

	"icarecli/pkg/contracts/domain"
)

// Sex codes used when sex is not one-hot encoded
const (
	SexFemale = 0.0
	SexMale   = 1.0
)

// PatientFeatures returns [age, sex, rosc, ohca, vfib, ttm] or, with
// encodeSex, [age, female, male, other, rosc, ohca, vfib, ttm].
// Values that cannot be parsed become NaN.
func PatientFeatures(md *domain.PatientMetadata, encodeSex bool) []float64 {
	age := numberField(md, domain.FieldAge)
	sex, _ := md.Get(domain.FieldSex)
	rosc := numberField(md, domain.FieldROSC)
	ohca := boolField(md, domain.FieldOHCA)
	vfib := boolField(md, domain.FieldVFib)
	ttm := numberField(md, domain.FieldTTM)

	if !encodeSex {
		return []float64{age, sexCode(sex), rosc, ohca, vfib, ttm}
	}

	female, male, other := 0.0, 0.0, 0.0
	switch normalize(sex) {
	case "female":
		female = 1
	case "male":
		male = 1
	default:
		other = 1
	}
	return []float64{age, female, male, other, rosc, ohca, vfib, ttm}
}

func sexCode(sex string) float64 {
	switch normalize(sex) {
	case "female":
		return SexFemale
	case "male":
		return SexMale
	default:
		return math.NaN()
	}
}

func numberField(md *domain.PatientMetadata, key string) float64 {
	v, ok := md.Get(key)
	if !ok {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

func boolField(md *domain.PatientMetadata, key string) float64 {
	v, _ := md.Get(key)
	switch normalize(v) {
	case "true", "1":
		return 1
	case "false", "0":
		return 0
	default:
		return math.NaN()
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
