package domain

import (
	"strings"
)

// PatientMetadata holds the free-form clinical fields of one patient as read
// from the "<id>.txt" file of the challenge dataset.
//
// Fields keep the order in which they first appeared so that re-serializing
// the metadata is deterministic. Lookups are case-sensitive on the key, the
// same way the challenge helper code does them.
//
// Usage:
//
//	md := domain.NewPatientMetadata()
//	md.Set("Patient", "0284")
//	md.Set("Age", "53")
//	age, _ := md.Get("Age")
type PatientMetadata struct {
	keys   []string
	values map[string]string
}

// NewPatientMetadata creates an empty metadata set
func NewPatientMetadata() *PatientMetadata {
	return &PatientMetadata{values: make(map[string]string)}
}

// Set stores a field value. Re-setting a key keeps its original position.
func (m *PatientMetadata) Set(key, value string) {
	if m.values == nil {
		m.values = make(map[string]string)
	}
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value for key and whether it was present
func (m *PatientMetadata) Get(key string) (string, bool) {
	if m == nil || m.values == nil {
		return "", false
	}
	v, ok := m.values[key]
	return v, ok
}

// Keys returns the field names in order of first appearance
func (m *PatientMetadata) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of fields
func (m *PatientMetadata) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// PatientID returns the "Patient" field, trimmed
func (m *PatientMetadata) PatientID() string {
	v, _ := m.Get(FieldPatient)
	return strings.TrimSpace(v)
}

// Well-known patient metadata fields
const (
	FieldPatient = "Patient"
	FieldAge     = "Age"
	FieldSex     = "Sex"
	FieldROSC    = "ROSC"
	FieldOHCA    = "OHCA"
	FieldVFib    = "VFib"
	FieldTTM     = "TTM"
	FieldOutcome = "Outcome"
	FieldCPC     = "CPC"
)
