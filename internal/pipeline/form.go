package pipeline

import (
	"github.com/avelier/scancine/internal/diagnosis"
	"github.com/avelier/scancine/internal/scanmeta"
)

// PatientForm holds the user-visible patient fields. Extraction may
// auto-fill empty fields; it never overwrites what the user typed.
type PatientForm struct {
	Name     string
	Age      int
	Gender   string
	ScanType string
}

// AutoFill populates empty form fields from extracted metadata. Sentinel
// values never land in the form: an anonymized study leaves the name
// field alone.
func (f *PatientForm) AutoFill(md *scanmeta.ScanMetadata) {
	if md == nil {
		return
	}
	if f.Name == "" && !scanmeta.IsSentinel(md.PatientName) {
		f.Name = md.PatientName
	}
	if f.ScanType == "" && !scanmeta.IsSentinel(md.Modality) {
		f.ScanType = md.Modality
	}
}

// patientInfo converts the form to the submission sub-record.
func (f PatientForm) patientInfo() diagnosis.PatientInfo {
	return diagnosis.PatientInfo{
		Name:     f.Name,
		Age:      f.Age,
		Gender:   f.Gender,
		ScanType: f.ScanType,
	}
}
