package classify

// Modality represents a DICOM imaging modality code.
type Modality string

const (
	MR Modality = "MR" // Magnetic Resonance
	CT Modality = "CT" // Computed Tomography
	PT Modality = "PT" // Positron Emission Tomography
	CR Modality = "CR" // Computed Radiography
	DX Modality = "DX" // Digital Radiography
	US Modality = "US" // Ultrasound
)

// DefaultVolumetricModalities lists the modalities whose multi-file
// studies form an ordered slice sequence and are encoded as a video.
func DefaultVolumetricModalities() []string {
	return []string{string(MR), string(CT), string(PT)}
}

// VolumetricSet decides which modalities are treated as slice sequences.
type VolumetricSet map[Modality]bool

// NewVolumetricSet builds the set from configured modality codes. An
// empty list falls back to the defaults.
func NewVolumetricSet(codes []string) VolumetricSet {
	if len(codes) == 0 {
		codes = DefaultVolumetricModalities()
	}
	s := make(VolumetricSet, len(codes))
	for _, c := range codes {
		s[ParseModality(c)] = true
	}
	return s
}

// IsVolumetric reports whether a multi-file study of this modality should
// be treated as a slice sequence.
func (s VolumetricSet) IsVolumetric(m Modality) bool {
	return s[m]
}

// ParseModality normalizes a modality string. Unrecognized or empty codes
// come back as-is; they simply never qualify as volumetric.
func ParseModality(s string) Modality {
	return Modality(s)
}
