// Package diagnosis defines the record types exchanged with the analysis
// endpoint and a client for submitting encoded studies to it.
package diagnosis

import "time"

// Status classifies a diagnosis record's review state.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusPending   Status = "pending"
	StatusCritical  Status = "critical"
)

// PatientInfo is the demographic sub-record attached to a submission and
// echoed back inside the resulting DiagnosisRecord. Contact fields are
// synthesized by the analysis service, not supplied by the caller.
type PatientInfo struct {
	Name     string `json:"name"`
	Age      int    `json:"age,omitempty"`
	Gender   string `json:"gender,omitempty"`
	ScanType string `json:"scanType"`
	ScanDate string `json:"scanDate,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty"`
}

// AIReport carries the generated analysis. A record holds a nil report
// while its status is pending; status and diagnosis text are only
// meaningful once a report is attached.
type AIReport struct {
	Summary         string    `json:"summary"`
	Findings        []string  `json:"findings"`
	Confidence      float64   `json:"confidence"`
	Recommendations []string  `json:"recommendations"`
	RiskFactors     []string  `json:"riskFactors"`
	ReviewedBy      string    `json:"reviewedBy,omitempty"`
	GeneratedAt     time.Time `json:"generatedAt"`
}

// DiagnosisRecord is the persisted result of submitting a study. Image
// holds either a base64 data URI (the encoded sequence or single frame)
// or a file path once a durable store has downgraded it.
type DiagnosisRecord struct {
	ID        string      `json:"id"`
	Patient   PatientInfo `json:"patientInfo"`
	Status    Status      `json:"status"`
	Image     string      `json:"image,omitempty"`
	Report    *AIReport   `json:"aiReport,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

// Clone returns a deep copy: the report and its slices are not shared
// with the receiver.
func (r *DiagnosisRecord) Clone() *DiagnosisRecord {
	cp := *r
	if r.Report != nil {
		rep := *r.Report
		rep.Findings = append([]string(nil), r.Report.Findings...)
		rep.Recommendations = append([]string(nil), r.Report.Recommendations...)
		rep.RiskFactors = append([]string(nil), r.Report.RiskFactors...)
		cp.Report = &rep
	}
	return &cp
}

// Submission is the wire payload POSTed to the analysis endpoint.
type Submission struct {
	PatientInfo PatientInfo `json:"patientInfo"`
	Image       string      `json:"image"`
}
