package diagnosis

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockService synthesizes templated diagnosis records. It stands in for
// the real analysis backend: the CLI uses it in-process when no endpoint
// is configured, and Handler exposes it over HTTP for tests.
type MockService struct {
	// Delay simulates analysis latency before a record is produced.
	Delay time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewMockService creates a mock analysis service. A zero delay produces
// records immediately.
func NewMockService(delay time.Duration) *MockService {
	return &MockService{
		Delay: delay,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// reportTemplate holds the canned findings pool for one scan type.
type reportTemplate struct {
	summary         string
	findings        []string
	recommendations []string
	riskFactors     []string
}

var reportTemplates = map[string]reportTemplate{
	"MR": {
		summary: "No acute intracranial abnormality identified on the submitted sequence.",
		findings: []string{
			"Ventricles and sulci within normal limits for age",
			"No mass effect or midline shift",
			"Mild nonspecific white matter hyperintensities",
		},
		recommendations: []string{
			"Clinical correlation recommended",
			"Follow-up imaging in 12 months if symptoms persist",
		},
		riskFactors: []string{"Age-related change", "Hypertension"},
	},
	"CT": {
		summary: "Unremarkable study without evidence of acute pathology.",
		findings: []string{
			"No acute hemorrhage or infarct",
			"Lung fields clear where visualized",
			"Incidental small calcified granuloma",
		},
		recommendations: []string{
			"No immediate intervention indicated",
			"Routine surveillance per clinical guidelines",
		},
		riskFactors: []string{"Smoking history", "Prior radiation exposure"},
	},
}

var defaultTemplate = reportTemplate{
	summary: "Study reviewed; findings within expected limits for the acquisition.",
	findings: []string{
		"Image quality adequate for interpretation",
		"No focal abnormality detected",
	},
	recommendations: []string{"Clinical correlation recommended"},
	riskFactors:     []string{"None identified"},
}

// Diagnose produces a templated record for the submission. Status is
// randomized with a bias toward completed; a small fraction come back
// pending with no attached report.
func (m *MockService) Diagnose(sub Submission) *DiagnosisRecord {
	if m.Delay > 0 {
		time.Sleep(m.Delay)
	}

	m.mu.Lock()
	roll := m.rng.Float64()
	confidence := 0.82 + m.rng.Float64()*0.16
	physician := randomPhysician(m.rng)
	m.mu.Unlock()

	now := time.Now().UTC()
	rec := &DiagnosisRecord{
		ID:        uuid.NewString(),
		Patient:   synthesizeContact(sub.PatientInfo),
		Image:     sub.Image,
		CreatedAt: now,
	}

	switch {
	case roll < 0.10:
		rec.Status = StatusPending
		return rec
	case roll < 0.20:
		rec.Status = StatusCritical
	default:
		rec.Status = StatusCompleted
	}

	tmpl, ok := reportTemplates[sub.PatientInfo.ScanType]
	if !ok {
		tmpl = defaultTemplate
	}
	rec.Report = &AIReport{
		Summary:         tmpl.summary,
		Findings:        tmpl.findings,
		Confidence:      confidence,
		Recommendations: tmpl.recommendations,
		RiskFactors:     tmpl.riskFactors,
		ReviewedBy:      physician,
		GeneratedAt:     now,
	}
	return rec
}

// synthesizeContact fills the contact fields the analysis service invents
// for records that arrive without them.
func synthesizeContact(p PatientInfo) PatientInfo {
	if p.Phone == "" {
		p.Phone = "+1-555-0100"
	}
	if p.Email == "" {
		p.Email = "records@clinic.example"
	}
	if p.ScanDate == "" {
		p.ScanDate = time.Now().UTC().Format("2006-01-02")
	}
	return p
}

// Handler exposes the mock service as an HTTP endpoint accepting the
// same submissions as the real one.
func (m *MockService) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var sub Submission
		if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
			http.Error(w, fmt.Sprintf("invalid submission: %v", err), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(m.Diagnose(sub)); err != nil {
			http.Error(w, "encoding response", http.StatusInternalServerError)
		}
	})
}
