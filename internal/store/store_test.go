package store

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/avelier/scancine/internal/diagnosis"
	"github.com/avelier/scancine/internal/observability"
)

func testRecord(id, image string) *diagnosis.DiagnosisRecord {
	return &diagnosis.DiagnosisRecord{
		ID:        id,
		Patient:   diagnosis.PatientInfo{Name: "Jane Doe", ScanType: "MR"},
		Status:    diagnosis.StatusCompleted,
		Image:     image,
		CreatedAt: time.Now().UTC(),
	}
}

// TestMemoryStore_CRUD tests the full lifecycle on the memory layer.
func TestMemoryStore_CRUD(t *testing.T) {
	s := NewMemoryStore()

	rec := testRecord("m1", "data:video/mp4;base64,AAAA")
	if err := s.Store(rec); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	got, err := s.Get("m1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Image != rec.Image {
		t.Error("Memory layer must retain the original image payload")
	}

	// Mutating the returned record must not affect the stored copy.
	got.Patient.Name = "changed"
	again, _ := s.Get("m1")
	if again.Patient.Name != "Jane Doe" {
		t.Error("Get must return a copy, not the stored record")
	}

	if err := s.Delete("m1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Get("m1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	if err := s.Delete("m1"); err != nil {
		t.Errorf("Deleting a missing record must be a no-op, got %v", err)
	}
}

// TestMemoryStore_ReportNotAliased tests that the deep copy extends
// through the attached report: mutating a returned record's findings must
// not corrupt the authoritative copy.
func TestMemoryStore_ReportNotAliased(t *testing.T) {
	s := NewMemoryStore()

	rec := testRecord("r1", "/scans/a.mp4")
	rec.Report = &diagnosis.AIReport{
		Summary:  "No acute abnormality",
		Findings: []string{"clear"},
	}
	if err := s.Store(rec); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	// The caller's record stays independent of the stored one.
	rec.Report.Findings[0] = "caller mutation"

	got, err := s.Get("r1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Report.Findings[0] != "clear" {
		t.Errorf("Stored report aliases the caller's, got %q", got.Report.Findings[0])
	}

	got.Report.Findings[0] = "reader mutation"
	got.Report.Summary = "changed"

	again, _ := s.Get("r1")
	if again.Report.Findings[0] != "clear" || again.Report.Summary != "No acute abnormality" {
		t.Error("Returned report must not alias the stored one")
	}
}

// TestBoltStore_Downgrade tests that inline data URIs are rewritten to the
// placeholder path at the durable-write boundary.
func TestBoltStore_Downgrade(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.db")
	s, err := OpenBoltStore(path, "")
	if err != nil {
		t.Fatalf("OpenBoltStore failed: %v", err)
	}
	defer s.Close()

	if err := s.Store(testRecord("b1", "data:video/webm;base64,BBBB")); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	got, err := s.Get("b1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Image != DefaultPlaceholderPath {
		t.Errorf("Durable image should be the placeholder, got %q", got.Image)
	}

	// Path-valued images pass through untouched.
	if err := s.Store(testRecord("b2", "/scans/seq-1.mp4")); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	got, _ = s.Get("b2")
	if got.Image != "/scans/seq-1.mp4" {
		t.Errorf("Non-inline image should pass through, got %q", got.Image)
	}
}

// TestBoltStore_Reopen tests that records survive a close/reopen cycle.
func TestBoltStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.db")

	s, err := OpenBoltStore(path, "")
	if err != nil {
		t.Fatalf("OpenBoltStore failed: %v", err)
	}
	if err := s.Store(testRecord("p1", "/scans/a.mp4")); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	s, err = OpenBoltStore(path, "")
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer s.Close()

	recs, err := s.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(recs) != 1 || recs[0].ID != "p1" {
		t.Errorf("Expected the persisted record to survive reopen, got %v", recs)
	}
}

// TestDualStore_SizeGuardRoundTrip tests that a stored inline image reads
// back unchanged in-session while the durable copy holds the placeholder.
func TestDualStore_SizeGuardRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.db")
	durable, err := OpenBoltStore(path, "")
	if err != nil {
		t.Fatalf("OpenBoltStore failed: %v", err)
	}
	defer durable.Close()

	d := NewDualStore(durable, observability.Nop())
	inline := "data:video/mp4;base64," + strings.Repeat("A", 4096)
	if err := d.Store(testRecord("d1", inline)); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	got, err := d.Get("d1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Image != inline {
		t.Error("In-session read must return the original image payload")
	}

	persisted, err := durable.Get("d1")
	if err != nil {
		t.Fatalf("Durable Get failed: %v", err)
	}
	if persisted.Image != DefaultPlaceholderPath {
		t.Errorf("Durable copy should hold the placeholder, got %q", persisted.Image)
	}
}

// failingStore always errors, standing in for a quota-exhausted layer.
type failingStore struct{}

func (failingStore) Store(*diagnosis.DiagnosisRecord) error { return errors.New("quota exceeded") }
func (failingStore) Get(string) (*diagnosis.DiagnosisRecord, error) {
	return nil, errors.New("quota exceeded")
}
func (failingStore) Delete(string) error { return errors.New("quota exceeded") }
func (failingStore) List() ([]*diagnosis.DiagnosisRecord, error) {
	return nil, errors.New("quota exceeded")
}

// TestDualStore_PersistenceFailureSwallowed tests that durable failures
// never fail the caller's operation.
func TestDualStore_PersistenceFailureSwallowed(t *testing.T) {
	d := NewDualStore(failingStore{}, observability.Nop())

	rec := testRecord("f1", "data:image/png;base64,CC")
	if err := d.Store(rec); err != nil {
		t.Fatalf("Store must succeed despite durable failure: %v", err)
	}
	got, err := d.Get("f1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Image != rec.Image {
		t.Error("Record should remain usable in-session")
	}
	if err := d.Delete("f1"); err != nil {
		t.Errorf("Delete must succeed despite durable failure: %v", err)
	}
	if recs, err := d.List(); err != nil || len(recs) != 0 {
		t.Errorf("List must tolerate durable failure, got %v / %v", recs, err)
	}
}

// TestDualStore_ListMergesLayers tests that listing overlays the memory
// copy over durable records from earlier sessions.
func TestDualStore_ListMergesLayers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.db")
	durable, err := OpenBoltStore(path, "")
	if err != nil {
		t.Fatalf("OpenBoltStore failed: %v", err)
	}
	defer durable.Close()

	// A record from a previous session exists only in the durable layer.
	old := testRecord("old", "/scans/old.mp4")
	old.CreatedAt = time.Now().Add(-time.Hour).UTC()
	if err := durable.Store(old); err != nil {
		t.Fatalf("Seeding durable layer failed: %v", err)
	}

	d := NewDualStore(durable, observability.Nop())
	if err := d.Store(testRecord("new", "data:video/mp4;base64,DD")); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	recs, err := d.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(recs))
	}
	if recs[0].ID != "old" || recs[1].ID != "new" {
		t.Errorf("Expected creation order old,new; got %s,%s", recs[0].ID, recs[1].ID)
	}
	if !strings.HasPrefix(recs[1].Image, "data:") {
		t.Error("Memory copy must win the merge for in-session records")
	}
}
