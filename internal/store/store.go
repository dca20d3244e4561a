// Package store persists diagnosis records in two layers: an authoritative
// in-memory map holding full-fidelity records, and a size-constrained
// durable copy that never embeds inline image payloads.
package store

import (
	"errors"

	"github.com/avelier/scancine/internal/diagnosis"
)

// ErrNotFound is returned by Get when no record has the given id.
var ErrNotFound = errors.New("record not found")

// RecordStore is the persistence contract for diagnosis records.
type RecordStore interface {
	// Store persists a record, overwriting any existing one with the
	// same id.
	Store(rec *diagnosis.DiagnosisRecord) error
	// Get returns the record with the given id or ErrNotFound.
	Get(id string) (*diagnosis.DiagnosisRecord, error)
	// Delete removes the record with the given id. Deleting a missing
	// record is not an error.
	Delete(id string) error
	// List returns all records.
	List() ([]*diagnosis.DiagnosisRecord, error)
}

// DefaultPlaceholderPath substitutes for inline image payloads in the
// durable layer.
const DefaultPlaceholderPath = "/images/scan-placeholder.png"
