package store

import (
	"sort"
	"sync"

	"github.com/avelier/scancine/internal/diagnosis"
)

// MemoryStore is the authoritative session store. Records keep their
// original image payloads, inline data URIs included. Records are deep
// copied on both sides of the API so callers never alias stored state.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*diagnosis.DiagnosisRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*diagnosis.DiagnosisRecord)}
}

func (m *MemoryStore) Store(rec *diagnosis.DiagnosisRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ID] = rec.Clone()
	return nil
}

func (m *MemoryStore) Get(id string) (*diagnosis.DiagnosisRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

func (m *MemoryStore) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, id)
	return nil
}

func (m *MemoryStore) List() ([]*diagnosis.DiagnosisRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*diagnosis.DiagnosisRecord, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
