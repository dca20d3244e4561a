package store

import (
	"sort"

	"github.com/avelier/scancine/internal/diagnosis"
	"github.com/avelier/scancine/internal/metrics"
	"github.com/avelier/scancine/internal/observability"
)

// DualStore composes the authoritative memory layer with a best-effort
// durable layer. Durable failures are logged and counted but never
// returned: a record stays usable for the session even when persistence
// fails.
type DualStore struct {
	memory  *MemoryStore
	durable RecordStore
	log     *observability.Logger
}

// NewDualStore creates a dual store. durable may be nil, in which case
// records live only in memory.
func NewDualStore(durable RecordStore, log *observability.Logger) *DualStore {
	if log == nil {
		log = observability.Nop()
	}
	return &DualStore{
		memory:  NewMemoryStore(),
		durable: durable,
		log:     log,
	}
}

func (d *DualStore) Store(rec *diagnosis.DiagnosisRecord) error {
	if err := d.memory.Store(rec); err != nil {
		return err
	}
	if d.durable != nil {
		if err := d.durable.Store(rec); err != nil {
			d.log.PersistFailed(rec.ID, err)
			metrics.StoreWriteFailures.Inc()
		}
	}
	return nil
}

// Get prefers the in-memory copy, which retains the original image
// payload, and falls back to the durable layer for records from earlier
// sessions.
func (d *DualStore) Get(id string) (*diagnosis.DiagnosisRecord, error) {
	rec, err := d.memory.Get(id)
	if err == nil {
		return rec, nil
	}
	if d.durable == nil {
		return nil, ErrNotFound
	}
	return d.durable.Get(id)
}

func (d *DualStore) Delete(id string) error {
	if err := d.memory.Delete(id); err != nil {
		return err
	}
	if d.durable != nil {
		if err := d.durable.Delete(id); err != nil {
			d.log.PersistFailed(id, err)
			metrics.StoreWriteFailures.Inc()
		}
	}
	return nil
}

// List merges both layers, with the in-memory copy winning per id.
func (d *DualStore) List() ([]*diagnosis.DiagnosisRecord, error) {
	merged := make(map[string]*diagnosis.DiagnosisRecord)
	if d.durable != nil {
		durable, err := d.durable.List()
		if err != nil {
			d.log.PersistFailed("", err)
		} else {
			for _, rec := range durable {
				merged[rec.ID] = rec
			}
		}
	}
	inMem, err := d.memory.List()
	if err != nil {
		return nil, err
	}
	for _, rec := range inMem {
		merged[rec.ID] = rec
	}

	out := make([]*diagnosis.DiagnosisRecord, 0, len(merged))
	for _, rec := range merged {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
