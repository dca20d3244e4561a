package store

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/boltdb/bolt"

	"github.com/avelier/scancine/internal/diagnosis"
)

var bucketRecords = []byte("diagnosis_records")

// BoltStore is the durable layer. Records are downgraded at the write
// boundary: an image field carrying an inline data URI is rewritten to
// the placeholder path so the database never holds large embedded
// payloads. The downgrade applies only here; the in-memory layer keeps
// the original.
type BoltStore struct {
	db          *bolt.DB
	placeholder string
}

// OpenBoltStore opens (or creates) the durable record database at path.
// An empty placeholder falls back to DefaultPlaceholderPath.
func OpenBoltStore(path, placeholder string) (*BoltStore, error) {
	if placeholder == "" {
		placeholder = DefaultPlaceholderPath
	}
	db, err := bolt.Open(filepath.Clean(path), 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening record database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, e := tx.CreateBucketIfNotExists(bucketRecords)
		return e
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating record bucket: %w", err)
	}
	return &BoltStore{db: db, placeholder: placeholder}, nil
}

// Close releases the underlying database file.
func (b *BoltStore) Close() error { return b.db.Close() }

func (b *BoltStore) Store(rec *diagnosis.DiagnosisRecord) error {
	durable := downgrade(rec, b.placeholder)
	data, err := json.Marshal(durable)
	if err != nil {
		return fmt.Errorf("serializing record %s: %w", rec.ID, err)
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		bk := tx.Bucket(bucketRecords)
		if bk == nil {
			return bolt.ErrBucketNotFound
		}
		return bk.Put([]byte(rec.ID), data)
	})
}

func (b *BoltStore) Get(id string) (*diagnosis.DiagnosisRecord, error) {
	var rec *diagnosis.DiagnosisRecord
	err := b.db.View(func(tx *bolt.Tx) error {
		bk := tx.Bucket(bucketRecords)
		if bk == nil {
			return bolt.ErrBucketNotFound
		}
		v := bk.Get([]byte(id))
		if v == nil {
			return ErrNotFound
		}
		rec = &diagnosis.DiagnosisRecord{}
		return json.Unmarshal(v, rec)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (b *BoltStore) Delete(id string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bk := tx.Bucket(bucketRecords)
		if bk == nil {
			return bolt.ErrBucketNotFound
		}
		return bk.Delete([]byte(id))
	})
}

func (b *BoltStore) List() ([]*diagnosis.DiagnosisRecord, error) {
	var out []*diagnosis.DiagnosisRecord
	err := b.db.View(func(tx *bolt.Tx) error {
		bk := tx.Bucket(bucketRecords)
		if bk == nil {
			return bolt.ErrBucketNotFound
		}
		return bk.ForEach(func(k, v []byte) error {
			rec := &diagnosis.DiagnosisRecord{}
			if err := json.Unmarshal(v, rec); err != nil {
				return fmt.Errorf("corrupt record %s: %w", k, err)
			}
			out = append(out, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// downgrade returns a copy of rec safe for durable storage.
func downgrade(rec *diagnosis.DiagnosisRecord, placeholder string) *diagnosis.DiagnosisRecord {
	cp := *rec
	if strings.HasPrefix(cp.Image, "data:") {
		cp.Image = placeholder
	}
	return &cp
}
