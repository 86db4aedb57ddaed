package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/rotblauer/catfuse/params"
	"github.com/rotblauer/catfuse/types/record"
	"go.etcd.io/bbolt"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrNoID     = errors.New("record has no session id")
)

// RecordStore persists finalized session records in a bbolt database,
// one JSON value per session id.
// A writable store holds the file lock until Close; other openers block.
type RecordStore struct {
	DB     *bbolt.DB
	bucket []byte
	rOnly  bool
	logger *slog.Logger
}

// OpenRecordStore opens (or creates) the database at path.
// A read-only store will not create a missing file.
func OpenRecordStore(path string, readOnly bool) (*RecordStore, error) {
	if !readOnly {
		if err := os.MkdirAll(filepath.Dir(path), 0770); err != nil {
			return nil, err
		}
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{
		ReadOnly: readOnly,
		Timeout:  params.RecordsDBOpenTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open records db: %w", err)
	}
	s := &RecordStore{
		DB:     db,
		bucket: params.RecordsBucket,
		rOnly:  readOnly,
		logger: slog.With("db", path),
	}
	if !readOnly {
		if err := db.Update(func(tx *bbolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(s.bucket)
			return err
		}); err != nil {
			db.Close()
			return nil, err
		}
	}
	return s, nil
}

// OpenDatadirStore opens the records database under dir.
func OpenDatadirStore(dir string, readOnly bool) (*RecordStore, error) {
	return OpenRecordStore(filepath.Join(dir, params.RecordsDBName), readOnly)
}

func (s *RecordStore) Close() error {
	return s.DB.Close()
}

// Put stores rec under its session id, replacing any earlier record.
func (s *RecordStore) Put(rec *record.Record) error {
	if rec == nil || rec.SessionID == "" {
		return ErrNoID
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	err = s.DB.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(s.bucket)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(rec.SessionID), b)
	})
	if err != nil {
		s.logger.Error("Failed to store record", "session", rec.SessionID, "error", err)
		return err
	}
	s.logger.Debug("Stored record", "session", rec.SessionID, "bytes", len(b))
	return nil
}

// Get returns the record stored for id, or ErrNotFound.
func (s *RecordStore) Get(id string) (*record.Record, error) {
	rec := &record.Record{}
	err := s.DB.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(s.bucket)
		if bucket == nil {
			return ErrNotFound
		}
		// The value returned by Get is only valid inside the transaction.
		got := bucket.Get([]byte(id))
		if got == nil {
			return ErrNotFound
		}
		return json.Unmarshal(got, rec)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns every stored record in key order.
func (s *RecordStore) List() ([]*record.Record, error) {
	out := []*record.Record{}
	err := s.DB.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(s.bucket)
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, v []byte) error {
			rec := &record.Record{}
			if err := json.Unmarshal(v, rec); err != nil {
				return fmt.Errorf("decode record %q: %w", string(k), err)
			}
			out = append(out, rec)
			return nil
		})
	})
	return out, err
}

// Delete removes the record for id. Deleting a missing id returns ErrNotFound.
func (s *RecordStore) Delete(id string) error {
	return s.DB.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(s.bucket)
		if bucket == nil || bucket.Get([]byte(id)) == nil {
			return ErrNotFound
		}
		return bucket.Delete([]byte(id))
	})
}
