// Package flightlog keeps telemetry records in a bbolt file, one bucket per run.
package flightlog

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"HabTracker/internal/model"
)

// ErrNotFound is returned when a run or record does not exist.
var ErrNotFound = errors.New("flightlog: not found")

var (
	runsBucket    = []byte("runs")
	recordsBucket = []byte("records")
)

// Run describes one boot of the tracker or one ground station session.
type Run struct {
	ID       string    `json:"id"`
	Callsign string    `json:"callsign"`
	Started  time.Time `json:"started"`
}

// Record is a stored telemetry sample.
type Record struct {
	Seq       uint64          `json:"seq"`
	At        time.Time       `json:"at"`
	Telemetry model.Telemetry `json:"telemetry"`
}

// Store is a flight log backed by bbolt.
type Store struct {
	db *bbolt.DB
}

// Open opens or creates the log at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("[flightlog] failed to create %s: %w", filepath.Dir(path), err)
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("[flightlog] failed to open %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(runsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(recordsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("[flightlog] init buckets: %w", err)
	}
	return &Store{db: db}, nil
}

// StartRun registers a run so its records can be listed later.
func (s *Store) StartRun(r Run) error {
	v, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.Bucket(recordsBucket).CreateBucketIfNotExists([]byte(r.ID)); err != nil {
			return err
		}
		return tx.Bucket(runsBucket).Put([]byte(r.ID), v)
	})
}

// Append stores t under runID. Records are keyed by a per-run sequence so they
// iterate in arrival order.
func (s *Store) Append(runID string, at time.Time, t model.Telemetry) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.Bucket(recordsBucket).CreateBucketIfNotExists([]byte(runID))
		if err != nil {
			return err
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		v, err := json.Marshal(Record{Seq: seq, At: at.UTC(), Telemetry: t})
		if err != nil {
			return err
		}
		return b.Put(seqKey(seq), v)
	})
}

// Latest returns the newest record of runID.
func (s *Store) Latest(runID string) (Record, error) {
	var rec Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(recordsBucket).Bucket([]byte(runID))
		if b == nil {
			return ErrNotFound
		}
		_, v := b.Cursor().Last()
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &rec)
	})
	return rec, err
}

// Records returns up to limit of the newest records of runID, oldest first.
// A limit of 0 returns all records.
func (s *Store) Records(runID string, limit int) ([]Record, error) {
	var out []Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(recordsBucket).Bucket([]byte(runID))
		if b == nil {
			return ErrNotFound
		}
		c := b.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(out) == limit {
				break
			}
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode record %d: %w", binary.BigEndian.Uint64(k), err)
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Runs lists every registered run, oldest first.
func (s *Store) Runs() ([]Run, error) {
	var runs []Run
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(runsBucket).ForEach(func(_, v []byte) error {
			var r Run
			if err := json.Unmarshal(v, &r); err != nil {
				return err
			}
			runs = append(runs, r)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Started.Before(runs[j].Started) })
	return runs, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}
