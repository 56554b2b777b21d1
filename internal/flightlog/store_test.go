package flightlog

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"HabTracker/internal/model"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "flight.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAppendAndLatest(t *testing.T) {
	s := openTemp(t)
	at := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := uint32(1); i <= 3; i++ {
		tel := model.Telemetry{Callsign: "HAB1", Counter: i, Alt: int64(i) * 100}
		if err := s.Append("run-a", at.Add(time.Duration(i)*time.Second), tel); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}
	rec, err := s.Latest("run-a")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if rec.Telemetry.Counter != 3 || rec.Seq != 3 {
		t.Errorf("Expected counter 3 at seq 3, got %d at %d", rec.Telemetry.Counter, rec.Seq)
	}
	if !rec.At.Equal(at.Add(3 * time.Second)) {
		t.Errorf("Expected timestamp %v, got %v", at.Add(3*time.Second), rec.At)
	}
}

func TestRecordsOrderAndLimit(t *testing.T) {
	s := openTemp(t)
	now := time.Now()
	for i := uint32(1); i <= 5; i++ {
		if err := s.Append("r", now, model.Telemetry{Counter: i}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	all, err := s.Records("r", 0)
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(all) != 5 || all[0].Telemetry.Counter != 1 || all[4].Telemetry.Counter != 5 {
		t.Errorf("Expected 5 records oldest first, got %+v", all)
	}
	last, err := s.Records("r", 2)
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(last) != 2 || last[0].Telemetry.Counter != 4 || last[1].Telemetry.Counter != 5 {
		t.Errorf("Expected the two newest records, got %+v", last)
	}
}

func TestUnknownRun(t *testing.T) {
	s := openTemp(t)
	if _, err := s.Latest("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := s.Records("missing", 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := s.StartRun(Run{ID: "empty"}); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if _, err := s.Latest("empty"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for a run without records, got %v", err)
	}
}

func TestRunsSortedAndPersisted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flight.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	s.StartRun(Run{ID: "zz", Callsign: "HAB1", Started: base})
	s.StartRun(Run{ID: "aa", Callsign: "HAB1", Started: base.Add(time.Hour)})
	s.Append("zz", base, model.Telemetry{Counter: 7})
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	runs, err := s.Runs()
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "zz" || runs[1].ID != "aa" {
		t.Errorf("Expected runs ordered by start time, got %+v", runs)
	}
	rec, err := s.Latest("zz")
	if err != nil || rec.Telemetry.Counter != 7 {
		t.Errorf("Expected persisted record, got %+v, %v", rec, err)
	}
}

func TestOpenCreatesParentDir(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "nested", "dir", "flight.db"))
	if err != nil {
		t.Fatalf("Expected Open to create parent directories, got %v", err)
	}
	s.Close()
}
