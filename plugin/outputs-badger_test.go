package plugin_test

import (
	"bytes"
	"encoding/binary"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	Np "github.com/maroda/nocturne/plugin"
	Nt "github.com/maroda/nocturne/types"
)

func TestNewBadgerOutput(t *testing.T) {
	adapter, closedb := makeTestBadgerOutput(t)
	defer closedb()

	t.Run("Creates new struct for output", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "badger_db")
		got, err := Np.NewBadgerOutput(path, 10)
		assertError(t, err, nil)
		defer got.Close()

		assertInt(t, got.BatchSize, 10)
	})

	t.Run("Returns Type", func(t *testing.T) {
		want := "BadgerDB"
		got := adapter.Type()
		assertStringContains(t, got, want)
	})
}

func TestBadgerOutput_WriteRecord(t *testing.T) {
	adapter, closedb := makeTestBadgerOutput(t)
	defer closedb()

	t.Run("Writes record without error", func(t *testing.T) {
		err := adapter.WriteRecord(makeTestRecord("PSG-0001", time.Now()))
		assertError(t, err, nil)
	})

	t.Run("Flushes records at the batch size", func(t *testing.T) {
		start := time.Now()
		// the test adapter buffer size is 5
		ids := []string{"PSG-0002", "PSG-0003", "PSG-0004", "PSG-0005"}
		for i, id := range ids {
			err := adapter.WriteRecord(makeTestRecord(id, start.Add(time.Duration(i)*time.Second)))
			assertError(t, err, nil)
		}

		// Verify database entries
		readRecs, err := adapter.QueryRange(start.Add(-1*time.Minute), start.Add(1*time.Minute))
		assertError(t, err, nil)

		// Verify count, the first write rode along in the batch
		assertInt(t, len(readRecs), 5)

		// Verify data match
		if len(readRecs) > 0 {
			assertInt(t, readRecs[0].Epochs, 4)
			assertFloat(t, readRecs[0].Metrics["TST"], 1.5)
		}
	})
}

func TestBadgerOutput_RecordKeyValue(t *testing.T) {
	scored := time.Now()

	t.Run("Makes a composite key", func(t *testing.T) {
		rec := makeTestRecord("PSG-0001", scored)
		key := Np.RecordKey(rec)

		// eight timestamp bytes then eight ID bytes
		assertInt(t, len(key), 16)

		ts := binary.BigEndian.Uint64(key[0:8])
		if ts != uint64(scored.UnixNano()) {
			t.Errorf("timestamp mismatch: got %d, want %d", ts, scored.UnixNano())
		}

		want := []byte("PSG-0001")
		got := key[8:]
		if !bytes.Equal(want, got) {
			t.Errorf("RecordKey = %v, want %v", got, want)
		}
	})

	t.Run("A long ID truncates to eight bytes", func(t *testing.T) {
		rec := makeTestRecord("PSG-000123", scored)
		key := Np.RecordKey(rec)

		want := []byte("PSG-0001")
		got := key[8:]
		if !bytes.Equal(want, got) {
			t.Errorf("RecordKey = %v, want %v", got, want)
		}
	})
}

func TestBadgerOutput_EncodeDecode(t *testing.T) {
	rec := makeTestRecord("PSG-0001", time.Now())

	got, err := Np.RecordDecode(Np.RecordEncode(rec))
	assertError(t, err, nil)

	t.Run("Identity survives storage", func(t *testing.T) {
		assertString(t, got.ID, rec.ID)
		assertInt(t, got.Epochs, rec.Epochs)
		assertInt(t, len(got.Labels), len(rec.Labels))
	})

	t.Run("Gob carries NaN metrics natively", func(t *testing.T) {
		if !math.IsNaN(got.Metrics["N1_onset"]) {
			t.Errorf("Expected NaN but got %f", got.Metrics["N1_onset"])
		}
	})
}

func TestBadgerOutput_WriteBatch(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name    string
		recs    []*Nt.SleepRecord
		wantErr bool
	}{
		{
			name:    "empty batch",
			recs:    []*Nt.SleepRecord{},
			wantErr: false,
		},
		{
			name: "single record",
			recs: []*Nt.SleepRecord{
				makeTestRecord("PSG-0001", now),
			},
			wantErr: false,
		},
		{
			name: "multiple records",
			recs: []*Nt.SleepRecord{
				makeTestRecord("PSG-0001", now),
				makeTestRecord("PSG-0002", now.Add(1*time.Second)),
				makeTestRecord("PSG-0003", now.Add(2*time.Second)),
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter, closedb := makeTestBadgerOutput(t)
			defer closedb()

			err := adapter.WriteBatch(tt.recs)
			if (err != nil) != tt.wantErr {
				t.Errorf("WriteBatch() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBadgerOutput_QueryRange(t *testing.T) {
	adapter, closedb := makeTestBadgerOutput(t)
	defer closedb()

	start := time.Now()
	recs := []*Nt.SleepRecord{
		makeTestRecord("PSG-0001", start),
		makeTestRecord("PSG-0002", start.Add(1*time.Second)),
		makeTestRecord("PSG-0003", start.Add(2*time.Second)),
	}

	err := adapter.WriteBatch(recs)
	assertError(t, err, nil)

	t.Run("QueryRange returns values", func(t *testing.T) {
		got, err := adapter.QueryRange(start.Add(-1*time.Second), start.Add(5*time.Second))
		assertError(t, err, nil)
		assertInt(t, len(got), len(recs))
	})

	t.Run("QueryRange filters by scoring time", func(t *testing.T) {
		got, err := adapter.QueryRange(start.Add(1*time.Hour), start.Add(2*time.Hour))
		assertError(t, err, nil)
		assertInt(t, len(got), 0)
	})
}

// Helpers //

func makeTestBadgerOutput(t *testing.T) (*Np.BadgerOutput, func()) {
	t.Helper()

	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	assertError(t, err, nil)

	adapter := &Np.BadgerOutput{
		DB:        db,
		BatchSize: 5,
		Buffer:    make([]*Nt.SleepRecord, 0, 5),
	}

	cleanup := func() {
		adapter.Close()
	}

	return adapter, cleanup
}

func makeTestRecord(id string, scored time.Time) *Nt.SleepRecord {
	return &Nt.SleepRecord{
		ID:       id,
		Scored:   scored,
		EpochSec: 30,
		Epochs:   4,
		Labels:   []Nt.Stage{"W", "N2", "N2", "R"},
		NREM:     []Nt.Stretch{{Start: 1, End: 2}},
		REM:      []Nt.Stretch{{Start: 3, End: 3}},
		Metrics:  Nt.Record{"TST": 1.5, "N1_onset": math.NaN()},
	}
}
