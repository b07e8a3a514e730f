package nocturne_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	Np "github.com/maroda/nocturne/plugin"
	Ns "github.com/maroda/nocturne/server"
	Nt "github.com/maroda/nocturne/types"
)

/*
	Output Adapter Plugins
	Nocturne Server Tests

*/

func TestCohort_WriteBadgerDB(t *testing.T) {
	t.Run("Write failures never stop the batch", func(t *testing.T) {
		dir := t.TempDir()
		writeStageFixture(t, dir, "alpha.txt", makeNightLabels())
		writeStageFixture(t, dir, "bravo.txt", makeNightLabels())

		c, err := Ns.NewCohort(makeCohortConfig(dir))
		assertError(t, err, nil)

		// Use a custom failing output
		mock := &FailingOutput{ShouldFail: true}
		c.Output = mock

		err = c.RunBatch(context.Background())
		assertError(t, err, nil)

		if mock.WriteRecordCalls == 0 {
			t.Errorf("Expected to write output but got nothing")
		}
		assertInt(t, c.CountRecords(), 2)
	})

	t.Run("Writes analyzed nights to BadgerDB during a batch", func(t *testing.T) {
		now := time.Now()
		dir := t.TempDir()
		writeStageFixture(t, dir, "alpha.txt", makeNightLabels())

		c, err := Ns.NewCohort(makeCohortConfig(dir))
		assertError(t, err, nil)

		// Define BadgerOutput adapter
		path := filepath.Join(t.TempDir(), "badger_db")
		batchSize := 1
		output, err := Np.NewBadgerOutput(path, batchSize)
		assertError(t, err, nil)
		defer output.Close()
		c.Output = output

		err = c.RunBatch(context.Background())
		assertError(t, err, nil)

		// Now check if the database has the data
		got, err := c.Output.QueryRange(now.Add(-2*time.Second), now.Add(2*time.Second))
		assertError(t, err, nil)
		assertInt(t, len(got), 1)
		assertString(t, got[0].ID, "alpha")
		assertFloat(t, got[0].Metrics["TST"], 50.0)
	})
}

func TestCohort_WriteMastersheet(t *testing.T) {
	dir := t.TempDir()
	writeStageFixture(t, dir, "alpha.txt", makeNightLabels())

	sheet := filepath.Join(t.TempDir(), "mastersheet.csv")
	cf := makeCohortConfig(dir)
	cf.Output = "csv"
	cf.OutPath = sheet

	c, err := Ns.NewCohort(cf)
	assertError(t, err, nil)

	err = c.RunBatch(context.Background())
	assertError(t, err, nil)

	t.Run("The batch pass flushes the sheet", func(t *testing.T) {
		data, err := os.ReadFile(sheet)
		assertError(t, err, nil)
		assertStringContains(t, string(data), "alpha")
		assertStringContains(t, string(data), "TST")
	})
}

// Helpers //

type FailingOutput struct {
	WriteRecordCalls int
	ShouldFail       bool
	Records          []*Nt.SleepRecord
}

func (fo *FailingOutput) WriteRecord(rec *Nt.SleepRecord) error {
	fo.WriteRecordCalls++
	if fo.ShouldFail {
		return fmt.Errorf("mock write failure")
	}
	fo.Records = append(fo.Records, rec)
	return nil
}
func (fo *FailingOutput) WriteBatch(recs []*Nt.SleepRecord) error {
	return nil
}
func (fo *FailingOutput) QueryRange(start, end time.Time) ([]*Nt.SleepRecord, error) {
	return fo.Records, nil
}
func (fo *FailingOutput) Flush() error { return nil }
func (fo *FailingOutput) Close() error { return nil }
func (fo *FailingOutput) Type() string { return "FailingMock" }
