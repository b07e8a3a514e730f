package plugin

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	Nt "github.com/maroda/nocturne/types"
)

// CSVOutput writes the cohort mastersheet, one row per night.
// The header is the sorted union of metric keys across all rows,
// so the sheet only settles once every night is in, and Flush
// rewrites the whole file from the buffer each time.
type CSVOutput struct {
	MU     sync.Mutex
	Path   string
	Buffer []*Nt.SleepRecord
}

func NewCSVOutput(path string) (*CSVOutput, error) {
	// Surface an unwritable location at startup, not at flush time
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		slog.Error("CSVOutput cannot open mastersheet", slog.Any("error", err))
		return nil, fmt.Errorf("mastersheet error: %w", err)
	}
	f.Close()

	slog.Info("CSVOutput opened", slog.String("path", path))
	return &CSVOutput{Path: path}, nil
}

// WriteRecord buffers one analyzed night.
// The sheet itself is written on Flush.
func (co *CSVOutput) WriteRecord(rec *Nt.SleepRecord) error {
	co.MU.Lock()
	defer co.MU.Unlock()

	co.Buffer = append(co.Buffer, rec)
	return nil
}

// WriteBatch buffers a set of nights and writes the sheet out
func (co *CSVOutput) WriteBatch(recs []*Nt.SleepRecord) error {
	co.MU.Lock()
	defer co.MU.Unlock()

	co.Buffer = append(co.Buffer, recs...)
	return co.flushLocked()
}

// Flush rewrites the mastersheet from the buffer
func (co *CSVOutput) Flush() error {
	co.MU.Lock()
	defer co.MU.Unlock()

	return co.flushLocked()
}

func (co *CSVOutput) flushLocked() error {
	if len(co.Buffer) == 0 {
		return nil
	}

	// Header is the union of metric keys, sorted for a stable sheet
	keySet := make(map[string]bool)
	for _, r := range co.Buffer {
		for k := range r.Metrics {
			keySet[k] = true
		}
	}
	keys := make([]string, 0, len(keySet))
	for k := range keySet {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	f, err := os.Create(co.Path)
	if err != nil {
		slog.Error("CSVOutput failed to create mastersheet", slog.Any("error", err))
		return fmt.Errorf("mastersheet error: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append([]string{"id"}, keys...)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("mastersheet header error: %w", err)
	}

	for _, r := range co.Buffer {
		row := make([]string, 0, len(header))
		row = append(row, r.ID)
		for _, k := range keys {
			v, ok := r.Metrics[k]
			if !ok || math.IsNaN(v) {
				row = append(row, "") // undefined renders as an empty cell
				continue
			}
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("mastersheet row error: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		slog.Error("CSVOutput failed to write mastersheet", slog.Any("error", err))
		return fmt.Errorf("mastersheet write error: %w", err)
	}

	slog.Info("Mastersheet written",
		slog.String("path", co.Path),
		slog.Int("rows", len(co.Buffer)))
	return nil
}

// QueryRange filters the buffered records by scoring time
func (co *CSVOutput) QueryRange(start, end time.Time) ([]*Nt.SleepRecord, error) {
	co.MU.Lock()
	defer co.MU.Unlock()

	var recs []*Nt.SleepRecord
	for _, r := range co.Buffer {
		if r.Scored.After(start) && r.Scored.Before(end) {
			recs = append(recs, r)
		}
	}
	return recs, nil
}

// Close writes anything still buffered
func (co *CSVOutput) Close() error {
	return co.Flush()
}

func (co *CSVOutput) Type() string { return "CSV" }
