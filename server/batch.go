package nocturne

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	Np "github.com/maroda/nocturne/plugin"
	Nt "github.com/maroda/nocturne/types"
)

// Cohorts is a slice of pointers for multi-directory setups
type Cohorts []*Cohort

// The Cohort scans one directory of stage files and turns each new
// file into an analyzed SleepRecord. Every attempted file lands in
// Seen, success or not, so a rescan never grinds on a permanently
// bad file. Records is the append-only masterlist.
type Cohort struct {
	MU         sync.RWMutex
	ID         string
	Dir        string
	EpochSec   float64
	KeepWake   bool
	MaxWake    int
	MinNREM    int
	MinREM     int
	Workers    int
	StageDir   string              // per-recording label exports, empty = off
	OutputKind string              // configured output name, kept for deferred wiring
	Source     Np.StageSource      // stage file format reader
	Scorer     Np.ComplexityScorer // optional
	Output     Np.OutputAdapter    // optional
	Records    []*Nt.SleepRecord
	Seen       map[string]bool
}

// NewCohortsFromConfig builds one Cohort per config stanza
func NewCohortsFromConfig(config []ConfigFile) (*Cohorts, error) {
	var cohorts Cohorts
	for i := range config {
		c, err := NewCohort(config[i])
		if err != nil {
			return nil, err
		}
		cohorts = append(cohorts, c)
	}
	return &cohorts, nil
}

// NewCohort wires one stanza. An unknown source, scorer, or output
// name fails hard here: asking for a capability by name and not
// getting it is a config error, never a silent degrade.
func NewCohort(cf ConfigFile) (*Cohort, error) {
	source, err := Np.SourceLookup(cf.Format)
	if err != nil {
		slog.Error("Unknown stage source",
			slog.String("ID", cf.ID),
			slog.Any("Error", err))
		return nil, err
	}

	c := &Cohort{
		ID:         cf.ID,
		Dir:        cf.Dir,
		EpochSec:   cf.EpochSec,
		KeepWake:   cf.KeepWake,
		MaxWake:    cf.MaxWake,
		MinNREM:    cf.MinNREM,
		MinREM:     cf.MinREM,
		Workers:    cf.Workers,
		StageDir:   cf.StageDir,
		OutputKind: cf.Output,
		Source:     source,
		Seen:       make(map[string]bool),
	}

	if cf.Scorer != "" {
		scorer, err := Np.ScorerLookup(cf.Scorer)
		if err != nil {
			slog.Error("Unknown complexity scorer",
				slog.String("ID", cf.ID),
				slog.Any("Error", err))
			return nil, err
		}
		c.Scorer = scorer
	}

	// The MIDI adapter lives behind a build tag in the display
	// layer, which attaches it after construction.
	if cf.Output != "" && cf.Output != "midi" {
		output, err := initOutput(cf)
		if err != nil {
			slog.Error("Output adapter failed",
				slog.String("ID", cf.ID),
				slog.Any("Error", err))
			return nil, err
		}
		c.Output = output
	}

	return c, nil
}

// initOutput constructs the configured output adapter.
// MIDI is wired by the display layer where its build tag lives.
func initOutput(cf ConfigFile) (Np.OutputAdapter, error) {
	switch cf.Output {
	case "badger":
		return Np.NewBadgerOutput(cf.OutPath, 10)
	case "csv":
		return Np.NewCSVOutput(cf.OutPath)
	}
	return nil, fmt.Errorf("unknown output adapter: %s", cf.Output)
}

// AnalyzeFile runs one stage file through the full pipeline.
// The recording ID is the file's base name without extension.
func (c *Cohort) AnalyzeFile(path string) (*Nt.SleepRecord, error) {
	labels, err := ReadStageFile(path, c.Source, c.EpochSec)
	if err != nil {
		return nil, err
	}

	id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	h, err := NewHypnogram(id, labels)
	if err != nil {
		return nil, err
	}

	h.EpochSec = c.EpochSec
	h.MaxWake = c.MaxWake
	h.MinNREM = c.MinNREM
	h.MinREM = c.MinREM
	h.Scorer = c.Scorer
	if c.KeepWake {
		h.MaxWake = len(labels) // the trim never fires
	}

	return h.Analyze(), nil
}

// RunBatch analyzes everything new in the cohort directory.
// Files fan out over a worker pool, results append to the guarded
// masterlist, and a failed file is logged, marked seen, and skipped
// without stopping the rest of the pass.
func (c *Cohort) RunBatch(ctx context.Context) error {
	files, err := c.ScanDir()
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return nil
	}

	slog.Info("Cohort batch starting",
		slog.String("ID", c.ID),
		slog.Int("files", len(files)),
		slog.Int("workers", c.Workers))

	jobs := make(chan string)
	var wg sync.WaitGroup

	for w := 0; w < c.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				c.runOne(path)
			}
		}()
	}

	for _, path := range files {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return ctx.Err()
		case jobs <- path:
		}
	}
	close(jobs)
	wg.Wait()

	// One flush per pass keeps file-shaped outputs consistent
	if c.Output != nil {
		if err := c.Output.Flush(); err != nil {
			slog.Error("Output flush failed",
				slog.String("ID", c.ID),
				slog.Any("Error", err))
			return err
		}
	}

	slog.Info("Cohort batch complete",
		slog.String("ID", c.ID),
		slog.Int("records", c.CountRecords()))

	return nil
}

// runOne is a single worker step, errors never escape it
func (c *Cohort) runOne(path string) {
	rec, err := c.AnalyzeFile(path)

	c.MU.Lock()
	c.Seen[path] = true
	c.MU.Unlock()

	if err != nil {
		slog.Error("Skipping stage file",
			slog.String("ID", c.ID),
			slog.String("file", path),
			slog.Any("Error", err))
		return
	}

	c.MU.Lock()
	c.Records = append(c.Records, rec)
	c.MU.Unlock()

	if c.Output != nil {
		if err := c.Output.WriteRecord(rec); err != nil {
			slog.Error("Output write failed",
				slog.String("ID", c.ID),
				slog.String("file", path),
				slog.Any("Error", err))
		}
	}

	if c.StageDir != "" {
		export := filepath.Join(c.StageDir, rec.ID+"_hypnogram.csv")
		if err := WriteStageFile(export, rec.Labels); err != nil {
			slog.Error("Stage export failed",
				slog.String("ID", c.ID),
				slog.String("file", export),
				slog.Any("Error", err))
		}
	}
}

// ScanDir lists unattempted files in the cohort directory, sorted.
// Subdirectories and dotfiles are left alone.
func (c *Cohort) ScanDir() ([]string, error) {
	entries, err := os.ReadDir(c.Dir)
	if err != nil {
		slog.Error("Cannot read cohort dir",
			slog.String("Dir", c.Dir),
			slog.Any("Error", err))
		return nil, err
	}

	c.MU.RLock()
	defer c.MU.RUnlock()

	var files []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		path := filepath.Join(c.Dir, e.Name())
		if c.Seen[path] {
			continue
		}
		files = append(files, path)
	}
	sort.Strings(files)
	return files, nil
}

// GetRecords returns a snapshot of the masterlist
func (c *Cohort) GetRecords() []*Nt.SleepRecord {
	c.MU.RLock()
	defer c.MU.RUnlock()

	recs := make([]*Nt.SleepRecord, len(c.Records))
	copy(recs, c.Records)
	return recs
}

// GetRecord finds one record by recording ID
func (c *Cohort) GetRecord(id string) *Nt.SleepRecord {
	c.MU.RLock()
	defer c.MU.RUnlock()

	for _, r := range c.Records {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// CountRecords reports the masterlist size
func (c *Cohort) CountRecords() int {
	c.MU.RLock()
	defer c.MU.RUnlock()
	return len(c.Records)
}

// CountSeen reports how many files have been attempted
func (c *Cohort) CountSeen() int {
	c.MU.RLock()
	defer c.MU.RUnlock()
	return len(c.Seen)
}

// Close releases the cohort's output adapter
func (c *Cohort) Close() error {
	if c.Output == nil {
		return nil
	}
	return c.Output.Close()
}

// RunAll runs one batch pass over every cohort.
// The first scan error stops the pass.
func (cs *Cohorts) RunAll(ctx context.Context) error {
	for _, c := range *cs {
		if err := c.RunBatch(ctx); err != nil {
			return err
		}
	}
	return nil
}

// CountAll reports the combined masterlist size
func (cs *Cohorts) CountAll() int {
	total := 0
	for _, c := range *cs {
		total += c.CountRecords()
	}
	return total
}

// Close releases every cohort's output adapter
func (cs *Cohorts) Close() {
	for _, c := range *cs {
		if err := c.Close(); err != nil {
			slog.Error("Output close failed",
				slog.String("ID", c.ID),
				slog.Any("Error", err))
		}
	}
}
