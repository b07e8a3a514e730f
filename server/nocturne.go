package nocturne

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	Np "github.com/maroda/nocturne/plugin"
	Nt "github.com/maroda/nocturne/types"
)

// Sentinels for the analysis core, matchable with errors.Is
var (
	ErrEmptyHypnogram = errors.New("hypnogram cannot be empty")
	ErrUnknownStage   = errors.New("unknown sleep stage")
	ErrUnsupported    = errors.New("unsupported operation")
)

// Hypnograms is a slice of pointers for batch work
type Hypnograms []*Hypnogram

// The Hypnogram is the building block of this tool.
// One Hypnogram is one night of scored sleep for one recording,
// a label sequence plus the geometry used to analyze it.
// Labels are validated at construction and never coerced,
// methods assume a clean vocabulary after that.
type Hypnogram struct {
	ID       string              // identifies the recording
	Labels   []Nt.Stage          // raw scored sequence, untrimmed
	EpochSec float64             // seconds per scoring epoch
	MaxWake  int                 // trailing wake epochs kept by the trim
	MinNREM  int                 // minimum epochs for a NREM period
	MinREM   int                 // minimum epochs for a later REM period
	Scorer   Np.ComplexityScorer // optional, LZc stays NaN without it
}

// NewHypnogram validates a label sequence and wraps it
// with the default scoring geometry.
func NewHypnogram(id string, labels []Nt.Stage) (*Hypnogram, error) {
	if err := ValidateStages(labels); err != nil {
		slog.Error("Invalid hypnogram", slog.String("ID", id), slog.Any("Error", err))
		return nil, err
	}

	return &Hypnogram{
		ID:       id,
		Labels:   labels,
		EpochSec: Nt.DefaultEpochSec,
		MaxWake:  Nt.DefaultMaxWakeEpochs,
		MinNREM:  Nt.DefaultMinNREMEpochs,
		MinREM:   Nt.DefaultMinREMEpochs,
	}, nil
}

// ValidateStages checks a label sequence against the stage vocabulary.
// The sequence must be non-empty and strictly in-vocabulary.
// Unknown labels are reported in order of first appearance.
func ValidateStages(labels []Nt.Stage) error {
	if len(labels) == 0 {
		return ErrEmptyHypnogram
	}

	var bad []string
	seen := make(map[Nt.Stage]bool)
	for _, l := range labels {
		if _, ok := Nt.StageCode[l]; ok {
			continue
		}
		if !seen[l] {
			seen[l] = true
			bad = append(bad, string(l))
		}
	}
	if len(bad) > 0 {
		return fmt.Errorf("%w: %s", ErrUnknownStage, strings.Join(bad, ", "))
	}

	return nil
}

// EncodeStages converts labels to their numeric codes.
// The same validation runs here so the function is safe standalone.
func EncodeStages(labels []Nt.Stage) ([]int, error) {
	if err := ValidateStages(labels); err != nil {
		return nil, err
	}

	codes := make([]int, len(labels))
	for i, l := range labels {
		codes[i] = Nt.StageCode[l]
	}
	return codes, nil
}

// DecodeStages converts numeric codes back to labels.
// Composing with EncodeStages is the identity on valid input.
func DecodeStages(codes []int) ([]Nt.Stage, error) {
	if len(codes) == 0 {
		return nil, ErrEmptyHypnogram
	}

	labels := make([]Nt.Stage, len(codes))
	for i, c := range codes {
		if c < 0 || c >= Nt.StageCount {
			return nil, fmt.Errorf("%w: code %d", ErrUnknownStage, c)
		}
		labels[i] = Nt.StageLabels[c]
	}
	return labels, nil
}

// EncodeRuns compresses a label sequence to run-length form,
// two parallel slices: the symbol of each run and its length.
// Empty input returns empty runs, content checks live upstream.
func EncodeRuns(labels []Nt.Stage) ([]Nt.Stage, []int) {
	var symbols []Nt.Stage
	var lengths []int

	for i := 0; i < len(labels); {
		j := i
		for j < len(labels) && labels[j] == labels[i] {
			j++
		}
		symbols = append(symbols, labels[i])
		lengths = append(lengths, j-i)
		i = j
	}
	return symbols, lengths
}

// ExpandRuns is the exact inverse of EncodeRuns.
func ExpandRuns(symbols []Nt.Stage, lengths []int) []Nt.Stage {
	var labels []Nt.Stage
	for i, s := range symbols {
		for n := 0; n < lengths[i]; n++ {
			labels = append(labels, s)
		}
	}
	return labels
}

// StageRune maps one stage onto its display rune.
// Wake rides the top of the plot, deeper sleep sits lower.
func StageRune(s Nt.Stage) rune {
	var r rune
	switch s {
	case Nt.Wake:
		r = '█'
	case Nt.REM:
		r = '▆'
	case Nt.N1:
		r = '▄'
	case Nt.N2:
		r = '▂'
	case Nt.N3:
		r = '▁'
	default:
		r = ' '
	}
	return r
}

// MergeRecords combines metric maps into one Record.
// A duplicate key means two calculators claim the same metric.
// That is a programming error, so it panics on the spot.
func MergeRecords(records ...Nt.Record) Nt.Record {
	merged := make(Nt.Record)
	for _, r := range records {
		for k, v := range r {
			if _, ok := merged[k]; ok {
				panic(fmt.Sprintf("duplicate metric key: %s", k))
			}
			merged[k] = v
		}
	}
	return merged
}

// Analyze runs the full pipeline on one night:
// cycle detection and transitions over the raw sequence,
// macrostructure over the wake-trimmed sequence,
// merged into a single SleepRecord.
func (h *Hypnogram) Analyze() *Nt.SleepRecord {
	macro := h.Macrostructure()
	trans := h.Transitions()
	_, nrem := h.NREMStretches()
	_, rem := h.REMStretches()

	rec := &Nt.SleepRecord{
		ID:       h.ID,
		Scored:   time.Now(),
		EpochSec: h.EpochSec,
		Epochs:   len(h.Labels),
		Labels:   h.Labels,
		NREM:     nrem,
		REM:      rem,
		Metrics:  MergeRecords(macro, trans),
	}

	slog.Debug("Analyzed hypnogram",
		slog.String("ID", h.ID),
		slog.Int("Epochs", rec.Epochs),
		slog.Int("NREM", len(nrem)),
		slog.Int("REM", len(rem)))

	return rec
}

// Complexity scores the wake-trimmed sequence with the configured
// scorer. Unlike the soft NaN inside Macrostructure, asking for
// complexity directly without a scorer is a hard error.
func (h *Hypnogram) Complexity() (float64, error) {
	if h.Scorer == nil {
		return 0, fmt.Errorf("%w: no complexity scorer configured", ErrUnsupported)
	}

	codes, err := EncodeStages(TrimTerminalWake(h.Labels, h.MaxWake))
	if err != nil {
		return 0, err
	}
	return h.Scorer.Score(codes)
}
