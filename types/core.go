package types

/*

	These are the "immutable" core types of Nocturne,
	provided for cross-package use (e.g. Plugins) and testing.

	Aside from the JSON glue on Record, no functions are defined here.
	Struct constructors are housed in their own packages.
	Methods taking these types should create local aliases,
	for example: type Stretches []Nt.Stretch

*/

import (
	"encoding/json"
	"math"
	"time"
)

// Stage is one scored sleep-stage label.
// The vocabulary is fixed: W, N1, N2, N3, R.
// Anything else in a hypnogram is a validation error, never coerced.
type Stage string

const (
	Wake Stage = "W"
	N1   Stage = "N1"
	N2   Stage = "N2"
	N3   Stage = "N3"
	REM  Stage = "R"
)

// StageCount is the size of the stage vocabulary.
const StageCount = 5

// StageLabels is the canonical ordering. The index of a label here
// IS its numeric code, so this array and StageCode move together.
var StageLabels = [StageCount]Stage{Wake, N1, N2, N3, REM}

// StageCode maps each label to its numeric code.
var StageCode = map[Stage]int{
	Wake: 0,
	N1:   1,
	N2:   2,
	N3:   3,
	REM:  4,
}

// These glyphs draw a hypnogram top-down, deeper sleep sits lower.
// The UI maps stages onto runes like these when rendering.
// Mostly these are unused constants, but here for reference.
const (
	glyphWake = "█" // U+2588 full block, awake rides the top
	glyphREM  = "▆" // U+2586 REM floats just below waking
	glyphN1   = "▄" // U+2584 light sleep
	glyphN2   = "▂" // U+2582 stable sleep
	glyphN3   = "▁" // U+2581 slow wave, the floor of the night
)

// CycleKind distinguishes the two stretch families the cycle
// detector finds in a night.
type CycleKind int

const (
	NREMPeriod CycleKind = iota // NREM period: N2-anchored all-NREM stretch
	REMPeriod                   // REM period: contiguous R stretch
)

// Stretch is an inclusive range of epoch indexes [Start, End]
// locating one detected cycle stretch inside a hypnogram.
type Stretch struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Defaults for scoring geometry and cycle detection.
// A cohort stanza that leaves these zero falls back to them.
const (
	DefaultEpochSec      = 30.0 // scoring epoch length in seconds
	DefaultMaxWakeEpochs = 10   // trailing wake kept after trimming
	DefaultMinNREMEpochs = 30   // minimum NREM period, 15 min at 30s
	DefaultMinREMEpochs  = 10   // minimum REM period, 5 min at 30s
)

// Record is the flat metric map for one analyzed night.
// Undefined metrics are NaN, which encoding/json refuses to carry,
// so marshaling converts NaN to null and back.
type Record map[string]float64

func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]*float64, len(r))
	for k, v := range r {
		if math.IsNaN(v) {
			out[k] = nil
			continue
		}
		vv := v
		out[k] = &vv
	}
	return json.Marshal(out)
}

func (r *Record) UnmarshalJSON(data []byte) error {
	in := make(map[string]*float64)
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	rec := make(Record, len(in))
	for k, v := range in {
		if v == nil {
			rec[k] = math.NaN()
			continue
		}
		rec[k] = *v
	}
	*r = rec
	return nil
}

// SleepRecord is one fully analyzed recording:
// the scored hypnogram plus everything computed from it.
// Labels hold the raw untrimmed sequence for rendering,
// Metrics hold the macrostructure and transition values.
type SleepRecord struct {
	ID       string    `json:"id"`
	Scored   time.Time `json:"scored"`
	EpochSec float64   `json:"epoch_sec"`
	Epochs   int       `json:"epochs"`
	Labels   []Stage   `json:"labels"`
	NREM     []Stretch `json:"nrem"`
	REM      []Stretch `json:"rem"`
	Metrics  Record    `json:"metrics"`
}
