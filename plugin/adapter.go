package plugin

/*

	The Adapter sits aside /nocturne/
	Contains core interfaces for Plugin

*/

import (
	"io"
	"time"

	Nt "github.com/maroda/nocturne/types"
)

// ComplexityScorer is the optional sequence-complexity collaborator.
// Score runs over the numeric stage codes of one night and returns
// a normalized complexity value. A Hypnogram without a scorer still
// analyzes fine, the LZc metric just stays NaN.
type ComplexityScorer interface {
	Score(codes []int) (float64, error)
	Type() string // Unique ID for the scorer
}

// StageSource extracts a label sequence from one stage file.
// Implementations own their format quirks, the caller only
// supplies the reader and the epoch length in seconds.
type StageSource interface {
	Extract(r io.Reader, epochSec float64) ([]Nt.Stage, error)
	Type() string // Unique ID for the source format
}

// OutputAdapter can be used to define a place for analyzed records
// to go, night-by-night or in batches if supported by the output.
type OutputAdapter interface {
	WriteRecord(rec *Nt.SleepRecord) error                      // Write one analyzed night
	WriteBatch(recs []*Nt.SleepRecord) error                    // Write batches of nights
	QueryRange(start, end time.Time) ([]*Nt.SleepRecord, error) // Time range query tool
	Flush() error                                               // Flush any buffered data
	Close() error                                               // Close the adapter and release resources
	Type() string                                               // ID for output
}
