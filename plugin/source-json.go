package plugin

import (
	"encoding/json"
	"fmt"
	"io"

	Nt "github.com/maroda/nocturne/types"
)

// JSONSource reads a stage document exported by other tooling,
// the shape is {"stages": ["W", "N1", ...]}.
type JSONSource struct{}

// Extract decodes the stages array as-is.
// Vocabulary checks belong to the analysis layer.
func (js *JSONSource) Extract(r io.Reader, epochSec float64) ([]Nt.Stage, error) {
	var doc struct {
		Stages []Nt.Stage `json:"stages"`
	}

	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("error decoding stage json: %v", err)
	}

	return doc.Stages, nil
}

func (js *JSONSource) Type() string { return "json" }
