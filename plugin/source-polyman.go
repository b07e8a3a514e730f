package plugin

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	Nt "github.com/maroda/nocturne/types"
)

// PolymanSource reads annotation exports in the Polyman style:
// onset, duration, description separated by tabs, one annotation
// per line, e.g. "300<tab>960<tab>Sleep stage N2".
type PolymanSource struct{}

// Extract expands annotations into an epoch-by-epoch sequence.
// The stage label is the third word of the description and a
// shorter description is used whole. Each annotation repeats its
// label duration/epochSec times. Any label outside the stage
// vocabulary makes the whole file invalid.
func (ps *PolymanSource) Extract(r io.Reader, epochSec float64) ([]Nt.Stage, error) {
	if epochSec <= 0 {
		return nil, fmt.Errorf("epoch length must be positive, got %v", epochSec)
	}

	scanner := bufio.NewScanner(r)

	var labels []Nt.Stage
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Annotations that do not fit the triple shape are skipped,
		// headers and footers usually land here
		parts := strings.SplitN(line, "\t", 3)
		if len(parts) != 3 {
			continue
		}

		duration, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			continue
		}

		desc := strings.TrimSpace(parts[2])
		words := strings.Fields(desc)
		label := desc
		if len(words) >= 3 {
			label = words[2]
		}

		if _, ok := Nt.StageCode[Nt.Stage(label)]; !ok {
			return nil, fmt.Errorf("unexpected stage label: %s", label)
		}

		repeat := int(duration / epochSec)
		for i := 0; i < repeat; i++ {
			labels = append(labels, Nt.Stage(label))
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning error: %w", err)
	}

	return labels, nil
}

func (ps *PolymanSource) Type() string { return "polyman" }
