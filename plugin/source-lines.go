package plugin

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	Nt "github.com/maroda/nocturne/types"
)

// LinesSource reads the plainest stage file there is,
// one label per line. This is also the format the batch
// layer writes when exporting hypnograms, so the two
// round-trip with each other.
type LinesSource struct{}

// Extract collects one label per line. Blank lines and comments
// are skipped, stray quotes and commas from CSV-ish exports are
// tolerated. Vocabulary checks belong to the analysis layer.
func (ls *LinesSource) Extract(r io.Reader, epochSec float64) ([]Nt.Stage, error) {
	scanner := bufio.NewScanner(r)

	var labels []Nt.Stage
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		line = strings.Trim(line, `"',`)
		labels = append(labels, Nt.Stage(line))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning error: %w", err)
	}

	return labels, nil
}

func (ls *LinesSource) Type() string { return "lines" }
