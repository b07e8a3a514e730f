package nocturne

import (
	"bufio"
	"fmt"
	"os"

	Np "github.com/maroda/nocturne/plugin"
	Nt "github.com/maroda/nocturne/types"
)

// ReadStageFile pulls one stage file off disk through a source
// plugin. The source owns the format, this only owns the file.
func ReadStageFile(path string, source Np.StageSource, epochSec float64) ([]Nt.Stage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return source.Extract(f, epochSec)
}

// WriteStageFile exports a label sequence one label per line,
// the same shape the lines source reads back.
func WriteStageFile(path string, labels []Nt.Stage) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, l := range labels {
		if _, err := fmt.Fprintln(w, string(l)); err != nil {
			return err
		}
	}
	return w.Flush()
}
