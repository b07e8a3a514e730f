package nocturne

import (
	Nt "github.com/maroda/nocturne/types"
)

/*

	Cycle detection walks the raw label sequence start to finish.
	NREM periods must open on N2 and hold an unbroken minimum window.
	REM periods get one free pass: the first R run of the night counts
	at any length, every later run has to clear its own window.

*/

// NREMStretches finds NREM periods using the Hypnogram's own minimum.
func (h *Hypnogram) NREMStretches() ([][]Nt.Stage, []Nt.Stretch) {
	return FindNREMStretches(h.Labels, h.MinNREM)
}

// REMStretches finds REM periods using the Hypnogram's own minimum.
func (h *Hypnogram) REMStretches() ([][]Nt.Stage, []Nt.Stretch) {
	return FindREMStretches(h.Labels, h.MinREM)
}

// FindNREMStretches scans for runs that open on N2 and hold at least
// minEpochs of unbroken NREM. A qualifying run extends greedily until
// the first non-NREM epoch, then the scan resumes after it.
// Ranges are inclusive on both ends.
func FindNREMStretches(labels []Nt.Stage, minEpochs int) ([][]Nt.Stage, []Nt.Stretch) {
	var stretches [][]Nt.Stage
	var ranges []Nt.Stretch

	if minEpochs < 1 {
		minEpochs = 1
	}

	n := len(labels)
	i := 0
	for i <= n-minEpochs {
		if labels[i] == Nt.N2 && allNREM(labels[i:i+minEpochs]) {
			j := i + minEpochs
			for j < n && isNREM(labels[j]) {
				j++
			}
			stretches = append(stretches, labels[i:j])
			ranges = append(ranges, Nt.Stretch{Start: i, End: j - 1})
			i = j
		} else {
			i++
		}
	}
	return stretches, ranges
}

// FindREMStretches scans for R runs. The night's first run is taken
// at any length. After that a run only counts when a full minEpochs
// window of R starts exactly at the scan position, and a failed
// check advances the scan by a single epoch, not past the run.
func FindREMStretches(labels []Nt.Stage, minEpochs int) ([][]Nt.Stage, []Nt.Stretch) {
	var stretches [][]Nt.Stage
	var ranges []Nt.Stretch

	if minEpochs < 1 {
		minEpochs = 1
	}

	n := len(labels)
	first := true
	i := 0
	for i < n {
		if labels[i] == Nt.REM {
			if first {
				j := i
				for j < n && labels[j] == Nt.REM {
					j++
				}
				stretches = append(stretches, labels[i:j])
				ranges = append(ranges, Nt.Stretch{Start: i, End: j - 1})
				first = false
				i = j
				continue
			}

			if i+minEpochs <= n && allREM(labels[i:i+minEpochs]) {
				j := i + minEpochs
				for j < n && labels[j] == Nt.REM {
					j++
				}
				stretches = append(stretches, labels[i:j])
				ranges = append(ranges, Nt.Stretch{Start: i, End: j - 1})
				i = j
				continue
			}
		}
		i++
	}
	return stretches, ranges
}

// Helpers //

func isNREM(s Nt.Stage) bool {
	switch s {
	case Nt.N1, Nt.N2, Nt.N3:
		return true
	}
	return false
}

func allNREM(window []Nt.Stage) bool {
	for _, s := range window {
		if !isNREM(s) {
			return false
		}
	}
	return true
}

func allREM(window []Nt.Stage) bool {
	for _, s := range window {
		if s != Nt.REM {
			return false
		}
	}
	return true
}
