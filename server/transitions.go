package nocturne

import (
	Nt "github.com/maroda/nocturne/types"
)

/*

	Transition dynamics run over the raw, untrimmed sequence.
	Terminal wake is real fragmentation behavior even when the
	macro parameters trim it away for duration bookkeeping.

*/

// TransitionMatrix counts every adjacent epoch pair, self-pairs
// included, then row-normalizes into probabilities. A stage that
// never appears keeps an all-zero row, not NaN, so the matrix is
// always safe to render and sum.
func TransitionMatrix(codes []int) ([Nt.StageCount][Nt.StageCount]int, [Nt.StageCount][Nt.StageCount]float64) {
	var counts [Nt.StageCount][Nt.StageCount]int
	var probs [Nt.StageCount][Nt.StageCount]float64

	for i := 0; i+1 < len(codes); i++ {
		counts[codes[i]][codes[i+1]]++
	}

	for r := 0; r < Nt.StageCount; r++ {
		total := 0
		for c := 0; c < Nt.StageCount; c++ {
			total += counts[r][c]
		}
		if total == 0 {
			continue
		}
		for c := 0; c < Nt.StageCount; c++ {
			probs[r][c] = float64(counts[r][c]) / float64(total)
		}
	}

	return counts, probs
}

// TotalTransitions counts adjacent pairs that change stage.
func TotalTransitions(codes []int) int {
	total := 0
	for i := 0; i+1 < len(codes); i++ {
		if codes[i] != codes[i+1] {
			total++
		}
	}
	return total
}

// WakeTransitionIndex is the share of stage changes that land on W.
// A sequence with no changes at all scores 0.0, not NaN.
func WakeTransitionIndex(codes []int) float64 {
	w := Nt.StageCode[Nt.Wake]
	wake := 0
	total := 0

	for i := 0; i+1 < len(codes); i++ {
		if codes[i] == codes[i+1] {
			continue
		}
		total++
		if codes[i+1] == w {
			wake++
		}
	}

	if total == 0 {
		return 0.0
	}
	return float64(wake) / float64(total)
}

// SleepCompactness averages self-transition probability over the
// sleep stages the night actually visits. Stages with no outgoing
// transitions stay out of the mean instead of dragging it toward
// zero, and a night with no sleep at all scores 0.0.
func SleepCompactness(codes []int) float64 {
	counts, probs := TransitionMatrix(codes)

	sum := 0.0
	present := 0
	for r := 1; r < Nt.StageCount; r++ { // row 0 is W
		rowTotal := 0
		for c := 0; c < Nt.StageCount; c++ {
			rowTotal += counts[r][c]
		}
		if rowTotal == 0 {
			continue
		}
		sum += probs[r][r]
		present++
	}

	if present == 0 {
		return 0.0
	}
	return sum / float64(present)
}

// Transitions computes the transition record for this night.
func (h *Hypnogram) Transitions() Nt.Record {
	codes, _ := EncodeStages(h.Labels) // validated at construction
	return AnalyzeTransitions(codes)
}

// AnalyzeTransitions flattens the full transition picture into one
// record: the change total, the wake landing index, compactness,
// per-stage persistence, per-stage awakening probability, and the
// whole five-by-five probability matrix.
func AnalyzeTransitions(codes []int) Nt.Record {
	_, probs := TransitionMatrix(codes)

	rec := Nt.Record{
		"Total_Transitions":    float64(TotalTransitions(codes)),
		"Prob_Wake_Transition": WakeTransitionIndex(codes),
		"Sleep_Compactness":    SleepCompactness(codes),
	}

	w := Nt.StageCode[Nt.Wake]
	for _, s := range Nt.StageLabels {
		r := Nt.StageCode[s]
		rec["Persistence_"+string(s)] = probs[r][r]
		rec["Prob_"+string(s)+"_to_W"] = probs[r][w]
	}

	for _, from := range Nt.StageLabels {
		for _, to := range Nt.StageLabels {
			key := "P_" + string(from) + "_to_" + string(to)
			rec[key] = probs[Nt.StageCode[from]][Nt.StageCode[to]]
		}
	}

	return rec
}
