package nocturne

import (
	"log/slog"
	"math"
	"sort"

	Nt "github.com/maroda/nocturne/types"
)

// TrimTerminalWake caps the wake tail of a night.
// When more than maxWake trailing W epochs exist, the sequence is
// cut so exactly maxWake remain. Shorter tails pass through whole,
// which makes the operation idempotent.
func TrimTerminalWake(labels []Nt.Stage, maxWake int) []Nt.Stage {
	n := len(labels)
	tail := 0
	for i := n - 1; i >= 0 && labels[i] == Nt.Wake; i-- {
		tail++
	}
	if tail <= maxWake {
		return labels
	}
	return labels[:n-tail+maxWake]
}

// Macrostructure computes the sleep parameter record for one night
// over the wake-trimmed sequence. The record always carries the
// complete key schema, anything the night cannot define stays NaN.
// Durations are minutes, efficiencies and percentages are 0-100.
func (h *Hypnogram) Macrostructure() Nt.Record {
	trimmed := TrimTerminalWake(h.Labels, h.MaxWake)
	epochMin := h.EpochSec / 60.0

	rec := seedMacroRecord()

	n := len(trimmed)
	trt := float64(n) * epochMin
	rec["TRT"] = trt

	// Onsets are measured from the start of the recording
	for _, s := range Nt.StageLabels {
		for i, l := range trimmed {
			if l == s {
				rec[string(s)+"_onset"] = float64(i) * epochMin
				break
			}
		}
	}

	// Sleep onset latency. A night that never leaves W never
	// falls asleep, so SOL covers the whole recording.
	sol := trt
	for i, l := range trimmed {
		if l != Nt.Wake {
			sol = float64(i) * epochMin
			break
		}
	}
	rec["SOL"] = sol
	spt := trt - sol
	rec["SPT"] = spt

	// Durations count epochs, an absent stage holds zero
	counts := make(map[Nt.Stage]int)
	for _, l := range trimmed {
		counts[l]++
	}
	for _, s := range Nt.StageLabels {
		rec[string(s)+"_duration"] = float64(counts[s]) * epochMin
	}
	nrem := float64(counts[Nt.N1]+counts[Nt.N2]+counts[Nt.N3]) * epochMin
	rec["NREM_duration"] = nrem
	tst := nrem + float64(counts[Nt.REM])*epochMin
	rec["TST"] = tst
	rec["WASO"] = spt - tst

	if trt > 0 {
		rec["Sleep_efficiency"] = tst / trt * 100
	}
	if spt > 0 {
		rec["Sleep_Maintenance_Efficiency"] = tst / spt * 100
		for _, s := range []Nt.Stage{Nt.N1, Nt.N2, Nt.N3, Nt.REM} {
			if counts[s] > 0 {
				rec[string(s)+"_percentage"] = FloatPrecise(float64(counts[s])*epochMin/spt*100, 2)
			}
		}
	}

	// Streak statistics ride on the run-length encoding
	symbols, lengths := EncodeRuns(trimmed)
	runsFor := make(map[Nt.Stage][]int)
	for i, s := range symbols {
		runsFor[s] = append(runsFor[s], lengths[i])
	}
	for _, s := range Nt.StageLabels {
		runs := runsFor[s]
		if len(runs) == 0 {
			continue
		}
		rec[string(s)+"_longest_streak"] = float64(maxRun(runs)) * epochMin
		rec[string(s)+"_mean_length_of_streak"] = meanRun(runs) * epochMin
		rec[string(s)+"_median_length_of_streak"] = medianRun(runs) * epochMin
	}

	// REM latency is conventionally reported from sleep onset
	if counts[Nt.REM] > 0 {
		rec["R_onset"] -= sol
	}

	// Optional complexity, a missing or failing scorer degrades to NaN
	if h.Scorer != nil {
		if codes, err := EncodeStages(trimmed); err == nil {
			lzc, err := h.Scorer.Score(codes)
			if err != nil {
				slog.Warn("Complexity scorer failed",
					slog.String("ID", h.ID),
					slog.Any("Error", err))
			} else {
				rec["LZc"] = lzc
			}
		}
	}

	return rec
}

// The macro schema is fixed so every record compares and
// tabulates against every other, absent values are NaN.
func seedMacroRecord() Nt.Record {
	rec := Nt.Record{
		"TRT":                          math.NaN(),
		"TST":                          math.NaN(),
		"SPT":                          math.NaN(),
		"WASO":                         math.NaN(),
		"SOL":                          math.NaN(),
		"Sleep_efficiency":             math.NaN(),
		"Sleep_Maintenance_Efficiency": math.NaN(),
		"NREM_duration":                math.NaN(),
		"LZc":                          math.NaN(),
	}
	for _, s := range Nt.StageLabels {
		rec[string(s)+"_onset"] = math.NaN()
		rec[string(s)+"_duration"] = math.NaN()
		rec[string(s)+"_longest_streak"] = math.NaN()
		rec[string(s)+"_mean_length_of_streak"] = math.NaN()
		rec[string(s)+"_median_length_of_streak"] = math.NaN()
	}
	for _, s := range []Nt.Stage{Nt.N1, Nt.N2, Nt.N3, Nt.REM} {
		rec[string(s)+"_percentage"] = math.NaN()
	}
	return rec
}

// Helpers //

// All three take a non-empty run list, callers guard for that.

func maxRun(runs []int) int {
	m := runs[0]
	for _, r := range runs[1:] {
		if r > m {
			m = r
		}
	}
	return m
}

func meanRun(runs []int) float64 {
	sum := 0
	for _, r := range runs {
		sum += r
	}
	return float64(sum) / float64(len(runs))
}

func medianRun(runs []int) float64 {
	s := make([]int, len(runs))
	copy(s, runs)
	sort.Ints(s)

	mid := len(s) / 2
	if len(s)%2 == 0 {
		return float64(s[mid-1]+s[mid]) / 2.0
	}
	return float64(s[mid])
}
