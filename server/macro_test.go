package nocturne_test

import (
	"reflect"
	"testing"

	Np "github.com/maroda/nocturne/plugin"
	Ns "github.com/maroda/nocturne/server"
	Nt "github.com/maroda/nocturne/types"
)

func TestTrimTerminalWake(t *testing.T) {
	t.Run("A short wake tail passes through whole", func(t *testing.T) {
		labels := makeNightLabels()
		got := Ns.TrimTerminalWake(labels, 10)
		if !reflect.DeepEqual(got, labels) {
			t.Errorf("got %d epochs, want %d unchanged", len(got), len(labels))
		}
	})

	t.Run("A long wake tail is cut to the cap", func(t *testing.T) {
		var labels []Nt.Stage
		labels = append(labels, stageRun(Nt.N2, 20)...)
		labels = append(labels, stageRun(Nt.Wake, 20)...)

		got := Ns.TrimTerminalWake(labels, 10)
		assertInt(t, len(got), 30)

		tail := 0
		for i := len(got) - 1; i >= 0 && got[i] == Nt.Wake; i-- {
			tail++
		}
		assertInt(t, tail, 10)
	})

	t.Run("Trimming is idempotent", func(t *testing.T) {
		var labels []Nt.Stage
		labels = append(labels, stageRun(Nt.N2, 20)...)
		labels = append(labels, stageRun(Nt.Wake, 20)...)

		once := Ns.TrimTerminalWake(labels, 10)
		twice := Ns.TrimTerminalWake(once, 10)
		if !reflect.DeepEqual(once, twice) {
			t.Errorf("got %d epochs after second trim, want %d", len(twice), len(once))
		}
	})

	t.Run("An all-wake night keeps only the cap", func(t *testing.T) {
		got := Ns.TrimTerminalWake(stageRun(Nt.Wake, 20), 10)
		assertInt(t, len(got), 10)
	})
}

func TestHypnogram_Macrostructure(t *testing.T) {
	h, err := Ns.NewHypnogram("PSG-020", makeNightLabels())
	if err != nil {
		t.Errorf("NewHypnogram returned unexpected error: %s", err)
	}

	rec := h.Macrostructure()

	t.Run("Duration bookkeeping in minutes", func(t *testing.T) {
		assertFloat(t, rec["TRT"], 57.5)
		assertFloat(t, rec["SOL"], 5.0)
		assertFloat(t, rec["SPT"], 52.5)
		assertFloat(t, rec["TST"], 50.0)
		assertFloat(t, rec["WASO"], 2.5)
		assertFloat(t, rec["NREM_duration"], 40.0)
		assertFloat(t, rec["N2_duration"], 25.0)
		assertFloat(t, rec["R_duration"], 10.0)
	})

	t.Run("Efficiencies against TRT and SPT", func(t *testing.T) {
		assertFloat(t, rec["Sleep_efficiency"], 50.0/57.5*100)
		assertFloat(t, rec["Sleep_Maintenance_Efficiency"], 50.0/52.5*100)
	})

	t.Run("Stage percentages are shares of SPT", func(t *testing.T) {
		assertFloat(t, rec["N2_percentage"], 47.62)
		assertFloat(t, rec["N3_percentage"], 28.57)
		assertFloat(t, rec["R_percentage"], 19.05)
		assertNaN(t, rec["N1_percentage"])
	})

	t.Run("Onsets from recording start, REM latency from sleep onset", func(t *testing.T) {
		assertFloat(t, rec["W_onset"], 0.0)
		assertFloat(t, rec["N2_onset"], 5.0)
		assertFloat(t, rec["N3_onset"], 30.0)
		assertFloat(t, rec["R_onset"], 40.0)
		assertNaN(t, rec["N1_onset"])
	})

	t.Run("An absent stage holds zero duration but undefined streaks", func(t *testing.T) {
		assertFloat(t, rec["N1_duration"], 0.0)
		assertNaN(t, rec["N1_longest_streak"])
		assertNaN(t, rec["N1_mean_length_of_streak"])
		assertNaN(t, rec["N1_median_length_of_streak"])
	})

	t.Run("Streak statistics over wake runs", func(t *testing.T) {
		assertFloat(t, rec["W_longest_streak"], 5.0)
		assertFloat(t, rec["W_mean_length_of_streak"], 3.75)
		assertFloat(t, rec["W_median_length_of_streak"], 3.75)
	})

	t.Run("Complexity stays undefined without a scorer", func(t *testing.T) {
		assertNaN(t, rec["LZc"])
	})

	t.Run("The record carries the complete key schema", func(t *testing.T) {
		assertInt(t, len(rec), 38)
	})
}

func TestHypnogram_MacrostructureAllWake(t *testing.T) {
	h, err := Ns.NewHypnogram("PSG-021", stageRun(Nt.Wake, 20))
	if err != nil {
		t.Errorf("NewHypnogram returned unexpected error: %s", err)
	}

	rec := h.Macrostructure()

	t.Run("A night that never falls asleep", func(t *testing.T) {
		assertFloat(t, rec["TRT"], 5.0)
		assertFloat(t, rec["SOL"], 5.0)
		assertFloat(t, rec["SPT"], 0.0)
		assertFloat(t, rec["TST"], 0.0)
		assertFloat(t, rec["Sleep_efficiency"], 0.0)
	})

	t.Run("SPT-relative values are undefined", func(t *testing.T) {
		assertNaN(t, rec["Sleep_Maintenance_Efficiency"])
		assertNaN(t, rec["N2_percentage"])
		assertNaN(t, rec["R_percentage"])
	})
}

func TestHypnogram_MacrostructureWithScorer(t *testing.T) {
	h, err := Ns.NewHypnogram("PSG-022", makeNightLabels())
	if err != nil {
		t.Errorf("NewHypnogram returned unexpected error: %s", err)
	}
	h.Scorer = Np.NewLZ76Scorer()

	rec := h.Macrostructure()

	t.Run("LZc lands in the record", func(t *testing.T) {
		if rec["LZc"] <= 0 {
			t.Errorf("Expected a positive complexity but got %f", rec["LZc"])
		}
	})
}
