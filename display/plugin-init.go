//go:build !nomidi

package nocturne

import (
	"log/slog"
	"time"

	Np "github.com/maroda/nocturne/plugin"
	Ns "github.com/maroda/nocturne/server"
)

func InitMIDIOutput(view *View, outputLocation string) error {
	midiPort := Ns.FillEnvVarInt("NOCTURNE_PLUGIN_MIDI_PORT", 0)
	midiRoot := uint8(Ns.FillEnvVarInt("NOCTURNE_PLUGIN_MIDI_ROOT", 60))
	midiBeat := Ns.FillEnvVarInt("NOCTURNE_PLUGIN_MIDI_BEAT_MS", 120)

	slog.Info("Configuration found:",
		slog.Int("Port", midiPort),
		slog.Any("Root", midiRoot),
		slog.Int("BeatMS", midiBeat),
	)

	output, err := Np.NewMIDIOutput(midiPort, midiRoot, midiBeat)
	if err != nil {
		slog.Error("Failed to create adapter",
			slog.String("output", outputLocation),
			slog.Any("error", err))
		return err
	}

	// Every cohort that asked for sound gets the same adapter
	attached := 0
	for _, c := range view.cohortList() {
		c.MU.Lock()
		if c.OutputKind == "midi" && c.Output == nil {
			c.Output = output
			attached++
		}
		c.MU.Unlock()
	}

	slog.Info("MIDI Adapter Enabled",
		slog.String("output", outputLocation),
		slog.Int("cohorts", attached))
	return nil
}

func (v *View) getMIDISystemInfo(systemInfo *SystemInfo) {
	// If the output type is MIDI, fill in the details
	if midiOut, ok := v.firstOutput().(*Np.MIDIOutput); ok {
		systemInfo.MIDIPort = midiOut.Port.String()
		systemInfo.MIDIChannel = int(midiOut.Channel)
		systemInfo.MIDIRoot = int(midiOut.Root)
		systemInfo.MIDIBeatMS = int(midiOut.Beat / time.Millisecond)
	}
}
