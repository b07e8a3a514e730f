//go:build !nomidi

package plugin

/*
	MIDI

	Plays a night as sound. Each run of equal stages becomes one
	held note, pitch by sleep depth and length by run length, so
	a full night compresses into a short phrase.
*/

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	Nt "github.com/maroda/nocturne/types"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

type MIDIOutput struct {
	Port    drivers.Out
	Send    func(msg midi.Message) error
	Channel uint8
	Root    uint8         // pitch for W, deeper stages step down
	Beat    time.Duration // playback time for one epoch
	WG      sync.WaitGroup
}

func NewMIDIOutput(port int, root uint8, beatMS int) (*MIDIOutput, error) {
	out, err := midi.OutPort(port)
	if err != nil {
		slog.Error("Error opening MIDI port", slog.Int("port", port))
		return nil, fmt.Errorf("error opening MIDI port: %q", err)
	}

	send, err := midi.SendTo(out)
	if err != nil {
		slog.Error("Error sending to MIDI port", slog.Int("port", port))
		return nil, fmt.Errorf("error sending to MIDI port: %q", err)
	}

	initmidi := &MIDIOutput{
		Port:    out,
		Send:    send,
		Channel: 0,
		Root:    root,
		Beat:    time.Duration(beatMS) * time.Millisecond,
		WG:      sync.WaitGroup{},
	}

	return initmidi, nil
}

func (mo *MIDIOutput) SendNoteOnMIDI(midic, midin, midiv uint8) error {
	return mo.Send(midi.NoteOn(midic, midin, midiv))
}

func (mo *MIDIOutput) SendNoteOffMIDI(midic, midin uint8) error {
	return mo.Send(midi.NoteOff(midic, midin))
}

// StageNote maps sleep depth onto pitch below the root.
// W holds the root, N3 sits a full octave down, R floats close
// to waking the way it does on a hypnogram.
func (mo *MIDIOutput) StageNote(s Nt.Stage) uint8 {
	switch s {
	case Nt.Wake:
		return mo.Root
	case Nt.REM:
		return mo.Root - 4
	case Nt.N1:
		return mo.Root - 5
	case Nt.N2:
		return mo.Root - 7
	case Nt.N3:
		return mo.Root - 12
	}
	return mo.Root
}

// WriteRecord plays one night in the background,
// one held note per stage run, one beat per epoch.
func (mo *MIDIOutput) WriteRecord(rec *Nt.SleepRecord) error {
	labels := rec.Labels

	mo.WG.Add(1)
	go func() {
		defer mo.WG.Done()

		i := 0
		for i < len(labels) {
			j := i
			for j < len(labels) && labels[j] == labels[i] {
				j++
			}

			note := mo.StageNote(labels[i])
			if err := mo.SendNoteOnMIDI(mo.Channel, note, 100); err != nil {
				slog.Error("NoteOn event failed")
			}
			time.Sleep(time.Duration(j-i) * mo.Beat)
			if err := mo.SendNoteOffMIDI(mo.Channel, note); err != nil {
				slog.Error("NoteOff event failed, attempting Flush")
				mo.Flush()
			}
			i = j
		}
	}()

	return nil
}

func (mo *MIDIOutput) WriteBatch(recs []*Nt.SleepRecord) error {
	for _, r := range recs {
		if err := mo.WriteRecord(r); err != nil {
			return err
		}
	}
	return nil
}

// QueryRange has nothing to read back, sound is write-only
func (mo *MIDIOutput) QueryRange(start, end time.Time) ([]*Nt.SleepRecord, error) {
	return nil, nil
}

func (mo *MIDIOutput) Flush() error {
	return mo.Send(midi.ControlChange(0, midi.AllNotesOff, midi.Off))
}

func (mo *MIDIOutput) Close() error {
	mo.WG.Wait()

	if mo.Port != nil {
		mo.Port.Close()
		midi.CloseDriver()
	}
	return nil
}

func (mo *MIDIOutput) Type() string { return "MIDI" }
