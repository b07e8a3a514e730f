//go:build nomidi

package plugin

import (
	"fmt"
	"time"

	Nt "github.com/maroda/nocturne/types"
)

type MIDIOutput struct{}

func (m *MIDIOutput) WriteRecord(rec *Nt.SleepRecord) error {
	return fmt.Errorf("MIDI support not compiled in this build")
}

func (m *MIDIOutput) WriteBatch(recs []*Nt.SleepRecord) error {
	return fmt.Errorf("MIDI support not compiled in this build")
}

func (m *MIDIOutput) QueryRange(start, end time.Time) ([]*Nt.SleepRecord, error) {
	return nil, fmt.Errorf("MIDI support not compiled in this build")
}

func (m *MIDIOutput) Flush() error { return nil }
func (m *MIDIOutput) Close() error { return nil }
func (m *MIDIOutput) Type() string { return "midi-disabled" }
