package nocturne

import (
	"math"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	Nt "github.com/maroda/nocturne/types"
)

// StretchDataD3 is one sleep period as an arc on the night clock
type StretchDataD3 struct {
	Ring      int     `json:"ring"`      // 0=first, 1=middle, 2=final third of the night
	Angle     float64 `json:"angle"`     // 0-360 degrees
	Width     float64 `json:"width"`     // arc sweep in degrees
	Type      string  `json:"type"`      // "nrem" or "rem"
	Intensity float64 `json:"intensity"` // 0.0-1.0
	Night     string  `json:"night"`     // Which recording
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (v *View) WebsocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	// Send stretch data periodically
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			stretchData := v.GetStretchDataD3()
			if err := conn.WriteJSON(stretchData); err != nil {
				return // Connection closed
			}
		}
	}
}

func (v *View) GetStretchDataD3() []StretchDataD3 {
	// Make sure we're not nil
	if v.Cohorts == nil {
		return []StretchDataD3{}
	}

	var stretches []StretchDataD3

	for _, cohort := range v.cohortList() {
		// Check for nil cohorts first
		if cohort == nil {
			continue
		}

		for _, rec := range cohort.GetRecords() {
			if rec.Epochs == 0 {
				continue
			}

			// Convert NREM periods to D3 format
			for _, s := range rec.NREM {
				d3stretch := StretchDataD3{
					Ring:      CalcRing(s.Start, rec.Epochs),  // Based on position
					Angle:     CalcAngle(s.Start, rec.Epochs), // Night-clock position
					Width:     CalcArcWidth(s, rec.Epochs),
					Type:      CycleKindToString(Nt.NREMPeriod),
					Intensity: CalcIntensity(rec.Labels, s, Nt.NREMPeriod),
					Night:     rec.ID,
				}
				stretches = append(stretches, d3stretch)
			}

			// Convert REM periods to D3 format
			for _, s := range rec.REM {
				d3stretch := StretchDataD3{
					Ring:      CalcRing(s.Start, rec.Epochs),
					Angle:     CalcAngle(s.Start, rec.Epochs),
					Width:     CalcArcWidth(s, rec.Epochs),
					Type:      CycleKindToString(Nt.REMPeriod),
					Intensity: CalcIntensity(rec.Labels, s, Nt.REMPeriod),
					Night:     rec.ID,
				}
				stretches = append(stretches, d3stretch)
			}
		}
	}
	return stretches
}

func CycleKindToString(kind Nt.CycleKind) string {
	switch kind {
	case Nt.NREMPeriod:
		return "nrem"
	case Nt.REMPeriod:
		return "rem"
	default:
		return "unknown"
	}
}

// CalcRing places a period in the third of the night it started in
func CalcRing(start, total int) int {
	if total <= 0 || start < 0 {
		// Period is malformed, do not display
		return -1
	}

	switch {
	case start*3 < total:
		return 0 // Inner ring - first third
	case start*3 < total*2:
		return 1 // Middle ring - second third
	default:
		return 2 // Outer ring - final third
	}
}

// CalcAngle maps a period start onto the night-clock face
func CalcAngle(start, total int) float64 {
	if total <= 0 {
		return 0
	}

	frac := float64(start) / float64(total)

	// Start at 12 o'clock (270°) and rotate clockwise
	angle := 270.0 - (frac * 360.0)

	// Normalize to 0-360 range
	return math.Mod(angle+360.0, 360.0)
}

// CalcArcWidth converts a period span into degrees of sweep
func CalcArcWidth(s Nt.Stretch, total int) float64 {
	if total <= 0 {
		return 0
	}
	span := float64(s.End - s.Start + 1)
	return (span / float64(total)) * 360.0
}

// CalcIntensity returns an intensity float for one period.
// NREM periods brighten with their share of slow wave sleep,
// REM periods with how uninterrupted they are.
func CalcIntensity(labels []Nt.Stage, s Nt.Stretch, kind Nt.CycleKind) float64 {
	span := 0
	deep := 0
	for i := s.Start; i <= s.End && i < len(labels); i++ {
		span++
		switch kind {
		case Nt.NREMPeriod:
			if labels[i] == Nt.N3 {
				deep++
			}
		case Nt.REMPeriod:
			if labels[i] == Nt.REM {
				deep++
			}
		}
	}

	if span == 0 {
		// Fallback intensity
		return 0.5
	}

	intensity := float64(deep) / float64(span)

	// Clamp to 0.2-1.0 range
	return math.Max(math.Min(intensity, 1.0), 0.2)
}
