package nocturne

import (
	"log/slog"

	"github.com/gdamore/tcell/v2"
)

/*

An 8 hour night at 30 second epochs is 960 glyphs wide,
most terminals hold around 200. So the hypnogram rows scroll
with h/l and the onset markers follow the same offset.

Stage glyphs run top-down like a paper hypnogram:
wake is the full block, deeper sleep sits lower.

*/

// GetTTY builds the screen every View draws on
func GetTTY() (tcell.Screen, error) {
	defStyle := tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorPink)

	// New screen
	s, err := tcell.NewScreen()
	if err != nil {
		slog.Error("Could not get new screen", slog.Any("Error", err))
		return nil, err
	}

	// Initialize screen
	if err := s.Init(); err != nil {
		slog.Error("Could not initialize screen", slog.Any("Error", err))
		return nil, err
	}
	s.SetStyle(defStyle)
	s.EnableMouse()
	s.EnablePaste()
	s.Clear()

	return s, err
}

// WriteBar shows a long bar for the amount entered
// x1 = starting X axis (from left), x2 = ending X axis (from left)
// y1 = starting Y axis (from top), y2 = ending Y axis (from top)
func WriteBar(s tcell.Screen, x1, y1, x2, y2 int, style tcell.Style) {
	for row := y1; row < y2; row++ {
		for col := x1; col < x2; col++ {
			s.SetContent(col, row, ' ', nil, style)
		}
	}
}
