package nocturne

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	No "github.com/maroda/nocturne/obvy"
	Ns "github.com/maroda/nocturne/server"
	Nt "github.com/maroda/nocturne/types"
)

const (
	screenGutter = 4
	scrollStep   = 30 // epochs per sideways scroll
)

// View is updated by whatever the Cohorts have scored
type View struct {
	MU          sync.Mutex        // State locks to read data
	Cohorts     *Ns.Cohorts       // Scored sleep recordings
	Screen      tcell.Screen      // the screen itself
	Stats       *No.StatsInternal // Internal status for prometheus
	Supervisor  *ScanSupervisor   // Background directory scanner
	server      *http.Server      // Prometheus metrics server
	SelCohort   int               // Selected Cohort with MouseClick
	SelRec      int               // Selected Record with MouseClick
	ShowID      bool              // Display Record ID
	ShowMetrics bool              // Display summary metrics
	ShowCycles  bool              // Display cycles view overlay
	Offset      int               // Horizontal scroll in epochs
	cycleFilter *Nt.CycleKind     // For filtering the display
}

// CalcHypnogramY figures out where to draw the next hypnogram row on the graph
func (v *View) CalcHypnogramY(cohortIndex, recIndex, gutter int) int {
	// Calculate cumulative offset from all previous cohorts
	offset := 0
	if v.Cohorts != nil {
		cs := *v.Cohorts
		for i := 0; i < cohortIndex && i < len(cs); i++ {
			offset += cs[i].CountRecords()
		}
	}
	return gutter + offset + recIndex
}

// cohortList snapshots the cohort slice under the state lock
func (v *View) cohortList() Ns.Cohorts {
	v.MU.Lock()
	defer v.MU.Unlock()
	if v.Cohorts == nil {
		return nil
	}
	return *v.Cohorts
}

////////// CYCLES VIS

func (v *View) GetStretchRune(kind Nt.CycleKind, isDeep bool) (rune, tcell.Style) {
	var baseColor tcell.Color
	var symbol rune

	// Period kind determines baseColor
	switch kind {
	case Nt.NREMPeriod:
		baseColor = tcell.ColorDodgerBlue
		symbol = '▄'
	case Nt.REMPeriod:
		baseColor = tcell.ColorMaroon
		symbol = '▀'
	}

	// Shade based on depth
	var style tcell.Style
	if isDeep {
		// Saturated color for periods that reach slow wave sleep
		style = tcell.StyleDefault.Foreground(baseColor)
	} else {
		// Desaturated color for lighter periods
		style = tcell.StyleDefault.Foreground(baseColor).Dim(true)
	}

	return symbol, style
}

// isDeepStretch is true when the span touches N3
func isDeepStretch(labels []Nt.Stage, s Nt.Stretch) bool {
	for i := s.Start; i <= s.End && i < len(labels); i++ {
		if labels[i] == Nt.N3 {
			return true
		}
	}
	return false
}

// renderStretchViz draws one kind of period band over the row
func (v *View) renderStretchViz(x, y int, rec *Nt.SleepRecord, stretches []Nt.Stretch, kind Nt.CycleKind, offset, timelineW int) {
	for _, s := range stretches {
		symbol, style := v.GetStretchRune(kind, isDeepStretch(rec.Labels, s))

		start := s.Start - offset
		end := s.End - offset

		for p := start; p <= end; p++ {
			if p < 0 || p >= timelineW {
				continue
			}
			v.Screen.SetContent(x+p, y, symbol, nil, style)
		}

		// Mark bands that continue past the visible window
		if start < 0 {
			leftStyle := tcell.StyleDefault.Foreground(tcell.ColorDodgerBlue)
			v.Screen.SetContent(x, y, '►', nil, leftStyle)
		}
		if end >= timelineW {
			rightStyle := tcell.StyleDefault.Foreground(tcell.ColorDarkTurquoise)
			v.Screen.SetContent(x+timelineW-1, y, '◄', nil, rightStyle)
		}
	}
}

func (v *View) drawCyclesView() {
	width, height := v.GetScreenSize()
	timelineW := width - 2 // room for border drawing

	// Clear screen completely first
	v.Screen.Clear()

	// Redraw borders
	v.DrawViewBorder(width, height)

	// Show current filter mode
	v.MU.Lock()
	filter := v.cycleFilter
	offset := v.Offset
	v.MU.Unlock()

	filterText := "All Periods"
	if filter != nil {
		switch *filter {
		case Nt.NREMPeriod:
			filterText = "NREM Only"
		case Nt.REMPeriod:
			filterText = "REM Only"
		}
	}

	v.DrawText(1, 1, width-10, 2, fmt.Sprintf("CYCLES VIEW - %s (period detection)", filterText))
	v.DrawText(1, 2, width-10, 3, "n=NREM | r=REM | x=All | ► band continues past view ◄ ")

	// Draw period bands for each cohort/record
	cs := v.cohortList()
	for ni := range cs {
		for di, rec := range cs[ni].GetRecords() {
			yTS := v.CalcHypnogramY(ni, di, screenGutter)

			if filter == nil || *filter == Nt.NREMPeriod {
				v.renderStretchViz(1, yTS, rec, rec.NREM, Nt.NREMPeriod, offset, timelineW)
			}
			if filter == nil || *filter == Nt.REMPeriod {
				v.renderStretchViz(1, yTS, rec, rec.REM, Nt.REMPeriod, offset, timelineW)
			}

			// The selected record also gets its stage mix
			v.MU.Lock()
			selected := v.ShowMetrics && ni == v.SelCohort && di == v.SelRec
			v.MU.Unlock()
			if selected {
				v.drawStageMix(2, height-8, rec)
			}
		}
	}
}

////////// CYCLES VIS ^^^^^

// DrawRune places a single '' on the screen
// used to draw the sleep onset indicator
func (v *View) DrawRune(x, y, m int) {
	color := tcell.NewRGBColor(int32(150+x), int32(150+y), int32(255-m))
	style := tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(color)
	v.Screen.SetContent(x, y, '', nil, style)
}

// sleepOnsetEpoch finds the first scored epoch that is not wake
func sleepOnsetEpoch(labels []Nt.Stage) int {
	for i, s := range labels {
		if s != Nt.Wake {
			return i
		}
	}
	return -1
}

// DrawHypnogram displays one night of stages as a run of glyphs
func (v *View) DrawHypnogram(x, y int, labels []Nt.Stage, offset, maxW int) {
	for i := 0; i < maxW; i++ {
		li := offset + i
		if li >= len(labels) {
			break
		}

		r := Ns.StageRune(labels[li])

		// Choose color based on the rune (depth)
		var style tcell.Style
		switch r {
		case '█':
			style = tcell.StyleDefault.Foreground(tcell.ColorMaroon)
		case '▆':
			style = tcell.StyleDefault.Foreground(tcell.ColorAquaMarine)
		case '▄':
			style = tcell.StyleDefault.Foreground(tcell.ColorSeaGreen)
		case '▂':
			style = tcell.StyleDefault.Foreground(tcell.ColorMediumSeaGreen)
		case '▁':
			style = tcell.StyleDefault.Foreground(tcell.ColorDarkTurquoise)
		default:
			style = tcell.StyleDefault
		}

		v.Screen.SetContent(x+i, y, r, nil, style)
	}
}

// DrawText displays the text string at the given (x1, y1) with box size (x2, y2)
func (v *View) DrawText(x1, y1, x2, y2 int, text string) {
	row := y1
	col := x1
	style := tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorLightSteelBlue)
	for _, r := range text {
		v.Screen.SetContent(col, row, r, nil, style)
		col++
		if col >= x2 {
			row++
			col = x1
		}
		if row > y2 {
			break
		}
	}
}

// DrawViewBorder displays the outline of the View
func (v *View) DrawViewBorder(width, height int) {
	hvStyle := tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorPink)
	v.Screen.SetContent(0, 0, tcell.RuneULCorner, nil, hvStyle)
	for i := 1; i < width; i++ {
		v.Screen.SetContent(i, 0, tcell.RuneHLine, nil, hvStyle)
	}
	v.Screen.SetContent(width, 0, tcell.RuneURCorner, nil, hvStyle)

	for i := 1; i < height; i++ {
		v.Screen.SetContent(0, i, tcell.RuneVLine, nil, hvStyle)
	}

	v.Screen.SetContent(0, height, tcell.RuneLLCorner, nil, hvStyle)

	for i := 1; i < height; i++ {
		v.Screen.SetContent(width, i, tcell.RuneVLine, nil, hvStyle)
	}

	v.Screen.SetContent(width, height, tcell.RuneLRCorner, nil, hvStyle)

	for i := 1; i < width; i++ {
		v.Screen.SetContent(i, height, tcell.RuneHLine, nil, hvStyle)
	}
}

// DrawNocturneView draws the NocturneView itself with tcell
// Includes a toggle for View mode (Hypnogram or Cycles)
func (v *View) DrawNocturneView() {
	// This is the border of the box
	width, height := v.GetScreenSize()

	// Obtain a lock and grab needed display data
	v.MU.Lock()
	showID := v.ShowID
	showMetrics := v.ShowMetrics
	showCycles := v.ShowCycles
	selCohort := v.SelCohort
	selRec := v.SelRec
	offset := v.Offset
	v.MU.Unlock()

	cs := v.cohortList()

	// Draw basic elements
	v.DrawViewBorder(width-2, height-1)

	// Support toggle to cycles view by wrapping in a boolean
	if showCycles {
		v.drawCyclesView()

		// A MouseClick has happened on a graph
		// - show the Record ID at the bottom
		if showID {
			v.showRecordWithState(40, 1, cs, showID, selCohort, selRec)
		}

		v.DrawText(1, height-1, width, height+10, "/c/ to exit | /ESC/ to quit")
	} else {
		// step through all cohorts
		for ni := range cs {
			// step through this cohort's masterlist
			for di, rec := range cs[ni].GetRecords() {
				// Calculate unique y position for each cohort/record combination
				yTS := v.CalcHypnogramY(ni, di, screenGutter)

				// draw hypnogram - each record gets its own line
				v.DrawHypnogram(1, yTS, rec.Labels, offset, width-2)

				// See where sleep begins
				if s := sleepOnsetEpoch(rec.Labels); s >= 0 {
					x := 1 + s - offset
					if x >= 1 && x <= width-2 {
						// draw a rune across the top
						v.DrawRune(x, 1, s%100)
					}
				}
			}
		}

		// A MouseClick has happened on a graph, show summary metrics
		// retrieve the data via lock
		if showMetrics {
			v.showMetricsWithState(2, screenGutter, 2, 4, cs, showMetrics, selCohort, selRec)
		}

		// A MouseClick has happened on a graph, show the Record ID at the bottom
		if showID {
			v.showRecordWithState(40, 1, cs, showID, selCohort, selRec)
		}

		v.DrawText(1, height-1, width, height+10, "/c/ for cycles | /ESC/ to quit")
	}

	v.DrawText(width-10, height-1, width, height+10, "NOCTURNE")
}

// drawStageMix renders one bar per stage, sized by its share of the night
func (v *View) drawStageMix(x, y int, rec *Nt.SleepRecord) {
	counts := make(map[Nt.Stage]int)
	for _, s := range rec.Labels {
		counts[s]++
	}

	for i, stage := range Nt.StageLabels {
		share := 0.0
		if len(rec.Labels) > 0 {
			share = float64(counts[stage]) / float64(len(rec.Labels))
		}
		barW := int(share * 40)

		r := Ns.StageRune(stage)
		style := tcell.StyleDefault.Background(tcell.ColorDarkSlateGray)
		v.Screen.SetContent(x, y+i, r, nil, tcell.StyleDefault)
		WriteBar(v.Screen, x+2, y+i, x+2+barW, y+i+1, style)
	}
}

// showMetricsWithState does not retrieve a state lock
// and takes parameters for these values instead
func (v *View) showMetricsWithState(by, g, dx, lx int, cs Ns.Cohorts, showMetrics bool, selCohort, selRec int) {
	width, height := v.GetScreenSize()

	if showMetrics {
		for ni := range cs {
			if ni == selCohort {
				recs := cs[ni].GetRecords()
				if selRec >= len(recs) {
					return
				}
				rec := recs[selRec]

				yTS := v.CalcHypnogramY(ni, selRec, g)
				data := fmt.Sprintf("%d", rec.Epochs) // The raw epoch count
				m := rec.Metrics
				label := fmt.Sprintf("... TST %.1fm | WASO %.1fm | SE %.2f%% | %d NREM + %d REM periods ...",
					m["TST"], m["WASO"], m["Sleep_efficiency"], len(rec.NREM), len(rec.REM))

				// Turn off drawing raw epoch counts by using dx=0
				if dx != 0 {
					v.DrawText(dx, yTS, width, yTS, data)
				}
				v.DrawText(lx, height-by, width, height-by, label)
			}
		}
	}
}

// showRecordWithState does not retrieve a state lock
// and takes parameters for these values instead
func (v *View) showRecordWithState(x, by int, cs Ns.Cohorts, showID bool, selCohort, selRec int) {
	width, height := v.GetScreenSize()
	if showID {
		if selCohort >= len(cs) {
			return
		}
		recs := cs[selCohort].GetRecords()
		if selRec >= len(recs) {
			return
		}
		night := recs[selRec].ID
		v.DrawText(x, height-by, width, height, fmt.Sprintf("|  Night: %s  |", night))
	}
}

// Exit cleanly
func (v *View) exit() {
	v.MU.Lock()
	defer v.MU.Unlock()
	v.Screen.Fini()
	os.Exit(0)
}

// Running Loop to handle events
func (v *View) handleKeyBoardEvent() {
	for {
		ev := v.Screen.PollEvent()
		switch ev := ev.(type) {
		case *tcell.EventResize:
			v.ResizeScreen()
		case *tcell.EventKey:
			// Catch quit and exit
			if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
				v.exit()
			}

			// Toggle cycles view with 'c'
			if ev.Rune() == 'c' {
				v.MU.Lock()
				v.ShowCycles = !v.ShowCycles
				v.MU.Unlock()
			}

			// Scroll nights longer than the screen
			switch ev.Rune() {
			case 'l':
				v.MU.Lock()
				v.Offset += scrollStep
				v.MU.Unlock()
			case 'h':
				v.MU.Lock()
				v.Offset -= scrollStep
				if v.Offset < 0 {
					v.Offset = 0
				}
				v.MU.Unlock()
			case '0':
				v.MU.Lock()
				v.Offset = 0
				v.MU.Unlock()
			}

			// Period filtering (only when in cycles view)
			if v.ShowCycles {
				switch ev.Rune() {
				case 'n':
					v.MU.Lock()
					nrem := Nt.NREMPeriod
					v.cycleFilter = &nrem
					v.MU.Unlock()
				case 'r':
					v.MU.Lock()
					rem := Nt.REMPeriod
					v.cycleFilter = &rem
					v.MU.Unlock()
				case 'x':
					v.MU.Lock()
					v.cycleFilter = nil // Show all periods
					v.MU.Unlock()
				}
			}

		case *tcell.EventMouse:
			// Button1 is Left Mouse Button
			if ev.Buttons() == tcell.Button1 {
				v.HandleMouseClick(ev.Position())
			}
		}
	}
}

func (v *View) HandleMouseClick(x, y int) {
	cs := v.cohortList()

	// Lock display for updates
	v.MU.Lock()
	defer v.MU.Unlock()

	// Assume there is no label so the last one is cleared.
	v.ShowID = false
	v.ShowMetrics = false

	// Check for a click on any hypnogram row
	for ni := range cs {
		for di := 0; di < cs[ni].CountRecords(); di++ {
			// yTS is the same as DrawNocturneView
			yTS := v.CalcHypnogramY(ni, di, screenGutter)

			// Check if click is on this hypnogram line
			// Exit if a match is found
			width, _ := v.GetScreenSize()
			if y == yTS && x >= 1 && x <= width-20 {
				v.SelCohort = ni
				v.SelRec = di
				v.ShowID = true
				v.ShowMetrics = true
				return
			}
		}
	}
}

// ScanCohortsAll is for running a batch pass over every cohort.
// The error return is currently set to /nil/
// so that scan misses are only logged, not fatal (and blocking)
func (v *View) ScanCohortsAll() error {
	start := time.Now()

	cs := v.cohortList()

	nightsBefore := 0
	seenBefore := 0
	for _, c := range cs {
		nightsBefore += c.CountRecords()
		seenBefore += c.CountSeen()
	}

	for _, c := range cs {
		if err := c.RunBatch(context.Background()); err != nil {
			// Only log the error, keep going otherwise
			slog.Error("Failed to RunBatch", slog.String("ID", c.ID), slog.Any("Error", err))
		}
	}

	nights := 0
	seen := 0
	for _, c := range cs {
		nights += c.CountRecords()
		seen += c.CountSeen()
	}
	v.Stats.RecNights(nights - nightsBefore)
	v.Stats.RecSkips((seen - seenBefore) - (nights - nightsBefore))

	duration := time.Since(start).Seconds()
	v.Stats.RecScanTimer(duration)

	return nil
}

// GetScreenSize provides the terminal size for drawing
func (v *View) GetScreenSize() (int, int) {
	width, height := v.Screen.Size()
	return width, height
}

// ResizeScreen resizes NocturneView after terminal changes
func (v *View) ResizeScreen() {
	v.Screen.Sync()
	v.UpdateScreen()
}

func (v *View) UpdateScreen() {
	v.Screen.Clear()
	v.DrawNocturneView()
	v.Screen.Show()
}

// run runs a loop and updates periodically
// each iteration redraws from whatever the ScanSupervisor
// has appended to the cohort masterlists
// TODO: parameterize run loop time
func (v *View) run() {
	// Panic recovery and logging
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic in run loop", slog.Any("panic", r))
			slog.Error("Recovered from panic", slog.String("stack", string(debug.Stack())))
			debug.PrintStack()
		}
	}()

	// Main application loop
	slog.Info("Starting NocturneView")
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			v.UpdateScreen()
		}
	}
}

// RespWriter is a wrapper with StatsMiddleware, used for Prometheus
type RespWriter struct {
	http.ResponseWriter
	Status int
}

// WriteHeader is a helper for StatsMiddleware, used for Prometheus
func (w *RespWriter) WriteHeader(status int) {
	w.Status = status
	w.ResponseWriter.WriteHeader(status)
}

// Write is a helper for StatsMiddleware, used for Prometheus
func (w *RespWriter) Write(b []byte) (int, error) {
	return w.ResponseWriter.Write(b)
}

func (v *View) StatsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := &RespWriter{
			ResponseWriter: w,
			Status:         200,
		}
		next.ServeHTTP(wrapped, r)

		v.Stats.RecWWW(strconv.Itoa(wrapped.Status), r.Method)
	})
}

// wantsMIDI reports whether any cohort asked for sound output
func wantsMIDI(cs *Ns.Cohorts) bool {
	for _, c := range *cs {
		if c.OutputKind == "midi" {
			return true
		}
	}
	return false
}

// NewView creates the tcell screen that displays NocturneView
func NewView(c *Ns.Cohorts) (*View, error) {
	if c == nil || len(*c) == 0 {
		slog.Error("Could not get a cohort list for display")
		return nil, errors.New("cohort list not found")
	}

	screen, err := GetTTY()
	if err != nil {
		slog.Error("Could not initialize screen", slog.Any("Error", err))
		return nil, err
	}

	// create an attached prometheus registry
	stats := No.NewStatsInternal()

	view := &View{
		Cohorts: c,
		Screen:  screen,
		Stats:   stats,
	}

	view.UpdateScreen()

	return view, err
}

// StartNocturneViewWithConfig is called by main to run the program.
// This also starts up the /metrics endpoint that is populated by prometheus.
func StartNocturneViewWithConfig(c []Ns.ConfigFile) error {
	// with the new config c, we can make other stuff
	cohorts, err := Ns.NewCohortsFromConfig(c)
	if cohorts == nil || err != nil {
		slog.Error("Failed to init cohorts", slog.Any("Error", err))
		return err
	}

	view, err := NewView(cohorts)
	if err != nil {
		slog.Error("Could not start NocturneView", slog.Any("Error", err))
		return err
	}

	// Attach sound output when a cohort asks for it
	if wantsMIDI(cohorts) {
		if err := InitMIDIOutput(view, "midi"); err != nil {
			slog.Warn("Running without MIDI", slog.Any("Error", err))
		}
	}

	// Server for stats endpoint
	view.server = &http.Server{
		Addr:    ":8090",
		Handler: otelhttp.NewHandler(view.SetupMux(), "nocturne-api"),
	}

	// Scanner fills the masterlists in the background
	view.NewScanSupervisor()
	view.Supervisor.Start()

	// Run Nocturne
	go view.run()

	// Run stats endpoint
	go func() {
		addr := ":8090"
		slog.Info("Starting Nocturne stats endpoint...", slog.String("Port", addr))
		if err := view.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Could not start stats endpoint", slog.Any("Error", err))
		}
	}()

	view.handleKeyBoardEvent()

	return err
}

func StartWebNoTUI(c []Ns.ConfigFile) error {
	// Init Cohorts
	cohorts, err := Ns.NewCohortsFromConfig(c)
	if cohorts == nil || err != nil {
		slog.Error("Failed to init cohorts", slog.Any("Error", err))
		return err
	}

	// Create View without tcell screen
	stats := No.NewStatsInternal()
	view := &View{
		Cohorts: cohorts,
		Stats:   stats,
	}

	// Attach sound output when a cohort asks for it
	if wantsMIDI(cohorts) {
		if err := InitMIDIOutput(view, "midi"); err != nil {
			slog.Warn("Running without MIDI", slog.Any("Error", err))
		}
	}

	// Server for stats endpoint
	view.server = &http.Server{
		Addr:    ":8090",
		Handler: otelhttp.NewHandler(view.SetupMux(), "nocturne-api"),
	}

	// Scanner fills the masterlists in the background
	view.NewScanSupervisor()
	view.Supervisor.Start()

	// Run stats endpoint (blocks)
	addr := ":8090"
	slog.Info("Starting Nocturne web server...", slog.String("Port", addr))
	if err := view.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Could not start stats endpoint", slog.Any("Error", err))
		return err
	}

	return nil
}
