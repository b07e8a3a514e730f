package nocturne

import (
	"log/slog"
	"os"
	"sync"
	"time"

	Ns "github.com/maroda/nocturne/server"
)

type ScanSupervisor struct {
	View     *View
	Ticker   *time.Ticker
	StopChan chan struct{}
	WG       sync.WaitGroup
}

// NewScanSupervisor is a wrapper around the View that manages scanning goroutines
// They are strongly coupled, one knows about the other
func (v *View) NewScanSupervisor() *ScanSupervisor {
	ss := &ScanSupervisor{
		View: v,
	}
	v.Supervisor = ss
	return ss
}

// ReloadConfig rebuilds the cohort list from new config.
// Old outputs are closed after the swap so a scan pass
// never writes through a released adapter.
func (v *View) ReloadConfig(c []Ns.ConfigFile) error {
	cohorts, err := Ns.NewCohortsFromConfig(c)
	if err != nil {
		slog.Error("Could not reload config", slog.Any("Error", err))
		return err
	}

	v.Supervisor.Stop()

	// Swap in the new cohort list
	// and drop any selection state with it
	v.MU.Lock()
	old := v.Cohorts
	v.Cohorts = cohorts
	v.SelCohort = 0
	v.SelRec = 0
	v.Offset = 0
	v.ShowID = false
	v.ShowMetrics = false
	v.MU.Unlock()

	if old != nil {
		old.Close()
	}

	v.Supervisor.Start()
	return nil
}

// Start the ScanSupervisor
func (s *ScanSupervisor) Start() {
	s.StopChan = make(chan struct{})
	s.Ticker = time.NewTicker(scanInterval())

	s.WG.Add(1)
	go func() {
		defer s.WG.Done()
		defer s.Ticker.Stop()

		for {
			select {
			case <-s.Ticker.C:
				s.View.ScanCohortsAll()
			case <-s.StopChan:
				return
			}
		}
	}()
}

// Stop the ScanSupervisor
func (s *ScanSupervisor) Stop() {
	if s.StopChan != nil {
		close(s.StopChan)
		s.WG.Wait()
	}
}

// Restart the ScanSupervisor
func (s *ScanSupervisor) Restart() {
	s.Stop()
	s.Start()
}

// scanInterval reads the rescan cadence from the environment,
// falling back to one pass per second
func scanInterval() time.Duration {
	raw := os.Getenv("NOCTURNE_SCAN_INTERVAL")
	if raw == "" {
		return 1 * time.Second
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		slog.Error("Could not read NOCTURNE_SCAN_INTERVAL, using default", slog.String("value", raw))
		return 1 * time.Second
	}
	return d
}
