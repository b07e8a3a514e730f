package nocturne

/*

	Internal statistics with Prometheus.
	One custom registry per View keeps tests isolated
	from the global default registry.

*/

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type StatsInternal struct {
	Registry  *prometheus.Registry
	Nights    prometheus.Counter
	Skipped   prometheus.Counter
	ScanTimer prometheus.Histogram
	WWW       *prometheus.CounterVec
}

// NewStatsInternal builds the registry and all collectors
func NewStatsInternal() *StatsInternal {
	reg := prometheus.NewRegistry()

	nights := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nocturne_nights_scored_total",
		Help: "Analyzed recordings appended to the masterlist.",
	})
	skipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nocturne_files_skipped_total",
		Help: "Stage files that failed extraction or validation.",
	})
	scanTimer := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "nocturne_scan_duration_seconds",
		Help:    "Wall time of one cohort directory pass.",
		Buckets: prometheus.DefBuckets,
	})
	www := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nocturne_http_requests_total",
		Help: "API requests by status code and method.",
	}, []string{"code", "method"})

	reg.MustRegister(nights, skipped, scanTimer, www)

	return &StatsInternal{
		Registry:  reg,
		Nights:    nights,
		Skipped:   skipped,
		ScanTimer: scanTimer,
		WWW:       www,
	}
}

// RecNights counts newly analyzed recordings from one pass
func (s *StatsInternal) RecNights(n int) {
	if n > 0 {
		s.Nights.Add(float64(n))
	}
}

// RecSkips counts newly skipped stage files from one pass
func (s *StatsInternal) RecSkips(n int) {
	if n > 0 {
		s.Skipped.Add(float64(n))
	}
}

// RecScanTimer records the wall time of one directory pass
func (s *StatsInternal) RecScanTimer(seconds float64) {
	s.ScanTimer.Observe(seconds)
}

// RecWWW counts one API request
func (s *StatsInternal) RecWWW(code, method string) {
	s.WWW.WithLabelValues(code, method).Inc()
}

// Handler serves the custom registry for /metrics
func (s *StatsInternal) Handler() http.Handler {
	return promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{})
}
