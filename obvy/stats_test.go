package nocturne_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	No "github.com/maroda/nocturne/obvy"
)

func TestNewStatsInternal(t *testing.T) {
	stats := No.NewStatsInternal()

	if stats.Registry == nil {
		t.Error("Expected a custom registry, got nil")
	}
	if stats.Nights == nil {
		t.Error("Expected a nights counter, got nil")
	}
	if stats.Skipped == nil {
		t.Error("Expected a skips counter, got nil")
	}
	if stats.ScanTimer == nil {
		t.Error("Expected a scan histogram, got nil")
	}
	if stats.WWW == nil {
		t.Error("Expected a request counter, got nil")
	}
}

func TestStatsInternal_RecNights(t *testing.T) {
	stats := No.NewStatsInternal()

	stats.RecNights(2)
	stats.RecNights(1)

	got := testutil.ToFloat64(stats.Nights)
	if got != 3.0 {
		t.Errorf("Expected 3 nights scored, got %f", got)
	}

	t.Run("Empty passes are not recorded", func(t *testing.T) {
		stats.RecNights(0)
		stats.RecNights(-4)

		got := testutil.ToFloat64(stats.Nights)
		if got != 3.0 {
			t.Errorf("Expected counter to hold at 3, got %f", got)
		}
	})
}

func TestStatsInternal_RecSkips(t *testing.T) {
	stats := No.NewStatsInternal()

	stats.RecSkips(1)

	got := testutil.ToFloat64(stats.Skipped)
	if got != 1.0 {
		t.Errorf("Expected 1 skipped file, got %f", got)
	}

	t.Run("Empty passes are not recorded", func(t *testing.T) {
		stats.RecSkips(0)

		got := testutil.ToFloat64(stats.Skipped)
		if got != 1.0 {
			t.Errorf("Expected counter to hold at 1, got %f", got)
		}
	})
}

func TestStatsInternal_RecWWW(t *testing.T) {
	stats := No.NewStatsInternal()

	stats.RecWWW("200", "GET")
	stats.RecWWW("200", "GET")
	stats.RecWWW("404", "GET")

	got := testutil.ToFloat64(stats.WWW.WithLabelValues("200", "GET"))
	if got != 2.0 {
		t.Errorf("Expected 2 OK requests, got %f", got)
	}

	got = testutil.ToFloat64(stats.WWW.WithLabelValues("404", "GET"))
	if got != 1.0 {
		t.Errorf("Expected 1 missed request, got %f", got)
	}
}

func TestStatsInternal_Handler(t *testing.T) {
	stats := No.NewStatsInternal()
	stats.RecNights(1)
	stats.RecScanTimer(0.25)

	request := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	response := httptest.NewRecorder()
	stats.Handler().ServeHTTP(response, request)

	if response.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, response.Code)
	}

	body := response.Body.String()
	wants := []string{
		"nocturne_nights_scored_total 1",
		"nocturne_scan_duration_seconds_count 1",
		"nocturne_scan_duration_seconds_sum 0.25",
	}
	for _, want := range wants {
		if !strings.Contains(body, want) {
			t.Errorf("Expected exposition to contain %q", want)
		}
	}
}
