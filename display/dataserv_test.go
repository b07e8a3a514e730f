package nocturne_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	Md "github.com/maroda/nocturne/display"
	No "github.com/maroda/nocturne/obvy"
	Nt "github.com/maroda/nocturne/types"
)

func TestView_SetupMux(t *testing.T) {
	view := &Md.View{
		Cohorts: makeTestCohorts(t),
		Stats:   No.NewStatsInternal(),
	}

	mux := view.SetupMux()

	t.Run("Websocket Endpoint answers", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/ws", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, r)
		// websocket upgrade will fail in test, but check for the 400
		assertStatus(t, w.Code, http.StatusBadRequest)
	})

	t.Run("Metrics Endpoint answers", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/metrics", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, r)
		assertStatus(t, w.Code, http.StatusOK)
	})

	t.Run("Version Endpoint answers with JSON", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/version", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, r)
		assertStatus(t, w.Code, http.StatusOK)

		// Does it return JSON?
		var resp map[string]string
		err := json.Unmarshal(w.Body.Bytes(), &resp)
		assertError(t, err, nil)

		// Check for the version field
		if _, ok := resp["version"]; !ok {
			t.Errorf("Field 'version' not found in response")
		}
	})

	t.Run("Hypnogram Endpoint serves one night", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/hypnogram/PSG-0001", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, r)
		assertStatus(t, w.Code, http.StatusOK)

		var rec Nt.SleepRecord
		err := json.Unmarshal(w.Body.Bytes(), &rec)
		assertError(t, err, nil)
		assertString(t, rec.ID, "PSG-0001")
		assertInt(t, len(rec.Labels), 115)
		assertInt(t, len(rec.NREM), 1)
	})

	t.Run("Hypnogram Endpoint rejects an unknown night", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/hypnogram/nope", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, r)
		assertStatus(t, w.Code, http.StatusNotFound)
		assertStringContains(t, w.Body.String(), "no record for id")
	})

	t.Run("Reload Endpoint rejects GET", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/reload", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, r)
		assertStatus(t, w.Code, http.StatusMethodNotAllowed)
	})
}

func TestView_VersionHandler(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/version", nil)
	w := httptest.NewRecorder()

	view := &Md.View{}
	view.VersionHandler(w, r)

	// Check status code
	assertStatus(t, w.Code, http.StatusOK)

	// Check response, "dev" is the default
	want := "dev"
	var response map[string]string
	json.Unmarshal(w.Body.Bytes(), &response)
	assertStringContains(t, response["version"], want)
}

func TestView_RecordsHandler(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/records", nil)
	w := httptest.NewRecorder()

	view := makeTestView(t)
	view.RecordsHandler(w, r)

	assertStatus(t, w.Code, http.StatusOK)

	t.Run("Serves the combined masterlist", func(t *testing.T) {
		var recs []*Nt.SleepRecord
		err := json.Unmarshal(w.Body.Bytes(), &recs)
		assertError(t, err, nil)
		assertInt(t, len(recs), 1)
		assertString(t, recs[0].ID, "PSG-0001")
	})

	t.Run("Undefined metrics travel as null", func(t *testing.T) {
		assertStringContains(t, w.Body.String(), `"N1_onset":null`)
	})
}

func TestView_SystemHandler(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/system", nil)
	w := httptest.NewRecorder()

	view := makeTestView(t)
	view.SystemHandler(w, r)

	assertStatus(t, w.Code, http.StatusOK)

	var info Md.SystemInfo
	err := json.Unmarshal(w.Body.Bytes(), &info)
	assertError(t, err, nil)

	assertString(t, info.Version, "dev")
	assertInt(t, info.Cohorts, 1)
	assertInt(t, info.Records, 1)
	assertString(t, info.Output, "")
}

func TestView_PluginControlHandlerNoOutput(t *testing.T) {
	view := makeTestView(t)

	tests := []struct {
		name     string
		method   string
		target   string
		assert   int
		contains string
	}{
		{
			name:     "Plugin Control Endpoint: Bad Method",
			method:   "GET",
			target:   "/api/plugin/type",
			assert:   http.StatusMethodNotAllowed, // 405
			contains: "invalid",
		},
		{
			name:     "Plugin Control Endpoint: No Output",
			method:   "POST",
			target:   "/api/plugin/type",
			assert:   http.StatusInternalServerError,
			contains: "no output",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, tt.target, nil)
			w := httptest.NewRecorder()
			view.PluginControlHandler(w, r)
			assertStatus(t, w.Code, tt.assert)
			assertStringContains(t, w.Body.String(), tt.contains)
		})
	}
}

// Helpers //

// View configured with cohort data and no output adapter
func makeTestView(t *testing.T) *Md.View {
	t.Helper()
	return &Md.View{Cohorts: makeTestCohorts(t)}
}
