package nocturne

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	Np "github.com/maroda/nocturne/plugin"
	Ns "github.com/maroda/nocturne/server"
	Nt "github.com/maroda/nocturne/types"
)

// SetupMux handles all data serving:
// - Prometheus metric endpoint
// - Websocket specialized for D3.js UI
// - Version for programmatic use
// - Records and hypnograms for UI feedback
// - Plugin controls for the output adapter
func (v *View) SetupMux() *mux.Router {
	r := mux.NewRouter()

	r.Handle("/metrics", v.Stats.Handler())
	r.HandleFunc("/ws", v.WebsocketHandler)
	r.HandleFunc("/api/version", v.VersionHandler)
	r.HandleFunc("/api/records", v.RecordsHandler)
	r.HandleFunc("/api/hypnogram/{id}", v.HypnogramHandler)
	r.HandleFunc("/api/system", v.SystemHandler)
	r.HandleFunc("/api/reload", v.ReloadHandler)
	r.HandleFunc("/api/plugin", v.PluginControlHandler)
	r.HandleFunc("/api/plugin/{control}", v.PluginControlHandler)

	// Static files for D3 frontend
	r.PathPrefix("/").Handler(http.FileServer(http.Dir("./web/")))

	api := r.PathPrefix("/api").Subrouter()
	api.Use(v.StatsMiddleware)

	return r
}

var Version = "dev"

func (v *View) VersionHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"version": Version})
}

// RecordsHandler serves the combined masterlist.
// Metrics that came out NaN travel as JSON null.
func (v *View) RecordsHandler(w http.ResponseWriter, r *http.Request) {
	var allRecords []*Nt.SleepRecord

	for _, c := range v.cohortList() {
		allRecords = append(allRecords, c.GetRecords()...)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(allRecords)
}

// HypnogramHandler serves one full record by recording ID,
// stage labels and period ranges included
func (v *View) HypnogramHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	for _, c := range v.cohortList() {
		if rec := c.GetRecord(id); rec != nil {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(rec)
			return
		}
	}

	http.Error(w, fmt.Sprintf("no record for id: %s", id), http.StatusNotFound)
}

// SystemInfo describes the running setup for the UI
type SystemInfo struct {
	Version     string `json:"version"`
	Cohorts     int    `json:"cohorts"`
	Records     int    `json:"records"`
	Output      string `json:"output"`
	MIDIPort    string `json:"midiPort,omitempty"`
	MIDIChannel int    `json:"midiChannel,omitempty"`
	MIDIRoot    int    `json:"midiRoot,omitempty"`
	MIDIBeatMS  int    `json:"midiBeatMS,omitempty"`
}

func (v *View) SystemHandler(w http.ResponseWriter, r *http.Request) {
	cs := v.cohortList()

	systemInfo := SystemInfo{
		Version: Version,
		Cohorts: len(cs),
	}
	for _, c := range cs {
		systemInfo.Records += c.CountRecords()
	}
	if out := v.firstOutput(); out != nil {
		systemInfo.Output = out.Type()
	}
	v.getMIDISystemInfo(&systemInfo)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(systemInfo)
}

// ReloadHandler swaps the cohort list for the config in the POST body
func (v *View) ReloadHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	var c []Ns.ConfigFile
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, fmt.Sprintf("invalid config: %v", err), http.StatusBadRequest)
		return
	}

	if err := v.ReloadConfig(c); err != nil {
		http.Error(w, fmt.Sprintf("reload failed: %v", err), http.StatusInternalServerError)
		return
	}

	fmt.Fprint(w, "RELOADED")
}

// PluginControlHandler pokes the attached output adapter.
// It parses its own path so it works with or without the router.
func (v *View) PluginControlHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "invalid method, POST required", http.StatusMethodNotAllowed)
		return
	}

	// Path shape is /api/plugin/{control}
	parts := strings.Split(strings.TrimSuffix(r.URL.Path, "/"), "/")
	if len(parts) < 4 {
		http.Error(w, "invalid control: none given", http.StatusBadRequest)
		return
	}
	control := parts[3]

	out := v.firstOutput()
	if out == nil {
		http.Error(w, "no output attached", http.StatusInternalServerError)
		return
	}

	switch control {
	case "type":
		fmt.Fprintf(w, "Output: %s", out.Type())
	case "flush":
		if err := out.Flush(); err != nil {
			http.Error(w, fmt.Sprintf("flush failed: %v", err), http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, "FLUSHED")
	case "close":
		if err := out.Close(); err != nil {
			http.Error(w, fmt.Sprintf("close failed: %v", err), http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, "CLOSED")
	default:
		http.Error(w, fmt.Sprintf("invalid control: %s", control), http.StatusBadRequest)
	}
}

// firstOutput finds the first attached output adapter across cohorts
func (v *View) firstOutput() Np.OutputAdapter {
	for _, c := range v.cohortList() {
		c.MU.RLock()
		out := c.Output
		c.MU.RUnlock()
		if out != nil {
			return out
		}
	}
	return nil
}
