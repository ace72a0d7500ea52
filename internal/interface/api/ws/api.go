package ws

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/app/events"
	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/app/modules"
)

type apiHandlers struct {
	displays DisplaySource
	status   func() events.StatusDTO
}

func newAPIHandlers(cfg Config) *apiHandlers {
	return &apiHandlers{displays: cfg.Displays, status: cfg.Status}
}

func (a *apiHandlers) register(mux *http.ServeMux) {
	if a == nil || mux == nil {
		return
	}
	if a.status != nil {
		mux.HandleFunc("/api/status", a.handleStatus)
	}
	if a.displays != nil {
		mux.HandleFunc("/api/displays", a.handleDisplays)
	}
}

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Access-Control-Allow-Methods", "GET,OPTIONS")
}

type displayView struct {
	Module  string            `json:"module"`
	Target  string            `json:"target"`
	Content []modules.Content `json:"content"`
}

func (a *apiHandlers) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, a.status())
}

func (a *apiHandlers) handleDisplays(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	out := []displayView{}
	for _, d := range a.displays.Displays() {
		for _, t := range d.DisplayTargets() {
			out = append(out, displayView{
				Module:  d.String(),
				Target:  t.Identity(),
				Content: d.DisplayContent(t),
			})
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ws: write json: %v", err)
	}
}
