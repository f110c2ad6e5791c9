package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"nasforge/db"
	"nasforge/logger"
	"nasforge/plan"
	"nasforge/services"
	"nasforge/truenas"
)

// Server exposes read only provisioning status. Nothing here mutates the
// target system; apply stays a CLI action.
type Server struct {
	Plan   *plan.Plan
	Client *truenas.Client
	Mode   string
}

func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", s.healthz)
	r.Get("/plan", s.getPlan)
	r.Get("/runs", s.listRuns)
	r.Get("/runs/{id}", s.getRun)
	r.Get("/drift", s.getDrift)
	return r
}

// Start blocks serving the status API.
func Start(addr string, s *Server) error {
	logger.Info("status api listening", "addr", addr)
	return http.ListenAndServe(addr, s.Router())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to marshal response", http.StatusInternalServerError)
		return
	}
	_, _ = w.Write(data)
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) getPlan(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Plan)
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := db.GetRuns(50)
	if err != nil {
		logger.Error("GetRuns failed: " + err.Error())
		http.Error(w, "failed to list runs: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []db.Run{}
	}
	writeJSON(w, runs)
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	exists, err := db.DoesRunExist(id)
	if err != nil {
		http.Error(w, "failed to look up run: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if !exists {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	rows, err := db.GetRunRows(id)
	if err != nil {
		logger.Error("GetRunRows failed: " + err.Error())
		http.Error(w, "failed to get run rows: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []db.RunRow{}
	}
	writeJSON(w, rows)
}

func (s *Server) getDrift(w http.ResponseWriter, r *http.Request) {
	applier := services.Applier{Plan: s.Plan, Client: s.Client, Mode: s.Mode}
	items, err := applier.Drift()
	if err != nil {
		logger.Error("Drift failed: " + err.Error())
		http.Error(w, "failed to check drift: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []services.DriftItem{}
	}
	writeJSON(w, items)
}
