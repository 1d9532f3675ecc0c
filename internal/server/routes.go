package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stargraph/stargraph/internal/physics"
)

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	nodes, links := s.sim.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"nodes": nodes,
		"links": links,
	})
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sim.Frame())
}

func (s *Server) handleAddNode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID   string `json:"id"`
		Path string `json:"path"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "id required")
		return
	}
	if req.Name == "" {
		req.Name = req.ID
	}

	s.sim.AddNode(req.ID, req.Path, req.Name)
	writeJSON(w, http.StatusCreated, map[string]string{"status": "ok"})
}

func (s *Server) handleRemoveNode(w http.ResponseWriter, r *http.Request) {
	nodeID := chi.URLParam(r, "nodeID")

	disposed := s.sim.RemoveNode(nodeID)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"disposed": len(disposed),
	})
}

func (s *Server) handleAddLink(w http.ResponseWriter, r *http.Request) {
	var req struct {
		From string `json:"from"`
		To   string `json:"to"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.From == "" || req.To == "" {
		writeError(w, http.StatusBadRequest, "from and to required")
		return
	}

	// Unknown endpoints are absorbed by the simulation (logged, ignored) —
	// late-arriving events racing a delete are routine, not client errors.
	s.sim.AddLink(req.From, req.To)
	writeJSON(w, http.StatusCreated, map[string]string{"status": "ok"})
}

func (s *Server) handleRemoveLink(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" || to == "" {
		writeError(w, http.StatusBadRequest, "from and to required")
		return
	}

	_, removed := s.sim.RemoveLink(from, to)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"removed": removed,
	})
}

func (s *Server) handleGetForces(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sim.Forces())
}

func (s *Server) handleSetForces(w http.ResponseWriter, r *http.Request) {
	// Decode over the current record so omitted fields keep their values.
	cfg := s.sim.Forces()
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if cfg == (physics.Config{}) {
		writeError(w, http.StatusBadRequest, "empty force config")
		return
	}

	s.sim.SetForces(cfg)
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleSetParticles(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Max       *int `json:"max"`
		SpawnMS   *int `json:"spawn_ms"`
		ShuffleMS *int `json:"shuffle_ms"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	disposed := 0
	if req.Max != nil {
		if *req.Max < 0 {
			writeError(w, http.StatusBadRequest, "max must be >= 0")
			return
		}
		disposed = len(s.sim.SetMaxParticles(*req.Max))
	}
	if req.SpawnMS != nil {
		s.sim.SetParticleSpawnRate(time.Duration(*req.SpawnMS) * time.Millisecond)
	}
	if req.ShuffleMS != nil {
		s.sim.SetParticleShuffleDelay(time.Duration(*req.ShuffleMS) * time.Millisecond)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"disposed": disposed,
	})
}
