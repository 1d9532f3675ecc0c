// Package server exposes the simulation to external renderers: a chi REST
// API for graph snapshots and settings, and a websocket frame stream.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/stargraph/stargraph/internal/reconcile"
	"github.com/stargraph/stargraph/internal/sim"
)

// Server is the stargraph HTTP API server.
type Server struct {
	sim     *sim.Simulation
	rec     *reconcile.Reconciler
	router  chi.Router
	version string
	started time.Time
	frameHz int
}

// New creates a Server over the given simulation. rec may be nil when no
// vault is attached (pure API-driven graphs).
func New(s *sim.Simulation, rec *reconcile.Reconciler, version string) *Server {
	srv := &Server{
		sim:     s,
		rec:     rec,
		version: version,
		started: time.Now(),
		frameHz: 30,
	}
	srv.routes()
	return srv
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Get("/graph", s.handleGraph)
		r.Get("/frame", s.handleFrame)

		r.Post("/nodes", s.handleAddNode)
		r.Delete("/nodes/{nodeID}", s.handleRemoveNode)
		r.Post("/links", s.handleAddLink)
		r.Delete("/links", s.handleRemoveLink)

		r.Get("/settings/forces", s.handleGetForces)
		r.Post("/settings/forces", s.handleSetForces)
		r.Post("/settings/particles", s.handleSetParticles)
	})

	r.Get("/ws", s.handleWS)
	r.Get("/*", spaHandler())

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"version":   s.version,
		"uptime":    time.Since(s.started).Seconds(),
		"running":   s.sim.Running(),
		"nodes":     s.sim.NodeCount(),
		"links":     s.sim.LinkCount(),
		"particles": s.sim.LiveParticles(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
