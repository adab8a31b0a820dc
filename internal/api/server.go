// Package api exposes the computed rankings over HTTP. The API is
// read-only: writes happen through the CLI's ingest pipeline, the server
// just serves whatever snapshot the store currently holds.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/shuttleworks/rankings-cli/internal/ranking"
	"github.com/shuttleworks/rankings-cli/internal/store"
)

// Server wires the store and the ranking engine into HTTP handlers.
type Server struct {
	store  store.Store
	engine *ranking.Engine
}

// NewServer creates a Server over the given store and engine.
func NewServer(st store.Store, engine *ranking.Engine) *Server {
	return &Server{store: st, engine: engine}
}

// Handler builds the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/events", s.handleListEvents)
	r.Get("/rankings", s.handleListRankings)
	r.Get("/events/{event}/export.csv", s.handleExportCSV)
	r.Get("/player-results", s.handlePlayerResults)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Error("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
