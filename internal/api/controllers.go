package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gamepad-io/internal/relay"
)

// handleHealth reports liveness plus registry and subscriber counts.
// It answers 503 when the engine stops serving queries.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.Stats(r.Context())
	if err != nil {
		s.logger.Warn("health check: engine unavailable", "error", err)
		writeUnavailable(w, "relay engine unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"version":     s.engine.Version(),
		"controllers": stats.Controllers,
		"subscribers": stats.Subscribers,
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.engine.Version()})
}

// handleListControllers returns the registry snapshot in connection order.
func (s *Server) handleListControllers(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.engine.Snapshot(r.Context())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"controllers": snapshot,
		"count":       len(snapshot),
	})
}

func (s *Server) handleGetController(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "identifier")

	rec, ok, err := s.engine.Lookup(r.Context(), identifier)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	if !ok {
		writeNotFound(w, "controller not connected: "+identifier)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	if errors.Is(err, relay.ErrEngineStopped) {
		writeUnavailable(w, "relay engine stopped")
		return
	}
	s.logger.Error("engine query failed", "error", err)
	writeInternalError(w, "engine query failed")
}
