package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter wires middleware and routes.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.withRequestID, s.accessLog, s.recoverPanics, s.cors, s.limitBody)

	r.NotFound(handleRouteNotFound)
	r.MethodNotAllowed(handleMethodNotAllowed)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/version", s.handleVersion)

		r.Route("/controllers", func(r chi.Router) {
			r.Get("/", s.handleListControllers)
			r.Get("/{identifier}", s.handleGetController)
		})
	})

	r.Get(s.wsCfg.Path, s.handleWebSocket)

	return r
}
