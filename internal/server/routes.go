package server

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dwsmith1983/actorrelay/internal/server/handlers"
)

func (s *Server) registerRoutes(r chi.Router) {
	h := handlers.New(s.relay)
	h.SetLogger(s.logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(MaxBodyMiddleware(s.maxBody))
		r.Use(middleware.SetHeader("Content-Type", "application/json"))

		// Health
		r.Get("/health", h.Health)

		// Browser front end: POST /api/apify?route=actors|schema|run
		r.HandleFunc("/apify", h.Dispatch)

		// Actors
		r.Post("/actors", h.ListActors)
		r.Post("/actors/{actorID}/schema", h.Schema)
		r.Post("/actors/{actorID}/runs", h.Run)
	})
}
