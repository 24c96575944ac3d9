package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(LoggerMiddleware(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.SetHeader("Content-Type", "application/json"))

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("OK"))
		})

		r.Route("/definitions", func(r chi.Router) {
			r.Post("/", s.handleDefinePreference)
			r.Get("/", s.handleListDefinitions)
			r.Get("/{key}", s.handleGetDefinition)
		})

		r.Route("/preferences", func(r chi.Router) {
			r.Get("/", s.handleGetAllPreferences)
			r.Get("/{key}", s.handleGetPreference)
			r.Put("/{key}", s.handleSetPreference)
			r.Delete("/{key}", s.handleDeletePreference)
		})

		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handleUpdateSettings)

		r.Get("/regions", s.handleListRegions)
		r.Get("/localize", s.handleLocalize)
		r.Get("/proxy", s.handleProxyURL)
	})
}
