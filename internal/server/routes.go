package server

import (
	"github.com/go-chi/chi/v5"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.NotFound(s.app.APIHandler.NotFoundHandler)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.app.APIHandler.HealthHandler)
		r.Get("/version", s.app.APIHandler.VersionHandler)

		r.Post("/analyze", s.app.AnalysisHandler.AnalyzeHandler)
		r.Post("/batch", s.app.BatchHandler.RunHandler)
		r.Get("/selftest", s.app.AnalysisHandler.SelfTestHandler)
	})
}
