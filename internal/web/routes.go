package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-finder/internal/web/handlers"
	"github.com/kozaktomas/face-finder/internal/web/middleware"
	"github.com/kozaktomas/face-finder/internal/web/static"
)

func (s *Server) setupRoutes() {
	jobsHandler := handlers.NewJobsHandler(s.jobs, s.config.Face.MinInterocularPx, s.logger)
	configHandler := handlers.NewConfigHandler(s.config)

	// Health checks
	s.router.Get("/healthz", handlers.Healthz)
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api", func(r chi.Router) {
		r.With(middleware.RateLimit(s.limiter)).Post("/analyze", jobsHandler.Analyze)
		r.Get("/stream/{jobId}", jobsHandler.Stream)
		r.Post("/cancel/{jobId}", jobsHandler.Cancel)
		r.Get("/config", configHandler.Get)
	})

	// Front end
	s.router.Get("/", s.serveIndex)
	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(static.GetFileSystem())))
}

// serveIndex serves the embedded single page front end.
func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	http.ServeFileFS(w, r, static.FS(), "index.html")
}
