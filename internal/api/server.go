package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"attest/app"
	"attest/internal/jobs"
	"attest/internal/logx"
	"attest/ports"
)

// Server exposes the job surface over HTTP. Authentication and
// authorization are handled upstream of this service.
type Server struct {
	router   *chi.Mux
	service  *app.AssessmentService
	worker   *jobs.Worker
	repo     ports.JobRepository
	progress *jobs.ProgressBoard
	logger   *logx.Logger
}

// NewServer creates the HTTP server and mounts its routes
func NewServer(service *app.AssessmentService, worker *jobs.Worker, repo ports.JobRepository, progress *jobs.ProgressBoard, logger *logx.Logger) *Server {
	if logger == nil {
		logger = logx.NewDefault()
	}
	s := &Server{
		router:   chi.NewRouter(),
		service:  service,
		worker:   worker,
		repo:     repo,
		progress: progress,
		logger:   logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/jobs", s.handleCreateJob)
		r.Get("/jobs", s.handleListJobs)
		r.Get("/jobs/{id}", s.handleJobStatus)
		r.Get("/jobs/{id}/report", s.handleJobReport)
		r.Get("/jobs/{id}/report.html", s.handleJobReportHTML)
		r.Post("/validate", s.handleValidateArchive)
	})
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}
