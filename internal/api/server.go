package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/dgallion1/resumedit/internal/builder"
	"github.com/dgallion1/resumedit/internal/config"
	"github.com/dgallion1/resumedit/internal/metrics"
	"github.com/dgallion1/resumedit/internal/resumeapi"
	"github.com/dgallion1/resumedit/internal/session"
)

// Server is the HTTP API server for resumedit.
type Server struct {
	router   chi.Router
	backend  resumeapi.Backend
	sessions *session.Store
	builder  *builder.Builder
	metrics  *metrics.Metrics
	validate *validator.Validate
	log      *slog.Logger
	cfg      config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(backend resumeapi.Backend, sessions *session.Store, bld *builder.Builder, m *metrics.Metrics, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		backend:  backend,
		sessions: sessions,
		builder:  bld,
		metrics:  m,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      log,
		cfg:      cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))
	r.Use(Instrument(s.metrics))

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	// Authenticated endpoints.
	r.Route("/api/resumes", func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.ResumeditAPIKey, s.log))

		r.Get("/", s.handleListResumes)
		r.Post("/upload", s.handleUpload)

		r.Route("/{resumeID}", func(r chi.Router) {
			r.Get("/", s.handleGetResume)
			r.Delete("/", s.handleDeleteResume)

			r.Get("/document", s.handleOpenDocument)
			r.Put("/document", s.handleSaveDocument)
			r.Post("/document/preview", s.handlePreviewDocument)

			r.Get("/lines", s.handleGetLines)
			r.Get("/lines/count", s.handleLineCount)
			r.Put("/lines/{lineNumber}", s.handleUpdateLine)
			r.Post("/process-lines", s.handleProcessLines)

			r.Post("/analyze", s.handleAnalyze)
			r.Get("/groups", s.handleGroups)
			r.Get("/analysis", s.handleGetAnalysis)
			r.Post("/jobs/{experienceID}/analyze", s.handleAnalyzeJob)
		})
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
