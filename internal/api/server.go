package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/snarg/scribe-engine/internal/config"
	"github.com/snarg/scribe-engine/internal/database"
	"github.com/snarg/scribe-engine/internal/metrics"
	"github.com/snarg/scribe-engine/internal/notify"
	"github.com/snarg/scribe-engine/internal/pipeline"
	"github.com/snarg/scribe-engine/internal/transcribe"
)

type Server struct {
	http *http.Server
	log  zerolog.Logger
}

// Deps bundles everything the HTTP surface needs. DB and Notifier may be
// nil when the corresponding feature is not configured.
type Deps struct {
	Orchestrator *pipeline.Orchestrator
	Backend      transcribe.Backend
	Cache        *transcribe.ModelCache
	DB           *database.DB
	Notifier     *notify.Notifier
	Mirror       ArtifactURLer
	Version      string
	StartTime    time.Time
}

func NewServer(cfg *config.Config, deps Deps, log zerolog.Logger) *Server {
	r := chi.NewRouter()

	// Global middleware
	r.Use(RequestID)
	r.Use(Recoverer)
	r.Use(Logger(log))
	r.Use(metrics.InstrumentHandler)

	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Health stays unauthenticated for load balancer probes.
		health := NewHealthHandler(deps.DB, deps.Notifier, deps.Backend, deps.Cache, deps.Version, deps.StartTime)
		r.Get("/health", health.ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(BearerAuth(cfg.AuthToken))

			tx := NewTranscriptionsHandler(deps.Orchestrator, deps.DB, cfg.UploadDir, cfg.MaxUploadBytes, cfg.DefaultModel, cfg.DefaultLanguage, log)
			tx.Routes(r)

			files := NewFilesHandler(cfg.OutputDir, deps.Mirror, log)
			files.Routes(r)

			models := NewModelsHandler(deps.Cache, log)
			models.Routes(r)
		})
	})

	return &Server{
		http: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      r,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		log: log,
	}
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("http server starting")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	return s.http.Shutdown(ctx)
}
