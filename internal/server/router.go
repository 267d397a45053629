package server

import (
	"net/http"

	"github.com/cloo-solutions/docqa/internal/api"
	"github.com/cloo-solutions/docqa/internal/api/handlers"
	"github.com/cloo-solutions/docqa/internal/api/middleware"
	"github.com/cloo-solutions/docqa/internal/metrics"
	"github.com/go-chi/chi/v5"
)

// DefaultMaxBodyBytes bounds uploads when RouterConfig leaves it unset.
const DefaultMaxBodyBytes int64 = 32 * 1024 * 1024

type RouterConfig struct {
	DocumentHandler *handlers.DocumentHandler
	SessionHandler  *handlers.SessionHandler
	Metrics         *metrics.Metrics
	MaxBodyBytes    int64
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.Metrics(cfg.Metrics))
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	r.Route("/documents", func(r chi.Router) {
		r.Get("/", cfg.DocumentHandler.List)
		r.Post("/", cfg.DocumentHandler.Upload)
		r.Delete("/{id}", cfg.DocumentHandler.Delete)
		r.Post("/{id}/process", cfg.DocumentHandler.Process)
	})

	r.Get("/jobs/{id}", cfg.DocumentHandler.GetJob)

	r.Route("/session", func(r chi.Router) {
		r.Get("/", cfg.SessionHandler.Status)
		r.Post("/ask", cfg.SessionHandler.Ask)
		r.Get("/history", cfg.SessionHandler.History)
		r.Delete("/history", cfg.SessionHandler.ClearHistory)
		r.Get("/passages", cfg.SessionHandler.Passages)
	})

	return r
}
