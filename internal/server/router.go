package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/cloo-solutions/plancheck/internal/api"
	"github.com/cloo-solutions/plancheck/internal/api/handlers"
	"github.com/cloo-solutions/plancheck/internal/api/middleware"
	"github.com/cloo-solutions/plancheck/internal/metrics"
)

type RouterConfig struct {
	Logger *zap.Logger
	// AuthValidator protects the API routes. Nil leaves them open.
	AuthValidator     middleware.AuthValidator
	CheckHandler      *handlers.CheckHandler
	RegulationHandler *handlers.RegulationHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	metrics.RegisterHTTPMetrics()

	r := chi.NewRouter()

	const maxBodyBytes int64 = 5 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(log))
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog(log))
	r.Use(metrics.Middleware())
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if cfg.AuthValidator != nil {
			r.Use(middleware.APIKeyAuth(cfg.AuthValidator))
		}

		r.Get("/whoami", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, http.StatusOK, map[string]interface{}{
				"client":        middleware.GetClient(r.Context()),
				"auth_required": cfg.AuthValidator != nil,
			})
		})
		r.Post("/check", cfg.CheckHandler.Check)

		r.Route("/regulations", func(r chi.Router) {
			r.Post("/ingest", cfg.RegulationHandler.Ingest)
			r.Post("/search", cfg.RegulationHandler.Search)
		})
	})

	return r
}
