package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/parchment-ai/parchment/internal/api"
	"github.com/parchment-ai/parchment/internal/api/handlers"
	"github.com/parchment-ai/parchment/internal/api/middleware"
)

type RouterConfig struct {
	QueryHandler    *handlers.QueryHandler
	StatsHandler    *handlers.StatsHandler
	DocumentHandler *handlers.DocumentHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/query", cfg.QueryHandler.Ask)
	r.Get("/stats", cfg.StatsHandler.Get)

	r.Route("/documents", func(r chi.Router) {
		r.Get("/", cfg.DocumentHandler.List)
		r.Get("/{id}", cfg.DocumentHandler.Get)
	})

	return r
}
