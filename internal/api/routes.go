package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mental-triage/internal/common/database"
	"mental-triage/internal/common/observability"
)

// NewRouter mounts the API plus the health, readiness and metrics endpoints.
// obs and health may be nil.
func NewRouter(h *Handler, health *database.Health, obs *observability.Observability) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if obs != nil {
		r.Use(obs.Middleware)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		if health != nil {
			if err := health.Check(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/start", h.Start)
		r.Post("/chat", h.Chat)
		r.Post("/end", h.End)
		r.Post("/load", h.Load)
		r.Get("/session/{id}", h.Session)
		r.Get("/history", h.History)
		r.Get("/conversation/{id}", h.Conversation)
		r.Get("/report/{id}", h.Report)
	})
	return r
}
