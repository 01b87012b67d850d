package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/romariotrain/media-pipeline/internal/platform/metrics"
)

func NewRouter(h *Handler, m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", h.Health)
	r.Post("/media", h.UploadMedia)
	r.Get("/media/{id}/source", h.GetSource)
	if m != nil {
		r.Handle("/metrics", m.Handler())
	}
	return r
}
