package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	custommiddleware "github.com/mmeshcher/dolezza-bot/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware бота.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(custommiddleware.Logger(h.logger))

	r.Get("/health", h.Health)
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())

	if h.webhook != nil && h.webhookAuth != nil {
		r.With(h.webhookAuth.Middleware).Post("/webhook/{"+custommiddleware.SecretParam+"}", h.webhook.ServeHTTP)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
