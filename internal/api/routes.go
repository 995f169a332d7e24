package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates a new router with all routes configured. appSecret keys
// webhook signature verification; empty disables it.
func NewRouter(h *Handler, appSecret string) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (all routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)

	r.Get("/health", h.Health)

	r.Get("/webhook", h.Verify)
	r.With(SignatureMiddleware(appSecret)).Post("/webhook", h.Receive)

	return r
}
