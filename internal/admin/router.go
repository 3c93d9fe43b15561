package admin

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sipico/archive-api/internal/auth"
)

// NewRouter creates the API router
func (h *Handler) NewRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)

	// Public endpoints (no auth)
	r.Get("/health", h.HandleHealth)
	r.Get("/ready", h.HandleReady)

	// API (token auth)
	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware(h.issuer, h.logger))

		r.Get("/whoami", h.HandleWhoami)
		r.Post("/loglevel", h.HandleSetLogLevel)
		r.Get("/schema/refs", h.HandleListSchemaRefs)

		r.Get("/tokens", h.HandleListTokens)
		r.Post("/tokens", h.HandleCreateToken)
		r.Get("/tokens/{abid}", h.HandleGetToken)
		r.Delete("/tokens/{abid}", h.HandleDeleteToken)
		r.Put("/tokens/{abid}/expiry", h.HandleSetTokenExpiry)

		r.Get("/webhooks", h.HandleListWebhooks)
		r.Post("/webhooks", h.HandleCreateWebhook)
		r.Get("/webhooks/fields", h.HandleWebhookFields)
		r.Get("/webhooks/{abid}", h.HandleGetWebhook)
		r.Delete("/webhooks/{abid}", h.HandleDeleteWebhook)
		r.Put("/webhooks/{abid}/enabled", h.HandleSetWebhookEnabled)
	})

	return r
}
