// Shoplytics - E-commerce Analytics Event Pipeline
// Copyright 2026 Alex Volkov (avolkov)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avolkov/shoplytics

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires all HTTP routes.
//
// Route groups and their middleware:
//   - health: no auth, permissive rate limit
//   - beacon: no auth (fired from pages before any login), rate limited
//   - tracking: no auth (public storefront ingestion), rate limited
//   - reporting: authenticated, admin-gated per endpoint
func (h *Handler) NewRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.cfg.Security.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	rateLimit := httprate.LimitByIP(h.cfg.Security.RateLimitReqs, h.cfg.Security.RateLimitWindow)
	// Health checks poll frequently; give them generous headroom.
	healthRateLimit := httprate.LimitByIP(h.cfg.Security.RateLimitReqs*10, h.cfg.Security.RateLimitWindow)

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(healthRateLimit)
		r.Use(SecurityHeaders)
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	r.Route("/api/v1/beacon", func(r chi.Router) {
		r.Use(rateLimit)
		r.Use(SecurityHeaders)
		r.Use(PrometheusMetrics)
		r.Post("/", h.Beacon(FullBeaconDefaults()))
		r.Post("/simple", h.Beacon(SimpleBeaconDefaults()))
		r.Get("/simple", h.Beacon(SimpleBeaconDefaults()))
	})

	r.Route("/api/v1/analytics", func(r chi.Router) {
		r.Use(rateLimit)
		r.Use(SecurityHeaders)
		r.Use(PrometheusMetrics)

		// Ingestion: public storefront traffic. Purchases are the
		// exception: they are attributed to the authenticated user.
		r.Post("/track", h.Track)
		r.Post("/track/batch", h.TrackBatch)
		r.Post("/page-view", h.PageView)
		r.Post("/product-view", h.ProductView)
		r.With(h.Authenticate).Post("/purchase", h.Purchase)

		// Reporting: authenticated.
		r.Group(func(r chi.Router) {
			r.Use(h.Authenticate)

			r.With(h.RequireAdmin).Get("/events", h.Events)
			r.With(h.RequireAdmin).Get("/summary", h.Summary)
			r.With(h.RequireAdmin).Get("/popular-products", h.PopularProducts)
			r.Get("/user/{userID}/events", h.UserEventsEndpoint)
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
