// MindCanvas Insights - SaaS Usage Analytics and Account Health Dashboard
// Copyright 2026 MindCanvas Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mindcanvas/insights/internal/config"
	"github.com/mindcanvas/insights/internal/middleware"
)

// NewRouter wires the full route tree with the global middleware stack.
func NewRouter(h *Handlers, cfg config.ServerConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Compress(5))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "ETag"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health probes get a permissive limit so orchestrators can poll freely.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(httprate.LimitByIP(1000, cfg.RateLimitWindow))
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	r.Route("/api/v1/analytics", func(r chi.Router) {
		r.Use(httprate.LimitByIP(cfg.RateLimitReqs, cfg.RateLimitWindow))
		r.Use(middleware.PrometheusMetrics)

		r.Get("/cohorts/{userID}", h.Cohorts)
		r.Get("/retention", h.Retention)

		r.Get("/health/at-risk", h.AtRisk)
		r.Post("/health/batch", h.HealthBatch)
		r.Get("/health/{userID}", h.HealthScore)

		r.Get("/journey/user/{userID}", h.UserJourney)
		r.Get("/journey/team/{workspaceID}", h.TeamJourney)

		r.Get("/advisor/recommendations", h.AdvisorRecommendations)
		r.Post("/advisor/refresh", h.AdvisorRefresh)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
