// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

package api

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/perfwatch/internal/logging"
	"github.com/tomtom215/perfwatch/internal/middleware"
)

// RouterConfig configures cross-cutting HTTP behaviour.
type RouterConfig struct {
	CORSOrigins []string

	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitDisabled bool

	// Observe wraps report routes, typically the telemetry collector's
	// middleware. The stream endpoint is not wrapped.
	Observe func(http.Handler) http.Handler

	// Stream serves /api/v1/stream when set.
	Stream http.Handler
}

// DefaultRouterConfig returns the defaults used by the server.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CORSOrigins:       []string{"*"},
		RateLimitRequests: 300,
		RateLimitWindow:   time.Minute,
	}
}

// NewRouter builds the HTTP handler for h.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         86400,
	}))
	r.Use(middleware.PrometheusMetrics)

	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rateLimit(cfg))

		if cfg.Stream != nil {
			r.Handle("/stream", cfg.Stream)
		}

		r.Group(func(r chi.Router) {
			if cfg.Observe != nil {
				r.Use(cfg.Observe)
			}
			r.Use(chimiddleware.Compress(5, "application/json"))

			r.Get("/performance/overview", h.PerformanceOverview)
			r.Get("/performance/bottlenecks", h.PerformanceBottlenecks)
			r.Get("/users/behavior", h.UserBehavior)
			r.Get("/capacity/planning", h.CapacityPlanning)
			r.Get("/cost/analysis", h.CostAnalysis)
			r.Get("/alerts/active", h.ActiveAlerts)
			r.Get("/alerts/history", h.AlertHistory)
			r.Get("/alerts/rules", h.AlertRules)
			r.Put("/alerts/rules/{id}", h.UpdateRule)
			r.Post("/alerts/{id}/acknowledge", h.AcknowledgeAlert)
			r.Get("/notifications", h.Notifications)
			r.Get("/predictive/traffic", h.PredictiveTraffic)
			r.Get("/health/score", h.HealthScore)
			r.Get("/compliance/report", h.ComplianceReport)
			r.Get("/audit", h.AuditTrail)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, "Not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
	})
	return r
}

func rateLimit(cfg RouterConfig) func(http.Handler) http.Handler {
	if cfg.RateLimitDisabled || cfg.RateLimitRequests <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		cfg.RateLimitRequests,
		cfg.RateLimitWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			respondError(w, r, http.StatusTooManyRequests, "Rate limit exceeded", nil)
		}),
	)
}

// recoverer turns a handler panic into the failure envelope.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if v == http.ErrAbortHandler {
				panic(v)
			}
			logging.Ctx(r.Context()).Error().
				Str("panic", fmt.Sprint(v)).
				Bytes("stack", debug.Stack()).
				Msg("handler panicked")
			respondError(w, r, http.StatusInternalServerError, "Internal server error", fmt.Errorf("%v", v))
		}()
		next.ServeHTTP(w, r)
	})
}
