// DHIS2 User Audit - Duplicate Account and Login Activity Auditing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dhis2-user-audit

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/dhis2-user-audit/internal/middleware"
)

// Router wires handlers and middleware into a chi router.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a Router.
func NewRouter(handler *Handler, chiMiddleware *ChiMiddleware) *Router {
	if chiMiddleware == nil {
		chiMiddleware = NewChiMiddleware(nil)
	}
	return &Router{handler: handler, chiMiddleware: chiMiddleware}
}

// SetupChi builds the HTTP handler with every route.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())
	r.Use(middleware.PrometheusMetrics)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		NewResponseWriter(w, req).NotFound("Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		NewResponseWriter(w, req).Error(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(APISecurityHeaders())

		r.Route("/health", func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimitHealth())
			r.Get("/live", router.handler.HealthLive)
			r.Get("/ready", router.handler.HealthReady)
		})

		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimit())
			r.Use(router.chiMiddleware.CredentialPassthrough())

			r.Group(func(r chi.Router) {
				r.Use(middleware.Compression)
				r.Get("/organisation-units", router.handler.OrganisationUnits)
				r.Get("/users", router.handler.Users)
				r.Get("/users/duplicates", router.handler.UserDuplicates)
				r.Get("/activity", router.handler.Activity)
				r.With(router.chiMiddleware.RateLimitExport()).
					Get("/users/export.csv", router.handler.UsersExportCSV)
			})

			r.With(router.chiMiddleware.RateLimitExport()).
				Get("/activity/export.xlsx", router.handler.ActivityExportXLSX)
		})
	})

	return r
}
