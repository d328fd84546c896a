// DHIS2 User Audit - Duplicate Account and Login Activity Auditing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dhis2-user-audit

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/tomtom215/dhis2-user-audit/internal/dhis2"
	"github.com/tomtom215/dhis2-user-audit/internal/logging"
)

// ChiMiddlewareConfig configures the chi middleware factories.
type ChiMiddlewareConfig struct {
	CORSAllowedOrigins   []string
	CORSAllowedMethods   []string
	CORSAllowedHeaders   []string
	CORSExposedHeaders   []string
	CORSAllowCredentials bool
	CORSMaxAge           int // seconds

	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitDisabled bool
	RateLimitKeyFunc  httprate.KeyFunc

	// CredentialPassthrough forwards inbound Basic credentials to DHIS2.
	CredentialPassthrough bool
}

// DefaultChiMiddlewareConfig returns the defaults. CORS origins are empty
// and must be configured explicitly.
func DefaultChiMiddlewareConfig() *ChiMiddlewareConfig {
	return &ChiMiddlewareConfig{
		CORSAllowedOrigins: []string{},
		CORSAllowedMethods: []string{"GET", "OPTIONS"},
		CORSAllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		CORSExposedHeaders: []string{"X-Request-ID", "Content-Disposition"},
		CORSMaxAge:         86400,

		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
	}
}

// ChiMiddleware builds chi-compatible middleware from one configuration.
type ChiMiddleware struct {
	config *ChiMiddlewareConfig
	cors   func(http.Handler) http.Handler
}

// NewChiMiddleware creates the factory; a nil config uses the defaults.
func NewChiMiddleware(config *ChiMiddlewareConfig) *ChiMiddleware {
	if config == nil {
		config = DefaultChiMiddlewareConfig()
	}

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins:   config.CORSAllowedOrigins,
		AllowedMethods:   config.CORSAllowedMethods,
		AllowedHeaders:   config.CORSAllowedHeaders,
		ExposedHeaders:   config.CORSExposedHeaders,
		AllowCredentials: config.CORSAllowCredentials,
		MaxAge:           config.CORSMaxAge,
	})

	return &ChiMiddleware{
		config: config,
		cors:   corsHandler,
	}
}

// CORS returns the go-chi/cors handler.
func (m *ChiMiddleware) CORS() func(http.Handler) http.Handler {
	return m.cors
}

func passthrough(next http.Handler) http.Handler {
	return next
}

// RateLimit limits requests per client with the configured budget.
func (m *ChiMiddleware) RateLimit() func(http.Handler) http.Handler {
	return m.RateLimitCustom(RateLimitConfig{
		Requests: m.config.RateLimitRequests,
		Window:   m.config.RateLimitWindow,
	})
}

// RateLimitConfig is a request budget per window.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

var (
	// RateLimitHealth allows frequent probes from monitoring.
	RateLimitHealth = RateLimitConfig{Requests: 1000, Window: time.Minute}

	// RateLimitExport limits downloads, each of which triggers a full DHIS2 load.
	RateLimitExport = RateLimitConfig{Requests: 10, Window: time.Minute}
)

// RateLimitCustom limits requests per client with config.
func (m *ChiMiddleware) RateLimitCustom(config RateLimitConfig) func(http.Handler) http.Handler {
	if m.config.RateLimitDisabled || config.Requests <= 0 {
		return passthrough
	}

	keyFunc := m.config.RateLimitKeyFunc
	if keyFunc == nil {
		keyFunc = httprate.KeyByIP
	}

	return httprate.Limit(
		config.Requests,
		config.Window,
		httprate.WithKeyFuncs(keyFunc),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			NewResponseWriter(w, r).Error(http.StatusTooManyRequests, ErrCodeTooManyRequests, "Rate limit exceeded")
		}),
	)
}

// RateLimitHealth returns the limiter for health endpoints.
func (m *ChiMiddleware) RateLimitHealth() func(http.Handler) http.Handler {
	return m.RateLimitCustom(RateLimitHealth)
}

// RateLimitExport returns the limiter for download endpoints.
func (m *ChiMiddleware) RateLimitExport() func(http.Handler) http.Handler {
	return m.RateLimitCustom(RateLimitExport)
}

// CredentialPassthrough stores an inbound "Authorization: Basic" pair in the
// request context so DHIS2 calls run as the caller. Without a header the
// configured service account is used. It is a no-op when disabled.
func (m *ChiMiddleware) CredentialPassthrough() func(http.Handler) http.Handler {
	if !m.config.CredentialPassthrough {
		return passthrough
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username, password, ok := r.BasicAuth()
			if ok && username != "" {
				ctx := dhis2.ContextWithCredentials(r.Context(), dhis2.Credentials{
					Username: username,
					Password: password,
				})
				logging.Ctx(ctx).Debug().Str("dhis2_user", username).Msg("Using caller credentials")
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// APISecurityHeaders sets hardening headers on API responses. HSTS is only
// sent over TLS or behind a TLS-terminating proxy.
func APISecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}
