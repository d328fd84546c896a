// DHIS2 User Audit - Duplicate Account and Login Activity Auditing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dhis2-user-audit

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/dhis2-user-audit/internal/api"
	"github.com/tomtom215/dhis2-user-audit/internal/audit"
	"github.com/tomtom215/dhis2-user-audit/internal/config"
	"github.com/tomtom215/dhis2-user-audit/internal/dhis2"
	"github.com/tomtom215/dhis2-user-audit/internal/logging"
	"github.com/tomtom215/dhis2-user-audit/internal/supervisor"
	"github.com/tomtom215/dhis2-user-audit/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})

	loc, err := cfg.Audit.Location()
	if err != nil {
		logging.Fatal().Err(err).Msg("Invalid audit timezone")
	}

	serviceAccount := cfg.DHIS2.Username != "" && cfg.DHIS2.Password != ""
	logging.Info().
		Str("dhis2_url", cfg.DHIS2.URL).
		Bool("service_account", serviceAccount).
		Bool("credential_passthrough", cfg.Security.AllowCredentialPassthrough).
		Bool("circuit_breaker", cfg.DHIS2.CircuitBreakerEnabled).
		Str("timezone", loc.String()).
		Msg("Configuration loaded")

	if cfg.ShouldWarnAboutCORS() {
		logging.Warn().Msg("============================================================")
		logging.Warn().Msg("  SECURITY WARNING: CORS is configured with wildcard origin (CORS_ORIGINS=*)")
		logging.Warn().Msg("  Any website can read audit results through a visitor's browser.")
		logging.Warn().Msg("  Set CORS_ORIGINS to the dashboard origin in production.")
		logging.Warn().Msg("============================================================")
	}

	// DHIS2 client stack: REST client, circuit breaker, cache.
	client := dhis2.NewClient(&cfg.DHIS2)
	upstream, breaker := dhis2.New(client,
		cfg.DHIS2.CircuitBreakerEnabled,
		cfg.DHIS2.OrgUnitCacheTTL,
		cfg.DHIS2.CredentialCacheTTL,
	)
	defer upstream.Close()

	source := dhis2.NewSource(upstream, loc)
	auditor := audit.NewAuditor(source, source, audit.AuditorConfig{
		Tiers: audit.TierThresholds{
			ActiveDays: cfg.Audit.ActiveDays,
			RecentDays: cfg.Audit.RecentDays,
		},
		Location:         loc,
		DefaultRangeDays: cfg.Audit.DefaultRangeDays,
	})

	var breakerState api.BreakerState
	if breaker != nil {
		breakerState = breaker.State
	}
	handler := api.NewHandler(auditor, source, breakerState)

	mwConfig := api.DefaultChiMiddlewareConfig()
	mwConfig.CORSAllowedOrigins = cfg.Security.CORSOrigins
	mwConfig.RateLimitRequests = cfg.Security.RateLimitReqs
	mwConfig.RateLimitWindow = cfg.Security.RateLimitWindow
	mwConfig.RateLimitDisabled = cfg.Security.RateLimitDisabled
	mwConfig.CredentialPassthrough = cfg.Security.AllowCredentialPassthrough
	router := api.NewRouter(handler, api.NewChiMiddleware(mwConfig))

	server := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout + 5*time.Second,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	// Without a service account the probe could only report missing
	// credentials.
	if serviceAccount && cfg.DHIS2.HealthCheckInterval > 0 {
		tree.AddUpstreamService(services.NewProbeService(
			upstream, cfg.DHIS2.HealthCheckInterval, logging.WithComponent("dhis2-probe"),
		))
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
	}

	logging.Info().Msg("Server stopped")
}
