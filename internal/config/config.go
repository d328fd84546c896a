// DHIS2 User Audit - Duplicate Account and Login Activity Auditing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dhis2-user-audit

// Package config loads the audit service configuration from built-in
// defaults, an optional YAML file and environment variables (in increasing
// order of precedence) using Koanf v2.
//
// Environment Variables:
//   - DHIS2_URL: DHIS2 base URL, may include a context path (required)
//   - DHIS2_USERNAME / DHIS2_PASSWORD: service credentials
//   - DHIS2_TIMEOUT, DHIS2_MAX_RETRIES, DHIS2_REQUESTS_PER_SECOND
//   - DHIS2_ORG_UNIT_CACHE_TTL, DHIS2_CREDENTIAL_CACHE_TTL
//   - AUDIT_DEFAULT_RANGE_DAYS, AUDIT_ACTIVE_DAYS, AUDIT_RECENT_DAYS, AUDIT_TIMEZONE
//   - HTTP_PORT, HTTP_HOST, HTTP_TIMEOUT, HTTP_SHUTDOWN_TIMEOUT, ENVIRONMENT
//   - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, DISABLE_RATE_LIMIT, CORS_ORIGINS
//   - ALLOW_CREDENTIAL_PASSTHROUGH
//   - LOG_LEVEL, LOG_FORMAT, LOG_CALLER
package config

import (
	"fmt"
	"time"

	// Embedded zone database so AUDIT_TIMEZONE resolves in minimal containers.
	_ "time/tzdata"
)

// Config holds all application configuration.
type Config struct {
	DHIS2    DHIS2Config    `koanf:"dhis2"`
	Audit    AuditConfig    `koanf:"audit"`
	Server   ServerConfig   `koanf:"server"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// DHIS2Config holds the connection settings for the DHIS2 instance being audited.
type DHIS2Config struct {
	URL      string `koanf:"url"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`

	Timeout        time.Duration `koanf:"timeout"`
	MaxRetries     int           `koanf:"max_retries"`
	RetryBaseDelay time.Duration `koanf:"retry_base_delay"`

	// RequestsPerSecond paces outbound calls to DHIS2; Burst is the limiter bucket size.
	RequestsPerSecond float64 `koanf:"requests_per_second"`
	Burst             int     `koanf:"burst"`

	// OrgUnitCacheTTL controls how long the organisation unit list is reused.
	// CredentialCacheTTL of zero disables credential caching so every load
	// sees fresh login timestamps.
	OrgUnitCacheTTL    time.Duration `koanf:"org_unit_cache_ttl"`
	CredentialCacheTTL time.Duration `koanf:"credential_cache_ttl"`

	CircuitBreakerEnabled bool `koanf:"circuit_breaker_enabled"`

	// HealthCheckInterval is the period of the background reachability
	// probe; zero disables it.
	HealthCheckInterval time.Duration `koanf:"health_check_interval"`
}

// AuditConfig holds the audit pipeline settings.
type AuditConfig struct {
	// DefaultRangeDays is the width of the activity window used when the
	// caller does not supply one: [today - DefaultRangeDays, today].
	DefaultRangeDays int `koanf:"default_range_days"`

	// ActiveDays and RecentDays are the activity tier thresholds.
	ActiveDays int `koanf:"active_days"`
	RecentDays int `koanf:"recent_days"`

	// TimestampLocation is the IANA zone used for zone-less DHIS2 timestamps
	// and for computing "today".
	TimestampLocation string `koanf:"timestamp_location"`
}

// Location resolves TimestampLocation, defaulting to UTC.
func (a AuditConfig) Location() (*time.Location, error) {
	if a.TimestampLocation == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(a.TimestampLocation)
	if err != nil {
		return nil, fmt.Errorf("failed to load location %q: %w", a.TimestampLocation, err)
	}
	return loc, nil
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"` // development, staging, production
}

// SecurityConfig holds inbound API protection settings.
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`

	// AllowCredentialPassthrough forwards an inbound Basic Authorization
	// header to DHIS2 instead of the configured service account.
	AllowCredentialPassthrough bool `koanf:"allow_credential_passthrough"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// Load reads configuration using LoadWithKoanf.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// ListenAddr returns the host:port the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
