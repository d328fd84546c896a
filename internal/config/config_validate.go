// DHIS2 User Audit - Duplicate Account and Login Activity Auditing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dhis2-user-audit

package config

import (
	"fmt"
	"time"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateDHIS2(); err != nil {
		return err
	}

	if err := c.validateAudit(); err != nil {
		return err
	}

	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateSecurity(); err != nil {
		return err
	}

	return c.validateLogging()
}

func (c *Config) validateDHIS2() error {
	if c.DHIS2.URL == "" {
		return fmt.Errorf("DHIS2_URL is required")
	}
	if err := validateHTTPURL(c.DHIS2.URL, "DHIS2_URL"); err != nil {
		return fmt.Errorf("DHIS2_URL is invalid: %w", err)
	}

	// Without passthrough every request uses the service account.
	if !c.Security.AllowCredentialPassthrough && (c.DHIS2.Username == "" || c.DHIS2.Password == "") {
		return fmt.Errorf("DHIS2_USERNAME and DHIS2_PASSWORD are required when ALLOW_CREDENTIAL_PASSTHROUGH=false")
	}

	if c.DHIS2.Timeout <= 0 {
		return fmt.Errorf("DHIS2_TIMEOUT must be positive")
	}
	if c.DHIS2.MaxRetries < 0 || c.DHIS2.MaxRetries > 10 {
		return fmt.Errorf("DHIS2_MAX_RETRIES must be between 0 and 10")
	}
	if c.DHIS2.RequestsPerSecond <= 0 {
		return fmt.Errorf("DHIS2_REQUESTS_PER_SECOND must be positive")
	}
	if c.DHIS2.Burst < 1 {
		return fmt.Errorf("DHIS2_BURST must be at least 1")
	}
	if c.DHIS2.OrgUnitCacheTTL < 0 || c.DHIS2.CredentialCacheTTL < 0 {
		return fmt.Errorf("DHIS2 cache TTLs must not be negative")
	}
	if c.DHIS2.HealthCheckInterval < 0 {
		return fmt.Errorf("DHIS2_HEALTH_CHECK_INTERVAL must not be negative")
	}
	return nil
}

func (c *Config) validateAudit() error {
	if c.Audit.DefaultRangeDays < 0 {
		return fmt.Errorf("AUDIT_DEFAULT_RANGE_DAYS must not be negative")
	}
	if c.Audit.ActiveDays < 1 {
		return fmt.Errorf("AUDIT_ACTIVE_DAYS must be at least 1")
	}
	if c.Audit.RecentDays <= c.Audit.ActiveDays {
		return fmt.Errorf("AUDIT_RECENT_DAYS (%d) must be greater than AUDIT_ACTIVE_DAYS (%d)",
			c.Audit.RecentDays, c.Audit.ActiveDays)
	}
	if _, err := c.Audit.Location(); err != nil {
		return fmt.Errorf("AUDIT_TIMEZONE is invalid: %w", err)
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("HTTP_SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	return c.validateRateLimits()
}

// Rate limit constants
const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
)

func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

// hasWildcardCORS checks if CORS is configured with wildcard origins
func (c *Config) hasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// ShouldWarnAboutCORS reports whether wildcard CORS is combined with
// credential passthrough in production, which should be logged at startup.
func (c *Config) ShouldWarnAboutCORS() bool {
	return c.IsProduction() && c.Security.AllowCredentialPassthrough && c.hasWildcardCORS()
}

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}
