// DHIS2 User Audit - Duplicate Account and Login Activity Auditing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dhis2-user-audit

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestDefaultConfig verifies that defaultConfig() returns proper defaults
func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.DHIS2.URL != "" {
		t.Errorf("DHIS2.URL should be empty by default, got %q", cfg.DHIS2.URL)
	}
	if cfg.DHIS2.Timeout != 30*time.Second {
		t.Errorf("DHIS2.Timeout = %v, want 30s", cfg.DHIS2.Timeout)
	}
	if cfg.DHIS2.CredentialCacheTTL != 0 {
		t.Errorf("DHIS2.CredentialCacheTTL = %v, want 0", cfg.DHIS2.CredentialCacheTTL)
	}
	if cfg.DHIS2.HealthCheckInterval != time.Minute {
		t.Errorf("DHIS2.HealthCheckInterval = %v, want 1m", cfg.DHIS2.HealthCheckInterval)
	}
	if cfg.Audit.DefaultRangeDays != 30 {
		t.Errorf("Audit.DefaultRangeDays = %d, want 30", cfg.Audit.DefaultRangeDays)
	}
	if cfg.Audit.ActiveDays != 30 || cfg.Audit.RecentDays != 90 {
		t.Errorf("Audit tiers = %d/%d, want 30/90", cfg.Audit.ActiveDays, cfg.Audit.RecentDays)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if !cfg.Security.AllowCredentialPassthrough {
		t.Error("Security.AllowCredentialPassthrough should be true by default")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"DHIS2_URL", "dhis2.url"},
		{"DHIS2_USERNAME", "dhis2.username"},
		{"DHIS2_CREDENTIAL_CACHE_TTL", "dhis2.credential_cache_ttl"},
		{"AUDIT_TIMEZONE", "audit.timestamp_location"},
		{"HTTP_PORT", "server.port"},
		{"DISABLE_RATE_LIMIT", "security.rate_limit_disabled"},
		{"LOG_LEVEL", "logging.level"},
		{"PATH", ""},
		{"HOME", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := envTransformFunc(tt.input); got != tt.expected {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLoadWithKoanfEnvVars(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, "")
	t.Setenv("DHIS2_URL", "https://play.dhis2.org/40.4.0")
	t.Setenv("DHIS2_USERNAME", "admin")
	t.Setenv("DHIS2_PASSWORD", "district")
	t.Setenv("DHIS2_TIMEOUT", "45s")
	t.Setenv("DHIS2_REQUESTS_PER_SECOND", "2.5")
	t.Setenv("AUDIT_DEFAULT_RANGE_DAYS", "7")
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CORS_ORIGINS", "https://a.example.org, https://b.example.org")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.DHIS2.URL != "https://play.dhis2.org/40.4.0" {
		t.Errorf("DHIS2.URL = %q", cfg.DHIS2.URL)
	}
	if cfg.DHIS2.Username != "admin" || cfg.DHIS2.Password != "district" {
		t.Errorf("DHIS2 credentials = %q/%q", cfg.DHIS2.Username, cfg.DHIS2.Password)
	}
	if cfg.DHIS2.Timeout != 45*time.Second {
		t.Errorf("DHIS2.Timeout = %v, want 45s", cfg.DHIS2.Timeout)
	}
	if cfg.DHIS2.RequestsPerSecond != 2.5 {
		t.Errorf("DHIS2.RequestsPerSecond = %v, want 2.5", cfg.DHIS2.RequestsPerSecond)
	}
	if cfg.Audit.DefaultRangeDays != 7 {
		t.Errorf("Audit.DefaultRangeDays = %d, want 7", cfg.Audit.DefaultRangeDays)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if len(cfg.Security.CORSOrigins) != 2 || cfg.Security.CORSOrigins[1] != "https://b.example.org" {
		t.Errorf("Security.CORSOrigins = %v", cfg.Security.CORSOrigins)
	}

	// Defaults survive for unset values
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want 0.0.0.0 (default)", cfg.Server.Host)
	}
	if cfg.DHIS2.OrgUnitCacheTTL != 5*time.Minute {
		t.Errorf("DHIS2.OrgUnitCacheTTL = %v, want 5m (default)", cfg.DHIS2.OrgUnitCacheTTL)
	}
}

func TestLoadWithKoanfConfigFile(t *testing.T) {
	configContent := `
dhis2:
  url: "https://dhis.example.org/dhis"
  username: "auditor"
  password: "secret"
  org_unit_cache_ttl: 10m

audit:
  timestamp_location: "Africa/Nairobi"

server:
  port: 8888
  host: "127.0.0.1"

logging:
  level: "warn"
`
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0o600); err != nil {
		t.Fatalf("Failed to create config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, configPath)

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.DHIS2.URL != "https://dhis.example.org/dhis" {
		t.Errorf("DHIS2.URL = %q", cfg.DHIS2.URL)
	}
	if cfg.DHIS2.OrgUnitCacheTTL != 10*time.Minute {
		t.Errorf("DHIS2.OrgUnitCacheTTL = %v, want 10m", cfg.DHIS2.OrgUnitCacheTTL)
	}
	if cfg.Audit.TimestampLocation != "Africa/Nairobi" {
		t.Errorf("Audit.TimestampLocation = %q", cfg.Audit.TimestampLocation)
	}
	if cfg.Server.Port != 8888 {
		t.Errorf("Server.Port = %d, want 8888", cfg.Server.Port)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn", cfg.Logging.Level)
	}
	if cfg.Audit.DefaultRangeDays != 30 {
		t.Errorf("Audit.DefaultRangeDays = %d, want 30 (default)", cfg.Audit.DefaultRangeDays)
	}
}

func TestLoadWithKoanfEnvOverridesFile(t *testing.T) {
	configContent := `
dhis2:
  url: "https://file.example.org"
server:
  port: 7000
`
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0o600); err != nil {
		t.Fatalf("Failed to create config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, configPath)
	t.Setenv("DHIS2_URL", "https://env.example.org")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}
	if cfg.DHIS2.URL != "https://env.example.org" {
		t.Errorf("DHIS2.URL = %q, want env value", cfg.DHIS2.URL)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("Server.Port = %d, want 7000 from file", cfg.Server.Port)
	}
}

func TestLoadWithKoanfValidation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing url",
			env:     map[string]string{"DHIS2_URL": ""},
			wantErr: "DHIS2_URL is required",
		},
		{
			name:    "bad scheme",
			env:     map[string]string{"DHIS2_URL": "ftp://dhis.example.org"},
			wantErr: "scheme must be http or https",
		},
		{
			name: "missing service account without passthrough",
			env: map[string]string{
				"DHIS2_URL":                    "https://dhis.example.org",
				"ALLOW_CREDENTIAL_PASSTHROUGH": "false",
			},
			wantErr: "DHIS2_USERNAME and DHIS2_PASSWORD are required",
		},
		{
			name: "negative health check interval",
			env: map[string]string{
				"DHIS2_URL":                   "https://dhis.example.org",
				"DHIS2_HEALTH_CHECK_INTERVAL": "-1s",
			},
			wantErr: "DHIS2_HEALTH_CHECK_INTERVAL must not be negative",
		},
		{
			name: "tier order",
			env: map[string]string{
				"DHIS2_URL":         "https://dhis.example.org",
				"AUDIT_ACTIVE_DAYS": "90",
				"AUDIT_RECENT_DAYS": "30",
			},
			wantErr: "AUDIT_RECENT_DAYS",
		},
		{
			name: "unknown timezone",
			env: map[string]string{
				"DHIS2_URL":      "https://dhis.example.org",
				"AUDIT_TIMEZONE": "Mars/Olympus_Mons",
			},
			wantErr: "AUDIT_TIMEZONE is invalid",
		},
		{
			name: "port out of range",
			env: map[string]string{
				"DHIS2_URL": "https://dhis.example.org",
				"HTTP_PORT": "70000",
			},
			wantErr: "HTTP_PORT must be between 1 and 65535",
		},
		{
			name: "bad log level",
			env: map[string]string{
				"DHIS2_URL": "https://dhis.example.org",
				"LOG_LEVEL": "verbose",
			},
			wantErr: "LOG_LEVEL must be one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(ConfigPathEnvVar, "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := LoadWithKoanf()
			if err == nil {
				t.Fatalf("LoadWithKoanf() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadWithKoanf() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateHTTPURL(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"https://play.dhis2.org", false},
		{"https://play.dhis2.org/", false},
		{"http://localhost:8080/dhis", false},
		{"play.dhis2.org", true},
		{"https://", true},
		{"https://dhis.example.org?x=1", true},
		{"https://dhis.example.org#top", true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			err := validateHTTPURL(tt.url, "DHIS2_URL")
			if (err != nil) != tt.wantErr {
				t.Errorf("validateHTTPURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestShouldWarnAboutCORS(t *testing.T) {
	cfg := defaultConfig()
	if cfg.ShouldWarnAboutCORS() {
		t.Error("development config should not warn about CORS")
	}

	cfg.Server.Environment = "production"
	if !cfg.ShouldWarnAboutCORS() {
		t.Error("production wildcard CORS with passthrough should warn")
	}

	cfg.Security.CORSOrigins = []string{"https://dashboard.example.org"}
	if cfg.ShouldWarnAboutCORS() {
		t.Error("explicit origins should not warn")
	}
}

func TestAuditLocation(t *testing.T) {
	loc, err := AuditConfig{}.Location()
	if err != nil || loc != time.UTC {
		t.Errorf("empty location = %v, %v; want UTC", loc, err)
	}

	loc, err = AuditConfig{TimestampLocation: "Europe/Oslo"}.Location()
	if err != nil {
		t.Fatalf("Location() error = %v", err)
	}
	if loc.String() != "Europe/Oslo" {
		t.Errorf("Location() = %q, want Europe/Oslo", loc.String())
	}
}
