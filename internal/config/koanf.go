// DHIS2 User Audit - Duplicate Account and Login Activity Auditing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dhis2-user-audit

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/dhis2-audit/config.yaml",
	"/etc/dhis2-audit/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
func defaultConfig() *Config {
	return &Config{
		DHIS2: DHIS2Config{
			URL:                   "",
			Username:              "",
			Password:              "",
			Timeout:               30 * time.Second,
			MaxRetries:            5,
			RetryBaseDelay:        time.Second,
			RequestsPerSecond:     10,
			Burst:                 5,
			OrgUnitCacheTTL:       5 * time.Minute,
			CredentialCacheTTL:    0,
			CircuitBreakerEnabled: true,
			HealthCheckInterval:   time.Minute,
		},
		Audit: AuditConfig{
			DefaultRangeDays:  30,
			ActiveDays:        30,
			RecentDays:        90,
			TimestampLocation: "UTC",
		},
		Server: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			Timeout:         60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			Environment:     "development",
		},
		Security: SecurityConfig{
			RateLimitReqs:              100,
			RateLimitWindow:            time.Minute,
			RateLimitDisabled:          false,
			CORSOrigins:                []string{"*"},
			AllowCredentialPassthrough: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration with layered sources:
//  1. Defaults
//  2. Optional YAML config file
//  3. Environment variables (highest priority)
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// DHIS2_URL -> dhis2.url, HTTP_PORT -> server.port
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file, or "" if none exists.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths are parsed as comma-separated slices.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated env values to slices for known slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lowercased environment variable names to koanf paths.
var envMappings = map[string]string{
	// DHIS2 connection
	"dhis2_url":                     "dhis2.url",
	"dhis2_username":                "dhis2.username",
	"dhis2_password":                "dhis2.password",
	"dhis2_timeout":                 "dhis2.timeout",
	"dhis2_max_retries":             "dhis2.max_retries",
	"dhis2_retry_base_delay":        "dhis2.retry_base_delay",
	"dhis2_requests_per_second":     "dhis2.requests_per_second",
	"dhis2_burst":                   "dhis2.burst",
	"dhis2_org_unit_cache_ttl":      "dhis2.org_unit_cache_ttl",
	"dhis2_credential_cache_ttl":    "dhis2.credential_cache_ttl",
	"dhis2_circuit_breaker_enabled": "dhis2.circuit_breaker_enabled",
	"dhis2_health_check_interval":   "dhis2.health_check_interval",

	// Audit pipeline
	"audit_default_range_days": "audit.default_range_days",
	"audit_active_days":        "audit.active_days",
	"audit_recent_days":        "audit.recent_days",
	"audit_timezone":           "audit.timestamp_location",

	// Server
	"http_port":             "server.port",
	"http_host":             "server.host",
	"http_timeout":          "server.timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"environment":           "server.environment",

	// Security
	"rate_limit_requests":          "security.rate_limit_reqs",
	"rate_limit_window":            "security.rate_limit_window",
	"disable_rate_limit":           "security.rate_limit_disabled",
	"cors_origins":                 "security.cors_origins",
	"allow_credential_passthrough": "security.allow_credential_passthrough",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
// Unmapped keys return "" so unrelated environment variables are skipped.
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
