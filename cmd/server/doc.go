// DHIS2 User Audit - Duplicate Account and Login Activity Auditing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dhis2-user-audit

/*
Package main is the entry point of the DHIS2 user audit server.

The server reads users and login credentials from a DHIS2 instance, joins
them by username, flags accounts that share a display name and reports which
accounts logged in within a date range. Results are served as JSON and as
CSV or XLSX downloads.

# Application Architecture

	RootSupervisor ("dhis2-user-audit")
	├── UpstreamSupervisor ("upstream-layer")
	│   └── DHIS2 reachability probe (DHIS2_HEALTH_CHECK_INTERVAL > 0)
	└── APISupervisor ("api-layer")
	    └── HTTP Server

DHIS2 calls go through a layered client: the REST client (rate limited,
retries on 429), an optional circuit breaker and a TTL cache for
organisation units and, optionally, credentials.

# Configuration

Configuration is loaded via Koanf v2 (highest priority wins):
  - Environment variables (DHIS2_URL, DHIS2_USERNAME, DHIS2_PASSWORD, ...)
  - Config file (config.yaml, or CONFIG_PATH)
  - Built-in defaults

# Example Usage

	export DHIS2_URL=https://play.dhis2.org/40
	export DHIS2_USERNAME=admin
	export DHIS2_PASSWORD=district
	./dhis2-user-audit

With ALLOW_CREDENTIAL_PASSTHROUGH=true (the default) callers may send their
own DHIS2 credentials as HTTP Basic auth; the service account is then only a
fallback.

# Signal Handling

SIGINT and SIGTERM cancel the supervisor tree. The HTTP server stops
accepting connections and waits up to HTTP_SHUTDOWN_TIMEOUT for in-flight
requests.
*/
package main
