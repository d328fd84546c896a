// DHIS2 User Audit - Duplicate Account and Login Activity Auditing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dhis2-user-audit

/*
Package dhis2 is the REST client for the DHIS2 Web API endpoints the audit
needs: organisation units, users, user credentials and system info.

Client Features:
  - Basic authentication with the configured service account, or with
    per-request credentials carried in the context (ContextWithCredentials)
  - Outbound pacing with a token bucket (golang.org/x/time/rate)
  - Automatic HTTP 429 handling with exponential backoff and Retry-After
  - Circuit breaker protection (CircuitBreakerClient)
  - TTL caching of slow-changing collections (CachingClient)
  - Conversion of wire models into audit records (Source)
*/
package dhis2

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/dhis2-user-audit/internal/config"
	"github.com/tomtom215/dhis2-user-audit/internal/metrics"
)

// maxErrorBodySize is the maximum bytes read from an error response body.
const maxErrorBodySize = 64 * 1024

// Endpoint paths, relative to the base URL.
const (
	EndpointSystemInfo        = "/api/system/info"
	EndpointOrganisationUnits = "/api/organisationUnits.json"
	EndpointUsers             = "/api/users.json"
	EndpointUserCredentials   = "/api/userCredentials"
)

// API is the set of DHIS2 operations used by the audit. It is implemented by
// Client, CircuitBreakerClient and CachingClient so they can be stacked.
type API interface {
	Ping(ctx context.Context) error
	SystemInfo(ctx context.Context) (*SystemInfo, error)
	OrganisationUnits(ctx context.Context) ([]OrganisationUnit, error)
	Users(ctx context.Context) ([]User, error)
	UserCredentials(ctx context.Context) ([]UserCredential, error)
}

// Client talks to one DHIS2 instance.
type Client struct {
	baseURL        string
	credentials    Credentials
	client         *http.Client
	limiter        *rate.Limiter
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewClient creates a client from configuration.
func NewClient(cfg *config.DHIS2Config) *Client {
	retryBaseDelay := cfg.RetryBaseDelay
	if retryBaseDelay <= 0 {
		retryBaseDelay = time.Second
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Client{
		baseURL:        strings.TrimRight(cfg.URL, "/"),
		credentials:    Credentials{Username: cfg.Username, Password: cfg.Password},
		client:         &http.Client{Timeout: cfg.Timeout},
		limiter:        rate.NewLimiter(limit, burst),
		maxRetries:     cfg.MaxRetries,
		retryBaseDelay: retryBaseDelay,
	}
}

// BaseURL returns the normalized DHIS2 base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// credentialsFor returns the context credentials if present, else the
// configured service account.
func (c *Client) credentialsFor(ctx context.Context) (Credentials, error) {
	if creds, ok := CredentialsFromContext(ctx); ok {
		return creds, nil
	}
	if !c.credentials.IsZero() {
		return c.credentials, nil
	}
	return Credentials{}, ErrNoCredentials
}

// EffectiveUsername returns the username DHIS2 calls made with ctx will
// authenticate as, or "" when none is available.
func (c *Client) EffectiveUsername(ctx context.Context) string {
	creds, err := c.credentialsFor(ctx)
	if err != nil {
		return ""
	}
	return creds.Username
}

// Principal identifies the full credential pair calls made with ctx
// authenticate with: a hex SHA-256 of "username:password", or "" when no
// credentials are available. Two callers share a principal only when they
// would present identical Basic auth to DHIS2.
func (c *Client) Principal(ctx context.Context) string {
	creds, err := c.credentialsFor(ctx)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256([]byte(creds.Username + ":" + creds.Password))
	return hex.EncodeToString(sum[:])
}

// readBodyForError reads up to maxErrorBodySize bytes for error messages.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}

// doRequestWithRateLimit performs a GET, pacing through the limiter and
// retrying HTTP 429 with exponential backoff (base, 2x base, 4x base, ...).
// A Retry-After header in seconds overrides the computed delay.
func (c *Client) doRequestWithRateLimit(ctx context.Context, reqURL string, creds Credentials) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.SetBasicAuth(creds.Username, creds.Password)
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("HTTP request failed: %w", err)
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		_ = resp.Body.Close()

		if attempt >= c.maxRetries {
			return nil, fmt.Errorf("%w after %d retries (HTTP 429)", ErrRateLimited, c.maxRetries)
		}

		delay := c.retryBaseDelay * time.Duration(1<<uint(attempt))
		if seconds, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && seconds >= 0 {
			delay = time.Duration(seconds) * time.Second
		}
		metrics.DHIS2RateLimitRetries.Inc()

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// getJSON fetches endpoint with params and decodes the JSON body into result.
func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, result interface{}) error {
	start := time.Now()
	errorType := ""
	defer func() { metrics.RecordDHIS2Request(endpoint, time.Since(start), errorType) }()

	creds, err := c.credentialsFor(ctx)
	if err != nil {
		errorType = "no_credentials"
		return err
	}

	reqURL := c.baseURL + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	resp, err := c.doRequestWithRateLimit(ctx, reqURL, creds)
	if err != nil {
		errorType = transportErrorType(err)
		return fmt.Errorf("failed to make %s request: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		statusErr := &StatusError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Body:       string(readBodyForError(resp.Body)),
		}
		errorType = statusErr.kind()
		return statusErr
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		errorType = "decode"
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}

	return nil
}

func transportErrorType(err error) string {
	switch {
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "transport"
	}
}

// SystemInfo fetches /api/system/info.
func (c *Client) SystemInfo(ctx context.Context) (*SystemInfo, error) {
	var info SystemInfo
	if err := c.getJSON(ctx, EndpointSystemInfo, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Ping checks connectivity and credentials against /api/system/info.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.SystemInfo(ctx)
	return err
}

// OrganisationUnits lists every organisation unit (id, name).
func (c *Client) OrganisationUnits(ctx context.Context) ([]OrganisationUnit, error) {
	params := url.Values{}
	params.Set("paging", "false")
	params.Set("fields", "id,name")

	var resp organisationUnitsResponse
	if err := c.getJSON(ctx, EndpointOrganisationUnits, params, &resp); err != nil {
		return nil, err
	}
	return resp.OrganisationUnits, nil
}

// Users lists every user with its organisation unit assignments.
func (c *Client) Users(ctx context.Context) ([]User, error) {
	params := url.Values{}
	params.Set("paging", "false")
	params.Set("fields", "id,username,name,organisationUnits[id,name]")

	var resp usersResponse
	if err := c.getJSON(ctx, EndpointUsers, params, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

// UserCredentials lists the login metadata of every account.
func (c *Client) UserCredentials(ctx context.Context) ([]UserCredential, error) {
	params := url.Values{}
	params.Set("paging", "false")
	params.Set("fields", "username,lastLogin,disabled")

	var resp userCredentialsResponse
	if err := c.getJSON(ctx, EndpointUserCredentials, params, &resp); err != nil {
		return nil, err
	}
	return resp.UserCredentials, nil
}
