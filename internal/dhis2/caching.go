// DHIS2 User Audit - Duplicate Account and Login Activity Auditing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dhis2-user-audit

package dhis2

import (
	"context"
	"time"

	"github.com/tomtom215/dhis2-user-audit/internal/cache"
	"github.com/tomtom215/dhis2-user-audit/internal/metrics"
)

// Cache resource names, also used as metric labels.
const (
	resourceOrganisationUnits = "organisation_units"
	resourceUserCredentials   = "user_credentials"
)

// CachingClient caches organisation units and user credentials per base URL
// and credential principal, so an entry is only served to a caller presenting
// the same username and password that fetched it. A zero TTL disables
// caching for that resource.
// Users and system info are always fetched.
type CachingClient struct {
	api       API
	baseURL   string
	principal func(ctx context.Context) string

	orgUnits    *cache.Cache[[]OrganisationUnit]
	credentials *cache.Cache[[]UserCredential]
}

// NewCachingClient wraps api. principal resolves the credential pair a call
// made with ctx authenticates with (see Client.Principal). It must change
// whenever the password changes.
func NewCachingClient(api API, baseURL string, principal func(ctx context.Context) string, orgUnitTTL, credentialTTL time.Duration) *CachingClient {
	cc := &CachingClient{
		api:       api,
		baseURL:   baseURL,
		principal: principal,
	}
	if orgUnitTTL > 0 {
		cc.orgUnits = cache.New[[]OrganisationUnit](orgUnitTTL)
	}
	if credentialTTL > 0 {
		cc.credentials = cache.New[[]UserCredential](credentialTTL)
	}
	return cc
}

// Close stops the cache sweepers.
func (cc *CachingClient) Close() {
	if cc.orgUnits != nil {
		cc.orgUnits.Close()
	}
	if cc.credentials != nil {
		cc.credentials.Close()
	}
}

// Invalidate drops every cached entry.
func (cc *CachingClient) Invalidate() {
	if cc.orgUnits != nil {
		cc.orgUnits.Clear()
	}
	if cc.credentials != nil {
		cc.credentials.Clear()
	}
}

func (cc *CachingClient) key(ctx context.Context, resource string) string {
	return cache.GenerateKey(resource, map[string]string{
		"base":      cc.baseURL,
		"principal": cc.principal(ctx),
	})
}

// cachedFetch serves resource from c, falling back to fetch on a miss.
// Failed fetches are not cached.
func cachedFetch[V any](ctx context.Context, c *cache.Cache[V], key, resource string, fetch func(context.Context) (V, error)) (V, error) {
	if c == nil {
		return fetch(ctx)
	}
	if v, ok := c.Get(key); ok {
		metrics.RecordCacheLookup(resource, true)
		return v, nil
	}
	metrics.RecordCacheLookup(resource, false)

	v, err := fetch(ctx)
	if err != nil {
		return v, err
	}
	c.Set(key, v)
	return v, nil
}

// Ping is never cached.
func (cc *CachingClient) Ping(ctx context.Context) error {
	return cc.api.Ping(ctx)
}

// SystemInfo is never cached.
func (cc *CachingClient) SystemInfo(ctx context.Context) (*SystemInfo, error) {
	return cc.api.SystemInfo(ctx)
}

// OrganisationUnits returns the cached list when fresh.
func (cc *CachingClient) OrganisationUnits(ctx context.Context) ([]OrganisationUnit, error) {
	return cachedFetch(ctx, cc.orgUnits, cc.key(ctx, resourceOrganisationUnits), resourceOrganisationUnits, cc.api.OrganisationUnits)
}

// Users is never cached.
func (cc *CachingClient) Users(ctx context.Context) ([]User, error) {
	return cc.api.Users(ctx)
}

// UserCredentials returns the cached list when fresh.
func (cc *CachingClient) UserCredentials(ctx context.Context) ([]UserCredential, error) {
	return cachedFetch(ctx, cc.credentials, cc.key(ctx, resourceUserCredentials), resourceUserCredentials, cc.api.UserCredentials)
}

// New stacks the configured layers over a Client: breaker (when enabled)
// then cache. The returned breaker is nil when disabled.
func New(client *Client, breakerEnabled bool, orgUnitTTL, credentialTTL time.Duration) (*CachingClient, *CircuitBreakerClient) {
	var api API = client
	var breaker *CircuitBreakerClient
	if breakerEnabled {
		breaker = NewCircuitBreakerClient(client)
		api = breaker
	}
	return NewCachingClient(api, client.BaseURL(), client.Principal, orgUnitTTL, credentialTTL), breaker
}
