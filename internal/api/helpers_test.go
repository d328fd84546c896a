// DHIS2 User Audit - Duplicate Account and Login Activity Auditing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dhis2-user-audit

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/dhis2-user-audit/internal/audit"
	"github.com/tomtom215/dhis2-user-audit/internal/dhis2"
)

// evalNow is the fixed evaluation instant of every handler test.
var evalNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

const testOrgUnit = "ImspTQPwCqd"

func at(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

// fakeDHIS2 serves fixed users and credentials and records the
// credentials seen in the request context.
type fakeDHIS2 struct {
	users       []audit.UserRecord
	credentials []audit.CredentialRecord
	orgUnits    []audit.OrganisationUnit
	err         error
	pingErr     error

	mu       sync.Mutex
	seenUser string
}

func (f *fakeDHIS2) record(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if creds, ok := dhis2.CredentialsFromContext(ctx); ok {
		f.seenUser = creds.Username
	}
}

func (f *fakeDHIS2) SeenUser() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seenUser
}

func (f *fakeDHIS2) Users(ctx context.Context) ([]audit.UserRecord, error) {
	f.record(ctx)
	return f.users, f.err
}

func (f *fakeDHIS2) Credentials(ctx context.Context) ([]audit.CredentialRecord, error) {
	f.record(ctx)
	return f.credentials, f.err
}

func (f *fakeDHIS2) OrganisationUnits(ctx context.Context) ([]audit.OrganisationUnit, error) {
	f.record(ctx)
	return f.orgUnits, f.err
}

func (f *fakeDHIS2) Ping(_ context.Context) error {
	return f.pingErr
}

func newFakeDHIS2() *fakeDHIS2 {
	ou := []audit.OrganisationUnit{{ID: testOrgUnit, Name: "Lilongwe DHO"}}
	return &fakeDHIS2{
		users: []audit.UserRecord{
			{ID: "u1", Username: "alice", DisplayName: "Alice Banda", OrganisationUnits: ou},
			{ID: "u2", Username: "bob", DisplayName: "Bob Phiri"},
			{ID: "u3", Username: "alice2", DisplayName: "Alice Banda", OrganisationUnits: ou},
			{ID: "u4", Username: "carol", DisplayName: "Carol Mwale"},
		},
		credentials: []audit.CredentialRecord{
			{Username: "alice", LastLogin: at("2024-01-01T08:00:00Z")},
			{Username: "alice", LastLogin: at("2024-06-14T08:00:00Z")},
			{Username: "bob", LastLogin: at("2024-05-01T10:00:00Z"), Disabled: true},
			{Username: "alice2", LastLogin: at("2024-06-15T09:00:00Z")},
		},
		orgUnits: ou,
	}
}

type testServer struct {
	dhis2   *fakeDHIS2
	handler http.Handler
}

func newTestServer(t *testing.T, fake *fakeDHIS2, mwConfig *ChiMiddlewareConfig) *testServer {
	t.Helper()

	auditor := audit.NewAuditor(fake, fake, audit.AuditorConfig{
		DefaultRangeDays: 30,
		Now:              func() time.Time { return evalNow },
	})
	h := NewHandler(auditor, fake, func() string { return "closed" })
	h.now = func() time.Time { return evalNow }

	if mwConfig == nil {
		mwConfig = DefaultChiMiddlewareConfig()
		mwConfig.RateLimitDisabled = true
	}

	return &testServer{
		dhis2:   fake,
		handler: NewRouter(h, NewChiMiddleware(mwConfig)).SetupChi(),
	}
}

func (s *testServer) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
	Meta    *APIMeta        `json:"meta"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v\nbody: %s", err, rec.Body.String())
	}
	return env
}

func decodeData(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode data: %v\ndata: %s", err, string(env.Data))
	}
}
