// DHIS2 User Audit - Duplicate Account and Login Activity Auditing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dhis2-user-audit

package dhis2

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/tomtom215/dhis2-user-audit/internal/config"
)

// fakeAPI is an in-memory API with per-method call counters.
type fakeAPI struct {
	orgUnits    []OrganisationUnit
	users       []User
	credentials []UserCredential
	err         error

	pingCalls     atomic.Int32
	orgUnitCalls  atomic.Int32
	userCalls     atomic.Int32
	credCalls     atomic.Int32
	sysInfoCalled atomic.Int32
}

func (f *fakeAPI) Ping(_ context.Context) error {
	f.pingCalls.Add(1)
	return f.err
}

func (f *fakeAPI) SystemInfo(_ context.Context) (*SystemInfo, error) {
	f.sysInfoCalled.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &SystemInfo{Version: "2.40.3"}, nil
}

func (f *fakeAPI) OrganisationUnits(_ context.Context) ([]OrganisationUnit, error) {
	f.orgUnitCalls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.orgUnits, nil
}

func (f *fakeAPI) Users(_ context.Context) ([]User, error) {
	f.userCalls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.users, nil
}

func (f *fakeAPI) UserCredentials(_ context.Context) ([]UserCredential, error) {
	f.credCalls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.credentials, nil
}

func boolPtr(b bool) *bool { return &b }

func testDHIS2Config(url string) *config.DHIS2Config {
	return &config.DHIS2Config{
		URL:            url,
		Username:       "admin",
		Password:       "district",
		Timeout:        time.Second,
		RetryBaseDelay: time.Millisecond,
		Burst:          1,
	}
}
