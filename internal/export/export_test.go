// DHIS2 User Audit - Duplicate Account and Login Activity Auditing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dhis2-user-audit

package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/tomtom215/dhis2-user-audit/internal/audit"
)

func sampleRecords() []audit.EnrichedUserRecord {
	login := time.Date(2024, 6, 14, 8, 30, 0, 0, time.UTC)
	return []audit.EnrichedUserRecord{
		{
			UserRecord:      audit.UserRecord{ID: "u1", Username: "alice", DisplayName: "Banda, Alice"},
			LastLogin:       &login,
			RecencyLabel:    "Yesterday",
			Status:          audit.StatusActive,
			IsDuplicateName: true,
		},
		{
			UserRecord:   audit.UserRecord{ID: "u2", Username: "bob", DisplayName: "Bob \"B\" Phiri"},
			RecencyLabel: "Never logged in",
			Status:       audit.StatusDisabled,
		},
	}
}

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleRecords()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"id", "username", "name", "lastLogin", "recencyLabel", "status", "isDuplicateName"}, rows[0])
	assert.Equal(t, []string{"u1", "alice", "Banda, Alice", "2024-06-14T08:30:00Z", "Yesterday", "Active", "true"}, rows[1])
	assert.Equal(t, []string{"u2", "bob", "Bob \"B\" Phiri", "", "Never logged in", "Disabled", "false"}, rows[2])
}

func TestWriteCSVEmpty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, "id,username,name,lastLogin,recencyLabel,status,isDuplicateName\n", buf.String())
}

func TestWriteActiveWorkbook(t *testing.T) {
	t.Parallel()

	records := sampleRecords()
	activity := []audit.ActivityRecord{
		{EnrichedUserRecord: records[0], ActiveInRange: true},
		{EnrichedUserRecord: records[1], ActiveInRange: false},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteActiveWorkbook(&buf, activity))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	assert.Equal(t, []string{ActiveUsersSheet}, f.GetSheetList())

	rows, err := f.GetRows(ActiveUsersSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2, "header plus the single active record")
	assert.Equal(t, "activeInRange", rows[0][7])
	assert.Equal(t, []string{"u1", "alice", "Banda, Alice", "2024-06-14T08:30:00Z", "Yesterday", "Active", "true", "true"}, rows[1])
}

func TestWriteActiveWorkbookNoActiveUsers(t *testing.T) {
	t.Parallel()

	activity := []audit.ActivityRecord{{EnrichedUserRecord: sampleRecords()[1]}}

	var buf bytes.Buffer
	err := WriteActiveWorkbook(&buf, activity)
	assert.ErrorIs(t, err, ErrNoActiveUsers)
	assert.Zero(t, buf.Len())

	assert.ErrorIs(t, WriteActiveWorkbook(&buf, nil), ErrNoActiveUsers)
}
