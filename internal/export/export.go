// DHIS2 User Audit - Duplicate Account and Login Activity Auditing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dhis2-user-audit

// Package export renders audit results as downloadable files: a CSV of
// enriched user records and an XLSX workbook of users active in a range.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/tomtom215/dhis2-user-audit/internal/audit"
)

// ActiveUsersSheet is the worksheet name of the activity workbook.
const ActiveUsersSheet = "Active users"

// ErrNoActiveUsers is returned by WriteActiveWorkbook when no record is
// active in the range.
var ErrNoActiveUsers = errors.New("no active user found")

// Columns is the column order shared by every export.
var Columns = []string{"id", "username", "name", "lastLogin", "recencyLabel", "status", "isDuplicateName"}

func formatLastLogin(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func row(r *audit.EnrichedUserRecord) []string {
	return []string{
		r.ID,
		r.Username,
		r.DisplayName,
		formatLastLogin(r.LastLogin),
		r.RecencyLabel,
		string(r.Status),
		strconv.FormatBool(r.IsDuplicateName),
	}
}

// WriteCSV writes records as CSV with a header row.
func WriteCSV(w io.Writer, records []audit.EnrichedUserRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for i := range records {
		if err := cw.Write(row(&records[i])); err != nil {
			return fmt.Errorf("failed to write CSV row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteActiveWorkbook writes the records active in range to an XLSX
// workbook with a single sheet. Inactive records are skipped.
func WriteActiveWorkbook(w io.Writer, activity []audit.ActivityRecord) error {
	active := audit.ActiveOnly(activity)
	if len(active) == 0 {
		return ErrNoActiveUsers
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ActiveUsersSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, 0, len(Columns)+1)
	for _, c := range Columns {
		header = append(header, c)
	}
	header = append(header, "activeInRange")
	if err := f.SetSheetRow(ActiveUsersSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i := range active {
		cells := row(&active[i].EnrichedUserRecord)
		values := make([]interface{}, 0, len(cells)+1)
		for _, c := range cells {
			values = append(values, c)
		}
		values = append(values, strconv.FormatBool(active[i].ActiveInRange))

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(ActiveUsersSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if err := f.SetPanes(ActiveUsersSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
