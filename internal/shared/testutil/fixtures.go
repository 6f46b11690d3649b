// Package testutil holds helpers shared by the package tests: an in-memory
// slog handler and event workbook fixtures.
package testutil

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"eventdash/pkg/contracts/domain"
)

// EventHeader is the header row of a well-formed event export
var EventHeader = []interface{}{
	"Event", "M&MCCoD Sex", "M&MCCoD Age", "Event date",
	"M&MCCoD_Alive_Date of Discharge", "M&MCCoD_Alive_Primary diagnosis", "Organisation unit name",
}

// EventRow is one data row of a fixture workbook
type EventRow struct {
	Sex       string
	Age       interface{}
	EventDate string
	Discharge string
	Diagnosis string
	OrgUnit   string
}

// SampleEvents are four rows: the two Flu cases used throughout the tests,
// a Malaria case without an age and a row whose discharge date is garbage.
var SampleEvents = []EventRow{
	{Sex: "F", Age: 30, EventDate: "2024-01-10", Discharge: "2024-01-05", Diagnosis: "Flu", OrgUnit: "ClinicA"},
	{Sex: "M", Age: 70, EventDate: "2024-02-01", Discharge: "2024-01-20", Diagnosis: "Flu", OrgUnit: "ClinicB"},
	{Sex: "F", Age: "", EventDate: "2024-02-15 08:00:00", Discharge: "2024-02-12 20:00:00", Diagnosis: "Malaria", OrgUnit: "ClinicA"},
	{Sex: "M", Age: 8, EventDate: "2024-03-01", Discharge: "not a date", Diagnosis: "Measles", OrgUnit: "ClinicB"},
}

// SampleRawRows returns SampleEvents as parsed source rows, for tests that
// derive a dataset without going through a workbook
func SampleRawRows() []domain.RawRow {
	rows := make([]domain.RawRow, 0, len(SampleEvents))
	for i, e := range SampleEvents {
		age := ""
		if e.Age != nil {
			age = fmt.Sprint(e.Age)
		}
		rows = append(rows, domain.RawRow{
			Line:             i + 2,
			Sex:              e.Sex,
			Age:              age,
			EventDate:        e.EventDate,
			DischargeDate:    e.Discharge,
			PrimaryDiagnosis: e.Diagnosis,
			OrganisationUnit: e.OrgUnit,
		})
	}
	return rows
}

// WriteEventWorkbook saves rows to a single-sheet workbook named "Events"
// under t.TempDir and returns its path.
func WriteEventWorkbook(t *testing.T, rows []EventRow) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Events"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		t.Fatalf("rename sheet: %v", err)
	}

	header := append([]interface{}(nil), EventHeader...)
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		t.Fatalf("write header: %v", err)
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		values := []interface{}{i + 1, r.Sex, r.Age, r.EventDate, r.Discharge, r.Diagnosis, r.OrgUnit}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			t.Fatalf("write row %d: %v", i+2, err)
		}
	}

	path := filepath.Join(t.TempDir(), "Eventsnew_data.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}
