package exporter

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventdash/pkg/contracts/domain"
)

func ptr(f float64) *float64 { return &f }

func sampleTable() domain.Table {
	return domain.Table{Rows: []domain.TableRow{
		{Index: 1, Sex: "F", Age: ptr(30), AgeGroup: domain.AgeGroupAdult, PrimaryDiagnosis: "Flu", OrganisationUnit: "ClinicA", LengthOfStayDays: 5},
		{Index: 2, Sex: "M", Age: nil, AgeGroup: domain.AgeGroupUnknown, PrimaryDiagnosis: "Malaria, severe", OrganisationUnit: "ClinicB", LengthOfStayDays: 0.5},
		{Index: 3, Sex: "F", Age: ptr(0.5), AgeText: "0.5", AgeGroup: domain.AgeGroupChild, PrimaryDiagnosis: "Flu", OrganisationUnit: "ClinicA", LengthOfStayDays: 2},
		{Index: 4, Sex: "M", Age: nil, AgeText: "unknown", AgeGroup: domain.AgeGroupUnknown, PrimaryDiagnosis: "Flu", OrganisationUnit: "ClinicA", LengthOfStayDays: 1},
	}}
}

func TestCSVWriter_WriteTable(t *testing.T) {
	tests := []struct {
		name    string
		options WriteOptions
		wantBOM bool
	}{
		{name: "plain", options: WriteOptions{}, wantBOM: false},
		{name: "with BOM", options: WriteOptions{BOMPrefix: true}, wantBOM: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			w := NewCSVWriter(nil)

			require.NoError(t, w.WriteTable(&buf, sampleTable(), tt.options))

			data := buf.Bytes()
			assert.Equal(t, tt.wantBOM, bytes.HasPrefix(data, utf8BOM))
			data = bytes.TrimPrefix(data, utf8BOM)

			records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
			require.NoError(t, err)
			require.Len(t, records, 5)
			assert.Equal(t, TableHeaders, records[0])
			assert.Equal(t, []string{"1", "F", "30", "15-49 Years", "Flu", "ClinicA", "5"}, records[1])
			assert.Equal(t, []string{"2", "M", "", "Unknown", "Malaria, severe", "ClinicB", "0.5"}, records[2])
			assert.Equal(t, []string{"3", "F", "0.5", "0-14 Years", "Flu", "ClinicA", "2"}, records[3])
			assert.Equal(t, []string{"4", "M", "unknown", "Unknown", "Flu", "ClinicA", "1"}, records[4])
		})
	}
}

func TestCSVWriter_WriteTable_Empty(t *testing.T) {
	var buf bytes.Buffer

	err := NewCSVWriter(nil).WriteTable(&buf, domain.Table{NoData: true}, WriteOptions{})
	require.NoError(t, err)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestCSVWriter_WriteTableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "table.csv")

	require.NoError(t, NewCSVWriter(nil).WriteTableFile(path, sampleTable()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, utf8BOM))
	assert.Contains(t, string(data), "ClinicB")
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		input    float64
		expected string
	}{
		{input: 0, expected: "0"},
		{input: 5, expected: "5"},
		{input: -2.25, expected: "-2.25"},
		{input: 1.0 / 3.0, expected: "0.3333333333333333"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatFloat(tt.input))
		})
	}
}
