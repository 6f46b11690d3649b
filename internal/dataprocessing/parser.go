package dataprocessing

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	apperrors "eventdash/internal/errors"
	"eventdash/internal/validation"
	"eventdash/pkg/contracts/domain"
)

// ErrSourceNotFound is returned when the source file does not exist
var ErrSourceNotFound = errors.New("source file not found")

var now = time.Now

// maxHeaderScan bounds how many leading rows are inspected for the header
const maxHeaderScan = 10

// Logical column keys
const (
	colSex              = "sex"
	colAge              = "age"
	colEventDate        = "event_date"
	colDischargeDate    = "discharge_date"
	colPrimaryDiagnosis = "primary_diagnosis"
	colOrganisationUnit = "organisation_unit"
)

// requiredColumns lists every logical column in output order
var requiredColumns = []string{
	colSex, colAge, colEventDate, colDischargeDate, colPrimaryDiagnosis, colOrganisationUnit,
}

// columnAliases maps normalized header text to logical column keys
var columnAliases = map[string]string{
	"m&mccod sex":                     colSex,
	"sex":                             colSex,
	"m&mccod age":                     colAge,
	"age":                             colAge,
	"event date":                      colEventDate,
	"m&mccod_alive_date of discharge": colDischargeDate,
	"date of discharge":               colDischargeDate,
	"discharge date":                  colDischargeDate,
	"m&mccod_alive_primary diagnosis": colPrimaryDiagnosis,
	"primary diagnosis":               colPrimaryDiagnosis,
	"organisation unit name":          colOrganisationUnit,
	"organisation unit":               colOrganisationUnit,
	"organization unit name":          colOrganisationUnit,
	"organization unit":               colOrganisationUnit,
}

// ParseOptions controls how a source file is read
type ParseOptions struct {
	// Sheet selects the worksheet; empty means the first sheet with a usable header
	Sheet string
}

// ParseResult is the raw content of a source file
type ParseResult struct {
	Rows  []domain.RawRow
	Sheet string
}

// ParseFile reads an event spreadsheet (xlsx) or csv export into raw rows.
// Missing files and unreadable tables are fatal.
func ParseFile(path string, opts ParseOptions) (*ParseResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("source file %s", path),
				fmt.Errorf("%w: %s", ErrSourceNotFound, path))
		}
		return nil, apperrors.NewStorageError("failed to stat source file", err)
	}
	if err := validation.NewFileValidator(nil).ValidateSource(path, info); err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, apperrors.NewStorageError("failed to open source file", err)
		}
		defer f.Close()
		return ParseCSV(f)
	default:
		return parseWorkbook(path, opts)
	}
}

func parseWorkbook(path string, opts ParseOptions) (*ParseResult, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.NewParsingError("failed to open workbook", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if opts.Sheet != "" {
		sheets = []string{opts.Sheet}
	}

	var lastErr error
	for _, name := range sheets {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			lastErr = err
			continue
		}
		headerRow, columnMap, err := findHeader(rows)
		if err != nil {
			lastErr = err
			continue
		}
		slog.Debug("Found event data sheet",
			slog.String("sheet_name", name),
			slog.Int("header_row", headerRow),
			slog.Int("total_rows", len(rows)))
		return &ParseResult{
			Rows:  extractRows(rows[headerRow+1:], columnMap, headerRow+2),
			Sheet: name,
		}, nil
	}

	if lastErr == nil {
		lastErr = errors.New("workbook has no sheets")
	}
	if opts.Sheet != "" {
		return nil, apperrors.NewParsingError(fmt.Sprintf("sheet %q has no event data", opts.Sheet), lastErr).
			WithContext("sheet", opts.Sheet)
	}
	return nil, apperrors.NewParsingError("could not find event data sheet in workbook", lastErr).
		WithContext("sheets", f.GetSheetList())
}

// ParseCSV reads a csv export whose first usable row is the header
func ParseCSV(r io.Reader) (*ParseResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read csv source", err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}

	headerRow, columnMap, err := findHeader(rows)
	if err != nil {
		return nil, apperrors.NewParsingError("could not find event data header in csv", err)
	}
	return &ParseResult{Rows: extractRows(rows[headerRow+1:], columnMap, headerRow+2)}, nil
}

// findHeader locates the header row and maps logical columns to indexes
func findHeader(rows [][]string) (int, map[string]int, error) {
	var best map[string]int
	for i := 0; i < len(rows) && i < maxHeaderScan; i++ {
		columnMap := mapColumns(rows[i])
		if len(columnMap) == len(requiredColumns) {
			return i, columnMap, nil
		}
		if len(columnMap) > len(best) {
			best = columnMap
		}
	}

	if len(best) == 0 {
		return -1, nil, errors.New("no header row found")
	}
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := best[col]; !ok {
			missing = append(missing, col)
		}
	}
	return -1, nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
}

func mapColumns(header []string) map[string]int {
	columnMap := make(map[string]int)
	for j, cell := range header {
		key, ok := columnAliases[normalizeHeader(cell)]
		if !ok {
			continue
		}
		if _, seen := columnMap[key]; !seen {
			columnMap[key] = j
		}
	}
	return columnMap
}

func normalizeHeader(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// extractRows copies the mapped cells of each data row. Fully blank rows
// are skipped; firstLine is the 1-based source line of rows[0].
func extractRows(rows [][]string, columnMap map[string]int, firstLine int) []domain.RawRow {
	out := make([]domain.RawRow, 0, len(rows))
	for i, row := range rows {
		cell := func(col string) string {
			if idx := columnMap[col]; idx < len(row) {
				return strings.TrimSpace(row[idx])
			}
			return ""
		}

		raw := domain.RawRow{
			Line:             firstLine + i,
			Sex:              cell(colSex),
			Age:              cell(colAge),
			EventDate:        cell(colEventDate),
			DischargeDate:    cell(colDischargeDate),
			PrimaryDiagnosis: cell(colPrimaryDiagnosis),
			OrganisationUnit: cell(colOrganisationUnit),
		}
		if raw == (domain.RawRow{Line: raw.Line}) {
			continue
		}
		out = append(out, raw)
	}
	return out
}

// LoadDataset reads path and runs the derivation pipeline over its rows
func LoadDataset(path string, opts ParseOptions, logger *slog.Logger) (*domain.Dataset, error) {
	if logger == nil {
		logger = slog.Default()
	}
	start := now()

	parsed, err := ParseFile(path, opts)
	if err != nil {
		return nil, err
	}

	ds := Derive(parsed.Rows, domain.LoadStats{
		Source:   path,
		Sheet:    parsed.Sheet,
		LoadedAt: start,
	}, logger)

	// the duration covers parsing and derivation
	stats := ds.Stats()
	stats.LoadDuration = now().Sub(start)
	return domain.NewDataset(ds.Records(), stats), nil
}
