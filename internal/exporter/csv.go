package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"eventdash/pkg/contracts/domain"
)

// TableHeaders is the column order of the patient table export
var TableHeaders = []string{
	"#",
	"M&MCCoD Sex",
	"M&MCCoD Age",
	"Age Group",
	"M&MCCoD_Alive_Primary diagnosis",
	"Organisation unit name",
	"length_of_stay_days",
}

// utf8BOM helps Excel recognize UTF-8
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter exports the filtered patient table
type CSVWriter struct {
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{logger: logger.With(slog.String("component", "csv_exporter"))}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteTable writes the table rows, header first, to w
func (w *CSVWriter) WriteTable(out io.Writer, table domain.Table, options WriteOptions) error {
	if options.BOMPrefix {
		if _, err := out.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(out)
	if err := writer.Write(TableHeaders); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	for i, row := range table.Rows {
		if err := writer.Write(tableRecord(row)); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteTableFile writes the table to filePath, creating parent directories
func (w *CSVWriter) WriteTableFile(filePath string, table domain.Table) error {
	w.logger.Info("Writing CSV file",
		slog.String("file_path", filePath),
		slog.Int("record_count", len(table.Rows)))

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if err := w.WriteTable(file, table, WriteOptions{BOMPrefix: true}); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func tableRecord(row domain.TableRow) []string {
	return []string{
		strconv.Itoa(row.Index),
		row.Sex,
		row.DisplayAge(),
		string(row.AgeGroup),
		row.PrimaryDiagnosis,
		row.OrganisationUnit,
		formatFloat(row.LengthOfStayDays),
	}
}
