package exporter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"

	"eventdash/pkg/contracts/domain"
)

// RecordRow is the Parquet schema of one derived event record
type RecordRow struct {
	Sex              string   `parquet:"sex"`
	Age              *float64 `parquet:"age,optional"`
	AgeText          string   `parquet:"age_text"`
	AgeGroup         string   `parquet:"age_group"`
	EventDate        string   `parquet:"event_date"`
	DischargeDate    string   `parquet:"discharge_date"`
	PrimaryDiagnosis string   `parquet:"primary_diagnosis"`
	OrganisationUnit string   `parquet:"organisation_unit"`
	LengthOfStayDays float64  `parquet:"length_of_stay_days"`
	Month            string   `parquet:"month"`
}

// NewRecordRow flattens a derived record for Parquet output
func NewRecordRow(r domain.Record) RecordRow {
	return RecordRow{
		Sex:              r.Sex,
		Age:              r.Age,
		AgeText:          r.AgeText,
		AgeGroup:         string(r.AgeGroup),
		EventDate:        formatDate(r.EventDate),
		DischargeDate:    formatDate(r.DischargeDate),
		PrimaryDiagnosis: r.PrimaryDiagnosis,
		OrganisationUnit: r.OrganisationUnit,
		LengthOfStayDays: r.LengthOfStayDays,
		Month:            r.Month,
	}
}

// RecordWriter writes derived records to a Parquet stream
type RecordWriter struct {
	closer io.Closer
	writer *parquet.GenericWriter[RecordRow]
	count  int
}

// NewRecordWriter wraps out in a zstd-compressed Parquet writer
func NewRecordWriter(out io.Writer) *RecordWriter {
	writer := parquet.NewGenericWriter[RecordRow](out,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedDefault}),
		parquet.DataPageStatistics(true),
		parquet.CreatedBy("eventdash", "1.0", ""),
	)
	return &RecordWriter{writer: writer}
}

// CreateRecordFile creates filePath and returns a writer that closes it
func CreateRecordFile(filePath string) (*RecordWriter, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	file, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("create parquet file: %w", err)
	}
	w := NewRecordWriter(file)
	w.closer = file
	return w, nil
}

// Write writes a batch of records
func (w *RecordWriter) Write(records []domain.Record) (int, error) {
	rows := make([]RecordRow, len(records))
	for i, r := range records {
		rows[i] = NewRecordRow(r)
	}
	n, err := w.writer.Write(rows)
	w.count += n
	if err != nil {
		return n, fmt.Errorf("write parquet rows: %w", err)
	}
	return n, nil
}

// Close flushes the final row group and closes the underlying file if any
func (w *RecordWriter) Close() error {
	if err := w.writer.Close(); err != nil {
		if w.closer != nil {
			w.closer.Close()
		}
		return fmt.Errorf("close parquet writer: %w", err)
	}
	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}

// Count returns the total number of rows written
func (w *RecordWriter) Count() int {
	return w.count
}

// WriteDatasetFile writes every record of ds to filePath
func WriteDatasetFile(filePath string, ds *domain.Dataset) (int, error) {
	w, err := CreateRecordFile(filePath)
	if err != nil {
		return 0, err
	}
	n, err := w.Write(ds.Records())
	if err != nil {
		w.Close()
		return n, err
	}
	return n, w.Close()
}
