// Package exporter writes dashboard results to files and HTTP responses.
//
// This package contains two components:
//
// CSVWriter: writes the filtered patient table as CSV, with a UTF-8 BOM for
// Excel compatibility when writing files.
//
// RecordWriter: writes the derived record set as a zstd-compressed Parquet
// file for downstream analytical tools.
//
// Example usage:
//
//	csvWriter := exporter.NewCSVWriter(logger)
//	err := csvWriter.WriteTableFile("reports/table.csv", dashboard.Table)
//
//	n, err := exporter.WriteDatasetFile("reports/events.parquet", dataset)
package exporter
