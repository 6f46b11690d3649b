// Package dataprocessing turns a clinical events spreadsheet into the
// derived record set and answers dashboard filter selections over it.
//
// # Architecture
//
// The package is organized into three stages:
//
// 1. Parser: reads the event workbook (or a csv export) into raw rows
// 2. Derivation: parses dates, buckets ages, computes length of stay and
// event month, and drops rows missing either date
// 3. Engine: filters derived records by the four selectors and computes
// the table and aggregate series
//
// # Usage
//
// Loading a dataset:
//
//	ds, err := dataprocessing.LoadDataset("Eventsnew_data.xlsx", dataprocessing.ParseOptions{}, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Answering a selection:
//
//	agg := dataprocessing.NewAggregator(logger, dataprocessing.DefaultAggregatorConfig())
//	dash := agg.Query(ds, domain.Filters{Month: domain.Only("2024-01")})
//
// # Data Flow
//
//	Excel File → Parser → RawRows → Derive → Dataset → Apply → Table + Aggregates
//
// # Error Handling
//
// Only whole-file problems are errors: a missing source yields an AppError
// wrapping ErrSourceNotFound, an unreadable workbook or missing columns a
// parsing AppError. Row-level problems never fail the load; they are
// counted in domain.LoadStats.
package dataprocessing
