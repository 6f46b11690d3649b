// Command eventreport loads a patient event export, applies one filter
// selection and prints the dashboard as text or JSON. It can also write
// the filtered table as CSV and the derived dataset as Parquet.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"eventdash/internal/config"
	"eventdash/internal/dataprocessing"
	apierrors "eventdash/internal/errors"
	"eventdash/internal/exporter"
	"eventdash/internal/infrastructure"
	custommw "eventdash/internal/middleware"
	httptransport "eventdash/internal/transport/http"
	"eventdash/internal/validation"
	"eventdash/pkg/contracts"
	"eventdash/pkg/contracts/domain"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

type options struct {
	in       string
	sheet    string
	query    httptransport.DashboardQuery
	csvOut   string
	parquet  string
	asJSON   bool
	bins     int
	top      int
	logLevel string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func parseFlags(args []string, cfg *config.Config, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("eventreport", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&o.in, "in", cfg.Data.SourceFile, "event source file (.xlsx or .csv)")
	fs.StringVar(&o.sheet, "sheet", cfg.Data.Sheet, "worksheet name (default: first sheet with the event columns)")
	fs.StringVar(&o.query.Month, "month", "", "event month YYYY-MM")
	fs.StringVar(&o.query.Diagnosis, "diagnosis", "", "primary diagnosis")
	fs.StringVar(&o.query.AgeGroup, "age-group", "", "age group, e.g. \"65+ Years\"")
	fs.StringVar(&o.query.OrgUnit, "unit", "", "organisation unit")
	fs.StringVar(&o.csvOut, "csv", "", "write the filtered table to this CSV file")
	fs.StringVar(&o.parquet, "parquet", "", "write the derived dataset to this Parquet file")
	fs.BoolVar(&o.asJSON, "json", false, "print the dashboard as JSON")
	fs.IntVar(&o.bins, "bins", cfg.Data.HistogramBins, fmt.Sprintf("length of stay histogram bins (1-%d)", config.MaxHistogramBins))
	fs.IntVar(&o.top, "top", cfg.Data.TopDiagnoses, "diagnoses in the average length of stay series")
	fs.StringVar(&o.logLevel, "log-level", "warn", "log level for stderr")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "%s\n\nUsage: eventreport [flags]\n\n", contracts.GetVersionString())
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if fs.NArg() > 0 {
		return o, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if o.bins <= 0 || o.bins > config.MaxHistogramBins {
		return o, fmt.Errorf("-bins must be within [1,%d]: %d", config.MaxHistogramBins, o.bins)
	}
	return o, nil
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "warning: %v; using defaults\n", err)
		cfg = config.Default()
	}

	o, err := parseFlags(args, cfg, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	logCfg := cfg.Logging
	logCfg.Level = o.logLevel
	logger := infrastructure.NewLogger(stderr, logCfg).With(slog.String("component", "eventreport"))

	filters, err := o.query.Resolve(custommw.NewValidator())
	if err != nil {
		fmt.Fprintf(stderr, "invalid selection: %s\n", describe(err))
		return exitUsage
	}

	files := validation.NewFileValidator(logger)
	for _, out := range []string{o.csvOut, o.parquet} {
		if out == "" {
			continue
		}
		if err := files.ValidateOutputFile(out); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return exitFailure
		}
	}

	ds, err := dataprocessing.LoadDataset(o.in, dataprocessing.ParseOptions{Sheet: o.sheet}, logger)
	if err != nil {
		logger.Error("Failed to load event source",
			slog.String("source", o.in),
			slog.String("error", err.Error()))
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFailure
	}

	agg := dataprocessing.NewAggregator(logger, dataprocessing.AggregatorConfig{
		TopDiagnoses:  o.top,
		HistogramBins: o.bins,
	})
	dashboard := agg.Query(ds, filters)

	if o.csvOut != "" {
		if err := exporter.NewCSVWriter(logger).WriteTableFile(o.csvOut, dashboard.Table); err != nil {
			fmt.Fprintf(stderr, "error: csv export: %v\n", err)
			return exitFailure
		}
	}
	if o.parquet != "" {
		if _, err := exporter.WriteDatasetFile(o.parquet, ds); err != nil {
			fmt.Fprintf(stderr, "error: parquet export: %v\n", err)
			return exitFailure
		}
	}

	if o.asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(dashboard); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return exitFailure
		}
		return exitOK
	}

	printReport(stdout, ds.Stats(), dashboard)
	return exitOK
}

// describe flattens a validation error into one line
func describe(err error) string {
	var apiErr *apierrors.APIError
	if errors.As(err, &apiErr) {
		if fields, ok := apiErr.Details.([]apierrors.ValidationError); ok {
			msgs := make([]string, 0, len(fields))
			for _, f := range fields {
				msgs = append(msgs, f.Message)
			}
			return strings.Join(msgs, "; ")
		}
	}
	return err.Error()
}

func printReport(w io.Writer, stats domain.LoadStats, d *domain.Dashboard) {
	fmt.Fprintf(w, "Source: %s", stats.Source)
	if stats.Sheet != "" {
		fmt.Fprintf(w, " (sheet %s)", stats.Sheet)
	}
	fmt.Fprintf(w, "\nRows read %d, kept %d, dropped %d, unknown ages %d\n",
		stats.RowsRead, stats.RowsKept, stats.RowsDropped, stats.UnknownAges)
	fmt.Fprintf(w, "Filters: month=%s diagnosis=%s age_group=%s org_unit=%s\n",
		d.Filters.Month, d.Filters.Diagnosis, d.Filters.AgeGroup, d.Filters.OrgUnit)
	fmt.Fprintf(w, "%d of %d events match\n\n", d.MatchedRecords, d.TotalRecords)

	if d.Table.NoData {
		fmt.Fprintln(w, d.Table.Message)
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSex\tAge\tAge Group\tPrimary Diagnosis\tOrganisation Unit\tLOS (days)")
	for _, r := range d.Table.Rows {
		age := ""
		if r.Age != nil {
			age = fmt.Sprintf("%g", *r.Age)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%.2f\n",
			r.Index, r.Sex, age, r.AgeGroup, r.PrimaryDiagnosis, r.OrganisationUnit, r.LengthOfStayDays)
	}
	tw.Flush()

	a := d.Aggregates
	fmt.Fprintf(w, "\n%s\n", a.VolumeByMonth.Title)
	for _, p := range a.VolumeByMonth.Points {
		fmt.Fprintf(w, "  %s  %d\n", p.Month, p.Cases)
	}
	fmt.Fprintf(w, "\n%s\n", a.AvgLOSByDiagnosis.Title)
	for _, p := range a.AvgLOSByDiagnosis.Points {
		fmt.Fprintf(w, "  %s  %.2f days (%d cases)\n", p.Diagnosis, p.AverageDays, p.Cases)
	}
	fmt.Fprintf(w, "\n%s\n", a.AgeGroupShare.Title)
	for _, p := range a.AgeGroupShare.Points {
		fmt.Fprintf(w, "  %s  %d (%.1f%%)\n", p.AgeGroup, p.Cases, p.Share*100)
	}
	fmt.Fprintf(w, "\n%s\n", a.VolumeByOrgUnit.Title)
	for _, p := range a.VolumeByOrgUnit.Points {
		fmt.Fprintf(w, "  %s  %d\n", p.OrganisationUnit, p.Cases)
	}
	fmt.Fprintf(w, "\n%s\n", a.LOSHistogram.Title)
	for _, b := range a.LOSHistogram.Points {
		if b.Count > 0 {
			fmt.Fprintf(w, "  [%.2f, %.2f)  %d\n", b.Lower, b.Upper, b.Count)
		}
	}
}
