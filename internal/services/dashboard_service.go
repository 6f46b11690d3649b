package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"eventdash/internal/charts"
	"eventdash/internal/dataprocessing"
	apierrors "eventdash/internal/errors"
	"eventdash/internal/exporter"
	"eventdash/internal/infrastructure"
	"eventdash/pkg/contracts/domain"
)

// Query sources, used as the metric label
const (
	SourceHTTP      = "http"
	SourceWebSocket = "websocket"
	SourceCLI       = "cli"
)

// DashboardConfig tunes the aggregates and chart output
type DashboardConfig struct {
	Aggregator dataprocessing.AggregatorConfig
	Charts     charts.Config
	CSVBOM     bool
}

// DashboardService answers filter selections against one loaded dataset.
// The dataset is read-only, so the service is safe for concurrent use.
type DashboardService struct {
	dataset    *domain.Dataset
	aggregator *dataprocessing.Aggregator
	renderer   *charts.Renderer
	csvWriter  *exporter.CSVWriter
	csvBOM     bool
	metrics    *infrastructure.BusinessMetrics
	tracer     trace.Tracer
	logger     *slog.Logger
}

// NewDashboardService creates the service. metrics and tracer may be nil.
func NewDashboardService(dataset *domain.Dataset, cfg DashboardConfig, metrics *infrastructure.BusinessMetrics, tracer trace.Tracer, logger *slog.Logger) *DashboardService {
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = otel.Tracer(infrastructure.InstrumentationName)
	}
	logger = logger.With(slog.String("component", "dashboard_service"))

	logger.Info("DashboardService initialized",
		slog.Int("records", dataset.Len()),
		slog.String("source", dataset.Stats().Source))

	return &DashboardService{
		dataset:    dataset,
		aggregator: dataprocessing.NewAggregator(logger, cfg.Aggregator),
		renderer:   charts.NewRenderer(logger, cfg.Charts),
		csvWriter:  exporter.NewCSVWriter(logger),
		csvBOM:     cfg.CSVBOM,
		metrics:    metrics,
		tracer:     tracer,
		logger:     logger,
	}
}

// Ready reports whether a dataset is loaded
func (s *DashboardService) Ready() bool {
	return s.dataset != nil
}

// Dataset returns the loaded dataset
func (s *DashboardService) Dataset() *domain.Dataset {
	return s.dataset
}

// Options returns the selector choices for all four dimensions
func (s *DashboardService) Options(ctx context.Context) (domain.SelectorDomains, error) {
	if !s.Ready() {
		return domain.SelectorDomains{}, apierrors.ErrDatasetUnavailable
	}
	_, span := s.tracer.Start(ctx, "dashboard.options")
	defer span.End()

	return dataprocessing.SelectorDomainsOf(s.dataset.Records()), nil
}

// Query filters the dataset and computes the table and every aggregate
func (s *DashboardService) Query(ctx context.Context, filters domain.Filters, source string) (*domain.Dashboard, error) {
	if !s.Ready() {
		return nil, apierrors.ErrDatasetUnavailable
	}

	ctx, span := s.tracer.Start(ctx, "dashboard.query", trace.WithAttributes(filterAttributes(ctx, filters, source)...))
	defer span.End()

	start := time.Now()
	dashboard := s.aggregator.Query(s.dataset, filters)
	duration := time.Since(start)

	span.SetAttributes(attribute.Int("dashboard.matched_records", dashboard.MatchedRecords))
	infrastructure.RecordQueryMetrics(ctx, s.metrics, source, duration, dashboard.MatchedRecords)

	s.logger.DebugContext(ctx, "dashboard query completed",
		slog.String("source", source),
		slog.String("month", filters.Month.String()),
		slog.String("diagnosis", filters.Diagnosis.String()),
		slog.String("age_group", filters.AgeGroup.String()),
		slog.String("org_unit", filters.OrgUnit.String()),
		slog.Int("matched", dashboard.MatchedRecords),
		slog.Duration("duration", duration))

	return dashboard, nil
}

// Table returns only the filtered patient table
func (s *DashboardService) Table(ctx context.Context, filters domain.Filters) (domain.Table, error) {
	if !s.Ready() {
		return domain.Table{}, apierrors.ErrDatasetUnavailable
	}
	_, span := s.tracer.Start(ctx, "dashboard.table", trace.WithAttributes(filterAttributes(ctx, filters, SourceHTTP)...))
	defer span.End()

	matched := dataprocessing.Apply(s.dataset.Records(), filters)
	span.SetAttributes(attribute.Int("dashboard.matched_records", len(matched)))
	return dataprocessing.BuildTable(matched), nil
}

// RenderChart draws the named series for the filter selection as a PNG.
// Unknown names and empty series come back as API errors.
func (s *DashboardService) RenderChart(ctx context.Context, name string, filters domain.Filters) ([]byte, error) {
	if !s.Ready() {
		return nil, apierrors.ErrDatasetUnavailable
	}
	if !IsChartName(name) {
		return nil, apierrors.ErrUnknownChart
	}

	ctx, span := s.tracer.Start(ctx, "dashboard.chart", trace.WithAttributes(attribute.String("chart.name", name)))
	defer span.End()

	agg := s.aggregator.Aggregate(dataprocessing.Apply(s.dataset.Records(), filters))

	var buf bytes.Buffer
	err := s.renderer.Render(&buf, name, agg)
	switch {
	case err == nil:
	case errors.Is(err, charts.ErrNoData):
		return nil, apierrors.NoDataError(name, seriesMessage(agg, name))
	case errors.Is(err, charts.ErrUnknownChart):
		return nil, apierrors.ErrUnknownChart
	default:
		infrastructure.RecordError(ctx, err)
		infrastructure.RecordSystemError(ctx, s.metrics, "charts")
		return nil, fmt.Errorf("render %s: %w", name, err)
	}

	if s.metrics != nil {
		s.metrics.ChartRenders.Add(ctx, 1, metric.WithAttributes(attribute.String("chart", name)))
	}
	span.SetAttributes(attribute.Int("chart.bytes", buf.Len()))
	return buf.Bytes(), nil
}

// ExportCSV writes the filtered table as CSV and returns the row count
func (s *DashboardService) ExportCSV(ctx context.Context, filters domain.Filters, w io.Writer) (int, error) {
	table, err := s.Table(ctx, filters)
	if err != nil {
		return 0, err
	}

	if err := s.csvWriter.WriteTable(w, table, exporter.WriteOptions{BOMPrefix: s.csvBOM}); err != nil {
		infrastructure.RecordSystemError(ctx, s.metrics, "exporter")
		return 0, fmt.Errorf("export table: %w", err)
	}
	if s.metrics != nil {
		s.metrics.ExportsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("format", "csv")))
	}
	return len(table.Rows), nil
}

// Stats returns the load statistics of the dataset
func (s *DashboardService) Stats(ctx context.Context) (domain.LoadStats, error) {
	if !s.Ready() {
		return domain.LoadStats{}, apierrors.ErrDatasetUnavailable
	}
	return s.dataset.Stats(), nil
}

// IsChartName reports whether name is a renderable series
func IsChartName(name string) bool {
	for _, n := range charts.Names {
		if n == name {
			return true
		}
	}
	return false
}

func seriesMessage(agg domain.Aggregates, name string) string {
	switch name {
	case domain.SeriesVolumeByMonth:
		return agg.VolumeByMonth.Message
	case domain.SeriesAvgLOSByDiagnosis:
		return agg.AvgLOSByDiagnosis.Message
	case domain.SeriesMonthlyTrend:
		return agg.MonthlyTrend.Message
	case domain.SeriesAgeGroupShare:
		return agg.AgeGroupShare.Message
	case domain.SeriesVolumeByOrgUnit:
		return agg.VolumeByOrgUnit.Message
	case domain.SeriesLOSHistogram:
		return agg.LOSHistogram.Message
	}
	return domain.NoPatientsMessage
}

func filterAttributes(ctx context.Context, f domain.Filters, source string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("dashboard.source", source),
		attribute.String("filter.month", f.Month.String()),
		attribute.String("filter.diagnosis", f.Diagnosis.String()),
		attribute.String("filter.age_group", f.AgeGroup.String()),
		attribute.String("filter.org_unit", f.OrgUnit.String()),
	}
	if sessionID := infrastructure.GetSessionID(ctx); sessionID != "" {
		attrs = append(attrs, attribute.String("websocket.session_id", sessionID))
	}
	return attrs
}
