package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"eventdash/internal/dataprocessing"
	apierrors "eventdash/internal/errors"
	"eventdash/internal/infrastructure"
	"eventdash/internal/shared/testutil"
	"eventdash/pkg/contracts/domain"
)

func newTestDashboardService(t *testing.T) (*DashboardService, *tracetest.SpanRecorder) {
	t.Helper()

	logger, _ := testutil.NewTestLogger(t)
	ds := dataprocessing.Derive(testutil.SampleRawRows(), domain.LoadStats{Source: "fixture.xlsx"}, logger)

	metrics, err := infrastructure.CreateBusinessMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	svc := NewDashboardService(ds, DashboardConfig{CSVBOM: true}, metrics, tp.Tracer("test"), logger)
	return svc, recorder
}

func TestDashboardService_Query(t *testing.T) {
	svc, recorder := newTestDashboardService(t)
	ctx := context.Background()

	tests := []struct {
		name        string
		filters     domain.Filters
		wantMatched int
		wantNoData  bool
	}{
		{name: "unrestricted", filters: domain.NoRestriction(), wantMatched: 3},
		{name: "january", filters: domain.Filters{Month: domain.Only("2024-01")}, wantMatched: 1},
		{name: "flu at ClinicB", filters: domain.Filters{Diagnosis: domain.Only("Flu"), OrgUnit: domain.Only("ClinicB")}, wantMatched: 1},
		{name: "unknown age group", filters: domain.Filters{AgeGroup: domain.Only(string(domain.AgeGroupUnknown))}, wantMatched: 1},
		{name: "no match", filters: domain.Filters{Month: domain.Only("2030-01")}, wantMatched: 0, wantNoData: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dashboard, err := svc.Query(ctx, tt.filters, SourceHTTP)
			require.NoError(t, err)

			assert.Equal(t, 3, dashboard.TotalRecords)
			assert.Equal(t, tt.wantMatched, dashboard.MatchedRecords)
			assert.Len(t, dashboard.Table.Rows, tt.wantMatched)
			assert.Equal(t, tt.wantNoData, dashboard.Table.NoData)
			assert.Equal(t, tt.wantNoData, dashboard.Aggregates.VolumeByMonth.NoData)
			assert.Equal(t, tt.wantNoData, dashboard.Aggregates.LOSBoxplot.NoData)
		})
	}

	spans := recorder.Ended()
	require.NotEmpty(t, spans)
	assert.Equal(t, "dashboard.query", spans[0].Name())
}

func TestDashboardService_QuerySessionAttribute(t *testing.T) {
	svc, recorder := newTestDashboardService(t)

	ctx := infrastructure.WithSessionID(context.Background(), "sess-42")
	_, err := svc.Query(ctx, domain.NoRestriction(), SourceWebSocket)
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Contains(t, spans[0].Attributes(), attribute.String("websocket.session_id", "sess-42"))
	assert.Contains(t, spans[0].Attributes(), attribute.String("dashboard.source", SourceWebSocket))
}

func TestDashboardService_QueryExample(t *testing.T) {
	svc, _ := newTestDashboardService(t)

	dashboard, err := svc.Query(context.Background(), domain.Filters{Month: domain.Only("2024-01")}, SourceCLI)
	require.NoError(t, err)
	require.Len(t, dashboard.Table.Rows, 1)

	row := dashboard.Table.Rows[0]
	assert.Equal(t, 1, row.Index)
	assert.Equal(t, "Flu", row.PrimaryDiagnosis)
	assert.Equal(t, domain.AgeGroupAdult, row.AgeGroup)
	assert.InDelta(t, 5.0, row.LengthOfStayDays, 1e-9)
}

func TestDashboardService_Options(t *testing.T) {
	svc, _ := newTestDashboardService(t)

	options, err := svc.Options(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"2024-01", "2024-02"}, options.Month.Values)
	assert.Equal(t, []string{"Flu", "Malaria"}, options.Diagnosis.Values)
	assert.Equal(t, []string{"ClinicA", "ClinicB"}, options.OrgUnit.Values)
	assert.Equal(t, domain.AnyDiagnosisLabel, options.Diagnosis.Choices()[0])
}

func TestDashboardService_RenderChart(t *testing.T) {
	svc, _ := newTestDashboardService(t)
	ctx := context.Background()

	t.Run("png", func(t *testing.T) {
		png, err := svc.RenderChart(ctx, domain.SeriesVolumeByMonth, domain.NoRestriction())
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
	})

	t.Run("unknown chart", func(t *testing.T) {
		_, err := svc.RenderChart(ctx, "pie-of-everything", domain.NoRestriction())
		assert.ErrorIs(t, err, apierrors.ErrUnknownChart)
	})

	t.Run("boxplot is not a chart", func(t *testing.T) {
		_, err := svc.RenderChart(ctx, domain.SeriesLOSBoxplot, domain.NoRestriction())
		assert.ErrorIs(t, err, apierrors.ErrUnknownChart)
	})

	t.Run("empty selection", func(t *testing.T) {
		_, err := svc.RenderChart(ctx, domain.SeriesLOSHistogram, domain.Filters{Diagnosis: domain.Only("Cholera")})

		var apiErr *apierrors.APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
		assert.Equal(t, "NO_DATA", apiErr.ErrorCode)
		assert.Contains(t, apiErr.Message, "No data available for the selected filters to plot")
	})
}

func TestDashboardService_ExportCSV(t *testing.T) {
	svc, _ := newTestDashboardService(t)

	var buf bytes.Buffer
	n, err := svc.ExportCSV(context.Background(), domain.Filters{OrgUnit: domain.Only("ClinicA")}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	out := buf.String()
	require.True(t, len(out) > 3)
	assert.Equal(t, "\ufeff", out[:3])

	rows, err := csv.NewReader(bytes.NewReader(buf.Bytes()[3:])).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestDashboardService_Stats(t *testing.T) {
	svc, _ := newTestDashboardService(t)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fixture.xlsx", stats.Source)
	assert.Equal(t, 4, stats.RowsRead)
	assert.Equal(t, 1, stats.RowsDropped)
	assert.Equal(t, 3, stats.RowsKept)
}

func TestDashboardService_NoDataset(t *testing.T) {
	svc := NewDashboardService(nil, DashboardConfig{}, nil, nil, nil)
	ctx := context.Background()

	assert.False(t, svc.Ready())

	_, err := svc.Query(ctx, domain.NoRestriction(), SourceHTTP)
	assert.ErrorIs(t, err, apierrors.ErrDatasetUnavailable)
	_, err = svc.Options(ctx)
	assert.ErrorIs(t, err, apierrors.ErrDatasetUnavailable)
	_, err = svc.RenderChart(ctx, domain.SeriesMonthlyTrend, domain.NoRestriction())
	assert.ErrorIs(t, err, apierrors.ErrDatasetUnavailable)
	_, err = svc.ExportCSV(ctx, domain.NoRestriction(), &bytes.Buffer{})
	assert.ErrorIs(t, err, apierrors.ErrDatasetUnavailable)
	_, err = svc.Stats(ctx)
	assert.ErrorIs(t, err, apierrors.ErrDatasetUnavailable)
}

func TestIsChartName(t *testing.T) {
	assert.True(t, IsChartName(domain.SeriesAgeGroupShare))
	assert.False(t, IsChartName(""))
	assert.False(t, IsChartName(domain.SeriesLOSBoxplot))
}
